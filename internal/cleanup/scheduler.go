/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package cleanup

import (
	"context"
	"time"

	qualifiedv1alpha1 "github.com/qualified-io/ephemeron-controller/api/v1alpha1"

	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Scheduler periodically deletes Ephemerons whose spec.expires has passed.
// It exists as a backstop to the reconciler's own requeue-at-expiry for
// the case a requeue is missed, e.g. the manager restarted between the
// last reconcile and the expiry instant.
type Scheduler struct {
	client   client.Client
	interval time.Duration
	clock    clock.WithTicker
}

// NewScheduler creates a cleanup scheduler that lists Ephemerons every
// interval and deletes the expired ones, using the real wall clock.
func NewScheduler(k8sClient client.Client, interval time.Duration) *Scheduler {
	return NewSchedulerWithClock(k8sClient, interval, clock.RealClock{})
}

// NewSchedulerWithClock is NewScheduler with an injectable clock, for tests
// that need deterministic expiry checks.
func NewSchedulerWithClock(k8sClient client.Client, interval time.Duration, c clock.WithTicker) *Scheduler {
	return &Scheduler{
		client:   k8sClient,
		interval: interval,
		clock:    c,
	}
}

// Start runs the cleanup loop until ctx is canceled, returning nil on
// graceful shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	logger := log.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if err := s.cleanup(ctx); err != nil {
				logger.Error(err, "cleanup pass failed")
			}
		}
	}
}

// cleanup lists every Ephemeron and deletes those whose spec.expires is at
// or before now.
func (s *Scheduler) cleanup(ctx context.Context) error {
	var list qualifiedv1alpha1.EphemeronList
	if err := s.client.List(ctx, &list); err != nil {
		return err
	}

	now := s.clock.Now()
	for i := range list.Items {
		eph := &list.Items[i]

		if eph.Spec.Expires.IsZero() {
			continue
		}
		if now.Before(eph.Spec.Expires.Time) {
			continue
		}
		if err := s.client.Delete(ctx, eph); err != nil {
			return err
		}
	}

	return nil
}
