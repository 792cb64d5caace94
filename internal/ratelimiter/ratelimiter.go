// Copyright 2025 The Previewd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimiter

import (
	"math/rand"
	"sync"
	"time"

	"k8s.io/client-go/util/workqueue"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// Default backoff parameters: start ~250ms, double each attempt, cap at
// ~5 minutes, ±20% jitter.
const (
	DefaultBaseDelay = 250 * time.Millisecond
	DefaultMaxDelay  = 5 * time.Minute
	jitterFraction   = 0.2
)

// New returns a workqueue.TypedRateLimiter for reconcile.Request keyed
// items implementing bounded exponential backoff with jitter. Failures
// widen the delay per key; a successful reconcile (Forget) resets it.
//
// The jitter formula mirrors the retry backoff previously used for
// outbound GitHub API calls: base * 2^attempt * (1 + jitter), jitter drawn
// uniformly from [-0.2, 0.2], capped at maxDelay.
func New() workqueue.TypedRateLimiter[reconcile.Request] {
	return NewWithBounds(DefaultBaseDelay, DefaultMaxDelay)
}

// NewWithBounds is New with explicit base/max delays, for tests.
func NewWithBounds(baseDelay, maxDelay time.Duration) workqueue.TypedRateLimiter[reconcile.Request] {
	return &backoffLimiter{
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		attempts:  make(map[reconcile.Request]int),
	}
}

type backoffLimiter struct {
	mu        sync.Mutex
	baseDelay time.Duration
	maxDelay  time.Duration
	attempts  map[reconcile.Request]int
}

// When returns the delay to wait before the item is retried, incrementing
// its attempt count.
func (b *backoffLimiter) When(item reconcile.Request) time.Duration {
	b.mu.Lock()
	attempt := b.attempts[item]
	b.attempts[item] = attempt + 1
	b.mu.Unlock()

	multiplier := 1 << uint(attempt) // 2^attempt
	base := float64(b.baseDelay) * float64(multiplier)

	jitter := (rand.Float64() * 2 * jitterFraction) - jitterFraction // -0.2 .. +0.2
	delay := time.Duration(base * (1 + jitter))

	if delay > b.maxDelay {
		delay = b.maxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// Forget resets the item's attempt count, called after a successful
// reconcile so the next failure starts backing off from the base delay.
func (b *backoffLimiter) Forget(item reconcile.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.attempts, item)
}

// NumRequeues reports how many times item has been retried.
func (b *backoffLimiter) NumRequeues(item reconcile.Request) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts[item]
}
