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

package cluster

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// maxConflictRetries bounds the total number of attempts RetryOnConflict
// makes: conflict retries must be bounded rather than unlimited, since an
// object under continuous external writes should eventually surface an
// error instead of looping forever.
const maxConflictRetries = 3

// Adapter wraps a controller-runtime client.Client, exposing typed
// get/list/create/patch/delete calls while adding error classification, a
// per-call deadline, and a conflict-retry helper the reconciler needs.
// Every call issued through an Adapter is individually bounded by
// RequestTimeout, distinct from and typically much shorter than the
// deadline governing the whole Reconcile call.
type Adapter struct {
	client.Client

	// RequestTimeout bounds each individual API call made through this
	// Adapter. Zero leaves the caller's own context deadline, if any, as
	// the only bound.
	RequestTimeout time.Duration
}

// New wraps c in an Adapter with no per-call timeout.
func New(c client.Client) *Adapter {
	return &Adapter{Client: c}
}

// NewWithTimeout wraps c in an Adapter whose calls are each bounded by
// timeout.
func NewWithTimeout(c client.Client, timeout time.Duration) *Adapter {
	return &Adapter{Client: c, RequestTimeout: timeout}
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.RequestTimeout)
}

// Get calls the underlying client's Get, bounded by RequestTimeout.
func (a *Adapter) Get(ctx context.Context, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.Client.Get(ctx, key, obj, opts...)
}

// List calls the underlying client's List, bounded by RequestTimeout.
func (a *Adapter) List(ctx context.Context, list client.ObjectList, opts ...client.ListOption) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.Client.List(ctx, list, opts...)
}

// Create calls the underlying client's Create, bounded by RequestTimeout.
func (a *Adapter) Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.Client.Create(ctx, obj, opts...)
}

// Update calls the underlying client's Update, bounded by RequestTimeout.
func (a *Adapter) Update(ctx context.Context, obj client.Object, opts ...client.UpdateOption) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.Client.Update(ctx, obj, opts...)
}

// Patch calls the underlying client's Patch, bounded by RequestTimeout.
func (a *Adapter) Patch(ctx context.Context, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.Client.Patch(ctx, obj, patch, opts...)
}

// Delete calls the underlying client's Delete, bounded by RequestTimeout.
func (a *Adapter) Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.Client.Delete(ctx, obj, opts...)
}

// Status returns a SubResourceWriter whose Create/Update/Patch calls are
// each bounded by RequestTimeout, the same as the top-level methods above.
func (a *Adapter) Status() client.SubResourceWriter {
	return &timedSubResourceWriter{inner: a.Client.Status(), adapter: a}
}

type timedSubResourceWriter struct {
	inner   client.SubResourceWriter
	adapter *Adapter
}

func (w *timedSubResourceWriter) Create(ctx context.Context, obj client.Object, subResource client.Object, opts ...client.SubResourceCreateOption) error {
	ctx, cancel := w.adapter.withTimeout(ctx)
	defer cancel()
	return w.inner.Create(ctx, obj, subResource, opts...)
}

func (w *timedSubResourceWriter) Update(ctx context.Context, obj client.Object, opts ...client.SubResourceUpdateOption) error {
	ctx, cancel := w.adapter.withTimeout(ctx)
	defer cancel()
	return w.inner.Update(ctx, obj, opts...)
}

func (w *timedSubResourceWriter) Patch(ctx context.Context, obj client.Object, patch client.Patch, opts ...client.SubResourcePatchOption) error {
	ctx, cancel := w.adapter.withTimeout(ctx)
	defer cancel()
	return w.inner.Patch(ctx, obj, patch, opts...)
}

// IsNotFound reports whether err is a Kubernetes "not found" API error.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// IsConflict reports whether err is a Kubernetes optimistic-concurrency
// conflict (stale resourceVersion).
func IsConflict(err error) bool {
	return apierrors.IsConflict(err)
}

// IsForbidden reports whether err is a Kubernetes RBAC/admission denial.
func IsForbidden(err error) bool {
	return apierrors.IsForbidden(err)
}

// IsAlreadyExists reports whether err is a Kubernetes "already exists" API
// error, e.g. a create racing another writer of the same object.
func IsAlreadyExists(err error) bool {
	return apierrors.IsAlreadyExists(err)
}

// IsTransient reports whether err looks like a network-level failure
// worth retrying: timeouts, connection resets, DNS lookup failures, or a
// server-side error the API machinery marks as retriable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if apierrors.IsServerTimeout(err) || apierrors.IsTimeout(err) || apierrors.IsTooManyRequests(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return false
}

// RetryOnConflict calls fn, at most maxConflictRetries times in total,
// while it returns a conflict error, using an exponential backoff between
// attempts. Any non-conflict error, or exhaustion of the retry budget,
// is returned immediately.
func (a *Adapter) RetryOnConflict(ctx context.Context, fn func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxConflictRetries-1), ctx)

	err := backoff.Retry(func() error {
		if err := fn(); err != nil {
			if IsConflict(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, policy)

	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return fmt.Errorf("cluster: %w", permanent.Unwrap())
		}
		return fmt.Errorf("cluster: conflict retry exhausted: %w", err)
	}
	return nil
}
