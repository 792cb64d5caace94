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
	"testing"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

func req(name string) reconcile.Request {
	r := reconcile.Request{}
	r.Name = name
	return r
}

func TestBackoffLimiter_delay_grows_and_stays_within_bounds(t *testing.T) {
	rl := NewWithBounds(10*time.Millisecond, time.Second)
	item := req("foo")

	prev := time.Duration(0)
	for i := 0; i < 10; i++ {
		d := rl.When(item)
		if d < 0 || d > time.Second {
			t.Fatalf("attempt %d: delay %v out of bounds", i, d)
		}
		// jitter is +/-20%, so allow generous slack while still checking
		// the trend is upward until the cap is hit.
		if d < prev/2 && d < time.Second {
			t.Fatalf("attempt %d: delay %v regressed sharply from %v", i, d, prev)
		}
		prev = d
	}
}

func TestBackoffLimiter_caps_at_max_delay(t *testing.T) {
	rl := NewWithBounds(time.Second, 2*time.Second)
	item := req("foo")

	var last time.Duration
	for i := 0; i < 20; i++ {
		last = rl.When(item)
	}
	if last > 2*time.Second {
		t.Fatalf("delay %v exceeds max delay", last)
	}
}

func TestBackoffLimiter_forget_resets_attempts(t *testing.T) {
	rl := NewWithBounds(10*time.Millisecond, time.Second)
	item := req("foo")

	rl.When(item)
	rl.When(item)
	if n := rl.NumRequeues(item); n != 2 {
		t.Fatalf("NumRequeues = %d, want 2", n)
	}

	rl.Forget(item)
	if n := rl.NumRequeues(item); n != 0 {
		t.Fatalf("NumRequeues after Forget = %d, want 0", n)
	}
}

func TestBackoffLimiter_tracks_keys_independently(t *testing.T) {
	rl := NewWithBounds(10*time.Millisecond, time.Second)

	rl.When(req("a"))
	rl.When(req("a"))
	rl.When(req("b"))

	if n := rl.NumRequeues(req("a")); n != 2 {
		t.Fatalf("NumRequeues(a) = %d, want 2", n)
	}
	if n := rl.NumRequeues(req("b")); n != 1 {
		t.Fatalf("NumRequeues(b) = %d, want 1", n)
	}
}
