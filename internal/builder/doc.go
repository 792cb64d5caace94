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

// Package builder computes the desired Pod, Service, and Ingress for an
// Ephemeron. Every function here is pure: given the same Ephemeron and
// Config, it returns byte-identical output (up to resourceVersion/uid
// fields the caller must not set). No function in this package performs
// I/O; the reconciler is responsible for comparing the builder's output
// against cluster state and issuing creates/patches.
package builder
