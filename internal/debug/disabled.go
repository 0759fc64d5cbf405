// Copyright 2025 The Tern Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !debug

// Package debug includes debugging helpers.
//
// All of it compiles away unless the build carries the debug tag, so the
// allocator and collector log freely through here.
package debug

import "testing"

// Enabled is true if the package is being built with the debug tag, which
// enables various debugging features.
const Enabled = false

// Log prints debugging information to stderr. A no-op without the debug tag.
func Log(context []any, operation, format string, args ...any) {}

// Assert panics if cond is false, but only in debug mode.
func Assert(cond bool, format string, args ...any) {}

// WithTesting routes debug logs on this goroutine into t's log until the
// returned closure is called. A no-op without the debug tag.
func WithTesting(t testing.TB) func() { return func() {} }
