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

// Package tern is the runtime core of the Tern object-message language.
//
// The compiler turns Tern programs into Go code that registers methods on a
// [Program] and sends messages through a [Context]. This package owns
// everything underneath that: the packed value word, the moving mark-compact
// heap, the value stack that anchors live roots across allocations, message
// dispatch, tracebacks, and the builtin method sets.
//
// # The stack protocol
//
// Any collection may move any heap body, so raw addresses derived from a
// value go stale at every allocation point. Every routine that can allocate,
// directly or through a message send, follows the same discipline: reserve a
// frame with [Context.Enter], publish the values it still needs into the
// frame before the allocation, and re-read them afterwards. The value stack
// is the collector's only root set; a value not reachable from it does not
// survive.
package tern

import "github.com/tern-lang/tern/internal/value"

// Value is the packed tagged word every Tern object is passed around as.
type Value = value.Value

// Tag is the tag field of a [Value].
type Tag = value.Tag

// The canonical constant instances.
var (
	True    = value.True
	False   = value.False
	Empty   = value.Empty
	Less    = value.Less
	EqualTo = value.EqualTo
	Greater = value.Greater

	// BuiltIn is the receiver of the free-standing runtime methods.
	BuiltIn = value.BuiltIn

	// ErrStackOverflow is what a routine returns when its frame reservation
	// fails.
	ErrStackOverflow = value.ErrorConst(value.ConstStackOverflow)
)

// Integer builds a small integer value.
func Integer(n int64) Value { return value.Integer(n) }

// Boolean builds the canonical True or False.
func Boolean(b bool) Value { return value.Boolean(b) }
