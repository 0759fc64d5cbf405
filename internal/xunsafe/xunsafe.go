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

// Package xunsafe provides a more convenient interface for performing unsafe
// operations than Go's built-in package unsafe.
//
// The runtime heap lives outside of Go's managed memory, so nearly all access
// to it flows through the helpers in this package: typed raw addresses
// ([Addr]), pointer arithmetic ([Add], [ByteAdd]), and raw loads and stores.
package xunsafe

import (
	"sync"
	"unsafe"
)

// NoCopy is a type that go vet will complain about having been moved.
//
// It does so by containing a (zero-length) array of [sync.Mutex], which
// vet's copylocks check looks through.
type NoCopy [0]sync.Mutex

// Size returns the size of T in bytes.
func Size[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// BitCast performs an unsafe bitcast from one type to another.
func BitCast[To, From any](v From) To {
	return *(*To)(unsafe.Pointer(&v))
}

// Cast casts one pointer type to another.
func Cast[To, From any](p *From) *To {
	return (*To)(unsafe.Pointer(p))
}

// Add performs pointer arithmetic on p, scaled by the size of E.
func Add[P ~*E, E any](p P, n int) P {
	return P(unsafe.Add(unsafe.Pointer(p), n*Size[E]()))
}

// Sub computes the difference between two pointers, scaled by the size of E.
func Sub[P ~*E, E any](p1, p2 P) int {
	return int(uintptr(unsafe.Pointer(p1))-uintptr(unsafe.Pointer(p2))) / Size[E]()
}

// Load loads the nth value pointed to by p.
func Load[P ~*E, E any](p P, n int) E {
	return *Add(p, n)
}

// Store stores v as the nth value pointed to by p.
func Store[P ~*E, E any](p P, n int, v E) {
	*Add(p, n) = v
}

// ByteAdd performs unscaled pointer arithmetic on p, reinterpreting the
// result as a pointer to T.
func ByteAdd[T any, P ~*E, E any](p P, n int) *T {
	return (*T)(unsafe.Add(unsafe.Pointer(p), n))
}

// ByteLoad loads a T at an unscaled offset from p.
func ByteLoad[T any, P ~*E, E any](p P, n int) T {
	return *ByteAdd[T](p, n)
}

// ByteStore stores a T at an unscaled offset from p.
func ByteStore[T any, P ~*E, E any](p P, n int, v T) {
	*ByteAdd[T](p, n) = v
}

// Copy copies n values of type E from src to dst. The ranges may overlap.
func Copy[P ~*E, E any](dst, src P, n int) {
	copy(Slice(dst, n), Slice(src, n))
}

// Clear zeroes n values of type E starting at p.
func Clear[P ~*E, E any](p P, n int) {
	clear(Slice(p, n))
}

// Slice constructs a slice of length n over the memory starting at p.
func Slice[P ~*E, E any](p P, n int) []E {
	return unsafe.Slice((*E)(p), n)
}

// String constructs a string of length n over the memory starting at p.
//
// The resulting string aliases that memory; the caller must not allow it to
// escape past a write to the underlying bytes.
func String(p *byte, n int) string {
	return unsafe.String(p, n)
}
