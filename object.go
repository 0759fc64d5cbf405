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

package tern

import (
	"fmt"

	"github.com/tern-lang/tern/internal/mem"
	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// Heap object layouts. A string body is a uint32 byte count, the bytes, and
// a NUL; an array body is a one-word size prefix followed by the element
// slots. The accessors below hand out views into the heap, which go stale at
// the next allocation point like any other derived address.

// NewString allocates a string object holding s.
//
// Like every constructor here, this is an allocation point: previously
// derived addresses are invalid afterwards.
func (ctx *Context) NewString(s string) value.Value {
	body := ctx.heap.AllocateString(ctx.roots(), uint32(len(s)))
	copy(xunsafe.Slice(body.ByteAdd(4).AssertValid(), len(s)), s)
	return value.TagPointer(value.TagString, body)
}

// NewArray allocates an array of n elements, all False.
func (ctx *Context) NewArray(n uint32) value.Value {
	body := ctx.heap.AllocateArray(ctx.roots(), n)
	return value.TagPointer(value.TagArray, body)
}

// NewSlots allocates an object of n scanned slots, all False.
func (ctx *Context) NewSlots(n uint32) value.Value {
	body := ctx.heap.AllocateSlots(ctx.roots(), n)
	return value.TagPointer(value.TagSlots, body)
}

// NewByteArray allocates an opaque byte array of n bytes.
func (ctx *Context) NewByteArray(n uint32) value.Value {
	body := ctx.heap.AllocateString(ctx.roots(), n)
	return value.TagPointer(value.TagByteArray, body)
}

// StringLen returns the byte count of a string or byte-array value.
func StringLen(v value.Value) uint32 {
	return xunsafe.ByteLoad[uint32](v.UntagPointer().AssertValid(), 0)
}

// StringBytes returns the bytes of a string or byte-array value. The slice
// aliases the heap and is invalidated by the next allocation point.
func StringBytes(v value.Value) []byte {
	body := v.UntagPointer()
	n := xunsafe.ByteLoad[uint32](body.AssertValid(), 0)
	return xunsafe.Slice(body.ByteAdd(4).AssertValid(), int(n))
}

// GoString copies a string value out into a Go string.
func GoString(v value.Value) string {
	return string(StringBytes(v))
}

// ArrayLen returns the element count of an array value.
func ArrayLen(v value.Value) uint32 {
	return xunsafe.ByteLoad[uint32](v.UntagPointer().AssertValid(), 0)
}

// ArrayAt returns element i of an array value. Bounds are the caller's
// problem.
func ArrayAt(v value.Value, i uint32) value.Value {
	return xunsafe.ByteLoad[value.Value](v.UntagPointer().AssertValid(), 8+int(i)*8)
}

// ArraySet stores element i of an array value.
func ArraySet(v value.Value, i uint32, elem value.Value) {
	xunsafe.ByteStore(v.UntagPointer().AssertValid(), 8+int(i)*8, elem)
}

// buildArgv lays the argument strings out in a static mapping. The values
// point outside the arena, so the collector never traces or moves them; the
// mapping lives until the context closes.
func (ctx *Context) buildArgv(args []string) (value.Value, error) {
	offsets := make([]int, len(args))
	total := 8 + 8*len(args)
	for i, a := range args {
		total = (total + value.HeapAlignment - 1) &^ (value.HeapAlignment - 1)
		offsets[i] = total
		total += 4 + len(a) + 1
	}

	m, err := mem.Map(max(total, 16))
	if err != nil {
		return value.False, fmt.Errorf("tern: cannot allocate argv: %w", err)
	}
	ctx.statics = append(ctx.statics, m)
	base := m.Base()

	xunsafe.ByteStore(base.AssertValid(), 0, uint32(len(args)))
	for i, a := range args {
		s := base.ByteAdd(offsets[i])
		xunsafe.ByteStore(s.AssertValid(), 0, uint32(len(a)))
		copy(xunsafe.Slice(s.ByteAdd(4).AssertValid(), len(a)), a)
		xunsafe.ByteStore(base.AssertValid(), 8+i*8, value.TagPointer(value.TagString, s))
	}
	return value.TagPointer(value.TagArray, base), nil
}
