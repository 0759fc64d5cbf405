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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// newIntArray builds a rooted array of small integers in the given frame
// slot.
func newIntArray(ctx *Context, f Frame, slot int, elems ...int64) value.Value {
	arr := ctx.NewArray(uint32(len(elems)))
	f.Locals[slot] = arr
	for i, n := range elems {
		ArraySet(arr, uint32(i), value.Integer(n))
	}
	return arr
}

func TestArraySizeAt(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	arr := newIntArray(ctx, f, 0, 10, 20, 30)
	assert.Equal(t, value.Integer(3), ctx.Send0("size", arr))
	assert.Equal(t, value.Integer(20), ctx.Send1("at:", arr, value.Integer(1)))

	got := ctx.Send1("at:", arr, value.Integer(3))
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstIndexError), value.StripError(got))

	got = ctx.Send1("at:", arr, value.Integer(-1))
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstIndexError), value.StripError(got))

	got = ctx.Send1("at:", arr, value.True)
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstTypeError), value.StripError(got))
}

func TestArrayEach(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	var seen []int64
	ctx.program.Register1(value.TagSlots, "item:", func(ctx *Context, block, item value.Value) value.Value {
		seen = append(seen, item.UntagSigned())
		// Churn the heap so the iteration has to re-derive the array.
		ctx.NewString("each-iteration garbage")
		ctx.CollectFull()
		return value.Empty
	})

	arr := newIntArray(ctx, f, 0, 1, 2, 3, 4)
	f.Locals[1] = ctx.NewSlots(1)
	arr = f.Locals[0]

	got := ctx.Send1("each:", arr, f.Locals[1])
	assert.Equal(t, value.Empty, got)
	assert.Equal(t, []int64{1, 2, 3, 4}, seen)
}

func TestArrayEachNotUnderstood(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	arr := newIntArray(ctx, f, 0, 1)
	f.Locals[1] = ctx.NewSlots(1)

	got := ctx.Send1("each:", f.Locals[0], f.Locals[1])
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstNotUnderstood), value.StripError(got))
	_ = arr
}

func TestArrayEnumerate(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	var items, indices []int64
	ctx.program.Register2(value.TagSlots, "item:index:",
		func(ctx *Context, block, item, index value.Value) value.Value {
			items = append(items, item.UntagSigned())
			indices = append(indices, index.UntagSigned())
			return value.Empty
		})

	newIntArray(ctx, f, 0, 7, 8, 9)
	f.Locals[1] = ctx.NewSlots(1)

	got := ctx.Send1("enumerate:", f.Locals[0], f.Locals[1])
	assert.Equal(t, value.Empty, got)
	assert.Equal(t, []int64{7, 8, 9}, items)
	assert.Equal(t, []int64{0, 1, 2}, indices)
}

func TestArrayConcat(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	newIntArray(ctx, f, 0, 1, 2)
	newIntArray(ctx, f, 1, 3)

	got := ctx.Send1("+", f.Locals[0], f.Locals[1])
	require.Equal(t, value.TagArray, got.Tag())
	require.Equal(t, uint32(3), ArrayLen(got))
	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, value.Integer(want), ArrayAt(got, uint32(i)))
	}

	got = ctx.Send1("+", f.Locals[0], value.Integer(1))
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstTypeError), value.StripError(got))
}

func TestArrayConcatSizeOverflow(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	newIntArray(ctx, f, 0, 1)
	newIntArray(ctx, f, 1, 2, 3)

	// Forge the size prefixes; the overflow check must fire before any
	// element is touched. The headers' scan windows still describe the real
	// layout, so the collector is unaffected.
	xunsafe.ByteStore(f.Locals[0].UntagPointer().AssertValid(), 0, uint32(math.MaxUint32-1))
	xunsafe.ByteStore(f.Locals[1].UntagPointer().AssertValid(), 0, uint32(2))

	got := ctx.Send1("+", f.Locals[0], f.Locals[1])
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstSizeError), value.StripError(got))
}

func TestArraySorted(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	newIntArray(ctx, f, 0, 5, -1, 3, 3, 0, 12, -7)

	got := ctx.Send0("sorted", f.Locals[0])
	require.Equal(t, value.TagArray, got.Tag())
	want := []int64{-7, -1, 0, 3, 3, 5, 12}
	require.Equal(t, uint32(len(want)), ArrayLen(got))
	for i, n := range want {
		assert.Equal(t, value.Integer(n), ArrayAt(got, uint32(i)), "index %d", i)
	}

	// The receiver is untouched.
	assert.Equal(t, value.Integer(5), ArrayAt(f.Locals[0], 0))
}

func TestArraySortedStrings(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	arr := ctx.NewArray(3)
	f.Locals[0] = arr
	for i, s := range []string{"pear", "apple", "plum"} {
		v := ctx.NewString(s)
		ArraySet(f.Locals[0], uint32(i), v)
	}

	got := ctx.Send0("sorted", f.Locals[0])
	require.Equal(t, value.TagArray, got.Tag())
	assert.Equal(t, "apple", GoString(ArrayAt(got, 0)))
	assert.Equal(t, "pear", GoString(ArrayAt(got, 1)))
	assert.Equal(t, "plum", GoString(ArrayAt(got, 2)))
}

// A comparator failure aborts the sort: the error propagates and the
// receiver is unchanged.
func TestArraySortedComparatorError(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	arr := ctx.NewArray(3)
	f.Locals[0] = arr
	ArraySet(arr, 0, value.Integer(1))
	s := ctx.NewString("a")
	arr = f.Locals[0]
	ArraySet(arr, 1, s)
	ArraySet(arr, 2, value.Integer(2))

	got := ctx.Send0("sorted", f.Locals[0])
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstTypeError), value.StripError(got))

	arr = f.Locals[0]
	assert.Equal(t, value.Integer(1), ArrayAt(arr, 0))
	assert.Equal(t, value.TagString, ArrayAt(arr, 1).Tag())
	assert.Equal(t, value.Integer(2), ArrayAt(arr, 2))
}
