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

	"github.com/tern-lang/tern/internal/value"
)

// Array methods. The iteration forms re-read the receiver and block from
// their frame after every send: the body may run a collection, and element
// access always re-derives from the rooted slot.

func installArray(p *Program) {
	t := value.TagArray
	p.Register0(t, "size", arraySize)
	p.Register0(t, "sorted", arraySorted)
	p.Register1(t, "at:", arrayAt)
	p.Register1(t, "each:", arrayEach)
	p.Register1(t, "enumerate:", arrayEnumerate)
	p.Register1(t, "+", arrayAdd)
}

func arraySize(ctx *Context, self value.Value) value.Value {
	return value.Integer(int64(ArrayLen(self)))
}

func arrayAt(ctx *Context, self, index value.Value) value.Value {
	if index.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	i := index.UntagSigned()
	if i < 0 || i >= int64(ArrayLen(self)) {
		return value.ErrorConst(value.ConstIndexError)
	}
	return ArrayAt(self, uint32(i))
}

func arrayEach(ctx *Context, self, block value.Value) value.Value {
	f, ok := ctx.Enter(2)
	if !ok {
		return value.ErrorConst(value.ConstStackOverflow)
	}
	defer ctx.Leave(f)
	f.Locals[0] = self
	f.Locals[1] = block

	item := ctx.program.Lookup1("item:", block)
	if item == nil {
		return value.ErrorConst(value.ConstNotUnderstood)
	}

	size := ArrayLen(self)
	for i := uint32(0); i < size; i++ {
		self, block = f.Locals[0], f.Locals[1]
		if r := item(ctx, block, ArrayAt(self, i)); r.IsError() {
			return r
		}
	}
	return value.Empty
}

func arrayEnumerate(ctx *Context, self, block value.Value) value.Value {
	f, ok := ctx.Enter(2)
	if !ok {
		return value.ErrorConst(value.ConstStackOverflow)
	}
	defer ctx.Leave(f)
	f.Locals[0] = self
	f.Locals[1] = block

	itemIndex := ctx.program.Lookup2("item:index:", block)
	if itemIndex == nil {
		return value.ErrorConst(value.ConstNotUnderstood)
	}

	size := ArrayLen(self)
	for i := uint32(0); i < size; i++ {
		self, block = f.Locals[0], f.Locals[1]
		if r := itemIndex(ctx, block, ArrayAt(self, i), value.Integer(int64(i))); r.IsError() {
			return r
		}
	}
	return value.Empty
}

func arrayAdd(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagArray {
		return value.ErrorConst(value.ConstTypeError)
	}
	f, ok := ctx.Enter(2)
	if !ok {
		return value.ErrorConst(value.ConstStackOverflow)
	}
	defer ctx.Leave(f)
	f.Locals[0] = self
	f.Locals[1] = rhs

	n1, n2 := uint64(ArrayLen(self)), uint64(ArrayLen(rhs))
	if n1+n2 > math.MaxUint32 {
		return value.ErrorConst(value.ConstSizeError)
	}

	out := ctx.NewArray(uint32(n1 + n2))
	self, rhs = f.Locals[0], f.Locals[1]
	for i := uint32(0); i < uint32(n1); i++ {
		ArraySet(out, i, ArrayAt(self, i))
	}
	for i := uint32(0); i < uint32(n2); i++ {
		ArraySet(out, uint32(n1)+i, ArrayAt(rhs, i))
	}
	return out
}

// arraySorted returns a stable-sorted copy, ordering elements by the
// compare: message. A comparator error aborts the sort and propagates; the
// receiver is never modified.
func arraySorted(ctx *Context, self value.Value) value.Value {
	f, ok := ctx.Enter(2)
	if !ok {
		return value.ErrorConst(value.ConstStackOverflow)
	}
	defer ctx.Leave(f)
	f.Locals[0] = self

	n := ArrayLen(self)
	out := ctx.NewArray(n)
	f.Locals[1] = out
	self = f.Locals[0]
	for i := uint32(0); i < n; i++ {
		ArraySet(out, i, ArrayAt(self, i))
	}
	f.Forget(0)

	// Insertion sort. Every compare: send may collect, so elements are
	// re-derived from the rooted copy around each one.
	for i := uint32(1); i < n; i++ {
		for j := i; j > 0; j-- {
			out = f.Locals[1]
			r := ctx.Send1("compare:", ArrayAt(out, j-1), ArrayAt(out, j))
			if r.IsError() {
				return r
			}
			if r != value.Greater {
				if r != value.Less && r != value.EqualTo {
					return value.ErrorConst(value.ConstTypeError)
				}
				break
			}
			out = f.Locals[1]
			a, b := ArrayAt(out, j-1), ArrayAt(out, j)
			ArraySet(out, j-1, b)
			ArraySet(out, j, a)
		}
	}
	return f.Locals[1]
}
