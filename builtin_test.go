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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-lang/tern/internal/value"
)

// testBlock registers block methods on the slots tag and returns a fresh
// block object. Tests hang do/catch/while handlers off it as closures.
func testBlock(ctx *Context, f Frame, slot int) value.Value {
	b := ctx.NewSlots(1)
	f.Locals[slot] = b
	return b
}

func TestBuiltInError(t *testing.T) {
	ctx := newTestContext(t)

	got := ctx.Send1("error:", value.BuiltIn, value.Integer(13))
	require.True(t, got.IsError())
	assert.Equal(t, value.Integer(13), value.StripError(got))
}

func TestBuiltInCatch(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	ctx.program.Register0(value.TagSlots, "do", func(ctx *Context, block value.Value) value.Value {
		return value.ErrorConst(value.ConstIndexError)
	})
	b := testBlock(ctx, f, 0)

	got := ctx.Send1("catch:", value.BuiltIn, b)
	assert.False(t, got.IsError(), "catch: strips the error bit")
	assert.Equal(t, value.Const(value.ConstIndexError), got)
}

func TestBuiltInTry(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	var caught value.Value
	ctx.program.Register0(value.TagSlots, "do", func(ctx *Context, block value.Value) value.Value {
		return value.Error(value.Integer(-5))
	})
	ctx.program.Register1(value.TagSlots, "catch:", func(ctx *Context, block, err value.Value) value.Value {
		caught = err
		return value.Integer(99)
	})
	b := testBlock(ctx, f, 0)

	got := ctx.Send1("try:", value.BuiltIn, b)
	assert.Equal(t, value.Integer(99), got)
	assert.Equal(t, value.Integer(-5), caught, "the handler sees the stripped payload")
}

func TestBuiltInTryNoHandler(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	ctx.program.Register0(value.TagSlots, "do", func(ctx *Context, block value.Value) value.Value {
		return value.Empty
	})
	b := testBlock(ctx, f, 0)

	got := ctx.Send1("try:", value.BuiltIn, b)
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstNotUnderstood), value.StripError(got))
}

func TestTryResetsTraceback(t *testing.T) {
	ctx := newTestContext(t)
	ctx.program.Traceback = make([]TracebackEntry, 1)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	ctx.program.Register0(value.TagSlots, "do", func(ctx *Context, block value.Value) value.Value {
		ctx.AppendTraceback(0)
		return value.ErrorConst(value.ConstTypeError)
	})
	ctx.program.Register1(value.TagSlots, "catch:", func(ctx *Context, block, err value.Value) value.Value {
		return value.Empty
	})
	b := testBlock(ctx, f, 0)

	got := ctx.Send1("try:", value.BuiltIn, b)
	assert.Equal(t, value.Empty, got)
	assert.Equal(t, ctx.tbEnd, ctx.tb, "recovery resets the strip")
}

func TestBuiltInFor(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	n := int64(0)
	ctx.program.Register0(value.TagSlots, "while", func(ctx *Context, block value.Value) value.Value {
		return value.Boolean(n < 5)
	})
	ctx.program.Register0(value.TagSlots, "do", func(ctx *Context, block value.Value) value.Value {
		n++
		return value.Empty
	})
	b := testBlock(ctx, f, 0)

	got := ctx.Send1("for:", value.BuiltIn, b)
	assert.Equal(t, value.Empty, got)
	assert.Equal(t, int64(5), n)
}

func TestBuiltInForBadCondition(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	ctx.program.Register0(value.TagSlots, "while", func(ctx *Context, block value.Value) value.Value {
		return value.Integer(1)
	})
	ctx.program.Register0(value.TagSlots, "do", func(ctx *Context, block value.Value) value.Value {
		return value.Empty
	})
	b := testBlock(ctx, f, 0)

	got := ctx.Send1("for:", value.BuiltIn, b)
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstTypeError), value.StripError(got))
}

func TestBuiltInPrint(t *testing.T) {
	var out bytes.Buffer
	ctx := newTestContext(t, WithOutput(&out, &out))
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	f.Locals[0] = ctx.NewString("tide")
	assert.Equal(t, value.Empty, ctx.Send1("print:", value.BuiltIn, f.Locals[0]))
	assert.Equal(t, value.Empty, ctx.Send1("print-line:", value.BuiltIn, value.Integer(7)))
	assert.Equal(t, "tide7\n", out.String())
}

func TestBooleanMethods(t *testing.T) {
	ctx := newTestContext(t)

	assert.Equal(t, value.False, ctx.Send0("not", value.True))
	assert.Equal(t, value.True, ctx.Send0("not", value.False))
	assert.Equal(t, value.Integer(1), ctx.Send1("and:", value.True, value.Integer(1)))
	assert.Equal(t, value.False, ctx.Send1("and:", value.False, value.Integer(1)))
	assert.Equal(t, value.True, ctx.Send1("or:", value.True, value.Integer(1)))
	assert.Equal(t, value.Integer(1), ctx.Send1("or:", value.False, value.Integer(1)))
}

func TestBooleanConditionals(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	ctx.program.Register0(value.TagSlots, "then", func(ctx *Context, block value.Value) value.Value {
		return value.Integer(1)
	})
	ctx.program.Register0(value.TagSlots, "else", func(ctx *Context, block value.Value) value.Value {
		return value.Integer(2)
	})
	ctx.program.Register0(value.TagSlots, "do", func(ctx *Context, block value.Value) value.Value {
		return value.Integer(3)
	})
	b := testBlock(ctx, f, 0)

	assert.Equal(t, value.Integer(1), ctx.Send1("if:", value.True, b))
	assert.Equal(t, value.Integer(2), ctx.Send1("if:", value.False, b))
	assert.Equal(t, value.Integer(3), ctx.Send1("then:", value.True, b))
	assert.Equal(t, value.Empty, ctx.Send1("then:", value.False, b))
	assert.Equal(t, value.Empty, ctx.Send1("else:", value.True, b))
	assert.Equal(t, value.Integer(3), ctx.Send1("else:", value.False, b))
}
