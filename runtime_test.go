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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-lang/tern/internal/value"
)

func TestStringAdd(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	f.Locals[0] = ctx.NewString("fore")
	f.Locals[1] = ctx.NewString("cast")

	got := ctx.Send1("+", f.Locals[0], f.Locals[1])
	require.Equal(t, value.TagString, got.Tag())
	assert.Equal(t, "forecast", GoString(got))

	got = ctx.Send1("+", f.Locals[0], value.Integer(1))
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstTypeError), value.StripError(got))
}

func TestStringCompareSize(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(2)
	defer ctx.Leave(f)

	f.Locals[0] = ctx.NewString("abc")
	f.Locals[1] = ctx.NewString("abd")

	assert.Equal(t, value.Less, ctx.Send1("compare:", f.Locals[0], f.Locals[1]))
	assert.Equal(t, value.Greater, ctx.Send1("compare:", f.Locals[1], f.Locals[0]))
	assert.Equal(t, value.EqualTo, ctx.Send1("compare:", f.Locals[0], f.Locals[0]))
	assert.Equal(t, value.Integer(3), ctx.Send0("size", f.Locals[0]))
}

// Concat coerces non-strings through the string message and roots the
// results in the caller's frame.
func TestConcatCoercion(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(3)
	defer ctx.Leave(f)

	f.Locals[0] = ctx.NewString("n = ")
	f.Locals[1] = value.Integer(42)
	f.Locals[2] = ctx.NewString("!")

	got := ctx.Concat(f.Locals)
	require.False(t, got.IsError())
	assert.Equal(t, "n = 42!", GoString(got))
	assert.Equal(t, value.TagString, f.Locals[1].Tag(), "the coerced string is written back")
}

func TestConcatErrors(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	// A bare user-tagged value understands no string message.
	f.Locals[0] = value.TagUnsigned(value.TagUserFirst, 0)
	got := ctx.Concat(f.Locals)
	require.True(t, got.IsError())
	assert.Equal(t, value.Const(value.ConstNotUnderstood), value.StripError(got))
}

func TestPrintValue(t *testing.T) {
	ctx := newTestContext(t)
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)

	var buf bytes.Buffer
	f.Locals[0] = ctx.NewString("plain")
	ctx.PrintValue(&buf, f.Locals[0])
	assert.Equal(t, "plain", buf.String())

	buf.Reset()
	ctx.PrintValue(&buf, value.Integer(-9))
	assert.Equal(t, "-9", buf.String())

	// No string method: fall back to the tag:data note.
	buf.Reset()
	ctx.PrintValue(&buf, value.TagUnsigned(value.TagUserFirst, 5))
	assert.Equal(t, "#<16:5>", buf.String())
}

func TestThreadMain(t *testing.T) {
	p := NewProgram()
	p.Toplevel = func(ctx *Context, _ value.Value) value.Value {
		return value.TagUnsigned(value.TagUserFirst, 0)
	}
	p.Register0(value.TagUserFirst, "main", func(ctx *Context, top value.Value) value.Value {
		return ctx.Send1("print-line:", value.BuiltIn, ctx.NewString("ran main"))
	})

	var stdout, stderr strings.Builder
	code := ThreadMain(p, nil, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "ran main\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestThreadMainError(t *testing.T) {
	p := NewProgram()
	p.Toplevel = func(ctx *Context, _ value.Value) value.Value {
		return value.TagUnsigned(value.TagUserFirst, 0)
	}
	p.Traceback = []TracebackEntry{{
		MethodName: "main",
		StreamName: "demo.tn",
		SourceLine: "1 ÷ 0",
		LineNumber: 3,
		Column:     2,
		Underline:  3,
	}}
	p.Register0(value.TagUserFirst, "main", func(ctx *Context, top value.Value) value.Value {
		r := ctx.Send1("÷", value.Integer(1), value.Integer(0))
		if r.IsError() {
			ctx.AppendTraceback(0)
		}
		return r
	})

	var stdout, stderr strings.Builder
	code := ThreadMain(p, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	out := stderr.String()
	assert.Contains(t, out, "Traceback (most recent call last):")
	assert.Contains(t, out, `File "demo.tn", line 3, in |main|`)
	assert.Contains(t, out, "1 ÷ 0")
	assert.Contains(t, out, "  ^^^")
	assert.Contains(t, out, "Error: Divide-By-Zero")
}

func TestMissingMainIsNotUnderstood(t *testing.T) {
	p := NewProgram()
	var stderr strings.Builder
	code := ThreadMain(p, nil, &strings.Builder{}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error: ")
}
