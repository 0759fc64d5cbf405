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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-lang/tern/internal/debug"
	"github.com/tern-lang/tern/internal/value"
)

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	defer debug.WithTesting(t)()

	ctx, err := NewContext(NewProgram(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestEnterLeave(t *testing.T) {
	ctx := newTestContext(t)

	f, ok := ctx.Enter(3)
	require.True(t, ok)
	assert.Len(t, f.Locals, 3)
	for _, v := range f.Locals {
		assert.Equal(t, value.False, v, "fresh locals read as False")
	}

	g, ok := ctx.Enter(2)
	require.True(t, ok)
	g.Locals[0] = value.Integer(1)
	ctx.Leave(g)
	ctx.Leave(f)
	assert.Equal(t, 0, ctx.sp)
}

func TestEnterOverflow(t *testing.T) {
	ctx := newTestContext(t, WithStackSize(16))

	f, ok := ctx.Enter(14)
	require.True(t, ok)
	_, ok = ctx.Enter(3)
	assert.False(t, ok, "reservation past the stack region must fail")
	_, ok = ctx.Enter(2)
	assert.True(t, ok)
	ctx.Leave(f)
}

func TestEnterCollidesWithTraceback(t *testing.T) {
	ctx := newTestContext(t, WithStackSize(16))

	// Eight traceback entries consume four value slots of headroom.
	ctx.program.Traceback = make([]TracebackEntry, 1)
	for i := 0; i < 8; i++ {
		ctx.AppendTraceback(0)
	}
	_, ok := ctx.Enter(13)
	assert.False(t, ok, "the strip shrinks the reservable stack")
	f, ok := ctx.Enter(12)
	assert.True(t, ok)
	ctx.Leave(f)
}

func TestFrameRootsSurviveCollection(t *testing.T) {
	ctx := newTestContext(t)

	f, ok := ctx.Enter(2)
	require.True(t, ok)
	defer ctx.Leave(f)

	f.Locals[0] = ctx.NewString("hello, moving world")
	for i := 0; i < 4; i++ {
		ctx.NewString("garbage garbage garbage garbage")
		ctx.CollectFull()
	}
	assert.Equal(t, value.TagString, f.Locals[0].Tag(), "tag class is invariant")
	assert.Equal(t, "hello, moving world", GoString(f.Locals[0]))
}

func TestForgetDropsRoot(t *testing.T) {
	ctx := newTestContext(t)

	f, ok := ctx.Enter(1)
	require.True(t, ok)
	defer ctx.Leave(f)

	f.Locals[0] = ctx.NewString("short-lived")
	f.Forget(0)
	assert.Equal(t, value.False, f.Locals[0])
	ctx.CollectFull()
	assert.Equal(t, 0, ctx.HeapStats().LiveBytes)
}

func TestTracebackOverflowIsSilent(t *testing.T) {
	ctx := newTestContext(t, WithStackSize(16))
	ctx.program.Traceback = make([]TracebackEntry, 3)

	f, ok := ctx.Enter(10)
	require.True(t, ok)
	defer ctx.Leave(f)

	// 12 uint32 slots remain above the stack pointer; everything past that
	// is dropped on the floor.
	for i := 0; i < 40; i++ {
		ctx.AppendTraceback(uint32(i % 3))
	}
	assert.Equal(t, 2*ctx.sp, ctx.tb, "the strip stops at the stack pointer")

	// The stack itself is untouched.
	for _, v := range f.Locals {
		assert.Equal(t, value.False, v)
	}

	ctx.ResetTraceback()
	assert.Equal(t, ctx.tbEnd, ctx.tb)
	for i := ctx.tbEnd - 12; i < ctx.tbEnd; i++ {
		assert.Zero(t, *ctx.tbSlot(i))
	}
}

func TestArgv(t *testing.T) {
	ctx := newTestContext(t, WithArgs([]string{"prog", "x", "yz"}))

	argv := ctx.Argv()
	require.Equal(t, value.TagArray, argv.Tag())
	require.Equal(t, uint32(3), ArrayLen(argv))
	assert.Equal(t, "prog", GoString(ArrayAt(argv, 0)))
	assert.Equal(t, "x", GoString(ArrayAt(argv, 1)))
	assert.Equal(t, "yz", GoString(ArrayAt(argv, 2)))

	// argv lives outside the arena and is never collected.
	f, _ := ctx.Enter(1)
	defer ctx.Leave(f)
	f.Locals[0] = argv
	ctx.CollectFull()
	assert.Equal(t, "yz", GoString(ArrayAt(f.Locals[0], 2)))
}
