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

	"github.com/tern-lang/tern/internal/heap"
	"github.com/tern-lang/tern/internal/mem"
	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// Context is one mutator's execution state: the value stack that anchors
// live roots, the traceback strip sharing the stack region's high end, and
// the heap. A Context belongs to a single goroutine.
type Context struct {
	_ xunsafe.NoCopy

	// The stack region. Values grow up from slot zero; the traceback strip
	// reinterprets the high end as uint32 slots growing down.
	stack []value.Value
	sp    int // next free value slot
	tb    int // traceback cursor, in uint32 units from the region start
	tbEnd int // one past the last uint32 slot, == 2*len(stack)

	heap    heap.Heap
	program *Program

	argv    value.Value
	statics []*mem.Mapping

	opts options
}

// NewContext creates a context for running p.
func NewContext(p *Program, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.stackSize < 16 {
		return nil, fmt.Errorf("tern: stack of %d slots is too small", o.stackSize)
	}

	ctx := &Context{
		stack:   make([]value.Value, o.stackSize),
		tb:      2 * o.stackSize,
		tbEnd:   2 * o.stackSize,
		program: p,
		opts:    o,
	}
	if err := ctx.heap.Init(o.heapReserve, o.latency); err != nil {
		return nil, err
	}

	argv, err := ctx.buildArgv(o.args)
	if err != nil {
		_ = ctx.heap.Close()
		return nil, err
	}
	ctx.argv = argv
	return ctx, nil
}

// Close tears down the heap and every static mapping. The context must not
// be used afterwards.
func (ctx *Context) Close() error {
	err := ctx.heap.Close()
	for _, m := range ctx.statics {
		_ = m.Free()
	}
	ctx.statics = nil
	ctx.stack = nil
	return err
}

// Program returns the program this context runs.
func (ctx *Context) Program() *Program { return ctx.program }

// Argv returns the program arguments as an array of strings.
func (ctx *Context) Argv() value.Value { return ctx.argv }

// HeapStats returns a snapshot of the collector counters.
func (ctx *Context) HeapStats() heap.Stats { return ctx.heap.Stats() }

// roots is the precise root set: the live prefix of the value stack.
func (ctx *Context) roots() heap.Roots {
	return heap.Roots{Stack: xunsafe.AddrOf(&ctx.stack[0]), Depth: ctx.sp}
}

// Frame is a reserved run of stack slots. Its Locals alias the stack
// directly, so values published there are roots, and the collector rewrites
// them in place when bodies move.
type Frame struct {
	Locals []value.Value
	prev   int
}

// Enter reserves n stack slots, initialized to False. It fails when the
// reservation would collide with the traceback strip; the caller returns the
// stack-overflow error in that case.
func (ctx *Context) Enter(n int) (Frame, bool) {
	next := ctx.sp + n
	if 2*next > ctx.tb {
		return Frame{}, false
	}
	f := Frame{Locals: ctx.stack[ctx.sp:next], prev: ctx.sp}
	for i := range f.Locals {
		f.Locals[i] = value.False
	}
	ctx.sp = next
	return f, true
}

// Leave releases the frame, restoring the stack pointer to its value at the
// matching Enter.
func (ctx *Context) Leave(f Frame) {
	ctx.sp = f.prev
}

// Forget overwrites a local with False, ending the anchored value's
// lifetime early.
func (f Frame) Forget(i int) {
	f.Locals[i] = value.False
}

// Collect forces a latency-bounded collection cycle.
func (ctx *Context) Collect() {
	ctx.heap.Collect(ctx.roots())
}

// CollectFull forces an unbounded collection cycle.
func (ctx *Context) CollectFull() {
	ctx.heap.CollectFull(ctx.roots())
}
