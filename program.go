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
	"github.com/tern-lang/tern/internal/dispatch"
	"github.com/tern-lang/tern/internal/value"
)

// Method bodies take the context explicitly, then the receiver, then the
// message arguments, and return a value whose error bit the caller checks.
type (
	Method0 func(ctx *Context, recv value.Value) value.Value
	Method1 func(ctx *Context, recv, arg1 value.Value) value.Value
	Method2 func(ctx *Context, recv, arg1, arg2 value.Value) value.Value
)

// TracebackEntry is one row of the static traceback table the compiler
// emits: where a send happened and how to underline it.
type TracebackEntry struct {
	MethodName string
	StreamName string
	SourceLine string
	LineNumber uint32
	Column     uint32
	Underline  uint32
}

// Program is the compiled program's linkage: its method tables, its static
// traceback table, and its entry point. The compiler populates one of these;
// embedders can too.
type Program struct {
	// Toplevel builds the top-level object the main message is sent to.
	Toplevel Method0

	// Traceback is the static table AppendTraceback indexes into.
	Traceback []TracebackEntry

	selectors map[string]uint32
	methods   [3]dispatch.Table[any] // indexed by arity
}

// NewProgram returns a program with the builtin method sets installed.
func NewProgram() *Program {
	p := &Program{selectors: make(map[string]uint32)}
	installSmallInteger(p)
	installString(p)
	installArray(p)
	installBoolean(p)
	installConstant(p)
	installBuiltIn(p)
	return p
}

// selectorID interns a selector name. Id zero is reserved for "unknown".
func (p *Program) selectorID(name string, intern bool) uint32 {
	if id, ok := p.selectors[name]; ok {
		return id
	}
	if !intern {
		return 0
	}
	id := uint32(len(p.selectors) + 1)
	p.selectors[name] = id
	return id
}

func (p *Program) register(arity int, tag value.Tag, selector string, m any) {
	id := p.selectorID(selector, true)
	p.methods[arity].Insert(dispatch.NewKey(uint32(tag), id), m)
}

// Register0 installs a unary method on receivers with the given tag.
func (p *Program) Register0(tag value.Tag, selector string, m Method0) {
	p.register(0, tag, selector, m)
}

// Register1 installs a one-argument method.
func (p *Program) Register1(tag value.Tag, selector string, m Method1) {
	p.register(1, tag, selector, m)
}

// Register2 installs a two-argument method.
func (p *Program) Register2(tag value.Tag, selector string, m Method2) {
	p.register(2, tag, selector, m)
}

func (p *Program) lookup(arity int, selector string, recv value.Value) any {
	id := p.selectorID(selector, false)
	if id == 0 {
		return nil
	}
	m, ok := p.methods[arity].Lookup(dispatch.NewKey(uint32(recv.Tag()), id))
	if !ok {
		return nil
	}
	return m
}

// Lookup0 returns the unary method recv understands, or nil.
func (p *Program) Lookup0(selector string, recv value.Value) Method0 {
	m, _ := p.lookup(0, selector, recv).(Method0)
	return m
}

// Lookup1 returns the one-argument method recv understands, or nil.
func (p *Program) Lookup1(selector string, recv value.Value) Method1 {
	m, _ := p.lookup(1, selector, recv).(Method1)
	return m
}

// Lookup2 returns the two-argument method recv understands, or nil.
func (p *Program) Lookup2(selector string, recv value.Value) Method2 {
	m, _ := p.lookup(2, selector, recv).(Method2)
	return m
}

// Send0 dispatches a unary message, yielding the not-understood error when
// the receiver has no method for it.
func (ctx *Context) Send0(selector string, recv value.Value) value.Value {
	if m := ctx.program.Lookup0(selector, recv); m != nil {
		return m(ctx, recv)
	}
	return value.ErrorConst(value.ConstNotUnderstood)
}

// Send1 dispatches a one-argument message.
func (ctx *Context) Send1(selector string, recv, arg1 value.Value) value.Value {
	if m := ctx.program.Lookup1(selector, recv); m != nil {
		return m(ctx, recv, arg1)
	}
	return value.ErrorConst(value.ConstNotUnderstood)
}

// Send2 dispatches a two-argument message.
func (ctx *Context) Send2(selector string, recv, arg1, arg2 value.Value) value.Value {
	if m := ctx.program.Lookup2(selector, recv); m != nil {
		return m(ctx, recv, arg1, arg2)
	}
	return value.ErrorConst(value.ConstNotUnderstood)
}
