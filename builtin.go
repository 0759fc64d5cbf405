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

import "github.com/tern-lang/tern/internal/value"

// The BuiltIn receiver carries the free-standing runtime methods: error
// raising and recovery, looping, argv, and printing.

func installBuiltIn(p *Program) {
	t := value.TagBuiltIn
	p.Register1(t, "error:", builtInError)
	p.Register1(t, "catch:", builtInCatch)
	p.Register1(t, "try:", builtInTry)
	p.Register1(t, "for:", builtInFor)
	p.Register0(t, "argv", builtInArgv)
	p.Register1(t, "print:", builtInPrint)
	p.Register1(t, "print-line:", builtInPrintLine)
}

func builtInError(ctx *Context, self, v value.Value) value.Value {
	ctx.ResetTraceback()
	return value.Error(v)
}

func builtInCatch(ctx *Context, self, block value.Value) value.Value {
	result := ctx.Send0("do", block)
	ctx.ResetTraceback()
	return value.StripError(result)
}

func builtInTry(ctx *Context, self, block value.Value) value.Value {
	f, ok := ctx.Enter(1)
	if !ok {
		return value.ErrorConst(value.ConstStackOverflow)
	}
	defer ctx.Leave(f)
	f.Locals[0] = block

	catch1 := ctx.program.Lookup1("catch:", block)
	var catch0 Method0
	if catch1 == nil {
		catch0 = ctx.program.Lookup0("catch", block)
		if catch0 == nil {
			return value.ErrorConst(value.ConstNotUnderstood)
		}
	}

	result := ctx.Send0("do", block)
	if !result.IsError() {
		return result
	}
	ctx.ResetTraceback()
	block = f.Locals[0]
	if catch1 != nil {
		return catch1(ctx, block, value.StripError(result))
	}
	return catch0(ctx, block)
}

func builtInFor(ctx *Context, self, block value.Value) value.Value {
	f, ok := ctx.Enter(1)
	if !ok {
		return value.ErrorConst(value.ConstStackOverflow)
	}
	defer ctx.Leave(f)
	f.Locals[0] = block

	while := ctx.program.Lookup0("while", block)
	do := ctx.program.Lookup0("do", block)
	if while == nil || do == nil {
		return value.ErrorConst(value.ConstNotUnderstood)
	}

	for {
		cond := while(ctx, block)
		if cond.IsError() {
			return cond
		}
		block = f.Locals[0]
		if cond.IsFalse() {
			if ret := ctx.program.Lookup0("return", block); ret != nil {
				return ret(ctx, block)
			}
			return value.Empty
		}
		if !cond.IsTrue() {
			return value.ErrorConst(value.ConstTypeError)
		}
		if r := do(ctx, block); r.IsError() {
			return r
		}
		block = f.Locals[0]
	}
}

func builtInArgv(ctx *Context, self value.Value) value.Value {
	return ctx.argv
}

func builtInPrint(ctx *Context, self, v value.Value) value.Value {
	ctx.PrintValue(ctx.opts.stdout, v)
	return value.Empty
}

func builtInPrintLine(ctx *Context, self, v value.Value) value.Value {
	ctx.PrintValue(ctx.opts.stdout, v)
	_, _ = ctx.opts.stdout.Write([]byte{'\n'})
	return value.Empty
}
