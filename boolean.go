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

// Boolean methods. Both instances share a tag, so each method branches on
// the receiver; the conditional forms drive the then/else/do messages on
// their block argument.

func installBoolean(p *Program) {
	t := value.TagBoolean
	p.Register0(t, "not", booleanNot)
	p.Register0(t, "string", booleanString)
	p.Register1(t, "and:", booleanAnd)
	p.Register1(t, "or:", booleanOr)
	p.Register1(t, "if:", booleanIf)
	p.Register1(t, "then:", booleanThen)
	p.Register1(t, "else:", booleanElse)
}

func booleanNot(ctx *Context, self value.Value) value.Value {
	return value.Boolean(!self.IsTrue())
}

func booleanString(ctx *Context, self value.Value) value.Value {
	if self.IsTrue() {
		return ctx.NewString("True")
	}
	return ctx.NewString("False")
}

func booleanAnd(ctx *Context, self, rhs value.Value) value.Value {
	if self.IsTrue() {
		return rhs
	}
	return self
}

func booleanOr(ctx *Context, self, rhs value.Value) value.Value {
	if self.IsTrue() {
		return self
	}
	return rhs
}

func booleanIf(ctx *Context, self, block value.Value) value.Value {
	if self.IsTrue() {
		return ctx.Send0("then", block)
	}
	return ctx.Send0("else", block)
}

func booleanThen(ctx *Context, self, block value.Value) value.Value {
	if self.IsTrue() {
		return ctx.Send0("do", block)
	}
	return value.Empty
}

func booleanElse(ctx *Context, self, block value.Value) value.Value {
	if self.IsTrue() {
		return value.Empty
	}
	return ctx.Send0("do", block)
}
