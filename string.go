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

	"github.com/tern-lang/tern/internal/value"
)

func installString(p *Program) {
	t := value.TagString
	p.Register0(t, "string", stringString)
	p.Register0(t, "size", stringSize)
	p.Register1(t, "+", stringAdd)
	p.Register1(t, "compare:", stringCompare)
}

func stringString(ctx *Context, self value.Value) value.Value {
	return self
}

func stringSize(ctx *Context, self value.Value) value.Value {
	return value.Integer(int64(StringLen(self)))
}

func stringAdd(ctx *Context, self, rhs value.Value) value.Value {
	f, ok := ctx.Enter(2)
	if !ok {
		return value.ErrorConst(value.ConstStackOverflow)
	}
	defer ctx.Leave(f)

	if rhs.Tag() != value.TagString {
		return value.ErrorConst(value.ConstTypeError)
	}
	f.Locals[0] = self
	f.Locals[1] = rhs
	return ctx.Concat(f.Locals)
}

func stringCompare(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagString {
		return value.ErrorConst(value.ConstTypeError)
	}
	switch bytes.Compare(StringBytes(self), StringBytes(rhs)) {
	case -1:
		return value.Less
	case 1:
		return value.Greater
	default:
		return value.EqualTo
	}
}
