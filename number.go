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
	"strconv"

	"github.com/tern-lang/tern/internal/value"
)

// Small-Integer methods. Arithmetic stays within [value.MinSmallInt,
// value.MaxSmallInt]; range exits answer the overflow error rather than
// promoting, since no big-integer backend is linked in.

func installSmallInteger(p *Program) {
	t := value.TagSmallInteger
	p.Register0(t, "string", smallIntString)
	p.Register1(t, "+", smallIntAdd)
	p.Register1(t, "-", smallIntSub)
	p.Register1(t, "×", smallIntMul)
	p.Register1(t, "÷", smallIntDiv)
	p.Register1(t, "mod:", smallIntMod)
	p.Register1(t, "==", smallIntEq)
	p.Register1(t, "<", smallIntLess)
	p.Register1(t, "≤", smallIntLessEq)
	p.Register1(t, "compare:", smallIntCompare)
}

func smallIntString(ctx *Context, self value.Value) value.Value {
	return ctx.NewString(strconv.FormatInt(self.UntagSigned(), 10))
}

func smallIntRange(n int64) value.Value {
	if n < value.MinSmallInt || n > value.MaxSmallInt {
		return value.ErrorConst(value.ConstOverflow)
	}
	return value.Integer(n)
}

func smallIntAdd(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	return smallIntRange(self.UntagSigned() + rhs.UntagSigned())
}

func smallIntSub(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	return smallIntRange(self.UntagSigned() - rhs.UntagSigned())
}

func smallIntMul(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	a, b := self.UntagSigned(), rhs.UntagSigned()
	result := a * b
	// The operands fit in 48 bits, so the only undetected wrap would need
	// a == 0; check the division instead.
	if a != 0 && result/a != b {
		return value.ErrorConst(value.ConstOverflow)
	}
	return smallIntRange(result)
}

func smallIntDiv(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	if rhs.UntagSigned() == 0 {
		return value.ErrorConst(value.ConstDivideByZero)
	}
	return smallIntRange(self.UntagSigned() / rhs.UntagSigned())
}

func smallIntMod(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	if rhs.UntagSigned() == 0 {
		return value.ErrorConst(value.ConstDivideByZero)
	}
	return value.Integer(self.UntagSigned() % rhs.UntagSigned())
}

func smallIntEq(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.False
	}
	return value.Boolean(self.UntagSigned() == rhs.UntagSigned())
}

func smallIntLess(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	return value.Boolean(self.UntagSigned() < rhs.UntagSigned())
}

func smallIntLessEq(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	return value.Boolean(self.UntagSigned() <= rhs.UntagSigned())
}

func smallIntCompare(ctx *Context, self, rhs value.Value) value.Value {
	if rhs.Tag() != value.TagSmallInteger {
		return value.ErrorConst(value.ConstTypeError)
	}
	a, b := self.UntagSigned(), rhs.UntagSigned()
	switch {
	case a < b:
		return value.Less
	case a > b:
		return value.Greater
	default:
		return value.EqualTo
	}
}
