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

	"github.com/tern-lang/tern/internal/value"
)

// constantNames are the printable forms of the constant table, error kinds
// included; PrintTraceback relies on these to render uncaught errors.
var constantNames = map[value.Constant]string{
	value.ConstEmpty:         "Empty",
	value.ConstLess:          "Less",
	value.ConstEqual:         "Equal",
	value.ConstGreater:       "Greater",
	value.ConstStackOverflow: "Stack-Overflow",
	value.ConstNotUnderstood: "Not-Understood",
	value.ConstTypeError:     "Type-Error",
	value.ConstIndexError:    "Index-Error",
	value.ConstSizeError:     "Size-Error",
	value.ConstOverflow:      "Overflow",
	value.ConstDivideByZero:  "Divide-By-Zero",
}

func installConstant(p *Program) {
	p.Register0(value.TagConstant, "string", constantString)
}

func constantString(ctx *Context, self value.Value) value.Value {
	if name, ok := constantNames[value.Constant(self.UntagUnsigned())]; ok {
		return ctx.NewString(name)
	}
	return ctx.NewString(fmt.Sprintf("%v", self))
}
