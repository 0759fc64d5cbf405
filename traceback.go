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
	"io"
	"strings"

	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// The traceback strip is the high end of the stack region reinterpreted as
// uint32 indices into the program's traceback table. Generated code appends
// one entry per send on the error path; a non-error return resets the strip.
// The strip and the value stack grow toward each other, and the collision
// check in AppendTraceback is the strip's only overflow guard.

// tbSlot addresses uint32 slot i of the stack region.
func (ctx *Context) tbSlot(i int) *uint32 {
	return xunsafe.Add(xunsafe.Cast[uint32](&ctx.stack[0]), i)
}

// AppendTraceback records one traceback table index. The entry is silently
// dropped if the strip would collide with the value stack.
func (ctx *Context) AppendTraceback(entry uint32) {
	t := ctx.tb - 1
	if t >= 2*ctx.sp {
		*ctx.tbSlot(t) = entry
		ctx.tb = t
	}
}

// ResetTraceback zeroes the strip and resets the cursor. Called on non-error
// returns and by the recovery primitives, so a handled error does not leak
// stale entries.
func (ctx *Context) ResetTraceback() {
	for i := ctx.tb; i < ctx.tbEnd; i++ {
		*ctx.tbSlot(i) = 0
	}
	ctx.tb = ctx.tbEnd
}

// PrintTraceback writes the recorded trace and the printable form of the
// error's payload.
func (ctx *Context) PrintTraceback(w io.Writer, err value.Value) {
	if ctx.tb < ctx.tbEnd {
		fmt.Fprintln(w, "Traceback (most recent call last):")
	}
	for i := ctx.tb; i < ctx.tbEnd; i++ {
		e := &ctx.program.Traceback[*ctx.tbSlot(i)]
		fmt.Fprintf(w, "  File %q, line %d, in |%s|\n    %s\n    %s%s\n",
			e.StreamName, e.LineNumber, e.MethodName, e.SourceLine,
			strings.Repeat(" ", int(e.Column)), strings.Repeat("^", int(e.Underline)))
	}
	fmt.Fprint(w, "Error: ")
	ctx.PrintValue(w, value.StripError(err))
	fmt.Fprintln(w)
}
