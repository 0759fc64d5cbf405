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
	"math"

	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// PrintValue writes the printable form of v: its bytes if it is (or answers
// the string message with) a string, a #<tag:data> note otherwise.
func (ctx *Context) PrintValue(w io.Writer, v value.Value) {
	s := v
	if s.Tag() != value.TagString {
		s = ctx.Send0("string", v)
	}
	if s.Tag() == value.TagString {
		_, _ = w.Write(StringBytes(s))
		return
	}
	fmt.Fprintf(w, "%v", v)
}

// Concat concatenates strings into a fresh string object.
//
// strings must alias live stack slots (a [Frame.Locals] run): inputs that
// answer the string message are written back through it so the coerced
// bodies stay rooted, and the slots are re-read after the output allocation
// in case the collector moved them.
func (ctx *Context) Concat(strings []value.Value) value.Value {
	var size uint64
	for i := range strings {
		s := strings[i]
		if s.Tag() != value.TagString {
			s = ctx.Send0("string", s)
			if s.IsError() {
				return s
			}
			strings[i] = s
		}
		if strings[i].Tag() != value.TagString {
			return value.ErrorConst(value.ConstTypeError)
		}
		size += uint64(StringLen(strings[i]))
	}
	if size > math.MaxUint32-8 {
		return value.ErrorConst(value.ConstSizeError)
	}

	body := ctx.heap.AllocateString(ctx.roots(), uint32(size))
	out := body.ByteAdd(4)
	for i := range strings {
		n := int(StringLen(strings[i]))
		copy(xunsafe.Slice(out.AssertValid(), n), StringBytes(strings[i]))
		out = out.ByteAdd(n)
	}
	return value.TagPointer(value.TagString, body)
}

// ThreadMain is the process entry point for a compiled program: it creates
// the context, runs main on the toplevel object, reports any uncaught error,
// and tears everything down. Returns the process exit code.
func ThreadMain(p *Program, args []string, stdout, stderr io.Writer) int {
	ctx, err := NewContext(p, WithArgs(args), WithOutput(stdout, stderr))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = ctx.Close() }()

	top := value.Empty
	if p.Toplevel != nil {
		top = p.Toplevel(ctx, value.Empty)
	}
	if top.IsError() {
		ctx.PrintTraceback(stderr, top)
		return 1
	}

	result := ctx.Send0("main", top)
	if result.IsError() {
		ctx.PrintTraceback(stderr, result)
		return 1
	}
	return 0
}
