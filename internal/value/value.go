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

// Package value defines the packed value word every Tern object is passed
// around as.
//
// A [Value] is a 64-bit word split into a 16-bit tag field in the low bits
// and a 48-bit data field in the high bits. The data field is, depending on
// the tag, a sign-extended small integer, a small constant ordinal, a boolean,
// or a heap body address stored shifted right by [HeapAlignmentShift]. The
// top bit of the tag field is the error bit, which is orthogonal to the rest
// of the tag: stripping it recovers the underlying value unchanged.
//
// Everything in this package is pure and allocation-free.
package value

import (
	"fmt"

	"github.com/tern-lang/tern/internal/debug"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// Value is a packed tagged word.
//
// The zero value is the Boolean false.
type Value uint64

// Tag is the tag field of a [Value], including the error bit.
type Tag uint32

const (
	// NumTagBits and NumDataBits partition the 64-bit word exactly.
	NumTagBits  = 16
	NumDataBits = 48

	tagMask = 1<<NumTagBits - 1

	// ErrorBit is the single high bit of the tag field.
	ErrorBit Tag = 1 << (NumTagBits - 1)

	// HeapAlignment is the alignment of every heap body, so that the
	// [HeapAlignmentShift]-bit shift applied by [TagPointer] is lossless.
	HeapAlignment      = 16
	HeapAlignmentShift = 4

	// MaxSmallInt and MinSmallInt bound the signed range of the data field.
	MaxSmallInt = 1<<(NumDataBits-1) - 1
	MinSmallInt = -1 << (NumDataBits - 1)
)

// Tags of the built-in value classes. Every tag at or above [PointerTag]
// marks the data field as a shifted heap body address; that ordering is the
// collector's sole root predicate.
const (
	TagBoolean      Tag = 0
	TagConstant     Tag = 1
	TagSmallInteger Tag = 2
	TagBuiltIn      Tag = 3

	PointerTag Tag = 8

	TagString       Tag = 8
	TagByteArray    Tag = 9
	TagArray        Tag = 10
	TagLargeInteger Tag = 11
	TagSlots        Tag = 12

	// TagUserFirst is the first tag available to program-defined types.
	TagUserFirst Tag = 16
)

// Constant is an ordinal of the constant table, carried in the data field of
// a [TagConstant] value.
type Constant uint64

const (
	ConstEmpty Constant = iota
	ConstLess
	ConstEqual
	ConstGreater

	// Error kinds. Their error forms carry the error bit as well.
	ConstStackOverflow
	ConstNotUnderstood
	ConstTypeError
	ConstIndexError
	ConstSizeError
	ConstOverflow
	ConstDivideByZero
)

// The canonical instances.
var (
	False = TagUnsigned(TagBoolean, 0)
	True  = TagUnsigned(TagBoolean, 1)

	Empty   = Const(ConstEmpty)
	Less    = Const(ConstLess)
	EqualTo = Const(ConstEqual)
	Greater = Const(ConstGreater)

	// BuiltIn is the receiver the free-standing runtime methods hang off.
	BuiltIn = TagUnsigned(TagBuiltIn, 0)
)

// TagUnsigned builds a value from a tag and an unsigned data field.
func TagUnsigned(tag Tag, data uint64) Value {
	debug.Assert(data < 1<<NumDataBits, "data %#x overflows the data field", data)
	return Value(tag) | Value(data)<<NumTagBits
}

// TagSigned builds a value from a tag and a signed data field.
func TagSigned(tag Tag, data int64) Value {
	return Value(tag) | Value(uint64(data))<<NumTagBits
}

// TagPointer builds a pointer-class value from a tag and a heap body address,
// which must be aligned to [HeapAlignment].
func TagPointer(tag Tag, body xunsafe.Addr[byte]) Value {
	debug.Assert(body.IsAligned(HeapAlignment), "body %v is not heap-aligned", body)
	return TagUnsigned(tag, uint64(body)>>HeapAlignmentShift)
}

// Integer builds a small integer.
func Integer(n int64) Value {
	return TagSigned(TagSmallInteger, n)
}

// Const builds a constant from its ordinal.
func Const(c Constant) Value {
	return TagUnsigned(TagConstant, uint64(c))
}

// ErrorConst builds the error form of a constant.
func ErrorConst(c Constant) Value {
	return Error(Const(c))
}

// Retag replaces the tag of a value, keeping its data field.
func Retag(tag Tag, v Value) Value {
	return Value(tag) | v&^tagMask
}

// UntagUnsigned returns the data field as an unsigned integer.
func (v Value) UntagUnsigned() uint64 {
	return uint64(v) >> NumTagBits
}

// UntagSigned returns the data field sign-extended.
func (v Value) UntagSigned() int64 {
	return int64(v) >> NumTagBits
}

// UntagPointer returns the body address stored in a pointer-class value.
func (v Value) UntagPointer() xunsafe.Addr[byte] {
	return xunsafe.Addr[byte](v.UntagUnsigned() << HeapAlignmentShift)
}

// Tag returns the tag field, error bit included.
func (v Value) Tag() Tag {
	return Tag(v & tagMask)
}

// Error sets the error bit, preserving the rest of the word.
func Error(v Value) Value {
	return v | Value(ErrorBit)
}

// StripError clears the error bit, preserving the rest of the word.
func StripError(v Value) Value {
	return v &^ Value(ErrorBit)
}

// IsError tests the error bit.
func (v Value) IsError() bool {
	return v&Value(ErrorBit) != 0
}

// IsPointer reports whether the data field is a heap body address. This is
// the collector's root predicate: a slot is a managed reference iff this
// returns true. Error-tagged pointers satisfy it too, which is what marking
// wants.
func (v Value) IsPointer() bool {
	return v.Tag() >= PointerTag
}

// Equal is whole-word bit equality.
func Equal(a, b Value) bool {
	return a == b
}

// Boolean returns the canonical True or False.
func Boolean(b bool) Value {
	if b {
		return True
	}
	return False
}

// IsTrue reports whether v is the canonical True.
func (v Value) IsTrue() bool { return v == True }

// IsFalse reports whether v is the canonical False.
func (v Value) IsFalse() bool { return v == False }

// IsBoolean reports whether v is either canonical boolean.
func (v Value) IsBoolean() bool { return v.IsTrue() || v.IsFalse() }

// GetSlot reads slot index of a slots-class value.
func GetSlot(slots Value, index uint32) Value {
	p := xunsafe.Cast[Value](slots.UntagPointer().AssertValid())
	return xunsafe.Load(p, int(index))
}

// SetSlot writes slot index of a slots-class value.
func SetSlot(slots Value, index uint32, v Value) Value {
	p := xunsafe.Cast[Value](slots.UntagPointer().AssertValid())
	xunsafe.Store(p, int(index), v)
	return v
}

// Format implements [fmt.Formatter].
func (v Value) Format(s fmt.State, verb rune) {
	fmt.Fprintf(s, "#<%d:%d>", v.Tag(), v.UntagUnsigned())
}
