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

package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

func TestPointerRoundTrip(t *testing.T) {
	t.Parallel()

	tags := []value.Tag{
		value.TagString, value.TagArray, value.TagByteArray,
		value.TagLargeInteger, value.TagSlots, value.TagUserFirst,
	}
	addrs := []xunsafe.Addr[byte]{
		0, 16, 0x1000, 0xdeadbef0, 1 << 40, (1 << 47) - 16,
	}
	for _, tag := range tags {
		for _, addr := range addrs {
			v := value.TagPointer(tag, addr)
			assert.Equal(t, addr, v.UntagPointer(), "%v:%v", tag, addr)
			assert.Equal(t, tag, v.Tag(), "%v:%v", tag, addr)
			assert.True(t, v.IsPointer())
		}
	}
}

func TestSignedRoundTrip(t *testing.T) {
	t.Parallel()

	for _, n := range []int64{
		0, 1, -1, 7, 42, -12345,
		value.MaxSmallInt, value.MinSmallInt,
		value.MaxSmallInt - 1, value.MinSmallInt + 1,
	} {
		v := value.Integer(n)
		assert.Equal(t, n, v.UntagSigned(), "%d", n)
		assert.Equal(t, value.TagSmallInteger, v.Tag())
		assert.False(t, v.IsPointer())
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	t.Parallel()

	for _, n := range []uint64{0, 1, 255, 1<<48 - 1} {
		v := value.TagUnsigned(value.TagConstant, n)
		assert.Equal(t, n, v.UntagUnsigned(), "%d", n)
	}
}

func TestErrorBit(t *testing.T) {
	t.Parallel()

	vals := []value.Value{
		value.True,
		value.Empty,
		value.Integer(-7),
		value.Const(value.ConstOverflow),
		value.TagPointer(value.TagString, 0x40),
	}
	for _, v := range vals {
		e := value.Error(v)
		assert.True(t, e.IsError())
		assert.False(t, v.IsError())
		assert.Equal(t, v, value.StripError(e))
		assert.Equal(t, v.Tag()|value.ErrorBit, e.Tag())
	}

	// The error bit does not hide the underlying class from the root
	// predicate: error-tagged pointers are still pointers.
	p := value.Error(value.TagPointer(value.TagArray, 0x100))
	assert.True(t, p.IsPointer())
	assert.Equal(t, xunsafe.Addr[byte](0x100), p.UntagPointer())
}

func TestBooleans(t *testing.T) {
	t.Parallel()

	require.True(t, value.Equal(value.Boolean(false), value.False))
	require.True(t, value.Equal(value.Boolean(true), value.True))
	assert.True(t, value.True.IsTrue())
	assert.True(t, value.False.IsFalse())
	assert.True(t, value.True.IsBoolean())
	assert.True(t, value.False.IsBoolean())
	assert.False(t, value.Empty.IsBoolean())
	assert.Equal(t, value.Value(0), value.False, "the zero word must read as False")
}

func TestRetag(t *testing.T) {
	t.Parallel()

	v := value.TagPointer(value.TagString, 0x1230)
	r := value.Retag(value.TagByteArray, v)
	assert.Equal(t, value.TagByteArray, r.Tag())
	assert.Equal(t, v.UntagPointer(), r.UntagPointer())
}

func TestEqualIsWholeWord(t *testing.T) {
	t.Parallel()

	assert.True(t, value.Equal(value.Integer(42), value.Integer(42)))
	assert.False(t, value.Equal(value.Integer(42), value.TagUnsigned(value.TagConstant, 42)))
	assert.False(t, value.Equal(value.Integer(42), value.Error(value.Integer(42))))
}

func TestSlots(t *testing.T) {
	t.Parallel()

	// An aligned scratch buffer stands in for a heap body.
	buf := make([]value.Value, 8)
	body := xunsafe.CastAddr[byte](xunsafe.AddrOf(&buf[0])).RoundUpTo(value.HeapAlignment)
	slots := value.TagPointer(value.TagSlots, body)

	value.SetSlot(slots, 0, value.Integer(11))
	value.SetSlot(slots, 1, value.True)
	assert.Equal(t, value.Integer(11), value.GetSlot(slots, 0))
	assert.Equal(t, value.True, value.GetSlot(slots, 1))
}

func FuzzErrorBit(f *testing.F) {
	f.Add(uint64(0))
	f.Add(uint64(42) << value.NumTagBits)
	f.Add(^uint64(0))
	f.Fuzz(func(t *testing.T, bits uint64) {
		v := value.StripError(value.Value(bits))
		require.Equal(t, v, value.StripError(value.Error(v)))
		require.True(t, value.Error(v).IsError())
		require.False(t, value.StripError(value.Value(bits)).IsError())
	})
}

func FuzzSignedRoundTrip(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(value.MaxSmallInt))
	f.Add(int64(value.MinSmallInt))
	f.Fuzz(func(t *testing.T, n int64) {
		if n < value.MinSmallInt || n > value.MaxSmallInt {
			t.Skip()
		}
		require.Equal(t, n, value.Integer(n).UntagSigned())
	})
}
