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

// Package dispatch provides the method lookup table behind message sends.
//
// Method tables are built once at program-link time and then only read, so
// the table is insert-only open addressing over power-of-two buckets with no
// tombstones; lookups are a short linear probe from an fxhash of the key.
package dispatch

import (
	"math/bits"

	"github.com/tern-lang/tern/internal/debug"
)

// Key identifies a method: the receiver's tag in the high 32 bits, the
// interned selector id in the low 32 bits. Selector ids start at one, so a
// Key is never zero and zero can mark empty buckets.
type Key uint64

// NewKey packs a receiver tag and a selector id.
func NewKey(tag uint32, selector uint32) Key {
	debug.Assert(selector != 0, "selector id zero is reserved")
	return Key(tag)<<32 | Key(selector)
}

// Table maps Keys to values of type V.
//
// The zero Table is empty and ready to use.
type Table[V any] struct {
	keys []Key
	vals []V
	len  int
}

// Len returns the number of entries.
func (t *Table[V]) Len() int { return t.len }

// Insert adds or replaces the value for k.
func (t *Table[V]) Insert(k Key, v V) {
	debug.Assert(k != 0, "zero key")
	if t.len*4 >= len(t.keys)*3 {
		t.grow()
	}
	i := t.probe(k)
	if t.keys[i] == 0 {
		t.keys[i] = k
		t.len++
	}
	t.vals[i] = v
}

// Lookup returns the value for k, if present.
func (t *Table[V]) Lookup(k Key) (V, bool) {
	if t.len == 0 {
		var zero V
		return zero, false
	}
	i := t.probe(k)
	return t.vals[i], t.keys[i] == k
}

// probe returns the bucket holding k, or the empty bucket where it belongs.
func (t *Table[V]) probe(k Key) int {
	mask := uint64(len(t.keys) - 1)
	i := fxhash(uint64(k)) & mask
	for {
		if t.keys[i] == k || t.keys[i] == 0 {
			return int(i)
		}
		i = (i + 1) & mask
	}
}

func (t *Table[V]) grow() {
	n := max(len(t.keys)*2, 16)
	oldKeys, oldVals := t.keys, t.vals
	t.keys = make([]Key, n)
	t.vals = make([]V, n)
	for i, k := range oldKeys {
		if k != 0 {
			j := t.probe(k)
			t.keys[j] = k
			t.vals[j] = oldVals[i]
		}
	}
}

// fxhash mixes a single word. See <https://docs.rs/fxhash>.
func fxhash(n uint64) uint64 {
	const (
		rotate = 5
		key    = 0x517cc1b727220a95
	)
	hi, lo := bits.Mul64(bits.RotateLeft64(0, rotate)^n, key)
	return lo ^ hi
}
