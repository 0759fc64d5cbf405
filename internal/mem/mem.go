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

// Package mem provides the address-space primitives underneath the runtime
// heap: reserving a large virtual range, committing a prefix of it, growing
// the committed prefix, and mapping standalone regions for oversized bodies.
//
// On Linux this is mmap/mprotect/mremap. Elsewhere the package falls back to
// ordinary Go allocations held alive by the [Mapping] handle; growth beyond
// the committed prefix then always relocates, which callers must be prepared
// for on every platform anyway.
package mem

import (
	"github.com/tern-lang/tern/internal/debug"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// Mapping is a contiguous range of address space outside the Go heap.
//
// The memory is zeroed on creation and only reachable through [Mapping.Base];
// the handle must be kept alive (and eventually freed) by whoever owns the
// addresses derived from it.
type Mapping struct {
	_ xunsafe.NoCopy

	base     xunsafe.Addr[byte]
	size     int // committed, usable bytes
	reserved int // total reserved address space, >= size

	// Platform state: the mmap'd slice on Linux, the backing store keeping
	// the memory alive on the fallback path.
	buf []byte
}

// Base returns the first usable address of the mapping. It is always aligned
// to at least 16 bytes.
func (m *Mapping) Base() xunsafe.Addr[byte] { return m.base }

// Size returns the number of committed, usable bytes.
func (m *Mapping) Size() int { return m.size }

// Reserved returns the total reserved address range.
func (m *Mapping) Reserved() int { return m.reserved }

// Reserve reserves a virtual range of reserved bytes and commits the first
// commit bytes of it. The committed memory is zeroed.
func Reserve(reserved, commit int) (*Mapping, error) {
	debug.Assert(commit <= reserved, "commit %d exceeds reservation %d", commit, reserved)
	m, err := osReserve(reserved, commit)
	if err != nil {
		return nil, err
	}
	m.Log("reserve", "%v:%d/%d", m.base, m.size, m.reserved)
	return m, nil
}

// Map commits a standalone read-write mapping of at least size bytes.
func Map(size int) (*Mapping, error) {
	m, err := osMap(size)
	if err != nil {
		return nil, err
	}
	m.Log("map", "%v:%d", m.base, m.size)
	return m, nil
}

// Grow raises the committed size to newSize, which must exceed the current
// size. The freshly committed memory is zeroed.
//
// Returns the (possibly zero) byte offset the base moved by. Growth within
// the reserved range is in place on Linux; everywhere else, and beyond the
// reservation, the mapping relocates and every address derived from the old
// base must be adjusted by the returned delta.
func (m *Mapping) Grow(newSize int) (delta int, err error) {
	debug.Assert(newSize > m.size, "grow %d -> %d is not a grow", m.size, newSize)
	old := m.base
	if err := m.osGrow(newSize); err != nil {
		return 0, err
	}
	delta = m.base.ByteSub(old)
	m.Log("grow", "%v:%d/%d delta=%d", m.base, m.size, m.reserved, delta)
	return delta, nil
}

// Free releases the mapping. No address derived from it may be used again.
func (m *Mapping) Free() error {
	m.Log("free", "%v:%d", m.base, m.size)
	err := m.osFree()
	m.base, m.size, m.reserved, m.buf = 0, 0, 0, nil
	return err
}

func (m *Mapping) Log(op, format string, args ...any) {
	debug.Log([]any{"%p", m}, op, format, args...)
}
