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

//go:build !linux

package mem

import "github.com/tern-lang/tern/internal/xunsafe"

// The fallback keeps runtime memory in ordinary Go allocations. Go's
// collector does not move them, so addresses stay stable for the lifetime of
// the backing slice; the Mapping handle is what keeps it alive. There is no
// real reservation, so every grow relocates.

const baseAlign = 16

func alignedBuf(size int) ([]byte, xunsafe.Addr[byte]) {
	buf := make([]byte, size+baseAlign)
	base := xunsafe.AddrOf(&buf[0]).RoundUpTo(baseAlign)
	return buf, base
}

func osReserve(reserved, commit int) (*Mapping, error) {
	buf, base := alignedBuf(commit)
	return &Mapping{
		base:     base,
		size:     commit,
		reserved: reserved,
		buf:      buf,
	}, nil
}

func osMap(size int) (*Mapping, error) {
	buf, base := alignedBuf(size)
	return &Mapping{
		base:     base,
		size:     size,
		reserved: size,
		buf:      buf,
	}, nil
}

func (m *Mapping) osGrow(newSize int) error {
	buf, base := alignedBuf(newSize)
	copy(xunsafe.Slice(base.AssertValid(), m.size), xunsafe.Slice(m.base.AssertValid(), m.size))
	m.buf = buf
	m.base = base
	m.size = newSize
	if m.reserved < newSize {
		m.reserved = newSize
	}
	return nil
}

func (m *Mapping) osFree() error {
	return nil
}
