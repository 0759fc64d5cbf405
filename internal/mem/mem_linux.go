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

//go:build linux

package mem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/tern-lang/tern/internal/xunsafe"
)

const pageSize = 0x1000

func roundPage(n int) int {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

func osReserve(reserved, commit int) (*Mapping, error) {
	reserved = roundPage(reserved)
	commit = roundPage(commit)

	buf, err := unix.Mmap(-1, 0, reserved, unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("tern: cannot reserve %d bytes: %w", reserved, err)
	}
	if err := unix.Mprotect(buf[:commit], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		_ = unix.Munmap(buf)
		return nil, fmt.Errorf("tern: cannot commit %d bytes: %w", commit, err)
	}

	return &Mapping{
		base:     xunsafe.AddrOf(&buf[0]),
		size:     commit,
		reserved: reserved,
		buf:      buf,
	}, nil
}

func osMap(size int) (*Mapping, error) {
	size = roundPage(size)
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("tern: cannot map %d bytes: %w", size, err)
	}
	return &Mapping{
		base:     xunsafe.AddrOf(&buf[0]),
		size:     size,
		reserved: size,
		buf:      buf,
	}, nil
}

func (m *Mapping) osGrow(newSize int) error {
	newSize = roundPage(newSize)
	if newSize <= m.reserved {
		// The address space is already ours; just commit more of it.
		if err := unix.Mprotect(m.buf[m.size:newSize], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return fmt.Errorf("tern: cannot commit %d bytes: %w", newSize-m.size, err)
		}
		m.size = newSize
		return nil
	}

	buf, err := unix.Mremap(m.buf, newSize, unix.MREMAP_MAYMOVE)
	if err != nil {
		return fmt.Errorf("tern: cannot remap to %d bytes: %w", newSize, err)
	}
	if err := unix.Mprotect(buf, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("tern: cannot commit remapped range: %w", err)
	}
	m.buf = buf
	m.base = xunsafe.AddrOf(&buf[0])
	m.size = newSize
	m.reserved = newSize
	return nil
}

func (m *Mapping) osFree() error {
	if m.buf == nil {
		return nil
	}
	return unix.Munmap(m.buf)
}
