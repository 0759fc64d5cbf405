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

package heap

import (
	"github.com/tern-lang/tern/internal/debug"
	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// Allocate returns an aligned, zeroed body of objectSize bytes whose header
// is initialized with the given scan window (both in words).
//
// This is a collection point: any value not reachable from r may be
// reclaimed, and any body may move. Callers publish their roots to the stack
// before calling and re-derive raw addresses afterwards.
func (h *Heap) Allocate(r Roots, objectSize, scanOffset, scanSize uint32) xunsafe.Addr[byte] {
	objectSize = (objectSize + WordSize - 1) &^ (WordSize - 1)
	if objectSize > MaxObjectBytes {
		return h.allocateBig(r, int(objectSize), scanOffset, scanSize)
	}

	hdr := h.reserveAllocation(r, int(objectSize))
	*headerAt(hdr) = makeHeader(objectSize/WordSize, scanOffset, scanSize)
	body := bodyOf(hdr)

	debug.Assert(value.TagPointer(value.PointerTag, body).UntagPointer() == body,
		"body %v does not round-trip through the value word", body)

	h.stats.Allocations++
	h.Log("alloc", "%v:%d scan=[%d:+%d]", body, objectSize, scanOffset, scanSize)
	return body
}

// AllocateSlots allocates a body of n value slots, all scanned.
func (h *Heap) AllocateSlots(r Roots, n uint32) xunsafe.Addr[byte] {
	return h.Allocate(r, n*WordSize, 0, n)
}

// AllocateArray allocates an array body: a one-word size prefix followed by
// n element slots, which form the scan window. The size prefix is filled in.
func (h *Heap) AllocateArray(r Roots, n uint32) xunsafe.Addr[byte] {
	body := h.Allocate(r, WordSize+n*WordSize, 1, n)
	xunsafe.ByteStore(body.AssertValid(), 0, n)
	return body
}

// AllocateData allocates an opaque body of n bytes; nothing in it is
// scanned.
func (h *Heap) AllocateData(r Roots, n uint32) xunsafe.Addr[byte] {
	return h.Allocate(r, n, 0, 0)
}

// AllocateString allocates a string body: a uint32 byte count, n opaque
// bytes, and a NUL terminator. The count is filled in.
func (h *Heap) AllocateString(r Roots, n uint32) xunsafe.Addr[byte] {
	body := h.Allocate(r, 4+n+1, 0, 0)
	xunsafe.ByteStore(body.AssertValid(), 0, n)
	return body
}

// reserveAllocation finds space for a header plus objectSize body bytes,
// collecting and growing as needed, and bumps the pointer past it.
func (h *Heap) reserveAllocation(r Roots, objectSize int) xunsafe.Addr[byte] {
	allocSize := objectSize + headerBytes
	// Worst case one padding header re-aligns the body.
	paddedSize := allocSize + headerBytes

	if h.pointer.ByteAdd(paddedSize) >= h.limit() {
		h.Collect(r)
		used := h.Used()
		total := h.Capacity()
		if h.pointer.ByteAdd(paddedSize) >= h.limit() || used > total/2 {
			h.growOrAbort(r, paddedSize)
		}
	}

	hdr := h.pointer
	if !isHeaderAligned(hdr) {
		*headerAt(hdr) = 0
		hdr = hdr.ByteAdd(headerBytes)
	}
	h.pointer = hdr.ByteAdd(allocSize)
	return hdr
}

// growOrAbort doubles the committed size until need bytes fit above the bump
// pointer and at most half the region is in use. At the growth cap it falls
// back to a full collection, and failing that aborts: heap exhaustion is not
// a recoverable value-level error.
func (h *Heap) growOrAbort(r Roots, need int) {
	for {
		if h.size*2 > MaxHeapSize {
			h.CollectFull(r)
			if h.pointer.ByteAdd(need) >= h.limit() {
				panic("tern: memory exhausted")
			}
			return
		}
		h.resize(r, h.size*2)
		if h.pointer.ByteAdd(need) < h.limit() && h.Used() <= h.Capacity()/2 {
			return
		}
	}
}
