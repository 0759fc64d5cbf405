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
	"cmp"
	"slices"
	"sort"

	"github.com/tern-lang/tern/internal/mem"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// bigObject describes a body too large for the inline header's size field.
// The body is a standalone mapping and never moves; the descriptor lives in
// the arena's metadata tail and carries the mark bit and scan window.
//
// Descriptors hold no Go pointers, so they can sit in raw memory; the
// mapping handles that keep the bodies alive live in [Heap.bigMaps].
type bigObject struct {
	body       xunsafe.Addr[byte]
	mark       uint64
	scanOffset uint64 // words
	scanSize   uint64 // words
	size       uint64 // bytes
}

const bigObjectBytes = 40

// bigSlice views the descriptor array as a slice, lowest address (newest
// descriptor) first.
func (h *Heap) bigSlice() []bigObject {
	if h.bigCount == 0 {
		return nil
	}
	p := xunsafe.Cast[bigObject](h.limit().AssertValid())
	return xunsafe.Slice(p, h.bigCount)
}

// allocateBig maps a standalone body and pushes its descriptor, growing the
// descriptor array down toward the bump pointer.
func (h *Heap) allocateBig(r Roots, size int, scanOffset, scanSize uint32) xunsafe.Addr[byte] {
	if h.limit().ByteAdd(-bigObjectBytes) <= h.pointer.ByteAdd(headerBytes) {
		h.Collect(r)
		if h.limit().ByteAdd(-bigObjectBytes) <= h.pointer.ByteAdd(headerBytes) {
			h.growOrAbort(r, bigObjectBytes+headerBytes)
		}
	}

	m, err := mem.Map(size)
	if err != nil {
		panic("tern: memory exhausted: " + err.Error())
	}

	h.bigCount++
	*xunsafe.Cast[bigObject](h.limit().AssertValid()) = bigObject{
		body:       m.Base(),
		scanOffset: uint64(scanOffset),
		scanSize:   uint64(scanSize),
		size:       uint64(size),
	}
	h.bigMaps[m.Base()] = m
	h.stats.BigAllocations++
	h.Log("alloc big", "%v:%d scan=[%d:+%d]", m.Base(), size, scanOffset, scanSize)
	return m.Base()
}

// sortBigObjects orders the descriptor array by body address so marking can
// look bodies up with a binary search.
func (h *Heap) sortBigObjects() {
	slices.SortFunc(h.bigSlice(), func(a, b bigObject) int {
		return cmp.Compare(a.body, b.body)
	})
}

// findBigObject looks up the descriptor for a body address. The array must
// be sorted. Returns nil for addresses that are not big-object bodies.
func (h *Heap) findBigObject(body xunsafe.Addr[byte]) *bigObject {
	bigs := h.bigSlice()
	i := sort.Search(len(bigs), func(i int) bool { return bigs[i].body >= body })
	if i < len(bigs) && bigs[i].body == body {
		return &bigs[i]
	}
	return nil
}

// sweepBigObjects frees every unmarked big object and clears the survivors'
// marks. Descriptors are stable-sorted by (mark, body) first so the unmarked
// prefix is contiguous and the surviving suffix stays address-ordered.
func (h *Heap) sweepBigObjects() {
	bigs := h.bigSlice()
	slices.SortStableFunc(bigs, func(a, b bigObject) int {
		if c := cmp.Compare(a.mark, b.mark); c != 0 {
			return c
		}
		return cmp.Compare(a.body, b.body)
	})

	freed := 0
	for i := range bigs {
		if bigs[i].mark != 0 {
			bigs[i].mark = 0
			continue
		}
		m := h.bigMaps[bigs[i].body]
		delete(h.bigMaps, bigs[i].body)
		h.Log("free big", "%v:%d", bigs[i].body, bigs[i].size)
		_ = m.Free()
		freed++
	}

	// The freed prefix sits at the low end of the array, which grows down:
	// the survivors already occupy the top-adjacent slots. The freed slots
	// become free region, so they are zeroed.
	clear(bigs[:freed])
	h.bigCount -= freed
	h.stats.BigFrees += uint64(freed)
}
