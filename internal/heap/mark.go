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
	"math/bits"

	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// Marking is precise and iterative. Mark state lives in the bitmap, one bit
// per potential header slot; the worklist is a singly-linked stack threaded
// through the markNext field of marked headers. Big objects are marked via
// their descriptor's mark bit and scanned on discovery.
//
// The bitmap is cleared before the stack is seeded, never mid-scan: an
// interrupted mark is simply thrown away and restarted by the next cycle.

// bitmapIndex is the bitmap position of a body's header slot.
func (h *Heap) bitmapIndex(body xunsafe.Addr[byte]) int {
	return body.ByteSub(h.base)/headerBytes - 1
}

func (h *Heap) clearBitmap() {
	xunsafe.Clear(h.bitmap.AssertValid(), h.bitmapWords)
}

// testAndSetMark sets bit i, reporting whether it was already set.
func (h *Heap) testAndSetMark(i int) bool {
	p := h.bitmap.Add(i / 64).AssertValid()
	mask := uint64(1) << (i % 64)
	old := *p&mask != 0
	*p |= mask
	return old
}

func (h *Heap) testMark(i int) bool {
	return *h.bitmap.Add(i / 64).AssertValid()&(uint64(1)<<(i%64)) != 0
}

// markedHeader reports whether the body whose header is at hdr is marked.
func (h *Heap) markedHeader(hdr xunsafe.Addr[byte]) bool {
	return h.testMark(hdr.ByteSub(h.base) / headerBytes)
}

// scanBitmap returns the first set bit at or after start, or -1 if there is
// none below bound.
func (h *Heap) scanBitmap(start, bound int) int {
	if start >= bound {
		return -1
	}
	word := start / 64
	cur := *h.bitmap.Add(word).AssertValid() >> (start % 64) << (start % 64)
	for {
		if cur != 0 {
			i := word*64 + bits.TrailingZeros64(cur)
			if i >= bound {
				return -1
			}
			return i
		}
		word++
		if word*64 >= bound {
			return -1
		}
		cur = *h.bitmap.Add(word).AssertValid()
	}
}

// mark traces the full object graph from r. Returns false if the deadline
// expired first; the partial mark is discarded by the next cycle.
func (h *Heap) mark(r Roots, dl deadline) bool {
	h.clearBitmap()
	h.markList = markListNull
	h.markSize = 0
	h.sortBigObjects()
	bigs := h.bigSlice()
	for i := range bigs {
		bigs[i].mark = 0
	}

	// The stack is a pseudo-object whose scan window is everything in use.
	h.scanSlots(r.Stack, r.end())

	drained := 0
	for h.markList != markListNull {
		body := h.base.ByteAdd(int(h.markList) * Alignment)
		p := headerAt(headerOf(body))
		h.markList = p.MarkNext()

		if n := p.ScanSize(); n > 0 {
			slot := slotAt(body, p.ScanOffset())
			h.scanSlots(slot, slot.Add(int(n)))
		}

		drained++
		if drained%256 == 0 && dl.expired() {
			h.Log("mark", "deadline after %d objects, %d bytes live so far", drained, h.markSize)
			return false
		}
	}

	h.stats.LiveBytes = h.markSize
	h.Log("mark", "%d bytes live", h.markSize)
	return true
}

// scanSlots pushes every unmarked body referenced by [start, end) onto the
// worklist.
func (h *Heap) scanSlots(start, end xunsafe.Addr[value.Value]) {
	for slot := start; slot < end; slot = slot.Add(1) {
		h.markSlot(*slot.AssertValid())
	}
}

// markSlot marks the body v references, if any.
func (h *Heap) markSlot(v value.Value) {
	if !v.IsPointer() {
		return
	}
	body := v.UntagPointer()
	hdr := headerOf(body)

	if hdr >= h.base && hdr <= h.pointer {
		if h.testAndSetMark(h.bitmapIndex(body)) {
			return
		}
		p := headerAt(hdr)
		p.SetMarkNext(h.markList)
		h.markList = uint32(body.ByteSub(h.base) / Alignment)
		h.markSize += (int(p.Size()) + 1) * WordSize
		return
	}

	// Not in the arena; it may be a big-object body. Anything else
	// (constants, static strings) is not ours to trace.
	if b := h.findBigObject(body); b != nil && b.mark == 0 {
		b.mark = 1
		if b.scanSize > 0 {
			slot := slotAt(b.body, uint32(b.scanOffset))
			h.scanSlots(slot, slot.Add(int(b.scanSize)))
		}
	}
}
