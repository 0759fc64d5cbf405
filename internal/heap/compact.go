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
	"sort"

	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

// Compaction slides marked bodies down over the dead ones, using the bitmap
// as the liveness oracle and recording each moved run in the bounded
// relocation buffer. When the buffer fills, a partial fixup rewrites
// everything rewritable so far and the buffer resets; a terminating sentinel
// precedes every fixup so lookups past the last move resolve to "no
// relocation".

// relocAt indexes the relocation buffer.
func (h *Heap) relocAt(i int) *relocation {
	return xunsafe.Cast[relocation](h.relocs.ByteAdd(i * relocationBytes).AssertValid())
}

// alignIndex is a body address in Alignment units relative to base; the
// currency of relocation entries and the mark worklist.
func (h *Heap) alignIndex(a xunsafe.Addr[byte]) uint32 {
	return uint32(a.ByteSub(h.base) / Alignment)
}

// compact slides every marked run down and fixes up all references. Returns
// false if the deadline expired; the moved prefix is fixed up, the unmoved
// tail is left valid in place, and dead gaps are refilled so the heap stays
// walkable.
func (h *Heap) compact(r Roots, dl deadline) bool {
	h.sweepBigObjects()

	end := h.pointer
	bound := end.ByteSub(h.base) / headerBytes
	cur := h.base
	dest := h.base
	nrelocs := 0

	for cur < end {
		// Jump over the dead to the next marked header.
		i := h.scanBitmap(cur.ByteSub(h.base)/headerBytes, bound)
		if i < 0 {
			cur = end
			break
		}
		cur = h.base.ByteAdd(i * headerBytes)

		if !isHeaderAligned(dest) {
			*headerAt(dest) = 0
			dest = dest.ByteAdd(headerBytes)
		}

		// Coalesce the marked run, treating padding between two marked
		// bodies as part of it.
		src := cur
		destNext := dest
		for cur < end {
			p := headerAt(cur)
			live := h.markedHeader(cur) ||
				(p.Size() == 0 && cur.ByteAdd(headerBytes) < end && h.markedHeader(cur.ByteAdd(headerBytes)))
			if !live {
				break
			}
			destNext = destNext.ByteAdd(int(p.Size()+1) * WordSize)
			cur = p.next(cur)
		}

		size := cur.ByteSub(src)
		if dest != src && size > 0 {
			xunsafe.Copy(dest.AssertValid(), src.AssertValid(), size)
			*h.relocAt(nrelocs) = relocation{
				Src:  h.alignIndex(bodyOf(src)),
				Diff: uint32(src.ByteSub(dest) / Alignment),
			}
			nrelocs++
			h.Log("move", "%v->%v:%d", src, dest, size)

			if nrelocs+1 >= h.relocsSize {
				// Buffer full: apply what we have and reset.
				*h.relocAt(nrelocs) = relocation{Src: h.alignIndex(bodyOf(cur))}
				nrelocs++
				h.fixup(r, destNext, cur, end, nrelocs)
				nrelocs = 0
				h.stats.FixupPasses++
			}
		}
		dest = destNext

		if dl.expired() {
			// Give up sliding, but leave a walkable heap: refill the gap
			// between the compacted prefix and the unmoved tail with dead
			// bodies, then fix up both halves.
			h.fillGap(dest, cur)
			*h.relocAt(nrelocs) = relocation{Src: h.alignIndex(bodyOf(cur))}
			nrelocs++
			h.fixup(r, dest, cur, end, nrelocs)
			h.Log("compact", "deadline with %d bytes unmoved", end.ByteSub(cur))
			return false
		}
	}

	h.pointer = dest
	if gap := h.limit().ByteSub(h.pointer); gap > 0 {
		xunsafe.Clear(h.pointer.AssertValid(), gap)
	}

	*h.relocAt(nrelocs) = relocation{Src: h.alignIndex(h.limit())}
	nrelocs++
	h.relocateStack(r, nrelocs)
	h.relocateWalk(h.base, h.pointer, nrelocs, false)
	h.relocateBigObjects(nrelocs)
	h.Log("compact", "%d bytes in use", h.Used())
	return true
}

// fixup is the partial-fixup sub-pass: stack, the compacted region up to
// compacted, the still-unmoved tail in [tail, end), and big-object windows.
func (h *Heap) fixup(r Roots, compacted, tail, end xunsafe.Addr[byte], nrelocs int) {
	h.relocateStack(r, nrelocs)
	h.relocateWalk(h.base, compacted, nrelocs, false)
	h.relocateWalk(tail, end, nrelocs, true)
	h.relocateBigObjects(nrelocs)
}

// relocateWalk rewrites the scan windows of bodies in [start, end); when
// markedOnly is set, only marked bodies are touched (the walk may cross dead
// ones whose windows are stale).
func (h *Heap) relocateWalk(start, end xunsafe.Addr[byte], nrelocs int, markedOnly bool) {
	for cur := start; cur < end; {
		p := headerAt(cur)
		if n := p.ScanSize(); n > 0 && (!markedOnly || h.markedHeader(cur)) {
			slot := slotAt(bodyOf(cur), p.ScanOffset())
			h.relocateSlots(slot, slot.Add(int(n)), nrelocs)
		}
		cur = p.next(cur)
	}
}

func (h *Heap) relocateStack(r Roots, nrelocs int) {
	h.relocateSlots(r.Stack, r.end(), nrelocs)
}

func (h *Heap) relocateBigObjects(nrelocs int) {
	bigs := h.bigSlice()
	for i := range bigs {
		b := &bigs[i]
		if b.scanSize == 0 {
			continue
		}
		slot := slotAt(b.body, uint32(b.scanOffset))
		h.relocateSlots(slot, slot.Add(int(b.scanSize)), nrelocs)
	}
}

// relocateSlots rewrites every pointer-class slot in [start, end) whose body
// lies in the arena and has moved.
func (h *Heap) relocateSlots(start, end xunsafe.Addr[value.Value], nrelocs int) {
	for slot := start; slot < end; slot = slot.Add(1) {
		p := slot.AssertValid()
		v := *p
		if !v.IsPointer() {
			continue
		}
		body := v.UntagPointer()
		if body < h.base || body >= h.limit() {
			continue
		}
		if diff := h.findRelocation(body, nrelocs); diff != 0 {
			*p = value.TagPointer(v.Tag(), body.ByteAdd(-diff))
		}
	}
}

// findRelocation returns the byte distance body moved down by, or zero. It
// binary-searches the buffer for the last entry at or below body's index;
// the sentinel guarantees a well-defined result past all moves.
func (h *Heap) findRelocation(body xunsafe.Addr[byte], nrelocs int) int {
	index := h.alignIndex(body)
	i := sort.Search(nrelocs, func(i int) bool { return h.relocAt(i).Src > index })
	if i == 0 {
		return 0
	}
	return int(h.relocAt(i-1).Diff) * Alignment
}

// fillGap overwrites [from, to) with dead bodies so header walks stay
// consistent when a compaction stops early.
func (h *Heap) fillGap(from, to xunsafe.Addr[byte]) {
	for from < to {
		words := to.ByteSub(from)/WordSize - 1
		if words > MaxObjectWords {
			words = MaxObjectWords
		}
		*headerAt(from) = makeHeader(uint32(words), 0, 0)
		from = from.ByteAdd((words + 1) * WordSize)
	}
}
