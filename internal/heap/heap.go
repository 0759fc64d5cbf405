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

// Package heap implements the moving, mark-compact collected arena that
// backs every Tern object.
//
// # Layout
//
// The arena is one contiguous mapping. Bodies grow up from the base as
// [header | body] pairs, each body aligned to [Alignment]; the metadata tail
// sits at the top of the committed range:
//
//	base ──▶ [ bodies ... ] ──▶ pointer   ...free...
//	         [ big-object descriptors, growing down ]
//	         [ relocation buffer ] [ mark bitmap ] ◀── base+size
//
// The descriptor array grows down out of the metadata tail toward the bump
// pointer; its low end is the allocation limit.
//
// # Precision
//
// The collector is precise. The only roots are the value stack passed in as
// [Roots]; within bodies, only the slots inside each header's scan window are
// references, and only when [value.Value.IsPointer] says so. Any collection
// may move any body, so mutators must re-derive raw addresses from rooted
// values after every allocation point.
package heap

import (
	"fmt"
	"time"

	"github.com/tern-lang/tern/internal/debug"
	"github.com/tern-lang/tern/internal/mem"
	"github.com/tern-lang/tern/internal/value"
	"github.com/tern-lang/tern/internal/xunsafe"
)

const (
	// MinHeapSize is the smallest committed size the heap will operate with;
	// reservation failures fall back by halving until they hit it.
	MinHeapSize = 1 << 15

	// initialCommit is the committed size a fresh heap starts from.
	initialCommit = 1 << 15

	// MaxHeapSize caps committed growth.
	MaxHeapSize = 1 << 35

	// DefaultReserve is the virtual range reserved up front.
	DefaultReserve = 1 << 32

	// DefaultLatency bounds the work a single collection may do before it
	// yields back to the mutator.
	DefaultLatency = 50 * time.Millisecond

	markListNull = 0xFFFFFFFF
)

// relocation records that the run of bodies starting at heap index Src (in
// [Alignment] units) moved down by Diff alignment units. A terminating
// sentinel with Diff == 0 bounds every lookup.
type relocation struct {
	Src, Diff uint32
}

const relocationBytes = 8

// Roots is the precise root set for a collection: the live prefix of the
// mutator's value stack.
type Roots struct {
	Stack xunsafe.Addr[value.Value]
	Depth int
}

func (r Roots) end() xunsafe.Addr[value.Value] {
	return r.Stack.Add(r.Depth)
}

// Heap is a single mutator's arena. Not safe for concurrent use.
type Heap struct {
	_ xunsafe.NoCopy

	pointer xunsafe.Addr[byte] // bump pointer: next header slot
	base    xunsafe.Addr[byte]

	size     int // committed bytes, metadata included
	reserved int

	relocs      xunsafe.Addr[byte] // relocation buffer
	relocsSize  int                // entries
	bitmap      xunsafe.Addr[uint64]
	bitmapWords int

	bigTop   xunsafe.Addr[byte] // descriptors occupy [bigTop-n*bigObjectBytes, bigTop)
	bigCount int
	bigMaps  map[xunsafe.Addr[byte]]*mem.Mapping

	latency  time.Duration
	markList uint32
	markSize int // live bytes found by the last mark

	mapping *mem.Mapping
	stats   Stats
}

// Init reserves the arena and commits its initial size. reserve and latency
// may be zero for the defaults.
func (h *Heap) Init(reserve int, latency time.Duration) error {
	if reserve <= 0 {
		reserve = DefaultReserve
	}
	reserve = min(reserve, MaxHeapSize)
	if latency == 0 {
		latency = DefaultLatency
	}
	commit := min(initialCommit, reserve)

	for {
		m, err := mem.Reserve(reserve, commit)
		if err == nil {
			h.mapping = m
			break
		}
		if reserve/2 < MinHeapSize {
			return fmt.Errorf("tern: heap reservation failed: %w", err)
		}
		reserve /= 2
	}

	h.reserved = reserve
	h.latency = latency
	h.markList = markListNull
	h.bigMaps = make(map[xunsafe.Addr[byte]]*mem.Mapping)
	h.stats.init()
	h.setBase(h.mapping.Base(), h.mapping.Size())
	h.pointer = h.base
	h.Log("init", "%v:%d/%d", h.base, h.size, h.reserved)
	return nil
}

// Close frees the arena and every big object.
func (h *Heap) Close() error {
	for _, m := range h.bigMaps {
		_ = m.Free()
	}
	h.bigMaps = nil
	h.bigCount = 0
	if h.mapping == nil {
		return nil
	}
	err := h.mapping.Free()
	h.mapping = nil
	h.base, h.pointer, h.size = 0, 0, 0
	return err
}

// setBase recomputes the metadata tail for a (possibly new) base and
// committed size. The caller re-establishes pointer and the descriptor
// array.
func (h *Heap) setBase(base xunsafe.Addr[byte], size int) {
	relocsSize := size / (32 * relocationBytes)
	bitmapWords := (size/WordSize + 63) / 64

	top := base.ByteAdd(size)
	bitmapStart := top.ByteAdd(-bitmapWords * WordSize)
	relocStart := bitmapStart.ByteAdd(-relocsSize * relocationBytes)

	h.base = base
	h.size = size
	h.bitmap = xunsafe.CastAddr[uint64](bitmapStart)
	h.bitmapWords = bitmapWords
	h.relocs = relocStart
	h.relocsSize = relocsSize
	h.bigTop = relocStart
}

// limit is the allocation boundary: the low end of the descriptor array.
func (h *Heap) limit() xunsafe.Addr[byte] {
	return h.bigTop.ByteAdd(-h.bigCount * bigObjectBytes)
}

// resize grows the committed size. If the base moves, every root and every
// scanned slot is adjusted by the move delta before the metadata tail is
// recomputed.
func (h *Heap) resize(r Roots, newSize int) {
	start := time.Now()
	debug.Assert(newSize > h.size, "resize %d -> %d is not a grow", h.size, newSize)

	// The metadata tail is about to be relaid out, so lift the descriptors
	// out of it first. The bitmap and relocation buffer carry no state
	// between collections.
	bigs := append([]bigObject(nil), h.bigSlice()...)

	oldBase := h.base
	oldLimit := h.limit()
	oldSize := h.size
	pointerOffset := h.pointer.ByteSub(h.base)

	delta, err := h.mapping.Grow(newSize)
	if err != nil {
		panic("tern: memory exhausted: " + err.Error())
	}
	newBase := h.mapping.Base()

	if delta != 0 {
		h.adjustForMove(r, newBase, oldBase, oldLimit, pointerOffset, delta, bigs)
	}

	// The old metadata tail now lies in the free region above the bump
	// pointer; zero it so fresh bodies still come up zeroed.
	oldTail := oldLimit.ByteSub(oldBase)
	xunsafe.Clear(newBase.ByteAdd(oldTail).AssertValid(), oldSize-oldTail)

	h.setBase(newBase, h.mapping.Size())
	h.pointer = newBase.ByteAdd(pointerOffset)
	h.bigCount = len(bigs)
	copy(h.bigSlice(), bigs)

	h.stats.Resizes++
	h.stats.ResizeTime += time.Since(start)
	h.Log("resize", "%v:%d delta=%d", h.base, h.size, delta)
}

// adjustForMove rewrites every slot that referenced the old base. The walk
// runs over the region at its new address; bounds are the old ones.
func (h *Heap) adjustForMove(r Roots, newBase, oldBase, oldLimit xunsafe.Addr[byte],
	pointerOffset, delta int, bigs []bigObject,
) {
	adjustSlots(r.Stack, r.end(), oldBase, oldLimit, delta)

	end := newBase.ByteAdd(pointerOffset)
	for cur := newBase; cur < end; {
		p := headerAt(cur)
		if n := p.ScanSize(); n > 0 {
			slot := slotAt(bodyOf(cur), p.ScanOffset())
			adjustSlots(slot, slot.Add(int(n)), oldBase, oldLimit, delta)
		}
		cur = p.next(cur)
	}

	for i := range bigs {
		b := &bigs[i]
		slot := slotAt(b.body, uint32(b.scanOffset))
		adjustSlots(slot, slot.Add(int(b.scanSize)), oldBase, oldLimit, delta)
	}
}

// adjustSlots applies a flat delta to every pointer-class slot whose body
// lies in [oldBase, oldLimit).
func adjustSlots(start, end xunsafe.Addr[value.Value], oldBase, oldLimit xunsafe.Addr[byte], delta int) {
	for slot := start; slot < end; slot = slot.Add(1) {
		p := slot.AssertValid()
		v := *p
		if !v.IsPointer() {
			continue
		}
		body := v.UntagPointer()
		if body >= oldBase && body < oldLimit {
			*p = value.TagPointer(v.Tag(), body.ByteAdd(delta))
		}
	}
}

// slotAt returns the address of a body's scan slot.
func slotAt(body xunsafe.Addr[byte], offsetWords uint32) xunsafe.Addr[value.Value] {
	return xunsafe.CastAddr[value.Value](body.ByteAdd(int(offsetWords) * WordSize))
}

// Used returns the bytes occupied by bodies and their headers.
func (h *Heap) Used() int { return h.pointer.ByteSub(h.base) }

// Capacity returns the bytes available to bodies in the committed region.
func (h *Heap) Capacity() int { return h.limit().ByteSub(h.base) }

// Committed returns the committed size of the arena, metadata included.
func (h *Heap) Committed() int { return h.size }

// Latency returns the collection work bound.
func (h *Heap) Latency() time.Duration { return h.latency }

func (h *Heap) Log(op, format string, args ...any) {
	debug.Log([]any{"heap %v:%v", h.base, h.pointer}, op, format, args...)
}
