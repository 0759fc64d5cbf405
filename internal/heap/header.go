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

const (
	// WordSize is the slot granularity of object bodies. Headers are exactly
	// one word.
	WordSize    = 8
	headerBytes = 8

	// Alignment is the body alignment; [value.TagPointer] depends on it.
	Alignment  = value.HeapAlignment
	alignShift = value.HeapAlignmentShift

	// sizeBits is the width of each header size field.
	sizeBits = 10

	// MaxObjectWords is the largest body the inline header can describe.
	// Anything bigger is promoted to the big-object list.
	MaxObjectWords = 1<<sizeBits - 1
	MaxObjectBytes = MaxObjectWords * WordSize
)

// header is the sideband word in front of every body:
//
//	[0:32)  markNext    heap index (in Alignment units) of the next object
//	                    on the mark worklist
//	[32:42) size        body size in words, not counting the header
//	[42:52) scanOffset  first body word that is a value slot
//	[52:62) scanSize    number of value slots
//
// A header whose size is zero and that is not on the mark worklist is
// padding; walks step over it like any other body.
type header uint64

func makeHeader(sizeWords, scanOffset, scanSize uint32) header {
	debug.Assert(sizeWords <= MaxObjectWords, "object size %d exceeds header field", sizeWords)
	debug.Assert(scanOffset+scanSize <= sizeWords || sizeWords == 0,
		"scan window [%d:+%d] escapes body of %d words", scanOffset, scanSize, sizeWords)
	return header(sizeWords)<<32 | header(scanOffset)<<42 | header(scanSize)<<52
}

func (h *header) Size() uint32       { return uint32(*h>>32) & MaxObjectWords }
func (h *header) ScanOffset() uint32 { return uint32(*h>>42) & MaxObjectWords }
func (h *header) ScanSize() uint32   { return uint32(*h>>52) & MaxObjectWords }

func (h *header) MarkNext() uint32 { return uint32(*h) }

func (h *header) SetMarkNext(next uint32) {
	*h = *h&^0xFFFFFFFF | header(next)
}

// headerAt reinterprets an arena address as a header.
func headerAt(a xunsafe.Addr[byte]) *header {
	return xunsafe.Cast[header](a.AssertValid())
}

// bodyOf returns the body address for a header address.
func bodyOf(hdr xunsafe.Addr[byte]) xunsafe.Addr[byte] {
	return hdr.ByteAdd(headerBytes)
}

// headerOf returns the header address for a body address.
func headerOf(body xunsafe.Addr[byte]) xunsafe.Addr[byte] {
	return body.ByteAdd(-headerBytes)
}

// isHeaderAligned reports whether installing a header at a leaves the body
// after it aligned to [Alignment].
func isHeaderAligned(a xunsafe.Addr[byte]) bool {
	return a.ByteAdd(headerBytes).IsAligned(Alignment)
}

// next steps from one header to the next in a body walk.
func (h *header) next(a xunsafe.Addr[byte]) xunsafe.Addr[byte] {
	return a.ByteAdd(int(h.Size()+1) * WordSize)
}
