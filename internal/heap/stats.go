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
	"time"

	"github.com/tern-lang/tern/internal/stats"
)

// Stats accumulates collector counters for one heap.
type Stats struct {
	Collections           uint64
	FullCollections       uint64
	IncompleteMarks       uint64
	IncompleteCompactions uint64
	FixupPasses           uint64
	Resizes               uint64

	Allocations    uint64
	BigAllocations uint64
	BigFrees       uint64

	MarkTime    time.Duration
	CompactTime time.Duration
	ResizeTime  time.Duration

	// LiveBytes is the live size found by the last completed mark.
	LiveBytes int

	// MedianPause is filled in by [Heap.Stats].
	MedianPause time.Duration

	pauses *stats.Median
}

func (s *Stats) init() {
	s.pauses = stats.NewMedian(256)
}

func (s *Stats) recordPause(d time.Duration) {
	s.pauses.Record(float64(d))
}

// Stats returns a snapshot of the collector counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.MedianPause = time.Duration(h.stats.pauses.Get())
	s.pauses = nil
	return s
}
