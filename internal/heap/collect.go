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

import "time"

// deadline bounds a collection phase. The zero deadline never expires.
type deadline struct {
	at time.Time
}

func (d deadline) expired() bool {
	return !d.at.IsZero() && !time.Now().Before(d.at)
}

func (h *Heap) newDeadline() deadline {
	if h.latency <= 0 {
		return deadline{}
	}
	return deadline{at: time.Now().Add(h.latency)}
}

// Collect runs one latency-bounded collection cycle: a mark, then a
// compaction if marking finished inside the deadline and less than half the
// region is live. Both phases preserve every heap invariant when they stop
// early; an unfinished mark is simply retried wholesale by the next cycle.
func (h *Heap) Collect(r Roots) {
	h.collect(r, h.newDeadline())
}

// CollectFull runs an unbounded mark and compaction.
func (h *Heap) CollectFull(r Roots) {
	h.stats.FullCollections++
	h.collect(r, deadline{})
}

func (h *Heap) collect(r Roots, dl deadline) {
	start := time.Now()
	h.stats.Collections++

	complete := h.mark(r, dl)
	h.stats.MarkTime += time.Since(start)
	if !complete {
		h.stats.IncompleteMarks++
		h.stats.recordPause(time.Since(start))
		return
	}

	if h.markSize < h.Capacity()/2 && !dl.expired() {
		cstart := time.Now()
		if !h.compact(r, dl) {
			h.stats.IncompleteCompactions++
		}
		h.stats.CompactTime += time.Since(cstart)
	}

	h.stats.recordPause(time.Since(start))
}
