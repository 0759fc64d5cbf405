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

// Package stats provides small statistics helpers for runtime telemetry.
package stats

import "slices"

// Median tracks a median over a sliding window of samples.
//
// Must be constructed with [NewMedian].
type Median struct {
	// A ring buffer of the last len(samples) samples.
	samples []float64
	w       int // offset at which to write the next sample
	n       int // total samples ever recorded
}

// NewMedian returns a median statistic remembering the last n samples.
func NewMedian(n int) *Median {
	return &Median{samples: make([]float64, n)}
}

// Record records a sample.
func (m *Median) Record(sample float64) {
	m.samples[m.w] = sample
	m.w++
	if m.w == len(m.samples) {
		m.w = 0
	}
	m.n++
}

// Get returns the median of the recorded window.
func (m *Median) Get() float64 {
	samples := m.samples[:min(m.n, len(m.samples))]
	samples = slices.Clone(samples)
	slices.Sort(samples)

	switch {
	case len(samples) == 0:
		return 0
	case len(samples)%2 == 0:
		a := samples[len(samples)/2-1]
		b := samples[len(samples)/2]
		return (a + b) / 2
	default:
		return samples[len(samples)/2]
	}
}
