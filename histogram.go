// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// A histogram is a bounded count of symbol occurrences with a running total.
// The alphabet size is fixed when the histogram is created: 256 for literals,
// 704 for insert-and-copy symbols, up to 520 for distances, and 26 for block
// lengths.
type histogram struct {
	counts []uint32
	total  uint32
}

func newHistogram(alphabetSize int) histogram {
	return histogram{counts: make([]uint32, alphabetSize)}
}

func (h *histogram) Clear() {
	for i := range h.counts {
		h.counts[i] = 0
	}
	h.total = 0
}

func (h *histogram) Add(sym uint16) {
	h.counts[sym]++
	h.total++
}

func (h *histogram) AddSlice(syms []uint16) {
	for _, sym := range syms {
		h.counts[sym]++
	}
	h.total += uint32(len(syms))
}

func (h *histogram) Merge(other *histogram) {
	for i, c := range other.counts {
		h.counts[i] += c
	}
	h.total += other.total
}

// NonZero reports the number of symbols with a non-zero count.
func (h *histogram) NonZero() (n int) {
	for _, c := range h.counts {
		if c > 0 {
			n++
		}
	}
	return n
}
