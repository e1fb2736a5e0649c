// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// The moveToFront transform is used on context map values so that recently
// used tree indices are small and the zero-run RLE is effective.
// RFC section 7.3.
type moveToFront struct {
	dict [256]uint8
}

func (m *moveToFront) Init() {
	for i := range m.dict {
		m.dict[i] = uint8(i)
	}
}

// Encode replaces each value with its index in the recency list, in place.
func (m *moveToFront) Encode(vals []uint8) {
	m.Init()
	for i, val := range vals {
		var idx uint8
		for m.dict[idx] != val {
			idx++
		}
		copy(m.dict[1:idx+1], m.dict[:idx])
		m.dict[0] = val
		vals[i] = idx
	}
}

// Decode is the inverse of Encode, in place.
func (m *moveToFront) Decode(idxs []uint8) {
	m.Init()
	for i, idx := range idxs {
		val := m.dict[idx]
		copy(m.dict[1:idx+1], m.dict[:idx])
		m.dict[0] = val
		idxs[i] = val
	}
}
