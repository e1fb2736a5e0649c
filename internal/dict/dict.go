// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package dict provides the static dictionary asset used by the Brotli format.
//
// The dictionary is a read-only word store that the codec depends on, but does
// not design: words are packed back-to-back, grouped by length, and the group
// for words of length L holds exactly 1<<SizeBits[L] entries. The data blob is
// embedded at build time so that no lazy initialization is needed.
package dict

import _ "embed"

//go:embed dictionary.bin
var Data []byte

const (
	// MinLen and MaxLen bound the lengths of words in the store.
	MinLen = 4
	MaxLen = 24
)

// SizeBits reports the log2 number of words for each length.
// Lengths outside [MinLen, MaxLen] have no words.
var SizeBits = [MaxLen + 1]uint{
	4:  10,
	5:  10,
	6:  11,
	7:  11,
	8:  10,
	9:  10,
	10: 10,
	11: 10,
	12: 10,
	13: 9,
	14: 9,
	15: 8,
	16: 7,
	17: 7,
	18: 8,
	19: 7,
	20: 7,
	21: 6,
	22: 6,
	23: 5,
	24: 5,
}

// Offsets locates the start of the word group for each length;
// Offsets[L+1]-Offsets[L] == L << SizeBits[L].
var Offsets [MaxLen + 2]uint32

func init() {
	var off uint32
	for i := MinLen; i <= MaxLen; i++ {
		Offsets[i] = off
		off += uint32(i) << SizeBits[i]
	}
	Offsets[MaxLen+1] = off
	if int(off) != len(Data) {
		panic("dict: corrupted dictionary data")
	}
}

// Word returns the idx-th word of the given length.
func Word(length, idx int) []byte {
	pos := int(Offsets[length]) + length*idx
	return Data[pos : pos+length]
}
