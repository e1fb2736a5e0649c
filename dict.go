// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"encoding/binary"

	"github.com/dsnet/brotli/internal/dict"
	"github.com/dsnet/brotli/internal/errors"
)

// The static dictionary is addressed through distances that reach beyond the
// sliding window. RFC section 8.
const (
	minDictLen = dict.MinLen
	maxDictLen = dict.MaxLen

	numTransforms = 121

	dictHashBits = 15
	dictHashMul  = 0x1e35a7bd
)

var (
	dictBitSizes = dict.SizeBits
	dictOffsets  = dict.Offsets
	dictSizes    [maxDictLen + 1]uint32
)

// dictRef identifies a single dictionary word for the encoder-side probe.
type dictRef struct {
	len uint8
	idx uint32
}

// dictHashLUT buckets words by the hash of their first four bytes so that the
// encoder can probe the dictionary during match search.
var (
	dictHashLUT  [1 << dictHashBits][]dictRef
	dictInitDone bool
)

func initDictLUTs() {
	for i := minDictLen; i <= maxDictLen; i++ {
		dictSizes[i] = 1 << dictBitSizes[i]
	}
	if dictInitDone {
		return // Tables survive a re-init in benchmarks
	}
	dictInitDone = true
	for length := minDictLen; length <= maxDictLen; length++ {
		for idx := 0; idx < int(dictSizes[length]); idx++ {
			word := dict.Word(length, idx)
			h := dictHash(word)
			dictHashLUT[h] = append(dictHashLUT[h], dictRef{len: uint8(length), idx: uint32(idx)})
		}
	}
}

func dictHash(word []byte) uint32 {
	return binary.LittleEndian.Uint32(word) * dictHashMul >> (32 - dictHashBits)
}

// findDictMatch probes the dictionary for the longest word matching a prefix
// of data. Only untransformed words are considered.
func findDictMatch(data []byte) (wordLen int, wordIdx int, ok bool) {
	if len(data) < minDictLen {
		return 0, 0, false
	}
	for _, ref := range dictHashLUT[dictHash(data)] {
		n := int(ref.len)
		if n > len(data) || n <= wordLen {
			continue
		}
		if bytes.Equal(dict.Word(n, int(ref.idx)), data[:n]) {
			wordLen, wordIdx, ok = n, int(ref.idx), true
		}
	}
	return wordLen, wordIdx, ok
}

// dictWordDist computes the distance that references the given untransformed
// dictionary word when the usable window size is maxDist.
func dictWordDist(wordLen, wordIdx, maxDist int) int {
	return maxDist + 1 + wordIdx // Transform zero is the identity
}

// dictWord returns the idx-th word of the given length group.
func dictWord(length, idx int) []byte { return dict.Word(length, idx) }

// resolveDictRef expands a static dictionary reference into buf and returns
// the number of bytes produced. The reference is identified by the copy
// length code and the amount by which the distance exceeds the window.
// The length of buf must be >= maxWordSize.
func resolveDictRef(buf []byte, cpyLen, dist, maxDist int) int {
	if cpyLen < minDictLen || cpyLen > maxDictLen {
		panicf(errors.Corrupted, "invalid dictionary word length: %d", cpyLen)
	}
	wordID := dist - maxDist - 1
	idx := wordID & int(dictSizes[cpyLen]-1)
	tid := wordID >> dictBitSizes[cpyLen]
	if tid >= numTransforms {
		panicf(errors.Corrupted, "invalid dictionary transform: %d", tid)
	}
	return transformWord(buf, dict.Word(cpyLen, idx), tid)
}
