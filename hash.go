// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"encoding/binary"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// A match is a candidate backward reference found by a hasher.
type match struct {
	length  int // Number of matching bytes
	lenCode int // Length used for prefix coding; differs for dictionary words
	dist    int // Backward distance, or beyond the window for dictionary words
	score   float64
}

// A hasher indexes past input positions so that FindLongestMatch can locate
// copy sources. Implementations differ in key width and chain depth.
type hasher interface {
	// Store indexes the position for future match searches.
	Store(data []byte, mask int, pos int)

	// FindLongestMatch searches for the best match at the given position.
	// The score combines the match length, distance, and the literal-cost
	// estimate of the bytes being replaced.
	FindLongestMatch(data []byte, mask int, pos int, maxLength, maxBackward int,
		ring *[4]int, litCost []float32, costBase int, avgCost float64, insertLen int) (match, bool)
}

const (
	hashMul32 = 0x1e35a7bd

	// Scores below this are not worth emitting a backward reference for.
	minMatchScore = 8.115
)

func hash4(data []byte, shift uint) uint32 {
	return binary.LittleEndian.Uint32(data) * hashMul32 >> (32 - shift)
}

// matchLength returns the length of the common prefix of a and b, up to max.
func matchLength(a, b []byte, max int) int {
	var n int
	for n+8 <= max && len(a) >= n+8 && len(b) >= n+8 {
		x := binary.LittleEndian.Uint64(a[n:]) ^ binary.LittleEndian.Uint64(b[n:])
		if x != 0 {
			return n + bits.TrailingZeros64(x)>>3
		}
		n += 8
	}
	for n < max && n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// backwardReferenceScore is the score of a match found through the hash
// chain: longer is better, closer is better, and replacing expensive
// literals is better.
func backwardReferenceScore(startCost4 float64, avgCost float64, length, backward int) float64 {
	var score float64
	switch length {
	case 2:
		score = startCost4 - 1.70
	case 3:
		score = startCost4 - 0.85
	default:
		score = startCost4 + float64(length-4)*avgCost
	}
	return score - 1.20*fastLog2(uint32(backward))
}

// Biases that prefer short distance codes over equivalent raw distances.
var shortCodeBias = [16]float64{
	0.0, -0.45, -0.65, -0.85,
	-0.2, -0.2, -0.4, -0.4, -0.6, -0.6,
	-0.5, -0.5, -0.7, -0.7, -0.9, -0.9,
}

// hashChain is a bucketed chain hasher: each bucket holds the last
// 1<<blockBits positions whose key hashed into it.
type hashChain struct {
	bucketBits uint
	blockBits  uint
	blockMask  uint32
	useDict    bool // Probe the static dictionary on a weak match

	num     []uint16 // Number of positions stored per bucket
	buckets []uint32 // Position ring per bucket
}

func newHashChain(bucketBits, blockBits uint, useDict bool) *hashChain {
	return &hashChain{
		bucketBits: bucketBits,
		blockBits:  blockBits,
		blockMask:  1<<blockBits - 1,
		useDict:    useDict,
		num:        make([]uint16, 1<<bucketBits),
		buckets:    make([]uint32, 1<<(bucketBits+blockBits)),
	}
}

func (h *hashChain) Store(data []byte, mask int, pos int) {
	if (pos&mask)+4 > len(data) {
		return
	}
	key := hash4(data[pos&mask:], h.bucketBits)
	idx := uint32(h.num[key]) & h.blockMask
	h.buckets[key<<h.blockBits|idx] = uint32(pos)
	h.num[key]++
}

func (h *hashChain) FindLongestMatch(data []byte, mask int, pos int, maxLength, maxBackward int,
	ring *[4]int, litCost []float32, costBase int, avgCost float64, insertLen int) (match, bool) {

	cur := pos & mask
	startCost4 := 4 * avgCost
	if litCost != nil {
		startCost4 = 0
		for i := 0; i < 4 && pos-costBase+i < len(litCost); i++ {
			startCost4 += float64(litCost[pos-costBase+i])
		}
	}

	best := match{score: minMatchScore}
	if insertLen < 4 {
		best.score += [4]float64{0.10, 0.04, 0.02, 0.01}[insertLen]
	}
	found := false

	// Try the last distances and small perturbations of them first.
	for i, ref := range distShortLUT {
		backward := ring[ref.index] + ref.delta
		if backward <= 0 || backward > maxBackward || backward > pos {
			continue
		}
		prev := (pos - backward) & mask
		if cur+best.length >= len(data) || prev+best.length >= len(data) ||
			data[cur+best.length] != data[prev+best.length] {
			continue
		}
		length := matchLength(data[prev:], data[cur:], maxLength)
		if length >= 3 {
			score := backwardReferenceScore(startCost4, avgCost, length, backward) + shortCodeBias[i]
			if score > best.score {
				best = match{length: length, lenCode: length, dist: backward, score: score}
				found = true
			}
		}
	}

	// Walk the hash chain for the current key.
	if cur+4 <= len(data) {
		key := hash4(data[cur:], h.bucketBits)
		depth := int(h.num[key])
		if depth > int(h.blockMask)+1 {
			depth = int(h.blockMask) + 1
		}
		bucket := h.buckets[key<<h.blockBits : key<<h.blockBits+h.blockMask+1]
		for i := 0; i < depth; i++ {
			prevPos := int(bucket[uint32(int(h.num[key])-1-i)&h.blockMask])
			backward := pos - prevPos
			if backward <= 0 || backward > maxBackward {
				continue
			}
			prev := prevPos & mask
			if cur+best.length >= len(data) || prev+best.length >= len(data) ||
				data[cur+best.length] != data[prev+best.length] {
				continue
			}
			length := matchLength(data[prev:], data[cur:], maxLength)
			if length >= 4 || (length == 3 && backward < 1<<10) {
				score := backwardReferenceScore(startCost4, avgCost, length, backward)
				if score > best.score {
					best = match{length: length, lenCode: length, dist: backward, score: score}
					found = true
				}
			}
		}
	}

	// Probe the static dictionary when enabled and no strong match exists.
	if h.useDict && best.length < 16 && cur+minDictLen <= len(data) {
		probe := data[cur:]
		if maxLength < len(probe) {
			probe = probe[:maxLength]
		}
		if wordLen, wordIdx, ok := findDictMatch(probe); ok {
			backward := dictWordDist(wordLen, wordIdx, maxBackward)
			score := backwardReferenceScore(startCost4, avgCost, wordLen, maxBackward+1) - 2.0
			if score > best.score {
				best = match{length: wordLen, lenCode: wordLen, dist: backward, score: score}
				found = true
			}
		}
	}

	return best, found
}

// hashSimple is the flat table used by the low-quality fast paths: a single
// position per bucket, keyed by a 64-bit hash of five bytes.
type hashSimple struct {
	bucketBits uint
	table      []uint32
}

func newHashSimple(bucketBits uint) *hashSimple {
	return &hashSimple{
		bucketBits: bucketBits,
		table:      make([]uint32, 1<<bucketBits),
	}
}

func (h *hashSimple) key(data []byte) uint32 {
	return uint32(xxhash.Sum64(data[:5]) >> (64 - h.bucketBits))
}

func (h *hashSimple) Store(data []byte, mask int, pos int) {
	if (pos&mask)+5 > len(data) {
		return
	}
	h.table[h.key(data[pos&mask:])] = uint32(pos)
}

func (h *hashSimple) FindLongestMatch(data []byte, mask int, pos int, maxLength, maxBackward int,
	ring *[4]int, litCost []float32, costBase int, avgCost float64, insertLen int) (match, bool) {

	cur := pos & mask
	if cur+5 > len(data) || maxLength < 4 {
		return match{}, false
	}

	// The last distance is worth checking even with a single-entry table.
	if backward := ring[0]; backward > 0 && backward <= maxBackward && backward <= pos {
		prev := (pos - backward) & mask
		if length := matchLength(data[prev:], data[cur:], maxLength); length >= 4 {
			score := backwardReferenceScore(4*avgCost, avgCost, length, backward) + 0.3
			return match{length: length, lenCode: length, dist: backward, score: score}, true
		}
	}

	key := h.key(data[cur:])
	prevPos := int(h.table[key])
	h.table[key] = uint32(pos)
	backward := pos - prevPos
	if backward <= 0 || backward > maxBackward {
		return match{}, false
	}
	prev := prevPos & mask
	length := matchLength(data[prev:], data[cur:], maxLength)
	if length < 4 {
		return match{}, false
	}
	score := backwardReferenceScore(4*avgCost, avgCost, length, backward)
	return match{length: length, lenCode: length, dist: backward, score: score}, true
}
