// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"testing"

	"github.com/dsnet/brotli/internal/dict"
)

func TestDictTables(t *testing.T) {
	var total int
	for i := minDictLen; i <= maxDictLen; i++ {
		total += i << dictBitSizes[i]
	}
	if total != len(dict.Data) {
		t.Fatalf("dictionary size mismatch: got %d, want %d", total, len(dict.Data))
	}
	if len(dict.Data) != 122784 {
		t.Fatalf("unexpected dictionary size: %d", len(dict.Data))
	}
}

// A dictionary word found by the encoder probe must resolve back to itself
// through the decoder path.
func TestDictRoundTrip(t *testing.T) {
	for _, length := range []int{4, 7, 12, 24} {
		for _, idx := range []int{0, 1, 13, int(dictSizes[length]) - 1} {
			word := dict.Word(length, idx)

			const maxDist = 1 << 20 // An arbitrary window state
			dist := dictWordDist(length, idx, maxDist)
			if dist <= maxDist {
				t.Fatalf("len %d, idx %d: distance does not exceed the window", length, idx)
			}
			var buf [maxWordSize]byte
			cnt := resolveDictRef(buf[:], length, dist, maxDist)
			if !bytes.Equal(buf[:cnt], word) {
				t.Errorf("len %d, idx %d: got %q, want %q", length, idx, buf[:cnt], word)
			}
		}
	}
}

func TestFindDictMatch(t *testing.T) {
	word := dict.Word(8, 42)
	data := append(append([]byte{}, word...), "trailing data"...)
	wordLen, wordIdx, ok := findDictMatch(data)
	if !ok {
		t.Fatal("no match found for a known dictionary word")
	}
	got := dict.Word(wordLen, wordIdx)
	if !bytes.Equal(got, data[:wordLen]) {
		t.Errorf("match mismatch: got %q, want prefix of %q", got, data[:16])
	}
}
