// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import "testing"

// This package relies on dynamic generation of LUTs to reduce the static
// binary size. This benchmark attempts to measure the startup cost of init.
// This benchmark is not thread-safe; so do not run it in parallel with other
// tests or benchmarks!
func BenchmarkInit(b *testing.B) {
	for i := 0; i < b.N; i++ {
		initLUTs()
	}
}

func TestTableInvariants(t *testing.T) {
	// The combined insert-and-copy cells must agree with their inverse.
	for sym := 0; sym < numInsSyms; sym++ {
		info := iacLUT[sym]
		insLen := int(insLenRanges[info.insSym].base)
		cpyLen := int(cpyLenRanges[info.cpySym].base)
		got := combineLengthCodes(uint(info.insSym), uint(info.cpySym), info.distZero)
		if int(got) != sym {
			t.Fatalf("symbol %d (ins %d, cpy %d): inverse mismatch: got %d",
				sym, insLen, cpyLen, got)
		}
	}

	// The distance short codes must match their decoder table.
	ring := [4]int{100, 200, 300, 400}
	for code := 0; code < 16; code++ {
		dist := commandDistance(code, &ring)
		if got := computeDistanceCode(dist, 1<<20, &ring); got != code {
			// Deltas can alias between ring entries; the computed code
			// must at least resolve to the same distance.
			if commandDistance(got, &ring) != dist {
				t.Errorf("code %d: distance %d maps to code %d", code, dist, got)
			}
		}
	}
}
