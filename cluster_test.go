// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"testing"

	"github.com/dsnet/brotli/internal/testutil"
)

func TestClusterHistograms(t *testing.T) {
	rand := testutil.NewRand(11)

	// Three families of histograms; clustering should identify them.
	makeFamily := func(lo, hi int) histogram {
		h := newHistogram(256)
		for i := 0; i < 500; i++ {
			h.Add(uint16(lo + rand.Intn(hi-lo)))
		}
		return h
	}
	var in []histogram
	for i := 0; i < 30; i++ {
		switch i % 3 {
		case 0:
			in = append(in, makeFamily(0, 16))
		case 1:
			in = append(in, makeFamily(100, 116))
		case 2:
			in = append(in, makeFamily(200, 216))
		}
	}

	out, symbols := clusterHistograms(in, 256)
	if len(symbols) != len(in) {
		t.Fatalf("symbol count mismatch: got %d, want %d", len(symbols), len(in))
	}
	if len(out) > 6 {
		t.Errorf("clustering was ineffective: %d clusters for 3 families", len(out))
	}

	// The clusters must be a dense, first-use ordered range.
	next := 0
	for _, sym := range symbols {
		if sym > next {
			t.Fatalf("cluster ids are not in first-use order: %v", symbols)
		}
		if sym == next {
			next++
		}
		if sym >= len(out) {
			t.Fatalf("cluster id %d out of range", sym)
		}
	}

	// The total count must be preserved across the merge.
	var totalIn, totalOut uint32
	for i := range in {
		totalIn += in[i].total
	}
	for i := range out {
		totalOut += out[i].total
	}
	if totalIn != totalOut {
		t.Errorf("total count mismatch: got %d, want %d", totalOut, totalIn)
	}

	// Histograms of the same family must land in the same cluster.
	for i := 3; i < len(symbols); i++ {
		if symbols[i] != symbols[i%3] {
			t.Errorf("histogram %d not clustered with its family", i)
		}
	}
}

func TestPopulationCost(t *testing.T) {
	h := newHistogram(256)
	if cost := populationCost(&h); cost != oneSymbolHistogramCost {
		t.Errorf("empty histogram: got %v, want %v", cost, oneSymbolHistogramCost)
	}
	h.Add('a')
	if cost := populationCost(&h); cost != oneSymbolHistogramCost {
		t.Errorf("single symbol: got %v, want %v", cost, oneSymbolHistogramCost)
	}
	h.Add('b')
	if cost := populationCost(&h); cost != twoSymbolHistogramCost+2 {
		t.Errorf("two symbols: got %v, want %v", cost, twoSymbolHistogramCost+2)
	}

	// The general path must be at least the entropy of the data.
	rand := testutil.NewRand(13)
	g := newHistogram(256)
	for i := 0; i < 10000; i++ {
		g.Add(uint16(rand.Intn(256)))
	}
	if cost := populationCost(&g); cost < bitsEntropy(g.counts) {
		t.Errorf("population cost below entropy: %v < %v", cost, bitsEntropy(g.counts))
	}
}
