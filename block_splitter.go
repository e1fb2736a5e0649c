// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// A blockSplit is an ordered partition of a symbol stream into contiguous
// typed blocks. Invariants: sum(lengths) equals the stream length, adjacent
// types differ, and the type values are a dense range 0..numTypes-1.
type blockSplit struct {
	numTypes int
	types    []uint8
	lengths  []uint32
}

// The block splitter is a single implementation parameterized over the
// stream kind; the three configurations below drive it for the literal,
// insert-and-copy, and distance streams.
type splitParams struct {
	alphabetSize        int
	symbolsPerHistogram int
	maxHistograms       int
	strideLen           int
	blockSwitchCost     float64
}

var (
	litSplitParams  = splitParams{numLitSyms, 544, 100, 70, 28.1}
	cmdSplitParams  = splitParams{numInsSyms, 530, 50, 40, 13.5}
	distSplitParams = splitParams{maxNumDistSyms, 544, 50, 40, 14.6}
)

const (
	minLengthForBlockSplitting = 128
	iterMulForRefining         = 2
	minItersForRefining        = 100
	maxNumberOfBlockTypes      = 256
)

// splitterRand is the fixed linear congruential generator used to sample the
// stream; determinism of the output requires the fixed seed of 7.
type splitterRand uint32

func (r *splitterRand) Next() uint32 {
	*r *= 16807
	if *r == 0 {
		*r = 1
	}
	return uint32(*r)
}

// splitBlock segments a symbol stream into typed blocks: histogram seeds are
// sampled, refined with random strides, symbols are assigned by a
// Viterbi-style pass with a capped block-switch cost, and the resulting
// histograms are clustered into the final set of types.
func splitBlock(data []uint16, p splitParams) blockSplit {
	if len(data) == 0 {
		return blockSplit{numTypes: 1}
	}
	if len(data) < minLengthForBlockSplitting {
		return blockSplit{
			numTypes: 1,
			types:    []uint8{0},
			lengths:  []uint32{uint32(len(data))},
		}
	}

	histograms := initialEntropyCodes(data, p)
	refineEntropyCodes(data, p, histograms)

	blockIDs := make([]uint8, len(data))
	findBlocks(data, p, histograms, blockIDs)
	clusterBlocks(data, p, blockIDs)
	return buildBlockSplit(blockIDs)
}

// initialEntropyCodes seeds histograms at evenly spaced positions with a
// small amount of jitter.
func initialEntropyCodes(data []uint16, p splitParams) []histogram {
	numHistograms := len(data)/p.symbolsPerHistogram + 1
	if numHistograms > p.maxHistograms {
		numHistograms = p.maxHistograms
	}
	seed := splitterRand(7)
	blockLength := len(data) / numHistograms
	var histograms []histogram
	for i := 0; i < numHistograms; i++ {
		pos := len(data) * i / numHistograms
		if i != 0 {
			pos += int(seed.Next() % uint32(blockLength))
		}
		if pos+p.strideLen >= len(data) {
			pos = len(data) - p.strideLen - 1
			if pos < 0 {
				pos = 0
			}
		}
		h := newHistogram(p.alphabetSize)
		end := pos + p.strideLen
		if end > len(data) {
			end = len(data)
		}
		h.AddSlice(data[pos:end])
		histograms = append(histograms, h)
	}
	return histograms
}

// refineEntropyCodes adds random samples of the stream to the seed
// histograms in a round-robin.
func refineEntropyCodes(data []uint16, p splitParams, histograms []histogram) {
	stride := p.strideLen
	if stride > len(data) {
		stride = len(data)
	}
	iters := iterMulForRefining*len(data)/stride + minItersForRefining
	iters = (iters + len(histograms) - 1) / len(histograms) * len(histograms)
	seed := splitterRand(7)
	for iter := 0; iter < iters; iter++ {
		pos := 0
		if stride < len(data) {
			pos = int(seed.Next() % uint32(len(data)-stride+1))
		}
		histograms[iter%len(histograms)].AddSlice(data[pos : pos+stride])
	}
}

// findBlocks assigns a histogram id to every position. After each position,
// cost[k] holds the difference between the minimum cost of arriving there
// using histogram k and the overall minimum; the difference is capped at the
// block switch cost, and reaching the cap records a switch marker used by
// the trace-back.
func findBlocks(data []uint16, p splitParams, histograms []histogram, blockIDs []uint8) {
	if len(histograms) <= 1 {
		for i := range blockIDs {
			blockIDs[i] = 0
		}
		return
	}

	vecSize := len(histograms)
	insertCost := make([]float64, p.alphabetSize*vecSize)
	for j, h := range histograms {
		insertCost[j] = fastLog2(h.total)
	}
	for i := p.alphabetSize - 1; i >= 0; i-- {
		for j, h := range histograms {
			cost := -2.0 // Bit cost of a symbol never seen
			if h.counts[i] > 0 {
				cost = fastLog2(h.counts[i])
			}
			insertCost[i*vecSize+j] = insertCost[j] - cost
		}
	}

	cost := make([]float64, vecSize)
	switchSignal := make([]bool, len(data)*vecSize)
	for byteIx, sym := range data {
		ix := byteIx * vecSize
		insertCostIx := int(sym) * vecSize
		minCost := 1e99
		for k := 0; k < vecSize; k++ {
			cost[k] += insertCost[insertCostIx+k]
			if cost[k] < minCost {
				minCost = cost[k]
				blockIDs[byteIx] = uint8(k)
			}
		}
		blockSwitchCost := p.blockSwitchCost
		if byteIx < 2000 {
			// More blocks for the beginning.
			blockSwitchCost *= 0.77 + 0.07*float64(byteIx)/2000
		}
		for k := 0; k < vecSize; k++ {
			cost[k] -= minCost
			if cost[k] >= blockSwitchCost {
				cost[k] = blockSwitchCost
				switchSignal[ix+k] = true
			}
		}
	}

	// Trace back from the last position and switch at the marked places.
	byteIx := len(data) - 1
	ix := byteIx * vecSize
	curID := blockIDs[byteIx]
	for byteIx > 0 {
		byteIx--
		ix -= vecSize
		if switchSignal[ix+int(curID)] {
			curID = blockIDs[byteIx]
		}
		blockIDs[byteIx] = curID
	}
}

// remapBlockIDs renumbers block ids to a dense range in order of first use.
func remapBlockIDs(blockIDs []uint8) int {
	var newID [maxNumberOfBlockTypes]int
	for i := range newID {
		newID[i] = -1
	}
	next := 0
	for i, id := range blockIDs {
		if newID[id] < 0 {
			newID[id] = next
			next++
		}
		blockIDs[i] = uint8(newID[id])
	}
	return next
}

// clusterBlocks rebuilds one histogram per contiguous block run and clusters
// them, remapping the block ids to the clustered types.
func clusterBlocks(data []uint16, p splitParams, blockIDs []uint8) {
	var histograms []histogram
	blockIndex := make([]int, len(data))
	curIdx := 0
	cur := newHistogram(p.alphabetSize)
	for i, sym := range data {
		blockIndex[i] = curIdx
		cur.Add(sym)
		if i+1 == len(data) || blockIDs[i] != blockIDs[i+1] {
			histograms = append(histograms, cur)
			cur = newHistogram(p.alphabetSize)
			curIdx++
		}
	}
	_, symbols := clusterHistograms(histograms, maxNumberOfBlockTypes)
	for i := range data {
		blockIDs[i] = uint8(symbols[blockIndex[i]])
	}
	remapBlockIDs(blockIDs)
}

// buildBlockSplit collapses adjacent runs of equal block id into the final
// types-and-lengths representation.
func buildBlockSplit(blockIDs []uint8) blockSplit {
	var split blockSplit
	curID := blockIDs[0]
	var curLen uint32 = 1
	maxID := int(curID)
	for _, id := range blockIDs[1:] {
		if id != curID {
			split.types = append(split.types, curID)
			split.lengths = append(split.lengths, curLen)
			curID = id
			curLen = 0
			if int(id) > maxID {
				maxID = int(id)
			}
		}
		curLen++
	}
	split.types = append(split.types, curID)
	split.lengths = append(split.lengths, curLen)
	split.numTypes = maxID + 1
	return split
}
