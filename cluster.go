// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import "container/heap"

// histogramPair is a candidate merge of two clusters, keyed by the bit-cost
// change the merge would produce. More negative is a better merge.
type histogramPair struct {
	idx1, idx2 int
	costCombo  float64 // populationCost of the merged histogram
	costDiff   float64 // Cost change of performing the merge
}

type pairHeap []histogramPair

func (h pairHeap) Len() int { return len(h) }
func (h pairHeap) Less(i, j int) bool {
	if h[i].costDiff != h[j].costDiff {
		return h[i].costDiff < h[j].costDiff
	}
	return h[i].idx2-h[i].idx1 < h[j].idx2-h[j].idx1
}
func (h pairHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *pairHeap) Push(x interface{}) { *h = append(*h, x.(histogramPair)) }
func (h *pairHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// clusterCostDiff is the entropy reduction of the cluster-size distribution
// when two clusters of the given sizes are combined.
func clusterCostDiff(sizeA, sizeB int) float64 {
	sizeC := sizeA + sizeB
	return float64(sizeA)*fastLog2(uint32(sizeA)) +
		float64(sizeB)*fastLog2(uint32(sizeB)) -
		float64(sizeC)*fastLog2(uint32(sizeC))
}

// compareAndPushToHeap evaluates the merge of clusters idx1 and idx2 and
// pushes the pair when either cluster is empty, when the heap is empty, or
// when the merge's cost difference is below max(0, cost difference of the
// heap's best pair).
func compareAndPushToHeap(pairs *pairHeap, out []histogram, bitCost []float64, clusterSize []int, idx1, idx2 int) {
	if idx1 == idx2 {
		return
	}
	if idx2 < idx1 {
		idx1, idx2 = idx2, idx1
	}
	p := histogramPair{idx1: idx1, idx2: idx2}
	p.costDiff = 0.5 * clusterCostDiff(clusterSize[idx1], clusterSize[idx2])
	p.costDiff -= bitCost[idx1]
	p.costDiff -= bitCost[idx2]

	switch {
	case out[idx1].total == 0:
		p.costCombo = bitCost[idx2]
	case out[idx2].total == 0:
		p.costCombo = bitCost[idx1]
	default:
		threshold := 1e99
		if len(*pairs) > 0 {
			threshold = maxFloat64(0, (*pairs)[0].costDiff)
		}
		combo := newHistogram(len(out[idx1].counts))
		combo.Merge(&out[idx1])
		combo.Merge(&out[idx2])
		costCombo := populationCost(&combo)
		if costCombo >= threshold-p.costDiff {
			return
		}
		p.costCombo = costCombo
	}
	p.costDiff += p.costCombo
	heap.Push(pairs, p)
}

// histogramCombine greedily merges similar histograms while the best merge
// reduces the cost; after that it keeps merging the cheapest pairs until at
// most maxClusters clusters remain. symbols maps each input histogram to its
// cluster index and is updated in place.
func histogramCombine(out []histogram, bitCost []float64, clusterSize []int, symbols []int, maxClusters int) {
	costDiffThreshold := 0.0
	minClusterSize := 1

	var clusters []int
	seen := make(map[int]bool)
	for _, sym := range symbols {
		if !seen[sym] {
			seen[sym] = true
			clusters = append(clusters, sym)
		}
	}

	pairs := &pairHeap{}
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			compareAndPushToHeap(pairs, out, bitCost, clusterSize, clusters[i], clusters[j])
		}
	}

	for len(clusters) > minClusterSize {
		if len(*pairs) == 0 {
			break
		}
		if (*pairs)[0].costDiff >= costDiffThreshold {
			costDiffThreshold = 1e99
			minClusterSize = maxClusters
			continue
		}
		best := heap.Pop(pairs).(histogramPair)
		idx1, idx2 := best.idx1, best.idx2

		out[idx1].Merge(&out[idx2])
		bitCost[idx1] = best.costCombo
		clusterSize[idx1] += clusterSize[idx2]
		for i := range symbols {
			if symbols[i] == idx2 {
				symbols[i] = idx1
			}
		}
		for i, c := range clusters {
			if c == idx2 {
				clusters = append(clusters[:i], clusters[i+1:]...)
				break
			}
		}

		// Invalidate pairs that touch the merged clusters and push the
		// new candidates formed with the combined cluster.
		filtered := (*pairs)[:0]
		for _, p := range *pairs {
			if p.idx1 != idx1 && p.idx2 != idx1 && p.idx1 != idx2 && p.idx2 != idx2 {
				filtered = append(filtered, p)
			}
		}
		*pairs = filtered
		heap.Init(pairs)
		for _, c := range clusters {
			compareAndPushToHeap(pairs, out, bitCost, clusterSize, idx1, c)
		}
	}
}

// histogramRemap reassigns each input histogram to the cluster whose centroid
// minimizes the incremental bit cost.
func histogramRemap(in []histogram, out []histogram, symbols []int) {
	// Collect the distinct clusters currently in use.
	var clusters []int
	seen := make(map[int]bool)
	for _, sym := range symbols {
		if !seen[sym] {
			seen[sym] = true
			clusters = append(clusters, sym)
		}
	}

	for i := range in {
		bestIdx, bestCost := symbols[i], 1e99
		for _, c := range clusters {
			combo := newHistogram(len(in[i].counts))
			combo.Merge(&out[c])
			combo.Merge(&in[i])
			cost := populationCost(&combo) - populationCost(&out[c])
			if cost < bestCost {
				bestCost, bestIdx = cost, c
			}
		}
		symbols[i] = bestIdx
	}

	// Recompute each cluster from its final membership.
	for _, c := range clusters {
		out[c].Clear()
	}
	for i := range in {
		out[symbols[i]].Merge(&in[i])
	}
}

// histogramReindex renumbers clusters in order of first use and returns the
// compacted histograms.
func histogramReindex(out []histogram, symbols []int) []histogram {
	next := 0
	remap := make(map[int]int)
	var compacted []histogram
	for i, sym := range symbols {
		if _, ok := remap[sym]; !ok {
			remap[sym] = next
			compacted = append(compacted, out[sym])
			next++
		}
		symbols[i] = remap[sym]
	}
	return compacted
}

// clusterHistograms clusters the input histograms into at most maxClusters
// groups. It returns the clustered histograms and a mapping from each input
// histogram to its cluster.
func clusterHistograms(in []histogram, maxClusters int) (out []histogram, symbols []int) {
	out = make([]histogram, len(in))
	bitCost := make([]float64, len(in))
	clusterSize := make([]int, len(in))
	symbols = make([]int, len(in))
	for i := range in {
		out[i] = newHistogram(len(in[i].counts))
		out[i].Merge(&in[i])
		bitCost[i] = populationCost(&in[i])
		clusterSize[i] = 1
		symbols[i] = i
	}

	histogramCombine(out, bitCost, clusterSize, symbols, maxClusters)
	histogramRemap(in, out, symbols)
	return histogramReindex(out, symbols), symbols
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
