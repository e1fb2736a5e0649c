// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import "math"

// fastLog2 is a plain log2 on positive integers; zero maps to zero.
func fastLog2(v uint32) float64 {
	if v == 0 {
		return 0
	}
	return math.Log2(float64(v))
}

// bitsEntropy computes the Shannon entropy of the histogram counts in bits,
// floored at one bit per symbol occurrence.
func bitsEntropy(counts []uint32) float64 {
	var sum uint32
	var retval float64
	for _, p := range counts {
		sum += p
		retval -= float64(p) * fastLog2(p)
	}
	if sum > 0 {
		retval += float64(sum) * fastLog2(sum)
	}
	if retval < float64(sum) {
		// At least one bit per literal is needed.
		retval = float64(sum)
	}
	return retval
}

// Closed-form transmission costs for histograms with very few symbols.
const (
	oneSymbolHistogramCost   = 12
	twoSymbolHistogramCost   = 20
	threeSymbolHistogramCost = 28
	fourSymbolHistogramCost  = 37
)

// populationCost estimates the number of bits needed to encode the histogram
// under an optimal length-limited prefix code, including the cost of
// transmitting the code itself.
func populationCost(h *histogram) float64 {
	var count int
	var s [5]int
	for i, c := range h.counts {
		if c > 0 {
			if count < len(s) {
				s[count] = i
			}
			count++
		}
	}

	switch count {
	case 0:
		return oneSymbolHistogramCost
	case 1:
		return oneSymbolHistogramCost
	case 2:
		return twoSymbolHistogramCost + float64(h.total)
	case 3:
		c0, c1, c2 := h.counts[s[0]], h.counts[s[1]], h.counts[s[2]]
		max := c0
		if c1 > max {
			max = c1
		}
		if c2 > max {
			max = c2
		}
		return threeSymbolHistogramCost + 2*float64(h.total) - float64(max)
	case 4:
		var cs [4]uint32
		for i := 0; i < 4; i++ {
			cs[i] = h.counts[s[i]]
		}
		// Sort the two largest counts to the front.
		for i := 0; i < 4; i++ {
			for j := i + 1; j < 4; j++ {
				if cs[j] > cs[i] {
					cs[i], cs[j] = cs[j], cs[i]
				}
			}
		}
		return fourSymbolHistogramCost + 3*float64(h.total) - 2*float64(cs[0]) - float64(cs[1])
	}

	// General case: entropy of the data plus an estimate of the cost of
	// storing the code lengths themselves with the run-length form.
	bits := bitsEntropy(h.counts)
	var inRun bool
	for _, c := range h.counts {
		if c > 0 {
			bits += 3.5 // Approximate cost of one code length
			inRun = false
		} else if !inRun {
			bits += 6.5 // Approximate cost of starting a zero run
			inRun = true
		}
	}
	return bits
}
