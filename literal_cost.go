// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// estimateBitCostsForLiterals computes, for every input position, an estimate
// of the bit cost of coding the byte as a literal: the log of the window size
// over the byte's local frequency within a symmetric window, with a floor
// that maps near-zero costs to at least half a bit. The costs modulate match
// scoring so that matches covering rare bytes are preferred.
func estimateBitCostsForLiterals(data []byte, mask int, pos int64, length int, cost []float32) {
	const windowHalf = 2000

	var histogram [256]int
	inWindow := length
	if inWindow > windowHalf {
		inWindow = windowHalf
	}
	for i := 0; i < inWindow; i++ {
		histogram[data[(int(pos)+i)&mask]]++
	}

	for i := 0; i < length; i++ {
		if i >= windowHalf {
			// Remove a byte in the past.
			histogram[data[(int(pos)+i-windowHalf)&mask]]--
			inWindow--
		}
		if i+windowHalf < length {
			// Add a byte in the future.
			histogram[data[(int(pos)+i+windowHalf)&mask]]++
			inWindow++
		}
		histo := histogram[data[(int(pos)+i)&mask]]
		if histo == 0 {
			histo = 1
		}
		c := fastLog2(uint32(inWindow)) - fastLog2(uint32(histo)) + 0.029
		if c < 1.0 {
			c = c*0.5 + 0.5
		}
		cost[i] = float32(c)
	}
}
