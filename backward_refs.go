// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import "math"

// createBackwardReferences runs the hasher over data[pos:pos+length] and
// produces the command sequence for one meta-block. The selector is lazy:
// after finding a match it probes the next few positions for a better one,
// deferring the current match at the cost of an extra literal when the
// improvement outweighs a bias that grows with consecutive deferrals.
func createBackwardReferences(data []byte, mask int, pos, length int, h hasher,
	ring *[4]int, litCost []float32, avgCost float64, maxBackwardLimit int) (cmds []command, numLiterals int) {

	insertLen := 0
	i := pos
	end := pos + length

	emit := func(m match, maxBackward int) {
		distCode := computeDistanceCode(m.dist, maxBackward, ring)
		cmds = append(cmds, makeCommand(insertLen, m.length, m.lenCode, distCode))
		numLiterals += insertLen
		insertLen = 0
		if distCode > 0 && m.dist <= maxBackward {
			pushDistanceRing(ring, m.dist)
		}
	}

	for i+2 < end {
		maxBackward := minInt(i, maxBackwardLimit)
		m, ok := h.FindLongestMatch(data, mask, i, end-i, maxBackward, ring, litCost, pos, avgCost, insertLen)
		if !ok {
			insertLen++
			h.Store(data, mask, i)
			i++
			continue
		}

		// Found a match; look for something even better ahead.
		for delayed := 0; i+4 < end && delayed < 4; delayed++ {
			h.Store(data, mask, i)
			m2, ok2 := h.FindLongestMatch(data, mask, i+1, end-i-1, minInt(i+1, maxBackwardLimit), ring, litCost, pos, avgCost, insertLen)
			if !ok2 {
				break
			}
			costDiff := 2.0 + float64(delayed)*0.2
			if litCost != nil {
				costDiff += 0.04 * float64(litCost[i-pos])
			}
			if insertLen < 1 {
				// If we are not inserting any symbols, inserting one is
				// more expensive than if we were inserting anyways.
				costDiff += 1.0
			}
			if m2.score < m.score+costDiff {
				break
			}
			// Defer the current match: emit one literal and restart the
			// match from the next byte.
			insertLen++
			i++
			m = m2
		}

		maxBackward = minInt(i, maxBackwardLimit)
		emit(m, maxBackward)

		// Store hashes for the positions inside the copy.
		h.Store(data, mask, i)
		i++
		for j := 1; j < m.length; j++ {
			if i+2 < end {
				h.Store(data, mask, i)
			}
			i++
		}
	}
	insertLen += end - i

	if insertLen > 0 {
		cmds = append(cmds, makeInsertCommand(insertLen))
		numLiterals += insertLen
	}
	return cmds, numLiterals
}

// cmdBitCost is a crude estimate of the cost of emitting one command with
// the given copy length and distance, used by the shortest-path search.
func cmdBitCost(length, dist int) float64 {
	cpySym := cpyLenRanges.Index(uint32(length))
	cost := 10.0 + float64(cpyLenRanges[cpySym].bits)
	if dist > 0 {
		distCode := dist + numDistShortCodes - 1
		_, nbits, _ := prefixEncodeDistance(uint32(distCode), 0, 0)
		cost += 4 + float64(nbits) + 1.05*fastLog2(uint32(dist))
	}
	return cost
}

// createZopfliBackwardReferences finds a shortest-cost path through the
// graph of candidate copies at every position. Candidate arcs are the best
// match at each position taken at every copy-length bucket boundary, so the
// path search can trade match length against the literals it displaces.
func createZopfliBackwardReferences(data []byte, mask int, pos, length int, h *hashChain,
	ring *[4]int, litCost []float32, avgCost float64, maxBackwardLimit int) (cmds []command, numLiterals int) {

	n := length
	cost := make([]float64, n+1)
	type arc struct{ length, dist int }
	from := make([]arc, n+1)
	for i := 1; i <= n; i++ {
		cost[i] = math.Inf(1)
	}

	ringCopy := *ring // The search must not disturb the real ring
	for r := 0; r < n; r++ {
		i := pos + r

		// Literal arc.
		lc := avgCost
		if litCost != nil {
			lc = float64(litCost[r])
		}
		if c := cost[r] + lc; c < cost[r+1] {
			cost[r+1] = c
			from[r+1] = arc{}
		}

		maxBackward := minInt(i, maxBackwardLimit)
		m, ok := h.FindLongestMatch(data, mask, i, n-r, maxBackward, &ringCopy, litCost, pos, avgCost, 0)
		h.Store(data, mask, i)
		if !ok {
			continue
		}
		arcCost := cmdBitCost(m.length, m.dist)
		if c := cost[r] + arcCost; m.length == m.lenCode && c < cost[r+m.length] {
			cost[r+m.length] = c
			from[r+m.length] = arc{length: m.length, dist: m.dist}
		}
		if m.dist <= maxBackward && m.length == m.lenCode {
			// Also consider shorter prefixes of the same copy.
			for _, rc := range cpyLenRanges {
				l := int(rc.base)
				if l < 4 {
					continue
				}
				if l >= m.length {
					break
				}
				if c := cost[r] + cmdBitCost(l, m.dist); c < cost[r+l] {
					cost[r+l] = c
					from[r+l] = arc{length: l, dist: m.dist}
				}
			}
		}
	}

	// Trace the shortest path backwards.
	var arcs []arc
	for r := n; r > 0; {
		a := from[r]
		arcs = append(arcs, a)
		if a.length > 0 {
			r -= a.length
		} else {
			r--
		}
	}

	// Replay the path forwards, building commands.
	insertLen := 0
	posCur := pos
	for i := len(arcs) - 1; i >= 0; i-- {
		a := arcs[i]
		if a.length == 0 {
			insertLen++
			posCur++
			continue
		}
		maxBackward := minInt(posCur, maxBackwardLimit)
		distCode := computeDistanceCode(a.dist, maxBackward, ring)
		cmds = append(cmds, makeCommand(insertLen, a.length, a.length, distCode))
		numLiterals += insertLen
		insertLen = 0
		if distCode > 0 && a.dist <= maxBackward {
			pushDistanceRing(ring, a.dist)
		}
		posCur += a.length
	}
	if insertLen > 0 {
		cmds = append(cmds, makeInsertCommand(insertLen))
		numLiterals += insertLen
	}
	return cmds, numLiterals
}
