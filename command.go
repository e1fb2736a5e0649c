// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// A command is an atomic step of the compressed stream: insertLen literals
// followed by a copy of cpyLen bytes. If cpyLen is zero the command is an
// insert-only tail, otherwise a valid distance code must exist.
type command struct {
	insertLen  int
	cpyLen     int
	cpyLenCode int // Differs from cpyLen only for dictionary references

	cmdPrefix  uint16 // Combined insert-and-copy prefix symbol
	distPrefix uint16 // Distance prefix symbol
	distExtra  uint32 // Extra bits value for the distance
	distBits   uint8  // Number of extra bits for the distance
}

// The distance code convention follows the decoder's ring semantics:
// codes 0..15 select from the ring of recent distances, and larger codes
// carry the distance itself biased by 15 (when no direct codes are in use).
const numDistShortCodes = 16

// makeCommand creates a command with the given distance code.
func makeCommand(insertLen, cpyLen, cpyLenCode, distCode int) command {
	cmd := command{
		insertLen:  insertLen,
		cpyLen:     cpyLen,
		cpyLenCode: cpyLenCode,
	}
	insSym := insLenRanges.Index(uint32(insertLen))
	cpySym := cpyLenRanges.Index(uint32(cpyLenCode))
	cmd.cmdPrefix = combineLengthCodes(insSym, cpySym, distCode == 0)
	if cmd.cmdPrefix >= 128 {
		sym, nbits, extra := prefixEncodeDistance(uint32(distCode), 0, 0)
		cmd.distPrefix = sym
		cmd.distBits = uint8(nbits)
		cmd.distExtra = extra
	}
	return cmd
}

// makeInsertCommand creates an insert-only tail command.
func makeInsertCommand(insertLen int) command {
	return command{
		insertLen:  insertLen,
		cpyLen:     0,
		cpyLenCode: 4, // An arbitrary in-range length; the decoder ignores it
		cmdPrefix:  combineLengthCodes(insLenRanges.Index(uint32(insertLen)), cpyLenRanges.Index(4), false),
	}
}

// copyLen reports the number of output bytes the copy part produces.
func (cmd *command) copyLen() int { return cmd.cpyLen }

// writesDistance reports whether an explicit distance symbol is emitted.
func (cmd *command) writesDistance() bool {
	return cmd.cpyLen > 0 && cmd.cmdPrefix >= 128
}

// computeDistanceCode converts a distance into a distance code, preferring
// the ring of the four most recent distances with small deltas applied.
// The ring is ordered most recent first.
func computeDistanceCode(dist int, maxDist int, ring *[4]int) int {
	if dist <= maxDist {
		switch dist {
		case ring[0]:
			return 0
		case ring[1]:
			return 1
		case ring[2]:
			return 2
		case ring[3]:
			return 3
		}
		if d := dist - ring[0]; d >= -3 && d <= 3 && d != 0 {
			// Codes 4..9 encode ring[0] -1, +1, -2, +2, -3, +3.
			if d < 0 {
				return 4 + (-d-1)*2
			}
			return 5 + (d-1)*2
		}
		if d := dist - ring[1]; d >= -3 && d <= 3 && d != 0 {
			if d < 0 {
				return 10 + (-d-1)*2
			}
			return 11 + (d-1)*2
		}
	}
	return dist + numDistShortCodes - 1
}

// pushDistanceRing records a used distance; codes 0 (and dictionary
// references) do not update the ring, matching the decoder.
func pushDistanceRing(ring *[4]int, dist int) {
	ring[0], ring[1], ring[2], ring[3] = dist, ring[0], ring[1], ring[2]
}

// commandDistance recovers the distance from a command's distance code,
// given the ring at the time the command is emitted.
func commandDistance(distCode int, ring *[4]int) int {
	if distCode >= numDistShortCodes {
		return distCode - numDistShortCodes + 1
	}
	ref := distShortLUT[distCode]
	return ring[ref.index] + ref.delta
}
