// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"math"

	"github.com/dsnet/brotli/internal/errors"
	"github.com/dsnet/golib/errs"
)

// A BackwardRef is the decoder-visible form of a command with a non-zero
// copy length: the absolute output position where the copy begins, its
// length, and the distance it reaches back. Distance > MaxDistance signals a
// static dictionary reference.
type BackwardRef struct {
	Position    int // Absolute offset in the uncompressed output
	CopyLen     int // Number of output bytes the copy produced
	CopyLenCode int // Length used for prefix coding; differs for transformed dictionary words
	Distance    int
	MaxDistance int // min(Position, window size) at decode time
}

// A PosSplit is the position form of a block split: contiguous typed ranges
// of output positions. Invariants: Begin[i] < End[i], End[i-1] == Begin[i],
// and adjacent Types differ.
type PosSplit struct {
	NumTypes int
	Types    []int
	Begin    []int
	End      []int
}

// A Recovery holds everything the instrumented decoder learned about a
// stream: the decoded bytes, the recovered backward references, and the
// literal and insert-and-copy block splits in position form. A Recovery can
// be rewritten with RemoveRange and then cheaply recompressed with
// CompressRecovery.
type Recovery struct {
	WinBits uint
	Output  []byte
	Refs    []BackwardRef

	LitSplits PosSplit
	CmdSplits PosSplit

	// Working state used while the decoder populates the Recovery.
	litBase, cmdBase int64
	litOpen, cmdOpen int
	litOff, cmdOff   int
}

// Thresholds for keeping rewritten references. These are tuning parameters
// validated by round-trip tests, not format constants.
const (
	minKeepCopyLen = 3 // Minimum length of a truncated reference
	minTailAnchor  = 6 // Source bytes needed past the cut to re-anchor
)

func (rc *Recovery) addRef(br *Reader, copyLen, maxDist int) {
	rc.Refs = append(rc.Refs, BackwardRef{
		Position:    int(br.pos),
		CopyLen:     copyLen,
		CopyLenCode: br.cpyLen,
		Distance:    br.dist,
		MaxDistance: maxDist,
	})
}

func (rc *Recovery) openBlocks(br *Reader) {
	rc.litBase, rc.cmdBase = br.pos, br.pos
	rc.litOpen = rc.litOff + br.litBlk.curType
	rc.cmdOpen = rc.cmdOff + br.iacBlk.curType
}

func (rc *Recovery) switchLitBlock(br *Reader) {
	rc.LitSplits.push(int(rc.litBase), int(br.pos), rc.litOpen)
	rc.litBase = br.pos
	rc.litOpen = rc.litOff + br.litBlk.curType
}

func (rc *Recovery) switchCmdBlock(br *Reader) {
	rc.CmdSplits.push(int(rc.cmdBase), int(br.pos), rc.cmdOpen)
	rc.cmdBase = br.pos
	rc.cmdOpen = rc.cmdOff + br.iacBlk.curType
}

func (rc *Recovery) closeBlocks(br *Reader) {
	rc.LitSplits.push(int(rc.litBase), int(br.pos), rc.litOpen)
	rc.CmdSplits.push(int(rc.cmdBase), int(br.pos), rc.cmdOpen)
	rc.litOff += br.litBlk.numTypes
	rc.cmdOff += br.iacBlk.numTypes
}

func (ps *PosSplit) push(begin, end, typ int) {
	if begin >= end {
		return
	}
	ps.Types = append(ps.Types, typ)
	ps.Begin = append(ps.Begin, begin)
	ps.End = append(ps.End, end)
	if typ+1 > ps.NumTypes {
		ps.NumTypes = typ + 1
	}
}

// RemoveRange rewrites the recovery for the source obtained by deleting the
// byte range [start, end) from the output. References and block splits are
// shifted, truncated, or dropped around the removed region.
func (rc *Recovery) RemoveRange(start, end int) error {
	if start < 0 || start >= end || end > len(rc.Output) {
		return errorf(errors.Invalid, "invalid removal range [%d, %d)", start, end)
	}
	cut := end - start
	rc.Output = append(rc.Output[:start], rc.Output[end:]...)

	refs := rc.Refs[:0]
	for _, ref := range rc.Refs {
		// The operative limit is the max distance the decoder saw; the
		// window-derived limit of the original source is subsumed by it.
		maxDist := ref.MaxDistance

		if ref.Distance > maxDist {
			// Static dictionary reference.
			switch {
			case ref.Position < start:
				refs = append(refs, ref)
			case ref.Position >= end:
				nr := ref
				nr.Position -= cut
				nr.MaxDistance = minInt(nr.Position, ref.MaxDistance)
				nr.Distance = ref.Distance - ref.MaxDistance + nr.MaxDistance
				refs = append(refs, nr)
			}
			continue
		}

		switch {
		case ref.Position < start:
			if ref.Position+ref.CopyLen < start {
				refs = append(refs, ref)
			} else if start-ref.Position >= minKeepCopyLen {
				// Cut the copy where the removed region begins.
				nr := ref
				nr.CopyLen = start - ref.Position
				nr.CopyLenCode = nr.CopyLen
				refs = append(refs, nr)
			}

		case ref.Position >= end:
			src := ref.Position - ref.Distance
			switch {
			case src >= start && src < end:
				// The source starts inside the removed region; keep the
				// tail of the copy whose source survives past the cut.
				if src+ref.CopyLen-1 >= end+minTailAnchor-1 {
					nr := ref
					nr.Position = end + ref.Distance - cut
					nr.CopyLen = ref.CopyLen - (end - src)
					nr.CopyLenCode = nr.CopyLen
					nr.MaxDistance = minInt(ref.MaxDistance, nr.Position)
					refs = append(refs, nr)
				}
			case src < start:
				if src+ref.CopyLen-1 < start {
					// Source is entirely before the removed region;
					// both ends shift down together.
					nr := ref
					nr.Position -= cut
					nr.Distance -= cut
					nr.MaxDistance = minInt(ref.MaxDistance, nr.Position)
					refs = append(refs, nr)
				} else {
					// The source tail reached into the removed region;
					// truncate the copy to the surviving head.
					nr := ref
					nr.Position -= cut
					nr.Distance -= cut
					nr.CopyLen = start - src
					nr.CopyLenCode = nr.CopyLen
					nr.MaxDistance = minInt(ref.MaxDistance, nr.Position)
					if nr.CopyLen >= minKeepCopyLen {
						refs = append(refs, nr)
					}
				}
			default:
				// Source and destination both follow the removed region;
				// the distance between them is unchanged.
				nr := ref
				nr.Position -= cut
				nr.MaxDistance = minInt(ref.MaxDistance, nr.Position)
				refs = append(refs, nr)
			}
		}
		// References that begin inside [start, end) are dropped.
	}
	rc.Refs = refs

	rc.LitSplits = removeSplitRange(rc.LitSplits, start, end)
	rc.CmdSplits = removeSplitRange(rc.CmdSplits, start, end)
	return nil
}

// removeSplitRange rewrites a position-form block split around a deleted
// byte range. Blocks straddling the boundaries are truncated or fused, and
// type ids are compacted to a dense range in order of first occurrence.
// Writes of three or fewer positions do not start a new block.
func removeSplitRange(s PosSplit, start, end int) PosSplit {
	cut := end - start
	mapping := make([]int, s.NumTypes)
	for i := range mapping {
		mapping[i] = -1
	}

	var out PosSplit
	save := func(begin, endPos, oldType int) {
		if mapping[oldType] == -1 {
			mapping[oldType] = out.NumTypes
		}
		t := mapping[oldType]
		n := len(out.Types)
		if n == 0 || (out.Types[n-1] != t && endPos-begin > 3) {
			out.push(begin, endPos, t)
		} else {
			out.End[n-1] = endPos
		}
	}

	for i := range s.Types {
		b, e, t := s.Begin[i], s.End[i], s.Types[i]
		switch {
		case b < start && e <= start:
			save(b, e, t)
		case b < start && e <= end:
			save(b, start, t)
		case b < start:
			save(b, e-cut, t)
		case b < end && e > end:
			save(start, start+(e-end), t)
		case b >= end:
			save(b-cut, e-cut, t)
		}
	}
	return out
}

var errInvalidRecovery = errorf(errors.Invalid, "inconsistent recovery state")

// validate checks the interface invariants: reference source substrings
// must equal their destinations, positions must be strictly increasing, and
// the block splits must cover the output exactly.
func (rc *Recovery) validate() (err error) {
	defer errs.Recover(&err)

	prevPos := -1
	for _, ref := range rc.Refs {
		errs.Assert(ref.Position > prevPos, errInvalidRecovery)
		errs.Assert(ref.CopyLen > 0, errInvalidRecovery)
		prevPos = ref.Position
		if ref.Distance > ref.MaxDistance {
			continue // Dictionary references are checked at conversion
		}
		errs.Assert(ref.Distance > 0, errInvalidRecovery)
		src := ref.Position - ref.Distance
		errs.Assert(src >= 0, errInvalidRecovery)
		errs.Assert(ref.Position+ref.CopyLen <= len(rc.Output), errInvalidRecovery)
		for k := 0; k < ref.CopyLen; k++ {
			errs.Assert(rc.Output[src+k] == rc.Output[ref.Position+k], errInvalidRecovery)
		}
	}

	for _, ps := range []*PosSplit{&rc.LitSplits, &rc.CmdSplits} {
		if len(ps.Types) == 0 {
			continue
		}
		errs.Assert(ps.Begin[0] == 0, errInvalidRecovery)
		for i := range ps.Types {
			errs.Assert(ps.Begin[i] < ps.End[i], errInvalidRecovery)
			if i > 0 {
				errs.Assert(ps.Begin[i] == ps.End[i-1], errInvalidRecovery)
			}
		}
		errs.Assert(ps.End[len(ps.End)-1] == len(rc.Output), errInvalidRecovery)
	}
	return nil
}

// blockOf returns the type of the block containing position p, advancing
// the monotone cursor idx.
func (ps *PosSplit) blockOf(p int, idx *int) int {
	for *idx+1 < len(ps.Types) && p >= ps.End[*idx] {
		*idx++
	}
	if len(ps.Types) == 0 {
		return 0
	}
	return ps.Types[*idx]
}

// commandsFromRefs converts the references within [lo, hi) into a command
// sequence: gaps between references become literal inserts, and distance
// codes are recomputed against the simulated distance ring.
func commandsFromRefs(rc *Recovery, lo, hi int, winSize int, ring *[4]int) []command {
	var cmds []command
	cur := lo
	for _, ref := range rc.Refs {
		if ref.Position < lo || ref.Position >= hi {
			continue
		}
		if ref.Position+ref.CopyLen > hi {
			break // Spills into the next meta-block; covered by literals
		}
		insertLen := ref.Position - cur
		curMaxDist := minInt(ref.Position, winSize)

		if ref.Distance > ref.MaxDistance {
			// Re-anchor the dictionary word against the current window.
			wordVal := ref.Distance - ref.MaxDistance - 1
			if ref.CopyLen != ref.CopyLenCode ||
				ref.CopyLenCode < minDictLen || ref.CopyLenCode > maxDictLen ||
				wordVal>>dictBitSizes[ref.CopyLenCode] != 0 ||
				!dictWordEquals(ref.CopyLenCode, wordVal, rc.Output[ref.Position:ref.Position+ref.CopyLen]) {
				continue // Transformed or stale word; emit as literals
			}
			dist := curMaxDist + 1 + wordVal
			cmds = append(cmds, makeCommand(insertLen, ref.CopyLen, ref.CopyLenCode, dist+numDistShortCodes-1))
		} else {
			if ref.Distance > curMaxDist {
				continue // Unreachable in the new window; emit as literals
			}
			distCode := computeDistanceCode(ref.Distance, curMaxDist, ring)
			cmds = append(cmds, makeCommand(insertLen, ref.CopyLen, ref.CopyLen, distCode))
			if distCode > 0 {
				pushDistanceRing(ring, ref.Distance)
			}
		}
		cur = ref.Position + ref.CopyLen
	}
	if cur < hi {
		cmds = append(cmds, makeInsertCommand(hi-cur))
	}
	return cmds
}

func dictWordEquals(length, idx int, want []byte) bool {
	word := dictWord(length, idx)
	if len(word) != len(want) {
		return false
	}
	for i := range word {
		if word[i] != want[i] {
			return false
		}
	}
	return true
}

// splitFromStoredCmds maps the stored command split onto the command stream:
// each command belongs to the stored block containing its start position.
func splitFromStoredCmds(cmds []command, stored *PosSplit, lo int) blockSplit {
	if len(stored.Types) == 0 {
		return blockSplit{numTypes: 1, types: []uint8{0}, lengths: []uint32{uint32(len(cmds))}}
	}
	mapping := make(map[int]int)
	var split blockSplit
	idx, pos := 0, lo
	for _, cmd := range cmds {
		t := stored.blockOf(pos, &idx)
		mt, ok := mapping[t]
		if !ok {
			mt = split.numTypes
			mapping[t] = mt
			split.numTypes++
		}
		n := len(split.types)
		if n > 0 && split.types[n-1] == uint8(mt) {
			split.lengths[n-1]++
		} else {
			split.types = append(split.types, uint8(mt))
			split.lengths = append(split.lengths, 1)
		}
		pos += cmd.insertLen + cmd.cpyLen
	}
	compactSplitTypes(&split)
	return split
}

// splitFromStoredLits maps the stored literal split onto the literal stream.
func splitFromStoredLits(cmds []command, stored *PosSplit, lo int) blockSplit {
	var numLits int
	for i := range cmds {
		numLits += cmds[i].insertLen
	}
	if len(stored.Types) == 0 {
		return blockSplit{numTypes: 1, types: []uint8{0}, lengths: []uint32{uint32(numLits)}}
	}
	mapping := make(map[int]int)
	var split blockSplit
	idx, pos := 0, lo
	for _, cmd := range cmds {
		for j := 0; j < cmd.insertLen; j++ {
			t := stored.blockOf(pos+j, &idx)
			mt, ok := mapping[t]
			if !ok {
				mt = split.numTypes
				mapping[t] = mt
				split.numTypes++
			}
			n := len(split.types)
			if n > 0 && split.types[n-1] == uint8(mt) {
				split.lengths[n-1]++
			} else {
				split.types = append(split.types, uint8(mt))
				split.lengths = append(split.lengths, 1)
			}
		}
		pos += cmd.insertLen + cmd.cpyLen
	}
	if len(split.types) == 0 {
		split = blockSplit{numTypes: 1, types: []uint8{0}, lengths: []uint32{0}}
	}
	compactSplitTypes(&split)
	return split
}

// compactSplitTypes renumbers types to a dense 0..numTypes-1 range in order
// of first use, which the merging above may have left sparse.
func compactSplitTypes(split *blockSplit) {
	mapping := make(map[uint8]uint8)
	var next uint8
	for i, t := range split.types {
		mt, ok := mapping[t]
		if !ok {
			mt = next
			mapping[t] = mt
			next++
		}
		split.types[i] = mt
	}
	if int(next) > 0 {
		split.numTypes = int(next)
	}
}

// CompressRecovery compresses the recovery's output, consuming the supplied
// references and block splits directly instead of running the reference
// generator and block splitter.
func CompressRecovery(rc *Recovery, conf *WriterConfig) ([]byte, error) {
	if err := rc.validate(); err != nil {
		return nil, err
	}
	if len(rc.Output) == 0 {
		return []byte{0x06}, nil
	}

	params := makeEncoderParams(conf)
	wbits := minWindowLargerThanData(len(rc.Output), int(params.wbits))
	winSize := 1<<wbits - 16

	var bw bitWriter
	bw.Reset()
	bw.WriteSymbol(uint(wbits), &encWinBits)

	ring := [4]int{4, 11, 15, 16}
	const mask = math.MaxInt
	for lo := 0; lo < len(rc.Output); lo += maxMetaBlockLength {
		hi := minInt(lo+maxMetaBlockLength, len(rc.Output))
		isLast := hi == len(rc.Output)

		cmds := commandsFromRefs(rc, lo, hi, winSize, &ring)
		mb := &metaBlock{
			litSplit:   splitFromStoredLits(cmds, &rc.LitSplits, lo),
			cmdSplit:   splitFromStoredCmds(cmds, &rc.CmdSplits, lo),
			distSplit:  blockSplit{numTypes: 1},
			litCtxMode: contextLSB6,
		}
		mb.litCtxMap = make([]uint8, mb.litSplit.numTypes*numLitContexts)
		for t := 0; t < mb.litSplit.numTypes; t++ {
			for c := 0; c < numLitContexts; c++ {
				mb.litCtxMap[t*numLitContexts+c] = uint8(t)
			}
		}
		mb.distCtxMap = make([]uint8, numDistContexts)
		mb.litHistograms = makeHistograms(mb.litSplit.numTypes, numLitSyms)
		mb.cmdHistograms = makeHistograms(mb.cmdSplit.numTypes, numInsSyms)
		mb.distHistograms = makeHistograms(1, maxNumDistSyms)
		fillHistograms(mb, cmds, rc.Output, int64(lo), mask)

		storeMetaBlock(&bw, rc.Output, int64(lo), mask, hi-lo, isLast, mb, cmds)
	}
	bw.WritePads()
	return append([]byte(nil), bw.Bytes()...), nil
}

// minWindowLargerThanData picks the smallest window that covers the whole
// input, capped at the given maximum.
func minWindowLargerThanData(size, max int) uint {
	window := minWinBits
	for 1<<window-16 < size && window < max {
		window++
	}
	return uint(window)
}
