// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

const (
	// RFC section 3.5.
	// This is the maximum bit-width of a prefix code.
	// Thus, it is okay to use uint16 to store codes.
	maxPrefixBits = 15

	// RFC section 3.3.
	// The size of the alphabet for various prefix codes.
	numLitSyms        = 256                  // Literal symbols
	maxNumDistSyms    = 16 + 120 + (48 << 3) // Distance symbols
	numInsSyms        = 704                  // Insert-and-copy length symbols
	numBlkCntSyms     = 26                   // Block count symbols
	maxNumBlkTypeSyms = 256 + 2              // Block type symbols
	maxNumCtxMapSyms  = 256 + 16             // Context map symbols

	// This should be the max of each of the constants above.
	maxNumAlphabetSyms = numInsSyms
)

var (
	// RFC section 3.4.
	// Prefix code lengths for simple codes.
	simpleLens1  = [1]uint{0}
	simpleLens2  = [2]uint{1, 1}
	simpleLens3  = [3]uint{1, 2, 2}
	simpleLens4a = [4]uint{2, 2, 2, 2}
	simpleLens4b = [4]uint{1, 2, 3, 3}

	// RFC section 3.5.
	// Prefix code lengths for complex codes as they appear in the stream.
	complexLens = [18]uint{
		1, 2, 3, 4, 0, 5, 17, 6, 16, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	}
)

type rangeCode struct {
	base uint32 // Starting base offset of the range
	bits uint8  // Bit-width of a subsequent integer to add to base offset
}
type rangeCodes []rangeCode

// Index returns the index of the range that contains the value v.
// The ranges must be contiguous and in ascending order.
func (rcs rangeCodes) Index(v uint32) uint {
	for i, rc := range rcs {
		if v < rc.base+1<<rc.bits || i == len(rcs)-1 {
			return uint(i)
		}
	}
	panic("unreachable")
}

var (
	// RFC section 5.
	// LUT to convert an insert symbol to an actual insert length.
	insLenRanges rangeCodes

	// RFC section 5.
	// LUT to convert an copy symbol to an actual copy length.
	cpyLenRanges rangeCodes

	// RFC section 6.
	// LUT to convert an block-type length symbol to an actual length.
	blkLenRanges rangeCodes

	// RFC section 7.3.
	// LUT to convert RLE symbol to an actual repeat length.
	maxRLERanges rangeCodes
)

type prefixCode struct {
	sym uint16 // The symbol being mapped
	val uint16 // Value of the prefix code (must be in [0..1<<len])
	len uint8  // Bit length of the prefix code
}
type prefixCodes []prefixCode

var (
	// RFC section 3.5.
	// Prefix codecs for code lengths in complex prefix definition.
	codeCLens prefixCodes
	decCLens  prefixDecoder
	encCLens  prefixEncoder

	// RFC section 7.3.
	// Prefix codecs for RLEMAX in context map definition.
	codeMaxRLE prefixCodes
	decMaxRLE  prefixDecoder
	encMaxRLE  prefixEncoder

	// RFC section 9.1.
	// Prefix codecs for WBITS in stream header definition.
	codeWinBits prefixCodes
	decWinBits  prefixDecoder
	encWinBits  prefixEncoder

	// RFC section 9.2.
	// Prefix codecs used for size fields in meta-block header definition.
	codeCounts prefixCodes
	decCounts  prefixDecoder
	encCounts  prefixEncoder
)

// RFC section 4.
// Each of the insert-and-copy symbols is composed of a cell selector in the
// top bits and 3-bit sub-codes for the insert and copy lengths. Cells 0 and 1
// imply the use of the last distance rather than an explicit distance symbol.
var iacCells = [11]struct{ ins, cpy uint8 }{
	{0, 0}, {0, 8}, // Implicit distance of zero
	{0, 0}, {0, 8}, {8, 0}, {8, 8}, {0, 16}, {16, 0}, {8, 16}, {16, 8}, {16, 16},
}

type iacInfo struct {
	insSym, cpySym uint8 // Sub-symbols for the insert and copy lengths
	distZero       bool  // Implicitly re-use the last distance
}

// LUT to split an insert-and-copy symbol into its components.
var iacLUT [numInsSyms]iacInfo

// RFC section 4.
// LUT to convert a distance short code (0..15) into a reference to one of the
// four most recently used distances with a small delta applied.
var distShortLUT [16]struct {
	index int // Index into the ring of last distances
	delta int // Offset to add to the referenced distance
}

func initPrefixLUTs() {
	// Sanity check some constants.
	for _, numMax := range []uint{
		numLitSyms, maxNumDistSyms, numInsSyms, numBlkCntSyms, maxNumBlkTypeSyms, maxNumCtxMapSyms,
	} {
		if numMax > maxNumAlphabetSyms {
			panic("maximum alphabet size is not updated")
		}
	}
	if maxNumAlphabetSyms >= 1<<prefixSymbolBits {
		panic("maximum alphabet size is too large to represent")
	}
	if maxPrefixBits >= 1<<prefixCountBits {
		panic("maximum prefix bit-length is too large to represent")
	}

	initPrefixRangeLUTs()
	initPrefixCodeLUTs()
	initCommandLUTs()
}

func initPrefixRangeLUTs() {
	var makeRanges = func(base uint, bits []uint) (rc []rangeCode) {
		for _, nb := range bits {
			rc = append(rc, rangeCode{base: uint32(base), bits: uint8(nb)})
			base += 1 << nb
		}
		return rc
	}

	insLenRanges = makeRanges(0, []uint{
		0, 0, 0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 7, 8, 9, 10, 12, 14, 24,
	}) // RFC section 5
	cpyLenRanges = makeRanges(2, []uint{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 7, 8, 9, 10, 24,
	}) // RFC section 5
	blkLenRanges = makeRanges(1, []uint{
		2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 6, 6, 7, 8, 9, 10, 11, 12, 13, 24,
	}) // RFC section 6
	maxRLERanges = makeRanges(2, []uint{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
	}) // RFC section 7.3
}

func initPrefixCodeLUTs() {
	// Prefix code for reading code lengths in RFC section 3.5.
	codeCLens = nil
	for sym, clen := range []uint{2, 4, 3, 2, 2, 4} {
		var code = prefixCode{sym: uint16(sym), len: uint8(clen)}
		codeCLens = append(codeCLens, code)
	}
	decCLens.Init(codeCLens, true)
	encCLens.Init(codeCLens, true)

	// Prefix code for reading RLEMAX in RFC section 7.3.
	codeMaxRLE = []prefixCode{{sym: 0, val: 0, len: 1}}
	for i := uint16(0); i < 16; i++ {
		var code = prefixCode{sym: i + 1, val: i<<1 | 1, len: 5}
		codeMaxRLE = append(codeMaxRLE, code)
	}
	decMaxRLE.Init(codeMaxRLE, false)
	encMaxRLE.Init(codeMaxRLE, false)

	// Prefix code for reading WBITS in RFC section 9.1.
	codeWinBits = nil
	for i := uint16(9); i <= 24; i++ {
		var code prefixCode
		switch {
		case i == 16:
			code = prefixCode{sym: i, val: (i-16)<<0 | 0, len: 1} // Symbols: 16
		case i > 17:
			code = prefixCode{sym: i, val: (i-17)<<1 | 1, len: 4} // Symbols: 18..24
		case i < 17:
			code = prefixCode{sym: i, val: (i-8)<<4 | 1, len: 7} // Symbols: 9..15
		default:
			code = prefixCode{sym: i, val: (i-17)<<4 | 1, len: 7} // Symbols: 17
		}
		codeWinBits = append(codeWinBits, code)
	}
	codeWinBits[0].sym = 0 // Invalid code "1000100" to use symbol zero
	decWinBits.Init(codeWinBits, false)
	encWinBits.Init(codeWinBits, false)

	// Prefix code for reading counts in RFC section 9.2.
	// This is used for: NBLTYPESL, NBLTYPESI, NBLTYPESD, NTREESL, and NTREESD.
	codeCounts = []prefixCode{{sym: 1, val: 0, len: 1}}
	var code = codeCounts[len(codeCounts)-1]
	for i := uint16(0); i < 8; i++ {
		for j := uint16(0); j < 1<<i; j++ {
			code.sym = code.sym + 1
			code.val = j<<4 | i<<1 | 1
			code.len = uint8(i + 4)
			codeCounts = append(codeCounts, code)
		}
	}
	decCounts.Init(codeCounts, false)
	encCounts.Init(codeCounts, false)
}

func initCommandLUTs() {
	for sym := range iacLUT {
		cell := iacCells[sym>>6]
		iacLUT[sym] = iacInfo{
			insSym:   cell.ins + uint8((sym>>3)&7),
			cpySym:   cell.cpy + uint8(sym&7),
			distZero: sym < 128,
		}
	}

	// RFC section 4.
	for i, ref := range [16]struct{ index, delta int }{
		{0, 0}, {1, 0}, {2, 0}, {3, 0},
		{0, -1}, {0, +1}, {0, -2}, {0, +2}, {0, -3}, {0, +3},
		{1, -1}, {1, +1}, {1, -2}, {1, +2}, {1, -3}, {1, +3},
	} {
		distShortLUT[i] = ref
	}
}

// combineLengthCodes joins the insert and copy length sub-symbols into a
// combined insert-and-copy symbol. If useLastDist is set, then the symbol
// implies the re-use of the last distance; this is only representable when
// insCode < 8 and cpyCode < 16.
func combineLengthCodes(insCode, cpyCode uint, useLastDist bool) uint16 {
	bits64 := uint16(cpyCode&0x7 | (insCode&0x7)<<3)
	if useLastDist && insCode < 8 && cpyCode < 16 {
		if cpyCode < 8 {
			return bits64
		}
		return bits64 | 64
	}
	offset := 2 * ((cpyCode >> 3) + 3*(insCode>>3))
	offset = (offset << 5) + 0x40 + ((0x520d40 >> offset) & 0xc0)
	return uint16(offset) | bits64
}

// prefixEncodeDistance encodes a distance code (a short code in 0..15, or
// distance+15 otherwise) as a distance prefix symbol and extra bits given the
// distance parameters. numDirect must be a multiple of 1<<postfix.
func prefixEncodeDistance(distCode uint32, numDirect uint32, postfix uint32) (sym uint16, extraBits uint32, extra uint32) {
	if distCode < 16+numDirect {
		return uint16(distCode), 0, 0
	}
	dist := (distCode - 15 - numDirect) + (1 << (postfix + 2)) - 1
	bucket := uint32(log2Floor(dist)) - 1
	postfixMask := uint32(1)<<postfix - 1
	pf := dist & postfixMask
	prefix := (dist >> bucket) & 1
	offset := (2 + prefix) << bucket
	nbits := bucket - postfix
	sym = uint16(16 + numDirect + ((2*(nbits-1) + prefix) << postfix) + pf)
	return sym, nbits, (dist - offset) >> postfix
}

// log2Floor returns the position of the highest set bit of v.
func log2Floor(v uint32) uint {
	var n uint
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}
