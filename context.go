// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// These constants are defined in RFC section 7.1.
const (
	contextLSB6 = iota
	contextMSB6
	contextUTF8
	contextSigned

	numContextModes = 4
	numLitContexts  = 64 // Literal context IDs per block type
	numDistContexts = 4  // Distance context IDs per block type
)

// Classification of the previous byte for the UTF8 context mode.
// The upper nibble of the context ID comes from the last byte, and the
// low 2 bits from the second to last byte.
var contextLUT0 = [256]uint8{
	// ASCII range.
	0, 0, 0, 0, 0, 0, 0, 0, 0, 4, 4, 0, 0, 4, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	8, 12, 16, 12, 12, 20, 12, 16, 24, 28, 12, 12, 32, 12, 36, 12,
	44, 44, 44, 44, 44, 44, 44, 44, 44, 44, 32, 32, 24, 40, 28, 12,
	12, 48, 52, 52, 52, 48, 52, 52, 52, 48, 52, 52, 52, 52, 52, 48,
	52, 52, 52, 52, 52, 48, 52, 52, 52, 52, 52, 24, 12, 28, 12, 12,
	12, 56, 60, 60, 60, 56, 60, 60, 60, 56, 60, 60, 60, 60, 60, 56,
	60, 60, 60, 60, 60, 56, 60, 60, 60, 60, 60, 24, 12, 28, 12, 0,
	// UTF8 continuation byte range.
	0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1,
	0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1,
	0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1,
	0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1,
	// UTF8 lead byte range.
	2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3,
	2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3,
	2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3,
	2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3, 2, 3,
}

// Classification of the second to last byte for the UTF8 context mode.
var contextLUT1 = [256]uint8{
	// ASCII range.
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1,
	1, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 1, 1, 1, 1, 0,
	// Everything else is unclassified.
}

// Classification of a byte by its most significant bits for the signed
// context mode, treating the byte as a two's complement integer.
// A variable initializer guarantees the table exists before any init
// function builds the combined LUTs from it.
var contextLUT2 = func() (lut [256]uint8) {
	for i := range lut {
		switch {
		case i == 0:
			lut[i] = 0
		case i < 16:
			lut[i] = 1
		case i < 64:
			lut[i] = 2
		case i < 128:
			lut[i] = 3
		case i < 192:
			lut[i] = 4
		case i < 240:
			lut[i] = 5
		case i < 255:
			lut[i] = 6
		default:
			lut[i] = 7
		}
	}
	return lut
}()

// The context ID of a literal is computed as:
//
//	ctx := contextP1LUT[p1+256*mode] | contextP2LUT[p2+256*mode]
//
// where p1 and p2 are the last and second to last bytes of output.
var (
	contextP1LUT [256 * numContextModes]uint8
	contextP2LUT [256 * numContextModes]uint8
)

func initContextLUTs() {
	for i := 0; i < 256; i++ {
		contextP1LUT[i+256*contextLSB6] = uint8(i) & 0x3f
		contextP2LUT[i+256*contextLSB6] = 0

		contextP1LUT[i+256*contextMSB6] = uint8(i) >> 2
		contextP2LUT[i+256*contextMSB6] = 0

		contextP1LUT[i+256*contextUTF8] = contextLUT0[i]
		contextP2LUT[i+256*contextUTF8] = contextLUT1[i]

		contextP1LUT[i+256*contextSigned] = contextLUT2[i] << 3
		contextP2LUT[i+256*contextSigned] = contextLUT2[i]
	}
}

// distContext computes the distance context ID from the copy length.
func distContext(cpyLen int) int {
	if cpyLen > 4 {
		return 3
	}
	return cpyLen - 2
}

// isMostlyUTF8 reports whether the sampled region of data decodes as UTF-8
// with more than the given ratio of valid codepoint bytes.
func isMostlyUTF8(data []byte, minRatio float64) bool {
	var sizeUTF8, sizeTotal int
	for i := 0; i < len(data); {
		c := data[i]
		var n int
		switch {
		case c < 0x80:
			n = 1
		case c < 0xc0:
			n = 0 // Stray continuation byte
		case c < 0xe0:
			n = 2
		case c < 0xf0:
			n = 3
		default:
			n = 4
		}
		if n > 0 && i+n <= len(data) {
			ok := true
			for _, cc := range data[i+1 : i+n] {
				if cc&0xc0 != 0x80 {
					ok = false
					break
				}
			}
			if ok {
				sizeUTF8 += n
				sizeTotal += n
				i += n
				continue
			}
		}
		sizeTotal++
		i++
	}
	return float64(sizeUTF8) > minRatio*float64(sizeTotal)
}
