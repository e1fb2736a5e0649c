// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"testing"

	"github.com/dsnet/brotli/internal/testutil"
)

// naiveDecode is an independent canonical-prefix decoder used to
// cross-check the chunked table lookups: it assigns codes by walking the
// lengths in (length, symbol) order and matches input bits one at a time.
func naiveDecode(codes prefixCodes, bits uint16, nbits uint) (sym uint16, n uint, ok bool) {
	type assigned struct {
		sym  uint16
		val  uint16 // Bit-reversed canonical value
		len  uint8
	}
	var all []assigned
	var bitCnts [maxPrefixBits + 1]uint
	for _, c := range codes {
		bitCnts[c.len]++
	}
	var nextCodes [maxPrefixBits + 1]uint
	var code uint
	for i := uint8(1); i <= maxPrefixBits; i++ {
		code <<= 1
		nextCodes[i] = code
		code += bitCnts[i]
	}
	for _, c := range codes {
		val := reverseBits(uint16(nextCodes[c.len]), uint(c.len))
		nextCodes[c.len]++
		all = append(all, assigned{sym: c.sym, val: val, len: c.len})
	}
	for _, a := range all {
		if uint(a.len) <= nbits && bits&(1<<a.len-1) == a.val {
			return a.sym, uint(a.len), true
		}
	}
	return 0, 0, false
}

func TestPrefixDeterminism(t *testing.T) {
	var vectors = []struct {
		desc string
		lens []uint8
	}{
		{"flat code", []uint8{2, 2, 2, 2}},
		{"skewed code", []uint8{1, 2, 3, 3}},
		{"deflate fixed-like", func() []uint8 {
			lens := make([]uint8, 288)
			for i := range lens {
				switch {
				case i < 144:
					lens[i] = 8
				case i < 256:
					lens[i] = 9
				case i < 280:
					lens[i] = 7
				default:
					lens[i] = 8
				}
			}
			return lens
		}()},
		{"deep code", []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 15}},
	}

	for _, v := range vectors {
		var codes prefixCodes
		for sym, n := range v.lens {
			if n > 0 {
				codes = append(codes, prefixCode{sym: uint16(sym), len: n})
			}
		}
		var pd prefixDecoder
		pd.Init(append(prefixCodes(nil), codes...), true)

		for bits := 0; bits < 1<<maxPrefixBits; bits += 13 {
			wantSym, wantN, ok := naiveDecode(codes, uint16(bits), maxPrefixBits)
			if !ok {
				continue
			}

			var rd bitReader
			rd.Init(bytes.NewReader([]byte{byte(bits), byte(bits >> 8)}))
			gotSym := rd.ReadSymbol(&pd)
			gotN := uint(rd.offset)*8 - rd.numBits
			if uint16(gotSym) != wantSym || gotN != wantN {
				t.Errorf("%s: bits %015b: got (%d, %d), want (%d, %d)",
					v.desc, bits, gotSym, gotN, wantSym, wantN)
			}
		}
	}
}

// Every tree the encoder stores must read back as the same code.
func TestHuffmanTreeRoundTrip(t *testing.T) {
	rand := testutil.NewRand(7)
	var vectors = []struct {
		desc   string
		counts []uint32
	}{
		{"single symbol", func() []uint32 {
			c := make([]uint32, 256)
			c['x'] = 100
			return c
		}()},
		{"two symbols", func() []uint32 {
			c := make([]uint32, 256)
			c['a'], c['b'] = 90, 10
			return c
		}()},
		{"four symbols skewed", func() []uint32 {
			c := make([]uint32, 256)
			c[0], c[1], c[2], c[3] = 1000, 100, 10, 1
			return c
		}()},
		{"uniform alphabet", func() []uint32 {
			c := make([]uint32, 704)
			for i := range c {
				c[i] = 7
			}
			return c
		}()},
		{"random counts", func() []uint32 {
			c := make([]uint32, 256)
			for i := range c {
				c[i] = uint32(rand.Intn(1000))
			}
			return c
		}()},
		{"sparse zipf", func() []uint32 {
			c := make([]uint32, 520)
			for i := 0; i < 40; i++ {
				c[rand.Intn(520)] = uint32(1 + 10000/(i+1))
			}
			return c
		}()},
	}

	for _, v := range vectors {
		var bw bitWriter
		bw.Reset()
		var pe prefixEncoder
		buildAndStoreHuffmanTree(&bw, v.counts, maxPrefixBits, &pe)

		// Append every present symbol once so the decode can be verified.
		var syms []uint16
		for sym, c := range v.counts {
			if c > 0 {
				syms = append(syms, uint16(sym))
				bw.WriteSymbol(uint(sym), &pe)
			}
		}
		bw.WritePads()

		var rd bitReader
		rd.Init(bytes.NewReader(bw.Bytes()))
		zr := new(Reader)
		zr.rd = rd
		var pd prefixDecoder
		zr.readHuffmanCode(len(v.counts), &pd)
		for _, want := range syms {
			if got := zr.rd.ReadSymbol(&pd); uint16(got) != want {
				t.Errorf("%s: symbol mismatch: got %d, want %d", v.desc, got, want)
				break
			}
		}
	}
}

func TestRepairDegenerateCodes(t *testing.T) {
	var vectors = []struct {
		lens []uint8
		ok   bool
	}{
		{lens: []uint8{1, 1}, ok: true},       // Already complete
		{lens: []uint8{1, 2}, ok: true},       // Underfull by a quarter
		{lens: []uint8{2, 2}, ok: true},       // Underfull by half
		{lens: []uint8{3, 3, 3}, ok: true},    // Underfull
		{lens: []uint8{1, 1, 1}, ok: false},    // Oversubscribed
		{lens: []uint8{1, 2, 2, 2}, ok: false}, // Oversubscribed
	}
	for i, v := range vectors {
		var codes prefixCodes
		for sym, n := range v.lens {
			codes = append(codes, prefixCode{sym: uint16(sym), len: n})
		}
		repaired := repairDegenerateCodes(codes, uint(len(v.lens)))
		if (repaired != nil) != v.ok {
			t.Errorf("test %d: repair mismatch: got %v, want ok=%v", i, repaired, v.ok)
			continue
		}
		if repaired == nil {
			continue
		}
		var space int
		for _, c := range repaired {
			space += 1 << maxPrefixBits >> c.len
		}
		if space != 1<<maxPrefixBits {
			t.Errorf("test %d: repaired code space is %d", i, space)
		}
		var pd prefixDecoder
		pd.Init(repaired, true) // Must not panic
	}
}

func TestDistancePrefixCodes(t *testing.T) {
	// Every distance must survive the encode-decode pair for the default
	// distance parameters.
	for _, dist := range []int{1, 2, 3, 4, 5, 16, 17, 100, 1000, 12345, 1 << 20, 1<<24 - 16} {
		sym, nbits, extra := prefixEncodeDistance(uint32(dist+numDistShortCodes-1), 0, 0)
		idx := uint(sym) - 16
		hcode := idx
		gotNBits := 1 + hcode>>1
		offset := (2+(hcode&1))<<gotNBits - 4
		got := int(uint(offset) + uint(extra) + 1)
		if gotNBits != uint(nbits) {
			t.Errorf("dist %d: extra bit count mismatch: got %d, want %d", dist, gotNBits, nbits)
		}
		if got != dist {
			t.Errorf("dist %d: decoded distance mismatch: got %d", dist, got)
		}
	}
}
