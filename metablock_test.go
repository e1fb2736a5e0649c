// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"testing"

	"github.com/dsnet/brotli/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

// Every context map the encoder can produce must read back identically.
func TestContextMapRoundTrip(t *testing.T) {
	rand := testutil.NewRand(19)
	var vectors = []struct {
		desc     string
		numTrees int
		cm       []uint8
	}{
		{"single tree", 1, make([]uint8, numLitContexts)},
		{"two trees split", 2, func() []uint8 {
			cm := make([]uint8, 2*numLitContexts)
			for i := numLitContexts; i < len(cm); i++ {
				cm[i] = 1
			}
			return cm
		}()},
		{"zero heavy", 3, func() []uint8 {
			cm := make([]uint8, 4*numLitContexts)
			cm[13], cm[200] = 1, 2
			return cm
		}()},
		{"random", 8, func() []uint8 {
			cm := make([]uint8, 4*numLitContexts)
			for i := range cm {
				cm[i] = uint8(rand.Intn(8))
			}
			return cm
		}()},
		{"distance shaped", 4, func() []uint8 {
			cm := make([]uint8, 5*numDistContexts)
			for i := range cm {
				cm[i] = uint8(i / numDistContexts % 4)
			}
			return cm
		}()},
	}

	for _, v := range vectors {
		var bw bitWriter
		bw.Reset()
		encodeContextMap(&bw, v.cm, v.numTrees)
		bw.WritePads()

		zr := new(Reader)
		zr.rd.Init(bytes.NewReader(bw.Bytes()))
		got := make([]uint8, len(v.cm))
		numTrees := zr.readContextMap(got)
		if numTrees != v.numTrees {
			t.Errorf("%s: tree count mismatch: got %d, want %d", v.desc, numTrees, v.numTrees)
		}
		if diff := cmp.Diff(v.cm, got); diff != "" {
			t.Errorf("%s: context map mismatch (-want +got):\n%s", v.desc, diff)
		}
	}
}

// The stored block-split code must replay the same sequence of types
// through a blockDecoder that the encoder's iterator produces.
func TestBlockSplitCodeRoundTrip(t *testing.T) {
	var vectors = []struct {
		desc  string
		split blockSplit
	}{{
		desc:  "single type",
		split: blockSplit{numTypes: 1, types: []uint8{0}, lengths: []uint32{1000}},
	}, {
		desc: "alternating pair",
		split: blockSplit{
			numTypes: 2,
			types:    []uint8{0, 1, 0, 1, 0},
			lengths:  []uint32{1, 30, 7, 512, 64},
		},
	}, {
		desc: "many types",
		split: blockSplit{
			numTypes: 5,
			types:    []uint8{0, 1, 2, 1, 3, 4, 0},
			lengths:  []uint32{100, 1, 25, 17, 3, 200, 9},
		},
	}}

	for _, v := range vectors {
		var total int
		for _, n := range v.split.lengths {
			total += int(n)
		}

		var bw bitWriter
		bw.Reset()
		code := buildAndStoreBlockSplitCode(&bw, &v.split)
		var wantTypes []int
		for i := 0; i < total; i++ {
			wantTypes = append(wantTypes, code.next(&bw))
		}
		bw.WritePads()

		var rd bitReader
		rd.Init(bytes.NewReader(bw.Bytes()))
		var bd blockDecoder
		numTypes := int(rd.ReadSymbol(&decCounts))
		bd.init(numTypes)
		if numTypes != v.split.numTypes {
			t.Errorf("%s: type count mismatch: got %d, want %d", v.desc, numTypes, v.split.numTypes)
			continue
		}
		if numTypes >= 2 {
			zr := new(Reader)
			zr.rd = rd
			zr.readHuffmanCode(numTypes+2, &bd.decType)
			zr.readHuffmanCode(numBlkCntSyms, &bd.decLen)
			rd = zr.rd
			bd.typeLen = int(rd.ReadOffset(rd.ReadSymbol(&bd.decLen), blkLenRanges))
		}
		for i := 0; i < total; i++ {
			if bd.typeLen == 0 {
				bd.readSwitch(&rd)
			}
			bd.typeLen--
			if bd.curType != wantTypes[i] {
				t.Errorf("%s: symbol %d: type mismatch: got %d, want %d",
					v.desc, i, bd.curType, wantTypes[i])
				break
			}
		}
	}
}

func TestMetaBlockHeader(t *testing.T) {
	for _, length := range []int{1, 2, 100, 1 << 16, 1<<16 + 1, 1 << 20, 1<<20 + 1, 1 << 24} {
		var bw bitWriter
		bw.Reset()
		storeMetaBlockHeader(&bw, length, false, false)
		bw.WritePads()

		var rd bitReader
		rd.Init(bytes.NewReader(bw.Bytes()))
		if last := rd.ReadBits(1); last != 0 {
			t.Errorf("length %d: unexpected ISLAST", length)
		}
		nibbles := rd.ReadBits(2) + 4
		got := int(rd.ReadBits(nibbles*4)) + 1
		if nibbles > 4 && (got-1)>>((nibbles-1)*4) == 0 {
			t.Errorf("length %d: not the shortest representation", length)
		}
		if got != length {
			t.Errorf("length %d: decoded %d", length, got)
		}
		if uncompressed := rd.ReadBits(1); uncompressed != 0 {
			t.Errorf("length %d: unexpected ISUNCOMPRESSED", length)
		}
	}
}
