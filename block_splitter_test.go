// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"testing"

	"github.com/dsnet/brotli/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// checkSplitInvariants verifies the structural invariants of a blockSplit:
// the lengths cover the stream exactly, adjacent types differ, and the type
// values form a dense range.
func checkSplitInvariants(t *testing.T, split blockSplit, streamLen int) {
	t.Helper()
	var total uint32
	maxType := -1
	seen := make(map[uint8]bool)
	for i, length := range split.lengths {
		total += length
		typ := split.types[i]
		seen[typ] = true
		if int(typ) > maxType {
			maxType = int(typ)
		}
		if i > 0 {
			assert.NotEqual(t, split.types[i-1], typ, "adjacent blocks share a type")
		}
	}
	assert.Equal(t, streamLen, int(total), "lengths must cover the stream")
	assert.Equal(t, maxType+1, split.numTypes, "numTypes must be 1+max(types)")
	for typ := 0; typ < split.numTypes; typ++ {
		assert.True(t, seen[uint8(typ)], "type %d is never used", typ)
	}
}

func TestSplitBlock(t *testing.T) {
	rand := testutil.NewRand(3)

	// A stream with two very different phases should usually split.
	twoPhase := make([]uint16, 4096)
	for i := range twoPhase {
		if i < 2048 {
			twoPhase[i] = uint16(rand.Intn(4))
		} else {
			twoPhase[i] = uint16(128 + rand.Intn(64))
		}
	}

	uniform := make([]uint16, 4096)
	for i := range uniform {
		uniform[i] = uint16(rand.Intn(256))
	}

	var vectors = []struct {
		desc   string
		data   []uint16
		params splitParams
	}{
		{"empty stream", nil, litSplitParams},
		{"short stream", make([]uint16, 100), litSplitParams},
		{"two phases", twoPhase, litSplitParams},
		{"uniform", uniform, litSplitParams},
		{"two phases as commands", twoPhase, cmdSplitParams},
		{"two phases as distances", twoPhase, distSplitParams},
	}

	for _, v := range vectors {
		split := splitBlock(v.data, v.params)
		if len(v.data) == 0 {
			assert.Equal(t, 1, split.numTypes, "%s: empty split", v.desc)
			continue
		}
		checkSplitInvariants(t, split, len(v.data))
	}

	// The two-phase stream is an easy split; it would be surprising for
	// the splitter to see a single type.
	split := splitBlock(twoPhase, litSplitParams)
	assert.Greater(t, split.numTypes, 1, "two-phase stream did not split")
}

func TestSplitterDeterminism(t *testing.T) {
	rand := testutil.NewRand(5)
	data := make([]uint16, 8192)
	for i := range data {
		data[i] = uint16(rand.Intn(200))
	}
	s1 := splitBlock(data, litSplitParams)
	s2 := splitBlock(data, litSplitParams)
	assert.Equal(t, s1, s2, "splitter must be deterministic")
}
