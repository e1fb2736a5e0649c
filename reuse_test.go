// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/dsnet/brotli/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// decodeRecovery decompresses a stream with recovery instrumentation on.
func decodeRecovery(t *testing.T, input []byte) *Recovery {
	t.Helper()
	zr, err := NewReader(bytes.NewReader(input), &ReaderConfig{SaveRecovery: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := io.ReadAll(zr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return zr.Recovery()
}

func TestRecoveryInvariants(t *testing.T) {
	input := []byte(strings.Repeat(testParagraph, 4))
	comp := mustCompress(t, input, &WriterConfig{Quality: 9})
	rc := decodeRecovery(t, comp)

	assert.Equal(t, input, rc.Output)
	assert.NotEmpty(t, rc.Refs, "compressible text must produce references")
	assert.NoError(t, rc.validate())

	prev := -1
	for _, ref := range rc.Refs {
		assert.Greater(t, ref.Position, prev, "positions must be strictly increasing")
		prev = ref.Position
	}
}

func TestRemoveRange(t *testing.T) {
	input := []byte(strings.Repeat(testParagraph, 4))
	comp := mustCompress(t, input, &WriterConfig{Quality: 9})

	var vectors = []struct{ start, end int }{
		{0, 1},
		{100, 500},
		{0, 2000},
		{len(input) - 700, len(input)},
		{1, len(input) - 1},
	}
	for _, v := range vectors {
		rc := decodeRecovery(t, comp)
		if err := rc.RemoveRange(v.start, v.end); err != nil {
			t.Fatalf("[%d,%d): unexpected error: %v", v.start, v.end, err)
		}

		want := append(append([]byte{}, input[:v.start]...), input[v.end:]...)
		assert.Equal(t, want, rc.Output, "[%d,%d): output mismatch", v.start, v.end)
		assert.NoError(t, rc.validate(), "[%d,%d): invariants violated", v.start, v.end)

		out, err := CompressRecovery(rc, nil)
		if err != nil {
			t.Fatalf("[%d,%d): unexpected error: %v", v.start, v.end, err)
		}
		assert.Equal(t, want, mustDecompress(t, out), "[%d,%d): re-encode mismatch", v.start, v.end)
	}

	// Invalid ranges must be rejected without mutating anything.
	rc := decodeRecovery(t, comp)
	for _, v := range []struct{ start, end int }{{-1, 5}, {5, 5}, {9, 2}, {0, len(input) + 1}} {
		if err := rc.RemoveRange(v.start, v.end); err == nil {
			t.Errorf("[%d,%d): unexpected success", v.start, v.end)
		}
	}
}

// The fraction of supplied references that re-appear in the re-encoded
// stream must exceed 97% for the canonical deletion scenario.
func TestReuseRate(t *testing.T) {
	input := []byte(strings.Repeat(testParagraph, 4))
	comp := mustCompress(t, input, &WriterConfig{Quality: 9})

	rc := decodeRecovery(t, comp)
	if err := rc.RemoveRange(100, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	supplied := append([]BackwardRef{}, rc.Refs...)

	out, err := CompressRecovery(rc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	used := decodeRecovery(t, out)

	// Count references that re-appear with the same position and distance.
	var iStored, iUsed, equal int
	for iStored < len(supplied) && iUsed < len(used.Refs) {
		switch {
		case supplied[iStored].Position < used.Refs[iUsed].Position:
			iStored++
		case supplied[iStored].Position > used.Refs[iUsed].Position:
			iUsed++
		default:
			if supplied[iStored].Distance == used.Refs[iUsed].Distance {
				equal++
				iStored++
			}
			iUsed++
		}
	}
	if rate := float64(equal) / float64(len(supplied)); rate <= 0.97 {
		t.Errorf("reuse rate too low: got %0.4f, want > 0.97", rate)
	}
}

// removeSplitRange mirrors the original block rewriting semantics: blocks
// before the cut stay, straddlers are truncated or fused, inner blocks are
// dropped, and types are renumbered in order of first use.
func TestRemoveSplitRange(t *testing.T) {
	var vectors = []struct {
		desc       string
		split      PosSplit
		start, end int
		want       PosSplit
	}{{
		desc: "cut inside one block",
		split: PosSplit{
			NumTypes: 2,
			Types:    []int{0, 1},
			Begin:    []int{0, 500},
			End:      []int{500, 1000},
		},
		start: 100, end: 200,
		want: PosSplit{
			NumTypes: 2,
			Types:    []int{0, 1},
			Begin:    []int{0, 400},
			End:      []int{400, 900},
		},
	}, {
		desc: "cut spans a whole block",
		split: PosSplit{
			NumTypes: 3,
			Types:    []int{0, 1, 2},
			Begin:    []int{0, 300, 600},
			End:      []int{300, 600, 900},
		},
		start: 300, end: 600,
		want: PosSplit{
			NumTypes: 2,
			Types:    []int{0, 1},
			Begin:    []int{0, 300},
			End:      []int{300, 600},
		},
	}, {
		desc: "cut fuses blocks of equal type",
		split: PosSplit{
			NumTypes: 2,
			Types:    []int{0, 1, 0},
			Begin:    []int{0, 300, 600},
			End:      []int{300, 600, 900},
		},
		start: 250, end: 650,
		want: PosSplit{
			NumTypes: 1,
			Types:    []int{0},
			Begin:    []int{0},
			End:      []int{500},
		},
	}, {
		desc: "tiny trailing blocks merge into predecessors",
		split: PosSplit{
			NumTypes: 2,
			Types:    []int{0, 1},
			Begin:    []int{0, 520},
			End:      []int{520, 523},
		},
		start: 100, end: 200,
		want: PosSplit{
			NumTypes: 1,
			Types:    []int{0},
			Begin:    []int{0},
			End:      []int{423},
		},
	}}

	for _, v := range vectors {
		got := removeSplitRange(v.split, v.start, v.end)
		if diff := cmp.Diff(v.want, got); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", v.desc, diff)
		}
	}
}

// Deleting a range and recompressing must round-trip even when the original
// stream contains uncompressed meta-blocks.
func TestRemoveRangeUncompressed(t *testing.T) {
	text := []byte(strings.Repeat(testParagraph, 2))
	noise := testutil.NewRand(17).Bytes(1 << 17)
	input := append(append(append([]byte{}, text...), noise...), text...)
	comp := mustCompress(t, input, &WriterConfig{Quality: 9, LgBlock: 16})

	rc := decodeRecovery(t, comp)
	if err := rc.RemoveRange(50, 4000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := append(append([]byte{}, input[:50]...), input[4000:]...)
	out, err := CompressRecovery(rc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(mustDecompress(t, out), want) {
		t.Errorf("round-trip mismatch after deleting across block kinds")
	}
}
