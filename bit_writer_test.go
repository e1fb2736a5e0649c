// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"testing"

	"github.com/dsnet/brotli/internal/testutil"
)

// Every value written must read back in order through the bitReader.
func TestBitWriterRoundTrip(t *testing.T) {
	rand := testutil.NewRand(2)
	type field struct {
		nb uint
		v  uint64
	}
	var fields []field
	for i := 0; i < 1000; i++ {
		nb := uint(1 + rand.Intn(24))
		fields = append(fields, field{nb, uint64(rand.Int()) & (1<<nb - 1)})
	}

	var bw bitWriter
	bw.Reset()
	for _, f := range fields {
		bw.WriteBits(f.nb, f.v)
	}
	bw.WritePads()

	var rd bitReader
	rd.Init(bytes.NewReader(bw.Bytes()))
	for i, f := range fields {
		if got := rd.ReadBits(f.nb); uint64(got) != f.v {
			t.Fatalf("field %d: got %d, want %d", i, got, f.v)
		}
	}
}

func TestBitWriterUpdateBits(t *testing.T) {
	var bw bitWriter
	bw.Reset()
	bw.WriteBits(7, 0)
	mark := bw.BitPos()
	bw.WriteBits(20, 0) // Placeholder to be patched later
	bw.WriteBits(5, 0x15)
	bw.UpdateBits(mark, 20, 0xabcde)

	var rd bitReader
	rd.Init(bytes.NewReader(bw.Bytes()))
	if got := rd.ReadBits(7); got != 0 {
		t.Errorf("prefix corrupted: %x", got)
	}
	if got := rd.ReadBits(20); got != 0xabcde {
		t.Errorf("patched value mismatch: got %x, want abcde", got)
	}
	if got := rd.ReadBits(5); got != 0x15 {
		t.Errorf("suffix corrupted: %x", got)
	}
}

func TestBitWriterExtract(t *testing.T) {
	var bw bitWriter
	bw.Reset()
	bw.WriteBits(12, 0xabc)
	out := bw.ExtractBytes()
	if len(out) != 1 || out[0] != 0xbc {
		t.Errorf("extracted bytes mismatch: %x", out)
	}
	if bw.BitPos() != 4 {
		t.Errorf("residue mismatch: %d bits", bw.BitPos())
	}
	bw.WriteBits(4, 0x5)
	if got := bw.Bytes(); len(got) != 1 || got[0] != 0x5a {
		t.Errorf("residue continuation mismatch: %x", got)
	}
}

func TestBitWriterTruncate(t *testing.T) {
	var bw bitWriter
	bw.Reset()
	bw.WriteBits(9, 0x1ff)
	mark := bw.BitPos()
	bw.WriteBits(16, 0xffff)
	bw.Truncate(mark)
	if bw.BitPos() != 9 {
		t.Fatalf("bit position mismatch: %d", bw.BitPos())
	}
	bw.WriteBits(7, 0)
	if got := bw.Bytes(); len(got) != 2 || got[0] != 0xff || got[1] != 0x01 {
		t.Errorf("truncated stream mismatch: %x", got)
	}
}
