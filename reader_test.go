// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/dsnet/brotli/internal/errors"
	"github.com/dsnet/brotli/internal/testutil"
)

func TestReader(t *testing.T) {
	var vectors = []struct {
		desc   string // Description of the test
		input  []byte // Test input
		output string // Expected output string
		err    error  // Expected error
	}{{
		desc:  "empty string",
		input: []byte{},
		err:   io.ErrUnexpectedEOF,
	}, {
		desc:   "empty last block (padding is zero)",
		input:  testutil.MustDecodeHex("06"),
		output: "",
	}, {
		desc:  "empty last block (padding is non-zero)",
		input: testutil.MustDecodeHex("16"),
		err:   ErrCorrupt,
	}, {
		desc: "empty last block (WBITS 24)",
		input: testutil.MustDecodeBitGen(`<<<
			1111 # WBITS: 24
			1 1  # ISLAST, ISLASTEMPTY
		`),
		output: "",
	}, {
		desc: "invalid window bits",
		input: testutil.MustDecodeBitGen(`<<<
			D7:17 # Reserved WBITS code "1000100"
			1 1
		`),
		err: ErrCorrupt,
	}, {
		desc: "metadata block, then empty last block",
		input: testutil.MustDecodeBitGen(`<<<
			0             # WBITS: 16
			0 11 0 D2:1   # Metadata block, MSKIPBYTES: 1
			H8:2          # MSKIPLEN: 3
			0             # Padding
			X:aabbcc      # Skipped bytes
			1 1           # ISLAST, ISLASTEMPTY
		`),
		output: "",
	}, {
		desc: "metadata block (reserved bit set)",
		input: testutil.MustDecodeBitGen(`<<<
			0
			0 11 1 D2:0
			1 1
		`),
		err: ErrCorrupt,
	}, {
		desc: "uncompressed block",
		input: testutil.MustDecodeBitGen(`<<<
			0           # WBITS: 16
			0 00 H16:3  # MLEN: 4
			1           # ISUNCOMPRESSED
			000         # Padding
			X:deadcafe  # Raw data
			1 1         # ISLAST, ISLASTEMPTY
		`),
		output: "deadcafe",
	}, {
		desc: "uncompressed block (padding is non-zero)",
		input: testutil.MustDecodeBitGen(`<<<
			0
			0 00 H16:3
			1
			100
			X:deadcafe
			1 1
		`),
		err: ErrCorrupt,
	}, {
		desc: "compressed block with one literal",
		input: testutil.MustDecodeBitGen(`<<<
			0            # WBITS: 16
			1 0          # ISLAST, not empty
			00 H16:0     # MLEN: 1
			0            # NBLTYPESL: 1
			0            # NBLTYPESI: 1
			0            # NBLTYPESD: 1
			00 0000      # NPOSTFIX, NDIRECT
			00           # Context mode: LSB6
			0            # NTREESL: 1
			0            # NTREESD: 1
			D2:1 D2:0 H8:61   # Literal tree: {'a'}
			D2:1 D2:0 D10:136 # Insert-and-copy tree: {136}
			D2:1 D2:0 D6:0    # Distance tree: {0}
		`),
		output: "61",
	}}

	for i, v := range vectors {
		zr, err := NewReader(bytes.NewReader(v.input), nil)
		if err != nil {
			t.Errorf("test %d (%q): unexpected NewReader error: %v", i, v.desc, err)
			continue
		}
		data, err := io.ReadAll(zr)
		output := hex.EncodeToString(data)

		if !matchesError(err, v.err) {
			t.Errorf("test %d (%q): got %v, want %v", i, v.desc, err, v.err)
		}
		if v.err == nil && output != v.output {
			t.Errorf("test %d (%q):\ngot  %v\nwant %v", i, v.desc, output, v.output)
		}
	}
}

func matchesError(got, want error) bool {
	if want == ErrCorrupt {
		return errors.IsCorrupted(got)
	}
	return got == want
}

func TestDecompressedSize(t *testing.T) {
	var vectors = []struct {
		input []byte
		size  int
		fail  bool
	}{
		{input: testutil.MustDecodeHex("06"), size: 0},
		{input: mustCompress(t, bytes.Repeat([]byte("hello, world"), 100), nil), size: 1200},
		{input: []byte{}, fail: true},
	}
	for i, v := range vectors {
		size, err := DecompressedSize(v.input)
		if v.fail {
			if err == nil {
				t.Errorf("test %d: unexpected success", i)
			}
			continue
		}
		if err != nil {
			t.Errorf("test %d: unexpected error: %v", i, err)
		}
		if size != v.size {
			t.Errorf("test %d: size mismatch: got %d, want %d", i, size, v.size)
		}
	}
}

func TestReaderReset(t *testing.T) {
	input := mustCompress(t, []byte(testParagraph), nil)
	zr, err := NewReader(bytes.NewReader(input), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		data, err := io.ReadAll(zr)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if string(data) != testParagraph {
			t.Fatalf("iteration %d: output mismatch", i)
		}
		zr.Reset(bytes.NewReader(input))
	}
}

func mustCompress(t *testing.T, input []byte, conf *WriterConfig) []byte {
	t.Helper()
	output, err := Compress(input, conf)
	if err != nil {
		t.Fatalf("unexpected Compress error: %v", err)
	}
	return output
}

func mustDecompress(t *testing.T, input []byte) []byte {
	t.Helper()
	output, err := Decompress(input)
	if err != nil {
		t.Fatalf("unexpected Decompress error: %v", err)
	}
	return output
}
