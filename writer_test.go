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
)

// A paragraph of English prose of about 1.7 KiB: three sentences repeated
// four times followed by one closing sentence, so that both the literal
// modeler and the matcher have something to chew on.
var testParagraph = strings.Repeat(
	"The quick brown fox jumps over the lazy dog while the patient "+
		"hound watches from the shade of an old oak tree. Compression "+
		"schemes thrive on such repeated phrases, because every repeated "+
		"phrase is an opportunity to point backwards instead of spelling "+
		"the words out again. A good encoder will find those repetitions, "+
		"weigh them against the cost of encoding a pointer, and choose "+
		"whichever is cheaper in the final bit stream. ", 4) +
	"And this closing sentence appears exactly once."

func TestRoundTrip(t *testing.T) {
	rand := testutil.NewRand(0)
	var vectors = []struct {
		desc  string
		input []byte
	}{
		{"empty", nil},
		{"single zero byte", []byte{0x00}},
		{"single letter", []byte{'m'}},
		{"double letter", []byte("mm")},
		{"ascii alphabet", []byte("abcdefghijklmnopqrstuvwxyz")},
		{"abc pattern", append(bytes.Repeat([]byte("abc"), 341), 'a')},
		{"zeros", make([]byte, 1<<14)},
		{"english paragraph", []byte(testParagraph)},
		{"repeated paragraph", []byte(strings.Repeat(testParagraph, 10))},
		{"random 4KiB", rand.Bytes(1 << 12)},
		{"random 256KiB", rand.Bytes(1 << 18)},
		{"sawtooth", func() []byte {
			b := make([]byte, 1<<16)
			for i := range b {
				b[i] = byte(i)
			}
			return b
		}()},
	}

	for _, quality := range []int{0, 1, 2, 4, 6, 9, 11} {
		for _, v := range vectors {
			conf := &WriterConfig{Quality: quality}
			output := mustCompress(t, v.input, conf)
			data := mustDecompress(t, output)
			if !bytes.Equal(data, v.input) {
				t.Errorf("quality %d (%q): round-trip mismatch", quality, v.desc)
			}
		}
	}
}

func TestRoundTripWindows(t *testing.T) {
	input := []byte(strings.Repeat(testParagraph, 40)) // Exceeds small windows
	for _, wbits := range []int{10, 12, 16, 18, 22, 24} {
		output := mustCompress(t, input, &WriterConfig{Quality: 6, WinBits: wbits})
		data := mustDecompress(t, output)
		if !bytes.Equal(data, input) {
			t.Errorf("wbits %d: round-trip mismatch", wbits)
		}
	}
}

func TestRoundTripModes(t *testing.T) {
	for _, mode := range []int{ModeGeneric, ModeText, ModeFont} {
		output := mustCompress(t, []byte(testParagraph), &WriterConfig{Quality: 9, Mode: mode})
		data := mustDecompress(t, output)
		if string(data) != testParagraph {
			t.Errorf("mode %d: round-trip mismatch", mode)
		}
	}
}

// The empty input compresses to the canonical single-byte stream.
func TestCompressEmpty(t *testing.T) {
	output := mustCompress(t, nil, nil)
	if !bytes.Equal(output, []byte{0x06}) {
		t.Errorf("empty stream mismatch: got %x, want 06", output)
	}
}

// Incompressible data must be stored as an uncompressed meta-block rather
// than expanding.
func TestIncompressible(t *testing.T) {
	input := testutil.NewRand(7).Bytes(1 << 12)
	output := mustCompress(t, input, &WriterConfig{Quality: 9})
	if len(output) > len(input)+64 {
		t.Errorf("incompressible input expanded: %d => %d bytes", len(input), len(output))
	}
	if len(output) <= len(input) {
		t.Logf("unexpected compression of random data: %d => %d bytes", len(input), len(output))
	}
	if !bytes.Equal(mustDecompress(t, output), input) {
		t.Errorf("round-trip mismatch")
	}
}

// Ten copies of an English paragraph must compress to under 35%.
func TestCompressionRatio(t *testing.T) {
	input := []byte(strings.Repeat(testParagraph, 10))
	output := mustCompress(t, input, &WriterConfig{Quality: 6})
	if ratio := float64(len(output)) / float64(len(input)); ratio >= 0.35 {
		t.Errorf("poor compression ratio: got %0.3f, want < 0.35", ratio)
	}
	if !bytes.Equal(mustDecompress(t, output), input) {
		t.Errorf("round-trip mismatch")
	}
}

// Feeding the encoder chunk by chunk must produce a stream that decodes to
// the concatenated input, for every partition tried.
func TestStreamingEquivalence(t *testing.T) {
	input := []byte(strings.Repeat(testParagraph, 8))
	for _, chunkSize := range []int{1, 7, 256, 4096, 1 << 16} {
		var buf bytes.Buffer
		zw, err := NewWriter(&buf, &WriterConfig{Quality: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for lo := 0; lo < len(input); lo += chunkSize {
			hi := lo + chunkSize
			if hi > len(input) {
				hi = len(input)
			}
			if _, err := zw.Write(input[lo:hi]); err != nil {
				t.Fatalf("chunk %d: unexpected error: %v", chunkSize, err)
			}
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("chunk %d: unexpected Close error: %v", chunkSize, err)
		}
		if !bytes.Equal(mustDecompress(t, buf.Bytes()), input) {
			t.Errorf("chunk %d: streaming round-trip mismatch", chunkSize)
		}
	}

	// Symmetrically, the decoder must cope with any partitioning of its
	// input; iotest-style one-byte reads exercise every suspension point.
	output := mustCompress(t, input, &WriterConfig{Quality: 9})
	zr, err := NewReader(oneByteReader{bytes.NewReader(output)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, input) {
		t.Errorf("one-byte reads: round-trip mismatch")
	}
}

type oneByteReader struct{ r io.Reader }

func (r oneByteReader) Read(buf []byte) (int, error) {
	if len(buf) > 1 {
		buf = buf[:1]
	}
	return r.r.Read(buf)
}

// After a Flush, the bytes emitted so far must decode to exactly the input
// consumed so far.
func TestFlush(t *testing.T) {
	input := []byte(testParagraph)
	var buf bytes.Buffer
	zw, err := NewWriter(&buf, &WriterConfig{Quality: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var consumed []byte
	for lo := 0; lo < len(input); lo += 100 {
		hi := lo + 100
		if hi > len(input) {
			hi = len(input)
		}
		if _, err := zw.Write(input[lo:hi]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := zw.Flush(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		consumed = input[:hi]

		// The flushed prefix is not a terminated stream, so decode it
		// until the decoder runs dry.
		zr, err := NewReader(bytes.NewReader(buf.Bytes()), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := io.ReadAll(zr)
		if err != io.ErrUnexpectedEOF && err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(data, consumed) {
			t.Fatalf("flush at %d: prefix does not decode to consumed input", hi)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(mustDecompress(t, buf.Bytes()), input) {
		t.Errorf("round-trip mismatch")
	}
}

func TestWriterReset(t *testing.T) {
	var buf bytes.Buffer
	zw, err := NewWriter(&buf, &WriterConfig{Quality: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		buf.Reset()
		zw.Reset(&buf)
		if _, err := zw.Write([]byte(testParagraph)); err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if string(mustDecompress(t, buf.Bytes())) != testParagraph {
			t.Fatalf("iteration %d: round-trip mismatch", i)
		}
	}
}

func TestCompressParallel(t *testing.T) {
	input := []byte(strings.Repeat(testParagraph, 64)) // Several chunks worth
	for _, quality := range []int{1, 6, 9} {
		output, err := CompressParallel(input, &WriterConfig{Quality: quality})
		if err != nil {
			t.Fatalf("quality %d: unexpected error: %v", quality, err)
		}
		if !bytes.Equal(mustDecompress(t, output), input) {
			t.Errorf("quality %d: parallel round-trip mismatch", quality)
		}

		serial := mustCompress(t, input, &WriterConfig{Quality: quality})
		if len(output) < len(serial) {
			t.Errorf("quality %d: parallel output smaller than serial (%d < %d)",
				quality, len(output), len(serial))
		}
	}
}

func TestMaxCompressedSize(t *testing.T) {
	rand := testutil.NewRand(1)
	for _, n := range []int{0, 1, 100, 1 << 12, 1 << 18} {
		input := rand.Bytes(n)
		output := mustCompress(t, input, &WriterConfig{Quality: 9})
		if len(output) > MaxCompressedSize(n) {
			t.Errorf("n=%d: output %d exceeds bound %d", n, len(output), MaxCompressedSize(n))
		}
	}
}
