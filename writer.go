// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"io"

	"github.com/dsnet/brotli/internal/errors"
)

// Operating modes tune the encoder toward a class of input.
const (
	ModeGeneric = iota
	ModeText
	ModeFont
)

const (
	BestSpeed          = 0
	BestCompression    = 11
	DefaultQuality     = 9
	DefaultWinBits     = 22
	minWinBits         = 10
	maxWinBits         = 24
	minLgBlock         = 16
	maxLgBlock         = 24
	maxMetaBlockLength = 1 << 24
)

type WriterConfig struct {
	_ struct{} // Blank field to prevent unkeyed struct literals

	// Quality controls the compression-speed vs compression-density
	// trade-offs. Valid values are 0 to 11 inclusive; values outside the
	// range are replaced with DefaultQuality. Qualities 0 and 1 use the
	// flat-table fast path, 2 to 9 the main pipeline, and 10 and 11 a
	// shortest-path reference search.
	Quality int

	// WinBits is the base-two logarithm of the sliding window size.
	// Valid values are 10 to 24 inclusive; values outside the range are
	// replaced with DefaultWinBits. Zero selects the default.
	WinBits int

	// LgBlock is the base-two logarithm of the maximum input block size.
	// Valid values are 16 to 24 inclusive; zero derives the block size
	// from the quality and window.
	LgBlock int

	// Mode is one of ModeGeneric, ModeText, or ModeFont.
	Mode int

	// CustomDict primes the encoder with a preset dictionary.
	CustomDict []byte
}

// encoderParams are the validated configuration values.
type encoderParams struct {
	quality int
	wbits   uint
	lgblock uint
	mode    int
}

func makeEncoderParams(conf *WriterConfig) encoderParams {
	p := encoderParams{quality: DefaultQuality, wbits: DefaultWinBits}
	if conf != nil {
		if conf.Quality >= 0 && conf.Quality <= BestCompression {
			p.quality = conf.Quality
		}
		if conf.WinBits >= minWinBits && conf.WinBits <= maxWinBits {
			p.wbits = uint(conf.WinBits)
		}
		if conf.Mode == ModeText || conf.Mode == ModeFont {
			p.mode = conf.Mode
		}
		if conf.LgBlock >= minLgBlock && conf.LgBlock <= maxLgBlock {
			p.lgblock = uint(conf.LgBlock)
		}
	}
	if p.lgblock == 0 {
		p.lgblock = minLgBlock
		if p.quality >= 9 && p.wbits > p.lgblock {
			p.lgblock = 18
			if p.wbits < p.lgblock {
				p.lgblock = p.wbits
			}
		}
	}
	return p
}

// The internal stream states of the Writer.
const (
	streamProcessing = iota
	streamFlushRequested
	streamFinished
)

type Writer struct {
	InputOffset  int64 // Total number of bytes issued to Write
	OutputOffset int64 // Total number of bytes written to underlying io.Writer

	wr     io.Writer
	err    error
	params encoderParams

	bw    bitWriter
	rb    *ringBuffer
	h     hasher
	state int

	distRing     [4]int
	litCost      []float32
	wroteHeader  bool
	lastFlushPos int64 // Input positions before this have been compressed
}

func NewWriter(w io.Writer, conf *WriterConfig) (*Writer, error) {
	zw := new(Writer)
	zw.params = makeEncoderParams(conf)
	zw.Reset(w)
	if conf != nil && len(conf.CustomDict) > 0 {
		zw.primeDictionary(conf.CustomDict)
	}
	return zw, nil
}

func (zw *Writer) Reset(w io.Writer) error {
	p := zw.params
	*zw = Writer{
		wr:     w,
		params: p,
	}
	zw.bw.Reset()
	zw.distRing = [4]int{4, 11, 15, 16}

	rbBits := p.wbits
	if p.lgblock > rbBits {
		rbBits = p.lgblock
	}
	zw.rb = newRingBuffer(rbBits+1, 14)
	switch {
	case p.quality <= 1:
		zw.h = newHashSimple(16)
	case p.quality < 10:
		blockBits := uint(p.quality - 1)
		if blockBits > 7 {
			blockBits = 7
		}
		zw.h = newHashChain(15, blockBits, p.quality >= 9)
	default:
		zw.h = newHashChain(15, 9, true)
	}
	return nil
}

// primeDictionary feeds a preset dictionary into the window without
// emitting it.
func (zw *Writer) primeDictionary(dict []byte) {
	if len(dict) > zw.rb.size {
		dict = dict[len(dict)-zw.rb.size:]
	}
	zw.rb.Write(dict)
	for i := 0; i+4 <= len(dict); i++ {
		zw.h.Store(zw.rb.data, zw.rb.mask, i)
	}
	zw.lastFlushPos = zw.rb.pos
}

func (zw *Writer) Write(buf []byte) (int, error) {
	if zw.err != nil {
		return 0, zw.err
	}
	if zw.state == streamFinished {
		zw.err = ErrClosed
		return 0, zw.err
	}

	cnt := len(buf)
	blockSize := int64(1) << zw.params.lgblock
	for len(buf) > 0 {
		pending := zw.rb.pos - zw.lastFlushPos
		n := int(blockSize - pending)
		if n > len(buf) {
			n = len(buf)
		}
		zw.rb.Write(buf[:n])
		buf = buf[n:]
		if zw.rb.pos-zw.lastFlushPos == blockSize {
			if zw.err = zw.process(false); zw.err != nil {
				return 0, zw.err
			}
		}
	}
	zw.InputOffset += int64(cnt)
	return cnt, nil
}

// Flush compresses all pending input and emits an empty metadata frame so
// that the output so far is byte-aligned and decodes to exactly the input
// consumed so far.
func (zw *Writer) Flush() error {
	if zw.err != nil {
		return zw.err
	}
	if zw.state == streamFinished {
		zw.err = ErrClosed
		return zw.err
	}
	zw.state = streamFlushRequested
	if zw.err = zw.process(false); zw.err != nil {
		return zw.err
	}
	zw.err = func() (err error) {
		defer errors.Recover(&err)
		if !zw.wroteHeader {
			zw.writeStreamHeader()
		}
		storeEmptyMetadataBlock(&zw.bw)
		return zw.push()
	}()
	zw.state = streamProcessing
	return zw.err
}

// Close compresses all pending input, terminates the stream, and flushes
// the final bytes. It does not close the underlying writer.
func (zw *Writer) Close() error {
	if zw.err == ErrClosed {
		return nil
	}
	if zw.err != nil {
		return zw.err
	}
	if err := zw.process(true); err != nil {
		zw.err = err
		return err
	}
	zw.state = streamFinished
	zw.err = ErrClosed
	return nil
}

func (zw *Writer) writeStreamHeader() {
	zw.bw.WriteSymbol(zw.params.wbits, &encWinBits)
	zw.wroteHeader = true
}

// push writes all completed bytes to the underlying writer.
func (zw *Writer) push() error {
	out := zw.bw.ExtractBytes()
	if len(out) == 0 {
		return nil
	}
	n, err := zw.wr.Write(out)
	zw.OutputOffset += int64(n)
	return err
}

// process compresses pending input one meta-block at a time.
func (zw *Writer) process(isLast bool) (err error) {
	defer errors.Recover(&err)

	if !zw.wroteHeader {
		zw.writeStreamHeader()
	}
	blockSize := int64(1) << zw.params.lgblock
	emittedLast := false
	for {
		pending := zw.rb.pos - zw.lastFlushPos
		if pending == 0 {
			if isLast && !emittedLast {
				// No data was ever provided, or the input ended
				// exactly on a previous meta-block boundary.
				storeEmptyLastMetaBlock(&zw.bw)
			}
			break
		}
		n := int(pending)
		if int64(n) > blockSize {
			n = int(blockSize)
		}
		last := isLast && int64(n) == pending
		zw.encodeMetaBlock(n, last)
		zw.lastFlushPos += int64(n)
		emittedLast = emittedLast || last
	}
	if isLast {
		zw.bw.WritePads()
	}
	return zw.push()
}

// shouldCompress estimates whether compressing the meta-block gains
// anything over storing it raw.
func shouldCompress(data []byte, mask int, pos int64, length int, numLiterals, numCommands int) bool {
	if numCommands < length>>8+2 {
		if float64(numLiterals) > 0.99*float64(length) {
			var histo [256]uint32
			const sampleRate = 13
			const minEntropy = 7.92
			threshold := float64(length) * minEntropy / sampleRate
			p := int(pos)
			for i := 0; i < length; i += sampleRate {
				histo[data[p&mask]]++
				p += sampleRate
			}
			if bitsEntropy(histo[:]) > threshold {
				return false
			}
		}
	}
	return true
}

// encodeMetaBlock compresses the n pending bytes as one meta-block.
func (zw *Writer) encodeMetaBlock(n int, isLast bool) {
	data, mask := zw.rb.data, zw.rb.mask
	pos := zw.lastFlushPos
	p := zw.params
	maxBackwardLimit := 1<<p.wbits - 16

	savedRing := zw.distRing

	// Estimate literal costs for the match scorer at higher qualities.
	var litCost []float32
	avgCost := 5.4
	if p.quality >= 4 {
		if cap(zw.litCost) < n {
			zw.litCost = make([]float32, n)
		}
		litCost = zw.litCost[:n]
		estimateBitCostsForLiterals(data, mask, pos, n, litCost)
		var sum float64
		for _, c := range litCost {
			sum += float64(c)
		}
		avgCost = sum / float64(n)
	}

	var cmds []command
	var numLiterals int
	if p.quality >= 10 {
		cmds, numLiterals = createZopfliBackwardReferences(
			data, mask, int(pos), n, zw.h.(*hashChain), &zw.distRing, litCost, avgCost, maxBackwardLimit)
	} else {
		cmds, numLiterals = createBackwardReferences(
			data, mask, int(pos), n, zw.h, &zw.distRing, litCost, avgCost, maxBackwardLimit)
	}

	if !shouldCompress(data, mask, pos, n, numLiterals, len(cmds)) {
		zw.distRing = savedRing
		storeUncompressedMetaBlock(&zw.bw, data, pos, mask, n)
		if isLast {
			storeEmptyLastMetaBlock(&zw.bw)
		}
		return
	}

	startBitPos := zw.bw.BitPos()
	var mb *metaBlock
	if p.quality < 4 {
		mb = buildMetaBlockTrivial(cmds, data, pos, mask)
	} else {
		mb = buildMetaBlock(cmds, data, pos, mask, n, p.quality)
	}
	storeMetaBlock(&zw.bw, data, pos, mask, n, isLast, mb, cmds)

	// If the compressed form is larger than a raw copy plus the overhead
	// of an uncompressed meta-block header, rewind and store it raw.
	if int(zw.bw.BitPos()-startBitPos)>>3 > n+4 {
		zw.distRing = savedRing
		zw.bw.Truncate(startBitPos)
		storeUncompressedMetaBlock(&zw.bw, data, pos, mask, n)
		if isLast {
			storeEmptyLastMetaBlock(&zw.bw)
		}
	}
}

// Compress compresses the entire input buffer in one shot.
func Compress(input []byte, conf *WriterConfig) ([]byte, error) {
	if len(input) == 0 {
		// The shortest stream: an empty last meta-block.
		return []byte{0x06}, nil
	}
	var buf bytes.Buffer
	zw, err := NewWriter(&buf, conf)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(input); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MaxCompressedSize bounds the size of the compressed form of n input
// bytes, accounting for the worst case of uncompressed meta-blocks.
func MaxCompressedSize(n int) int {
	return n + (n>>14)*4 + 8
}
