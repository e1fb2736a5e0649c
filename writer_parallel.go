// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"

	"golang.org/x/sync/errgroup"
)

// CompressParallel partitions the input into fixed-size chunks and
// compresses each chunk with an independent encoder, concatenating the
// outputs in order. Only the first chunk emits the stream header; every
// non-final chunk ends with an empty metadata frame so that the
// concatenation points are byte-aligned. There are no backward references
// across chunks, so the compression ratio is lower than the serial path.
func CompressParallel(input []byte, conf *WriterConfig) ([]byte, error) {
	if len(input) == 0 {
		return Compress(input, conf)
	}

	params := makeEncoderParams(conf)
	chunkSize := 1 << params.lgblock
	numChunks := (len(input) + chunkSize - 1) / chunkSize
	if numChunks == 1 {
		return Compress(input, conf)
	}

	outputs := make([][]byte, numChunks)
	var group errgroup.Group
	for i := 0; i < numChunks; i++ {
		i := i
		group.Go(func() error {
			lo := i * chunkSize
			hi := lo + chunkSize
			if hi > len(input) {
				hi = len(input)
			}
			out, err := compressChunk(input[lo:hi], conf, i == 0, i == numChunks-1)
			outputs[i] = out
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return bytes.Join(outputs, nil), nil
}

// compressChunk compresses one independent chunk. The first chunk carries
// the stream header; the last chunk terminates the stream; intermediate
// chunks end byte-aligned on an empty metadata frame.
func compressChunk(chunk []byte, conf *WriterConfig, isFirst, isLast bool) ([]byte, error) {
	if conf != nil && len(conf.CustomDict) > 0 && !isFirst {
		// Later chunks must not reference the preset dictionary: the
		// decoder's window holds the previous chunks there instead.
		confCopy := *conf
		confCopy.CustomDict = nil
		conf = &confCopy
	}
	var buf bytes.Buffer
	zw, err := NewWriter(&buf, conf)
	if err != nil {
		return nil, err
	}
	if !isFirst {
		zw.wroteHeader = true // Only the first chunk emits the header
	}
	if _, err := zw.Write(chunk); err != nil {
		return nil, err
	}
	if isLast {
		if err := zw.Close(); err != nil {
			return nil, err
		}
	} else if err := zw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
