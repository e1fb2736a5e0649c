// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command brotli is a thin front-end over the brotli package that
// compresses or decompresses a single stream.
package main

import (
	"bytes"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/dsnet/brotli"
	strconv "github.com/dsnet/golib/unitconv"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("brotli: ")

	decompress := flag.Bool("d", false, "decompress instead of compress")
	force := flag.Bool("f", false, "overwrite the output file if it exists")
	quality := flag.Int("q", brotli.DefaultQuality, "compression quality (0..11)")
	winBits := flag.Int("w", brotli.DefaultWinBits, "sliding window size log2 (10..24)")
	input := flag.String("input", "", "input file (default stdin)")
	output := flag.String("output", "", "output file (default stdout)")
	dictFile := flag.String("custom-dictionary", "", "file with a preset dictionary")
	repeat := flag.Int("repeat", 1, "number of times to repeat the operation")
	verbose := flag.Bool("verbose", false, "report timing and sizes")
	flag.Parse()

	var custDict []byte
	if *dictFile != "" {
		var err error
		if custDict, err = os.ReadFile(*dictFile); err != nil {
			log.Fatal(err)
		}
	}

	src := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		src = f
	}
	dst := os.Stdout
	if *output != "" {
		mode := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if !*force {
			mode |= os.O_EXCL
		}
		f, err := os.OpenFile(*output, mode, 0666)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		dst = f
	}

	// All repetitions operate on the same buffered input so that -repeat
	// can be used for crude benchmarking.
	data, err := io.ReadAll(src)
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	var inCnt, outCnt int64
	for i := 0; i < *repeat; i++ {
		w := io.Writer(dst)
		if i < *repeat-1 {
			w = io.Discard
		}
		in, out, err := run(w, data, *decompress, *quality, *winBits, custDict)
		if err != nil {
			log.Fatal(err)
		}
		inCnt, outCnt = in, out
	}

	if *verbose {
		d := time.Since(start).Seconds() / float64(*repeat)
		rate := strconv.FormatPrefix(float64(inCnt)/d, strconv.Base1024, 2)
		log.Printf("%d => %d bytes (%sB/s)", inCnt, outCnt, rate)
	}
}

func run(dst io.Writer, data []byte, decompress bool, quality, winBits int, custDict []byte) (in, out int64, err error) {
	if decompress {
		zr, err := brotli.NewReader(bytes.NewReader(data), &brotli.ReaderConfig{CustomDict: custDict})
		if err != nil {
			return 0, 0, err
		}
		n, err := io.Copy(dst, zr)
		if err != nil {
			return zr.InputOffset, n, err
		}
		return zr.InputOffset, n, zr.Close()
	}

	zw, err := brotli.NewWriter(dst, &brotli.WriterConfig{
		Quality:    quality,
		WinBits:    winBits,
		CustomDict: custDict,
	})
	if err != nil {
		return 0, 0, err
	}
	if _, err := zw.Write(data); err != nil {
		return zw.InputOffset, zw.OutputOffset, err
	}
	if err := zw.Close(); err != nil {
		return zw.InputOffset, zw.OutputOffset, err
	}
	return zw.InputOffset, zw.OutputOffset, nil
}
