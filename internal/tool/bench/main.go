// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Benchmark tool to compare the performance of this brotli implementation
// with other compression implementations with respect to encode speed,
// decode speed, and compression ratio.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"testing"

	"github.com/dsnet/brotli"
	strconv "github.com/dsnet/golib/unitconv"
	"github.com/klauspost/compress/flate"
	"github.com/ulikunitz/xz"
)

type encoder func(w io.Writer, lvl int) io.WriteCloser
type decoder func(r io.Reader) io.ReadCloser

type codec struct {
	name string
	enc  encoder
	dec  decoder
}

var codecs = []codec{{
	name: "brotli",
	enc: func(w io.Writer, lvl int) io.WriteCloser {
		zw, err := brotli.NewWriter(w, &brotli.WriterConfig{Quality: lvl})
		if err != nil {
			log.Fatal(err)
		}
		return zw
	},
	dec: func(r io.Reader) io.ReadCloser {
		zr, err := brotli.NewReader(r, nil)
		if err != nil {
			log.Fatal(err)
		}
		return zr
	},
}, {
	name: "flate",
	enc: func(w io.Writer, lvl int) io.WriteCloser {
		if lvl > 9 {
			lvl = 9
		}
		zw, err := flate.NewWriter(w, lvl)
		if err != nil {
			log.Fatal(err)
		}
		return zw
	},
	dec: func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	},
}, {
	name: "xz",
	enc: func(w io.Writer, lvl int) io.WriteCloser {
		zw, err := xz.NewWriter(w)
		if err != nil {
			log.Fatal(err)
		}
		return zw
	},
	dec: func(r io.Reader) io.ReadCloser {
		zr, err := xz.NewReader(r)
		if err != nil {
			log.Fatal(err)
		}
		return io.NopCloser(zr)
	},
}}

func main() {
	log.SetFlags(0)
	file := flag.String("file", "", "input file to benchmark against")
	level := flag.Int("level", 6, "compression level to benchmark")
	size := flag.Int("size", 1<<20, "number of input bytes to use")
	flag.Parse()
	if *file == "" {
		log.Fatal("no input file specified")
	}

	input, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal(err)
	}
	if len(input) > *size {
		input = input[:*size]
	}

	fmt.Printf("benchmark: %s (%sB, level %d)\n", *file,
		strconv.FormatPrefix(float64(len(input)), strconv.Base1024, 2), *level)
	for _, c := range codecs {
		comp := compress(c, input, *level)
		encRate := rate(benchEncoder(c, input, *level))
		decRate := rate(benchDecoder(c, comp))
		ratio := float64(len(input)) / float64(len(comp))
		fmt.Printf("%8s: ratio %5.2fx, enc %6sB/s, dec %6sB/s\n",
			c.name, ratio, encRate, decRate)
	}
}

func compress(c codec, input []byte, lvl int) []byte {
	var buf bytes.Buffer
	zw := c.enc(&buf, lvl)
	if _, err := zw.Write(input); err != nil {
		log.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		log.Fatal(err)
	}
	return buf.Bytes()
}

func benchEncoder(c codec, input []byte, lvl int) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		b.StopTimer()
		runtime.GC()
		b.StartTimer()
		for i := 0; i < b.N; i++ {
			zw := c.enc(io.Discard, lvl)
			if _, err := zw.Write(input); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			if err := zw.Close(); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			b.SetBytes(int64(len(input)))
		}
	})
}

func benchDecoder(c codec, comp []byte) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		b.StopTimer()
		runtime.GC()
		b.StartTimer()
		for i := 0; i < b.N; i++ {
			zr := c.dec(bytes.NewReader(comp))
			cnt, err := io.Copy(io.Discard, zr)
			if err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			if err := zr.Close(); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			b.SetBytes(cnt)
		}
	})
}

func rate(r testing.BenchmarkResult) string {
	if r.N == 0 || r.T == 0 {
		return "?"
	}
	bytesPerSec := float64(r.Bytes) * float64(r.N) / r.T.Seconds()
	return strconv.FormatPrefix(bytesPerSec, strconv.Base1024, 2)
}
