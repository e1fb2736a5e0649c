// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli_test

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dsnet/brotli"
)

func Example() {
	var buf bytes.Buffer
	zw, err := brotli.NewWriter(&buf, &brotli.WriterConfig{Quality: 6})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := io.WriteString(zw, "hello, world\n"); err != nil {
		log.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		log.Fatal(err)
	}

	zr, err := brotli.NewReader(&buf, nil)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := io.Copy(os.Stdout, zr); err != nil {
		log.Fatal(err)
	}
	if err := zr.Close(); err != nil {
		log.Fatal(err)
	}

	// Output:
	// hello, world
}

// Deleting a byte range from an already-compressed stream reuses the
// recovered references instead of searching for matches again.
func Example_similarity() {
	input := bytes.Repeat([]byte("the same old sentence, over and over again. "), 32)
	comp, err := brotli.Compress(input, nil)
	if err != nil {
		log.Fatal(err)
	}

	zr, err := brotli.NewReader(bytes.NewReader(comp), &brotli.ReaderConfig{SaveRecovery: true})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := io.Copy(io.Discard, zr); err != nil {
		log.Fatal(err)
	}
	rc := zr.Recovery()

	if err := rc.RemoveRange(100, 500); err != nil {
		log.Fatal(err)
	}
	comp2, err := brotli.CompressRecovery(rc, nil)
	if err != nil {
		log.Fatal(err)
	}
	output, err := brotli.Decompress(comp2)
	if err != nil {
		log.Fatal(err)
	}
	want := append(append([]byte{}, input[:100]...), input[500:]...)
	fmt.Println(bytes.Equal(output, want))

	// Output:
	// true
}
