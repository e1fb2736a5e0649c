// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import "testing"

func TestTransformWord(t *testing.T) {
	var vectors = []struct {
		desc   string
		id     int
		input  string
		output string
	}{{
		desc: "identity", id: 0,
		input: "hello", output: "hello",
	}, {
		desc: "identity with space suffix", id: 1,
		input: "hello", output: "hello ",
	}, {
		desc: "space surround", id: 2,
		input: "hello", output: " hello ",
	}, {
		desc: "omit first 1", id: 3,
		input: "hello", output: "ello",
	}, {
		desc: "uppercase first with space", id: 4,
		input: "hello", output: "Hello ",
	}, {
		desc: "identity with ' the ' suffix", id: 5,
		input: "of", output: "of the ",
	}, {
		desc: "omit last 1", id: 12,
		input: "hello", output: "hell",
	}, {
		desc: "omit last 3", id: 23,
		input: "hello", output: "he",
	}, {
		desc: "omit last longer than word", id: 64, // OmitLast9
		input: "hello", output: "",
	}, {
		desc: "omit first 2", id: 11,
		input: "hello", output: "llo",
	}, {
		desc: "uppercase all", id: 44,
		input: "shout", output: "SHOUT",
	}, {
		desc: "uppercase first utf8", id: 9,
		input: "étude", output: "Étude",
	}, {
		desc: "uppercase all mixed", id: 68,
		input: "aéz", output: "AÉZ ",
	}, {
		desc: "prefix and suffix", id: 73,
		input: "internet", output: " the internet of the ",
	}}

	for i, v := range vectors {
		var buf [maxWordSize]byte
		cnt := transformWord(buf[:], []byte(v.input), v.id)
		if output := string(buf[:cnt]); output != v.output {
			t.Errorf("test %d (%q): got %q, want %q", i, v.desc, output, v.output)
		}
	}
}

func TestTransformLUT(t *testing.T) {
	if len(transformLUT) != numTransforms {
		t.Errorf("transform count mismatch: got %d, want %d", len(transformLUT), numTransforms)
	}
}
