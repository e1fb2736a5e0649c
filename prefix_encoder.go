// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import "sort"

// The prefixEncoder is the write-side dual of prefixDecoder: a symbol-indexed
// table of (value, length) pairs. Values are stored bit-reversed so that they
// can be written LSB first.
type prefixEncoder struct {
	chunks  []uint32 // First-level lookup map, indexed by symbol
	numSyms uint16   // Number of symbols with a code
}

const encoderLenBits = 5 // Bit-width of the length field in a chunk

// Init initializes the prefixEncoder according to the codes provided.
//
// If assignCodes is true, then generate a canonical prefix tree using the
// prefixCode.len field and assign the generated value to prefixCode.val.
// The symbols must be unique and in ascending order in that case.
func (pe *prefixEncoder) Init(codes []prefixCode, assignCodes bool) {
	var maxSym uint16
	for _, c := range codes {
		if c.sym > maxSym {
			maxSym = c.sym
		}
	}
	pe.chunks = allocUint32s(pe.chunks, int(maxSym)+1)
	for i := range pe.chunks {
		pe.chunks[i] = 0
	}
	pe.numSyms = 0

	if assignCodes {
		var bitCnts [maxPrefixBits + 1]uint
		var maxBits uint8
		for _, c := range codes {
			bitCnts[c.len]++
			if maxBits < c.len {
				maxBits = c.len
			}
		}
		var nextCodes [maxPrefixBits + 1]uint
		var code uint
		for i := uint8(1); i <= maxBits; i++ {
			code <<= 1
			nextCodes[i] = code
			code += bitCnts[i]
		}
		for _, c := range codes {
			if len(codes) > 1 {
				c.val = reverseBits(uint16(nextCodes[c.len]), uint(c.len))
				nextCodes[c.len]++
			} else {
				c.val, c.len = 0, 0
			}
			pe.chunks[c.sym] = uint32(c.val)<<encoderLenBits | uint32(c.len)
			pe.numSyms++
		}
	} else {
		for _, c := range codes {
			pe.chunks[c.sym] = uint32(c.val)<<encoderLenBits | uint32(c.len)
			pe.numSyms++
		}
	}
}

// Encode returns the prefix code for the given symbol.
func (pe *prefixEncoder) Encode(sym uint) prefixCode {
	chunk := pe.chunks[sym]
	return prefixCode{
		sym: uint16(sym),
		val: uint16(chunk >> encoderLenBits),
		len: uint8(chunk & (1<<encoderLenBits - 1)),
	}
}

// Len returns the code length for the given symbol, which is zero if the
// symbol never appears.
func (pe *prefixEncoder) Len(sym uint) uint {
	return uint(pe.chunks[sym] & (1<<encoderLenBits - 1))
}

// genDepths assigns a length-limited Huffman code length to every symbol with
// a non-zero count. The classic two-queue construction is run over counts
// that are progressively clamped from below until the resulting tree fits
// within maxBits.
func genDepths(counts []uint32, maxBits uint, depths []uint8) {
	type node struct {
		count       uint32
		left, right int // Indices of children, or -1 for leaves
		sym         int
	}

	for i := range depths {
		depths[i] = 0
	}
	var syms []int
	for sym, cnt := range counts {
		if cnt > 0 {
			syms = append(syms, sym)
		}
	}
	switch len(syms) {
	case 0:
		return
	case 1:
		depths[syms[0]] = 1
		return
	}

	for countLimit := uint32(1); ; countLimit *= 2 {
		nodes := make([]node, 0, 2*len(syms))
		for _, sym := range syms {
			cnt := counts[sym]
			if cnt < countLimit {
				cnt = countLimit
			}
			nodes = append(nodes, node{count: cnt, left: -1, right: -1, sym: sym})
		}
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].count < nodes[j].count })

		// Two-queue merge: leaves are pre-sorted, internal nodes are
		// produced in non-decreasing order of count.
		leaves, inner := nodes, []node{}
		pop := func() node {
			if len(inner) == 0 || (len(leaves) > 0 && leaves[0].count <= inner[0].count) {
				n := leaves[0]
				leaves = leaves[1:]
				return n
			}
			n := inner[0]
			inner = inner[1:]
			return n
		}
		all := []node{}
		for len(leaves)+len(inner) > 1 {
			n1, n2 := pop(), pop()
			all = append(all, n1, n2)
			inner = append(inner, node{
				count: n1.count + n2.count,
				left:  len(all) - 2,
				right: len(all) - 1,
			})
		}
		root := pop()
		all = append(all, root)

		// Assign depths by walking down from the root.
		maxDepth := uint(0)
		type item struct {
			idx   int
			depth uint
		}
		stack := []item{{len(all) - 1, 0}}
		for len(stack) > 0 {
			it := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := all[it.idx]
			if n.left < 0 {
				depths[n.sym] = uint8(it.depth)
				if it.depth > maxDepth {
					maxDepth = it.depth
				}
				continue
			}
			stack = append(stack, item{n.left, it.depth + 1}, item{n.right, it.depth + 1})
		}
		if maxDepth <= maxBits {
			return
		}
	}
}

// buildPrefixCodes converts a depth assignment into a sorted code list,
// skipping symbols with no code.
func buildPrefixCodes(depths []uint8) prefixCodes {
	var codes prefixCodes
	for sym, d := range depths {
		if d > 0 {
			codes = append(codes, prefixCode{sym: uint16(sym), len: d})
		}
	}
	return codes
}

// The symbol stream produced when serializing a set of code lengths in the
// complex form of RFC section 3.5. Symbols 16 and 17 carry extra bits.
type treeSym struct {
	sym   uint8
	extra uint8
}

// writeHuffmanTree converts the code lengths into the run-length coded symbol
// stream used by the complex prefix code form.
func writeHuffmanTree(depths []uint8) (syms []treeSym) {
	// Trim trailing zero lengths; the decoder implies them.
	length := len(depths)
	for length > 0 && depths[length-1] == 0 {
		length--
	}

	var prev uint8 = 8 // Initial "previous" length per RFC section 3.5
	for i := 0; i < length; {
		value := depths[i]
		reps := 1
		for i+reps < length && depths[i+reps] == value {
			reps++
		}
		i += reps
		if value == 0 {
			syms = appendZeroRepeats(syms, reps)
		} else {
			syms = appendValueRepeats(syms, value, prev, reps)
			prev = value
		}
	}
	return syms
}

func appendZeroRepeats(syms []treeSym, reps int) []treeSym {
	if reps < 3 {
		for i := 0; i < reps; i++ {
			syms = append(syms, treeSym{sym: 0})
		}
		return syms
	}
	reps -= 3
	start := len(syms)
	for {
		syms = append(syms, treeSym{sym: 17, extra: uint8(reps & 7)})
		reps >>= 3
		if reps == 0 {
			break
		}
		reps--
	}
	reverseTreeSyms(syms[start:])
	return syms
}

func appendValueRepeats(syms []treeSym, value, prev uint8, reps int) []treeSym {
	if value != prev {
		syms = append(syms, treeSym{sym: value})
		reps--
	}
	if reps < 3 {
		for i := 0; i < reps; i++ {
			syms = append(syms, treeSym{sym: value})
		}
		return syms
	}
	reps -= 3
	start := len(syms)
	for {
		syms = append(syms, treeSym{sym: 16, extra: uint8(reps & 3)})
		reps >>= 2
		if reps == 0 {
			break
		}
		reps--
	}
	reverseTreeSyms(syms[start:])
	return syms
}

func reverseTreeSyms(syms []treeSym) {
	for i, j := 0, len(syms)-1; i < j; i, j = i+1, j-1 {
		syms[i], syms[j] = syms[j], syms[i]
	}
}

// buildAndStoreHuffmanTree computes a length-limited prefix code for the
// histogram, writes it in either the simple or complex wire form, and
// initializes pe for encoding symbols with the stored code.
func buildAndStoreHuffmanTree(bw *bitWriter, counts []uint32, maxBits uint, pe *prefixEncoder) {
	depths := make([]uint8, len(counts))
	genDepths(counts, maxBits, depths)

	var syms []uint16
	for sym, d := range depths {
		if d > 0 {
			syms = append(syms, uint16(sym))
		}
	}
	if len(syms) == 0 {
		// The tree is never used (e.g., a meta-block without distances),
		// but the format still requires one; store a placeholder.
		depths[0] = 1
		syms = append(syms, 0)
	}
	switch {
	case len(syms) <= 4:
		storeSimpleHuffmanTree(bw, counts, depths, syms, len(counts))
	default:
		storeComplexHuffmanTree(bw, depths)
	}
	codes := buildPrefixCodes(depths)
	if len(syms) == 1 {
		// A one-symbol code is written with zero bits.
		codes = prefixCodes{{sym: syms[0]}}
	}
	pe.Init(codes, true)
}

// storeSimpleHuffmanTree stores a prefix code of at most four symbols in the
// simple form of RFC section 3.4. The depths of the symbols are recomputed to
// match one of the fixed simple-code depth patterns.
func storeSimpleHuffmanTree(bw *bitWriter, counts []uint32, depths []uint8, syms []uint16, alphabetSize int) {
	// Order symbols so that more frequent ones come first; the fixed depth
	// patterns assign the shortest code to the first listed symbol.
	sort.SliceStable(syms, func(i, j int) bool { return counts[syms[i]] > counts[syms[j]] })

	alphabetBits := log2Floor(uint32(alphabetSize-1)) + 1

	bw.WriteBits(2, 1) // HSKIP of one indicates a simple code
	bw.WriteBits(2, uint64(len(syms)-1))

	var lens []uint
	var treeSelect bool
	switch len(syms) {
	case 1:
		lens = simpleLens1[:]
	case 2:
		lens = simpleLens2[:]
	case 3:
		lens = simpleLens3[:]
	case 4:
		// Choose between the flat and skewed four-symbol trees by cost.
		flat := 2 * (counts[syms[0]] + counts[syms[1]] + counts[syms[2]] + counts[syms[3]])
		skew := 1*counts[syms[0]] + 2*counts[syms[1]] + 3*(counts[syms[2]]+counts[syms[3]])
		treeSelect = skew < flat
		if treeSelect {
			lens = simpleLens4b[:]
		} else {
			lens = simpleLens4a[:]
		}
	}
	for i, sym := range syms {
		depths[sym] = uint8(lens[i])
	}

	// The decoder sorts the symbols within each equal-depth group, so the
	// listed order within a group is canonicalized to be ascending.
	for i := range syms {
		for j := i; j > 0 && lens[j-1] == lens[j] && syms[j-1] > syms[j]; j-- {
			syms[j-1], syms[j] = syms[j], syms[j-1]
		}
	}
	for _, sym := range syms {
		bw.WriteBits(alphabetBits, uint64(sym))
	}
	if len(syms) == 4 {
		bw.WriteBits(1, uint64(btoi(treeSelect)))
	}
}

// storeComplexHuffmanTree stores a prefix code in the complex form of
// RFC section 3.5: the code lengths are run-length coded and that symbol
// stream is itself prefix coded with the fixed code-length code.
func storeComplexHuffmanTree(bw *bitWriter, depths []uint8) {
	syms := writeHuffmanTree(depths)

	var clenCounts [len(complexLens)]uint32
	for _, ts := range syms {
		clenCounts[ts.sym]++
	}
	var clenDepths [len(complexLens)]uint8
	genDepths(clenCounts[:], 5, clenDepths[:])

	var clenEnc prefixEncoder
	clenEnc.Init(buildPrefixCodes(clenDepths[:]), true)

	// Emit the lengths of the code-length code in the fixed order, stopping
	// as soon as its code space is complete.
	bw.WriteBits(2, 0) // HSKIP of zero
	space, numCodes := 0, 0
	for _, sym := range complexLens {
		clen := uint(clenDepths[sym])
		bw.WriteSymbol(clen, &encCLens)
		if clen > 0 {
			space += 32 >> clen
			numCodes++
			if space >= 32 {
				break
			}
		}
	}

	for _, ts := range syms {
		bw.WriteSymbol(uint(ts.sym), &clenEnc)
		switch ts.sym {
		case 16:
			bw.WriteBits(2, uint64(ts.extra))
		case 17:
			bw.WriteBits(3, uint64(ts.extra))
		}
	}
}
