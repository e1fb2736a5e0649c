// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// A metaBlock collects everything needed to emit one meta-block: the block
// splits of the three symbol streams, the context maps, and the histograms
// that the prefix trees are built from.
type metaBlock struct {
	litSplit  blockSplit
	cmdSplit  blockSplit
	distSplit blockSplit

	litCtxMode uint8   // Context mode shared by all literal block types
	litCtxMap  []uint8 // numLitTypes * numLitContexts entries
	distCtxMap []uint8 // numDistTypes * numDistContexts entries

	litHistograms  []histogram
	cmdHistograms  []histogram
	distHistograms []histogram
}

// Static context maps from the UTF8-prefix bigram analysis; they group the
// 64 literal contexts into two or three coarser classes.
var (
	staticCtxMapSimpleUTF8 = [numLitContexts]uint8{
		0, 0, 1, 1, // Rest are zero
	}
	staticCtxMapContinuation = [numLitContexts]uint8{
		1, 1, 2, 2, // Rest are zero
	}
)

// chooseContextMap decides the literal context grouping based on how well
// the UTF8 prefix of the previous byte predicts the next byte, measured as
// Shannon entropy over sampled bigrams.
func chooseContextMap(quality int, bigramHisto *[9]uint32) (numGroups int, ctxMap *[numLitContexts]uint8) {
	var monogram [3]uint32
	var twoPrefix [6]uint32
	var total uint32
	for i, c := range bigramHisto {
		total += c
		monogram[i%3] += c
		j := i
		if j >= 6 {
			j -= 6
		}
		twoPrefix[j] += c
	}

	var entropy [4]float64
	entropy[1] = bitsEntropy(monogram[:])
	entropy[2] = bitsEntropy(twoPrefix[:3]) + bitsEntropy(twoPrefix[3:])
	for i := 0; i < 3; i++ {
		entropy[3] += bitsEntropy(bigramHisto[3*i : 3*i+3])
	}

	if total == 0 {
		return 1, nil
	}
	norm := 1.0 / float64(total)
	entropy[1] *= norm
	entropy[2] *= norm
	entropy[3] *= norm

	if quality < 7 {
		// Three context models is a bit slower; don't use it at lower
		// qualities.
		entropy[3] = entropy[1] * 10
	}
	// If the expected savings are less than 0.2 bits per symbol, skip the
	// context modeling in exchange for faster decoding.
	switch {
	case entropy[1]-entropy[2] < 0.2 && entropy[1]-entropy[3] < 0.2:
		return 1, nil
	case entropy[2]-entropy[3] < 0.02:
		return 2, &staticCtxMapSimpleUTF8
	default:
		return 3, &staticCtxMapContinuation
	}
}

// sampleBigramHisto gathers bigram data of the UTF8 byte prefixes over
// 64-byte strides at 4 KiB intervals.
func sampleBigramHisto(data []byte, mask int, pos int64, length int) (histo [9]uint32) {
	lut := [4]int{0, 0, 1, 2}
	for start := 0; start+64 <= length; start += 4096 {
		prev := lut[data[(int(pos)+start)&mask]>>6] * 3
		for i := start + 1; i < start+64; i++ {
			b := data[(int(pos)+i)&mask]
			histo[prev+lut[b>>6]]++
			prev = lut[b>>6] * 3
		}
	}
	return histo
}

// copyLiteralsToByteArray gathers the literal bytes of all commands.
func copyLiteralsToByteArray(cmds []command, data []byte, pos int64, mask int) []byte {
	var total int
	for i := range cmds {
		total += cmds[i].insertLen
	}
	literals := make([]byte, 0, total)
	p := int(pos)
	for i := range cmds {
		for j := 0; j < cmds[i].insertLen; j++ {
			literals = append(literals, data[p&mask])
			p++
		}
		p += cmds[i].cpyLen
	}
	return literals
}

// copyCommandsToStreams gathers the insert-and-copy and distance prefix
// symbol streams.
func copyCommandsToStreams(cmds []command) (iacSyms, distSyms []uint16) {
	for i := range cmds {
		iacSyms = append(iacSyms, cmds[i].cmdPrefix)
		if cmds[i].writesDistance() {
			distSyms = append(distSyms, cmds[i].distPrefix)
		}
	}
	return iacSyms, distSyms
}

// buildMetaBlockTrivial produces a meta-block with a single block type per
// stream and no context modeling. Used by the low-quality paths.
func buildMetaBlockTrivial(cmds []command, data []byte, pos int64, mask int) *metaBlock {
	mb := &metaBlock{
		litSplit:   blockSplit{numTypes: 1},
		cmdSplit:   blockSplit{numTypes: 1},
		distSplit:  blockSplit{numTypes: 1},
		litCtxMode: contextLSB6,
		litCtxMap:  make([]uint8, numLitContexts),
		distCtxMap: make([]uint8, numDistContexts),
	}
	mb.litHistograms = []histogram{newHistogram(numLitSyms)}
	mb.cmdHistograms = []histogram{newHistogram(numInsSyms)}
	mb.distHistograms = []histogram{newHistogram(maxNumDistSyms)}

	for _, b := range copyLiteralsToByteArray(cmds, data, pos, mask) {
		mb.litHistograms[0].Add(uint16(b))
	}
	iacSyms, distSyms := copyCommandsToStreams(cmds)
	mb.cmdHistograms[0].AddSlice(iacSyms)
	mb.distHistograms[0].AddSlice(distSyms)
	return mb
}

// buildMetaBlock runs the block splitter over the three symbol streams and
// attaches context modeling for the literal stream.
func buildMetaBlock(cmds []command, data []byte, pos int64, mask int, length int, quality int) *metaBlock {
	literals := copyLiteralsToByteArray(cmds, data, pos, mask)
	iacSyms, distSyms := copyCommandsToStreams(cmds)

	litStream := make([]uint16, len(literals))
	for i, b := range literals {
		litStream[i] = uint16(b)
	}

	mb := &metaBlock{
		litSplit:  splitBlock(litStream, litSplitParams),
		cmdSplit:  splitBlock(iacSyms, cmdSplitParams),
		distSplit: splitBlock(distSyms, distSplitParams),
	}

	// Decide the literal context mode and grouping.
	mb.litCtxMode = contextUTF8
	numGroups := 1
	var groupMap *[numLitContexts]uint8
	if !isMostlyUTF8(literals, 0.75) {
		mb.litCtxMode = contextSigned
	} else if quality >= 5 && length >= 64 {
		histo := sampleBigramHisto(data, mask, pos, length)
		numGroups, groupMap = chooseContextMap(quality, &histo)
	}
	if mb.litSplit.numTypes*numGroups > 256 {
		numGroups, groupMap = 1, nil
	}

	// Expand the grouping into the full context map.
	mb.litCtxMap = make([]uint8, mb.litSplit.numTypes*numLitContexts)
	for t := 0; t < mb.litSplit.numTypes; t++ {
		for c := 0; c < numLitContexts; c++ {
			group := 0
			if groupMap != nil {
				group = int(groupMap[c])
			}
			mb.litCtxMap[t*numLitContexts+c] = uint8(t*numGroups + group)
		}
	}
	mb.distCtxMap = make([]uint8, mb.distSplit.numTypes*numDistContexts)
	for t := 0; t < mb.distSplit.numTypes; t++ {
		for c := 0; c < numDistContexts; c++ {
			mb.distCtxMap[t*numDistContexts+c] = uint8(t)
		}
	}

	mb.litHistograms = makeHistograms(mb.litSplit.numTypes*numGroups, numLitSyms)
	mb.cmdHistograms = makeHistograms(mb.cmdSplit.numTypes, numInsSyms)
	mb.distHistograms = makeHistograms(mb.distSplit.numTypes, maxNumDistSyms)
	fillHistograms(mb, cmds, data, pos, mask)
	return mb
}

func makeHistograms(n, alphabetSize int) []histogram {
	hs := make([]histogram, n)
	for i := range hs {
		hs[i] = newHistogram(alphabetSize)
	}
	return hs
}

// splitIterator walks a blockSplit along its symbol stream.
type splitIterator struct {
	split *blockSplit
	idx   int
	rem   uint32
}

func newSplitIterator(split *blockSplit) splitIterator {
	it := splitIterator{split: split}
	if len(split.lengths) > 0 {
		it.rem = split.lengths[0]
	} else {
		it.rem = 1 << 28
	}
	return it
}

// Next advances by one symbol and returns the block type coding it.
func (it *splitIterator) Next() int {
	for it.rem == 0 && it.idx+1 < len(it.split.lengths) {
		it.idx++
		it.rem = it.split.lengths[it.idx]
	}
	if it.rem > 0 {
		it.rem--
	}
	if len(it.split.types) == 0 {
		return 0
	}
	return int(it.split.types[it.idx])
}

// fillHistograms walks the commands exactly as the emitter will, counting
// every symbol into the histogram its tree will be built from.
func fillHistograms(mb *metaBlock, cmds []command, data []byte, pos int64, mask int) {
	litIt := newSplitIterator(&mb.litSplit)
	cmdIt := newSplitIterator(&mb.cmdSplit)
	distIt := newSplitIterator(&mb.distSplit)

	p := int(pos)
	p1, p2 := byte(0), byte(0)
	if pos > 0 {
		p1 = data[(p-1)&mask]
	}
	if pos > 1 {
		p2 = data[(p-2)&mask]
	}
	for i := range cmds {
		cmd := &cmds[i]
		cmdType := cmdIt.Next()
		mb.cmdHistograms[cmdType].Add(cmd.cmdPrefix)
		for j := 0; j < cmd.insertLen; j++ {
			litType := litIt.Next()
			b := data[p&mask]
			ctx := contextP1LUT[int(p1)+256*int(mb.litCtxMode)] | contextP2LUT[int(p2)+256*int(mb.litCtxMode)]
			mb.litHistograms[mb.litCtxMap[litType*numLitContexts+int(ctx)]].Add(uint16(b))
			p1, p2 = b, p1
			p++
		}
		p += cmd.cpyLen
		if cmd.cpyLen > 0 {
			p1, p2 = data[(p-1)&mask], data[(p-2)&mask]
			if cmd.writesDistance() {
				distType := distIt.Next()
				ctx := distContext(cmd.cpyLenCode)
				mb.distHistograms[mb.distCtxMap[distType*numDistContexts+ctx]].Add(cmd.distPrefix)
			}
		}
	}
}

// blockSplitCode is the write-side state for one stream's block splitting:
// the stored type and length trees plus the position within the split.
type blockSplitCode struct {
	split   *blockSplit
	typeEnc prefixEncoder
	lenEnc  prefixEncoder

	idx      int    // Index of the current block
	rem      uint32 // Symbols remaining in the current block
	lastType int    // Last block type used
	prevType int    // Second to last block type used
}

// typeCodeFor computes the block-type symbol for switching to type t.
func (c *blockSplitCode) typeCodeFor(t int) uint {
	switch {
	case t == c.prevType:
		return 0
	case t == (c.lastType+1)%c.split.numTypes:
		return 1
	default:
		return uint(t) + 2
	}
}

func (c *blockSplitCode) advanceType(t int) {
	c.prevType, c.lastType = c.lastType, t
}

// buildAndStoreBlockSplitCode writes the block-split code of one stream:
// the number of types and, when more than one, the type and length trees
// plus the first block length.
func buildAndStoreBlockSplitCode(bw *bitWriter, split *blockSplit) *blockSplitCode {
	c := &blockSplitCode{split: split, lastType: 0, prevType: 1}
	bw.WriteSymbol(uint(split.numTypes), &encCounts)
	if split.numTypes == 1 {
		c.rem = 1 << 28
		return c
	}

	// Histogram the type and length code symbols of the whole split.
	typeCounts := make([]uint32, split.numTypes+2)
	lenCounts := make([]uint32, numBlkCntSyms)
	sim := blockSplitCode{split: split, lastType: 0, prevType: 1}
	for i, length := range split.lengths {
		if i > 0 {
			typeCounts[sim.typeCodeFor(int(split.types[i]))]++
			sim.advanceType(int(split.types[i]))
		}
		lenCounts[blkLenRanges.Index(length)]++
	}

	buildAndStoreHuffmanTree(bw, typeCounts, maxPrefixBits, &c.typeEnc)
	buildAndStoreHuffmanTree(bw, lenCounts, maxPrefixBits, &c.lenEnc)
	writeBlockLength(bw, split.lengths[0], &c.lenEnc)
	c.rem = split.lengths[0]
	return c
}

func writeBlockLength(bw *bitWriter, length uint32, lenEnc *prefixEncoder) {
	sym := blkLenRanges.Index(length)
	bw.WriteSymbol(sym, lenEnc)
	rc := blkLenRanges[sym]
	bw.WriteBits(uint(rc.bits), uint64(length-rc.base))
}

// next consumes one symbol of the stream, writing a block-switch command
// whenever the current block is exhausted.
func (c *blockSplitCode) next(bw *bitWriter) int {
	if c.rem == 0 && c.idx+1 < len(c.split.lengths) {
		c.idx++
		t := int(c.split.types[c.idx])
		bw.WriteSymbol(c.typeCodeFor(t), &c.typeEnc)
		writeBlockLength(bw, c.split.lengths[c.idx], &c.lenEnc)
		c.advanceType(t)
		c.rem = c.split.lengths[c.idx]
	}
	c.rem--
	if len(c.split.types) == 0 {
		return 0
	}
	return int(c.split.types[c.idx])
}

// encodeContextMap writes a context map: the tree count, and when more than
// one tree is used, the move-to-front transformed values with zero runs
// run-length coded. RFC section 7.3.
func encodeContextMap(bw *bitWriter, cm []uint8, numTrees int) {
	bw.WriteSymbol(uint(numTrees), &encCounts)
	if numTrees == 1 {
		return
	}

	mtfd := append([]uint8(nil), cm...)
	var mtf moveToFront
	mtf.Encode(mtfd)

	// Choose the RLE cap from the longest zero run.
	maxRun := 0
	for i := 0; i < len(mtfd); {
		j := i
		for j < len(mtfd) && mtfd[j] == 0 {
			j++
		}
		if j-i > maxRun {
			maxRun = j - i
		}
		if j == i {
			j++
		}
		i = j
	}
	rleMax := 0
	for maxRun >= 2 && rleMax < 16 && 1<<(rleMax+1) <= maxRun {
		rleMax++
	}
	if maxRun >= 2 && rleMax == 0 {
		rleMax = 1
	}

	// Convert to the symbol stream.
	type mapSym struct {
		sym   uint16
		bits  uint8
		extra uint32
	}
	var syms []mapSym
	for i := 0; i < len(mtfd); {
		if mtfd[i] != 0 {
			syms = append(syms, mapSym{sym: uint16(mtfd[i]) + uint16(rleMax)})
			i++
			continue
		}
		run := 0
		for i+run < len(mtfd) && mtfd[i+run] == 0 {
			run++
		}
		i += run
		for run > 0 {
			if run == 1 || rleMax == 0 {
				syms = append(syms, mapSym{sym: 0})
				run--
				continue
			}
			s := rleMax
			for 1<<s > run {
				s--
			}
			chunk := minInt(run, 1<<(s+1)-1)
			syms = append(syms, mapSym{sym: uint16(s), bits: uint8(s), extra: uint32(chunk - 1<<s)})
			run -= chunk
		}
	}

	bw.WriteSymbol(uint(rleMax), &encMaxRLE)
	counts := make([]uint32, numTrees+rleMax)
	for _, s := range syms {
		counts[s.sym]++
	}
	var enc prefixEncoder
	buildAndStoreHuffmanTree(bw, counts, maxPrefixBits, &enc)
	for _, s := range syms {
		bw.WriteSymbol(uint(s.sym), &enc)
		if s.bits > 0 {
			bw.WriteBits(uint(s.bits), uint64(s.extra))
		}
	}
	bw.WriteBits(1, 1) // Use the inverse move-to-front transform
}

// storeMetaBlockHeader writes ISLAST, MLEN, and the ISUNCOMPRESSED flag.
func storeMetaBlockHeader(bw *bitWriter, length int, isLast, isUncompressed bool) {
	bw.WriteBits(1, uint64(btoi(isLast)))
	if isLast {
		bw.WriteBits(1, 0) // ISLASTEMPTY
	}

	var nibbles uint
	switch {
	case length <= 1<<16:
		nibbles = 4
	case length <= 1<<20:
		nibbles = 5
	default:
		nibbles = 6
	}
	bw.WriteBits(2, uint64(nibbles-4))
	bw.WriteBits(nibbles*4, uint64(length-1))

	if !isLast {
		bw.WriteBits(1, uint64(btoi(isUncompressed)))
	}
}

// storeUncompressedMetaBlock emits the meta-block as raw bytes.
func storeUncompressedMetaBlock(bw *bitWriter, data []byte, pos int64, mask int, length int) {
	storeMetaBlockHeader(bw, length, false, true)
	bw.WritePads()
	p := int(pos)
	for i := 0; i < length; i++ {
		bw.WriteBits(8, uint64(data[p&mask]))
		p++
	}
}

// storeEmptyLastMetaBlock terminates the stream.
func storeEmptyLastMetaBlock(bw *bitWriter) {
	bw.WriteBits(2, 3) // ISLAST and ISLASTEMPTY
	bw.WritePads()
}

// storeEmptyMetadataBlock emits a zero-length metadata meta-block, which
// serves as the byte-aligning flush frame.
func storeEmptyMetadataBlock(bw *bitWriter) {
	bw.WriteBits(1, 0) // ISLAST
	bw.WriteBits(2, 3) // MNIBBLES of zero indicates metadata
	bw.WriteBits(1, 0) // Reserved
	bw.WriteBits(2, 0) // MSKIPBYTES
	bw.WritePads()
}

// storeMetaBlock writes a complete compressed meta-block.
func storeMetaBlock(bw *bitWriter, data []byte, pos int64, mask int, length int,
	isLast bool, mb *metaBlock, cmds []command) {

	storeMetaBlockHeader(bw, length, isLast, false)

	litCode := buildAndStoreBlockSplitCode(bw, &mb.litSplit)
	cmdCode := buildAndStoreBlockSplitCode(bw, &mb.cmdSplit)
	distCode := buildAndStoreBlockSplitCode(bw, &mb.distSplit)

	bw.WriteBits(2, 0) // NPOSTFIX
	bw.WriteBits(4, 0) // NDIRECT >> NPOSTFIX

	for t := 0; t < mb.litSplit.numTypes; t++ {
		bw.WriteBits(2, uint64(mb.litCtxMode))
	}

	encodeContextMap(bw, mb.litCtxMap, len(mb.litHistograms))
	encodeContextMap(bw, mb.distCtxMap, len(mb.distHistograms))

	litEncs := make([]prefixEncoder, len(mb.litHistograms))
	for i := range litEncs {
		buildAndStoreHuffmanTree(bw, mb.litHistograms[i].counts, maxPrefixBits, &litEncs[i])
	}
	cmdEncs := make([]prefixEncoder, len(mb.cmdHistograms))
	for i := range cmdEncs {
		buildAndStoreHuffmanTree(bw, mb.cmdHistograms[i].counts, maxPrefixBits, &cmdEncs[i])
	}
	distEncs := make([]prefixEncoder, len(mb.distHistograms))
	for i := range distEncs {
		// With NPOSTFIX and NDIRECT of zero the distance alphabet has 16+48 symbols.
		buildAndStoreHuffmanTree(bw, mb.distHistograms[i].counts[:numDistShortCodes+48], maxPrefixBits, &distEncs[i])
	}

	p := int(pos)
	p1, p2 := byte(0), byte(0)
	if pos > 0 {
		p1 = data[(p-1)&mask]
	}
	if pos > 1 {
		p2 = data[(p-2)&mask]
	}
	for i := range cmds {
		cmd := &cmds[i]
		cmdType := cmdCode.next(bw)
		bw.WriteSymbol(uint(cmd.cmdPrefix), &cmdEncs[cmdType])

		// Insert and copy extra bits.
		info := iacLUT[cmd.cmdPrefix]
		insRC := insLenRanges[info.insSym]
		bw.WriteBits(uint(insRC.bits), uint64(uint32(cmd.insertLen)-insRC.base))
		cpyRC := cpyLenRanges[info.cpySym]
		bw.WriteBits(uint(cpyRC.bits), uint64(uint32(cmd.cpyLenCode)-cpyRC.base))

		for j := 0; j < cmd.insertLen; j++ {
			litType := litCode.next(bw)
			b := data[p&mask]
			ctx := contextP1LUT[int(p1)+256*int(mb.litCtxMode)] | contextP2LUT[int(p2)+256*int(mb.litCtxMode)]
			bw.WriteSymbol(uint(b), &litEncs[mb.litCtxMap[litType*numLitContexts+int(ctx)]])
			p1, p2 = b, p1
			p++
		}
		p += cmd.cpyLen
		if cmd.cpyLen > 0 {
			p1, p2 = data[(p-1)&mask], data[(p-2)&mask]
			if cmd.writesDistance() {
				distType := distCode.next(bw)
				ctx := distContext(cmd.cpyLenCode)
				bw.WriteSymbol(uint(cmd.distPrefix), &distEncs[mb.distCtxMap[distType*numDistContexts+ctx]])
				if cmd.distBits > 0 {
					bw.WriteBits(uint(cmd.distBits), uint64(cmd.distExtra))
				}
			}
		}
	}
}
