// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

import (
	"bytes"
	"io"

	"github.com/dsnet/brotli/internal/errors"
)

type ReaderConfig struct {
	_ struct{} // Blank field to prevent unkeyed struct literals

	// CustomDict primes the sliding window with a preset dictionary.
	// It must match the dictionary the stream was compressed with.
	CustomDict []byte

	// SaveRecovery instructs the Reader to record the recovered backward
	// references and block splits while decoding, for later use with the
	// similarity re-use path. See the Recovery type.
	SaveRecovery bool
}

// The stage of the command currently being decoded.
const (
	cmdBegin  = iota // Read the next insert-and-copy symbol
	cmdInsert        // Emitting literals of the insert length
	cmdDist          // Read the distance and resolve the copy source
	cmdCopy          // Copying bytes within the sliding window
	cmdWord          // Emitting a transformed dictionary word
)

// blockDecoder maintains the block type and remaining block length for one of
// the three symbol streams of a meta-block. RFC section 6.
type blockDecoder struct {
	numTypes int
	curType  int
	prevType int // Second to last block type used
	typeLen  int // Symbols remaining in the current block
	decType  prefixDecoder
	decLen   prefixDecoder
}

func (bd *blockDecoder) init(numTypes int) {
	bd.numTypes = numTypes
	bd.curType, bd.prevType = 0, 1
	bd.typeLen = 1 << 28 // Effectively unlimited when there is a single type
}

// readSwitch reads a block-switch command, updating the current block type
// and length.
func (bd *blockDecoder) readSwitch(rd *bitReader) {
	sym := rd.ReadSymbol(&bd.decType)
	var newType int
	switch sym {
	case 0:
		newType = bd.prevType
	case 1:
		newType = (bd.curType + 1) % bd.numTypes
	default:
		newType = int(sym) - 2
	}
	if newType >= bd.numTypes {
		panicf(errors.Corrupted, "block type out of range: %d", newType)
	}
	bd.prevType, bd.curType = bd.curType, newType
	lenSym := rd.ReadSymbol(&bd.decLen)
	if lenSym >= numBlkCntSyms {
		panicf(errors.Corrupted, "block count symbol out of range: %d", lenSym)
	}
	bd.typeLen = int(rd.ReadOffset(lenSym, blkLenRanges))
	if bd.typeLen == 0 {
		panicf(errors.Corrupted, "zero block length")
	}
}

type Reader struct {
	InputOffset  int64 // Total number of bytes read from underlying io.Reader
	OutputOffset int64 // Total number of bytes emitted from Read

	rd     bitReader // Input source
	step   func()    // Single step of decompression work (can panic)
	toRead []byte    // Uncompressed data ready to be emitted from Read
	dict   dictDecoder
	last   bool  // Last block bit detected
	err    error // Persistent error

	wbits   uint  // Sliding window bits from the stream header
	winSize int   // Usable window size: (1 << wbits) - 16
	blkLen  int   // Uncompressed bytes left to produce in the meta-block
	pos     int64 // Total number of uncompressed bytes produced

	// Meta-block entropy state.
	litBlk, iacBlk, distBlk blockDecoder
	npostfix, ndirect       uint
	ctxModes                []uint8
	cmapL, cmapD            []uint8
	trivialCtx              bool // Every literal block type maps to one tree
	numDistSyms             int
	litTrees                []prefixDecoder
	iacTrees                []prefixDecoder
	distTrees               []prefixDecoder
	mtf                     moveToFront

	distRing [4]int // Most recent distances, most recent first

	// In-progress command state.
	cmdStage int
	insLen   int
	cpyLen   int
	cpyRem   int
	dist     int
	distZero bool
	word     []byte
	wordArr  [maxWordSize]byte

	rec *Recovery // Non-nil when recording recovery information

	custDict []byte

	// Scratch buffers reused between meta-blocks.
	lensArr  []uint8
	metadata [512]byte
}

// NewReader creates a Reader that decompresses from r.
// If conf is nil, the default configuration is used.
func NewReader(r io.Reader, conf *ReaderConfig) (*Reader, error) {
	br := new(Reader)
	if conf != nil {
		br.custDict = conf.CustomDict
		if conf.SaveRecovery {
			br.rec = new(Recovery)
		}
	}
	br.Reset(r)
	return br, nil
}

func (br *Reader) Read(buf []byte) (int, error) {
	for {
		if len(br.toRead) > 0 {
			cnt := copy(buf, br.toRead)
			br.toRead = br.toRead[cnt:]
			br.OutputOffset += int64(cnt)
			return cnt, nil
		}
		if br.err != nil {
			return 0, br.err
		}

		// Perform next step in decompression process.
		func() {
			defer errors.Recover(&br.err)
			br.step()
		}()
		br.InputOffset = br.rd.offset
	}
}

func (br *Reader) Close() error {
	if br.err == io.EOF || br.err == ErrClosed {
		br.toRead = nil
		br.err = ErrClosed
		return nil
	}
	return br.err
}

func (br *Reader) Reset(r io.Reader) error {
	*br = Reader{
		step:     br.readStreamHeader,
		dict:     br.dict,
		rec:      br.rec,
		custDict: br.custDict,
		lensArr:  br.lensArr,
		ctxModes: br.ctxModes,
		cmapL:    br.cmapL,
		cmapD:    br.cmapD,
	}
	if br.rec != nil {
		*br.rec = Recovery{}
	}
	br.rd.Init(r)
	return nil
}

// Recovery returns the recovered stream information. It is only populated
// after the stream has been fully decoded, and only if the Reader was
// configured with SaveRecovery set.
func (br *Reader) Recovery() *Recovery {
	return br.rec
}

// flushDict stages the decoded window contents for emission from Read.
func (br *Reader) flushDict() {
	br.toRead = br.dict.ReadFlush()
	if br.rec != nil {
		br.rec.Output = append(br.rec.Output, br.toRead...)
	}
}

// readStreamHeader reads the Brotli stream header according to RFC section 9.1.
func (br *Reader) readStreamHeader() {
	wbits := uint(br.rd.ReadSymbol(&decWinBits))
	if wbits == 0 {
		panicf(errors.Corrupted, "invalid window bits") // Code is "1000100"
	}
	br.wbits = wbits
	br.winSize = 1<<wbits - 16
	br.dict.Init(br.winSize, br.custDict)
	br.distRing = [4]int{4, 11, 15, 16}
	if br.rec != nil {
		br.rec.WinBits = wbits
	}
	br.step = br.readBlockHeader
}

// readBlockHeader reads a meta-block header according to RFC section 9.2.
func (br *Reader) readBlockHeader() {
	if br.last {
		if br.rd.ReadPads() > 0 {
			panicf(errors.Corrupted, "non-zero padding bits")
		}
		errors.Panic(io.EOF)
	}

	// Read ISLAST and ISLASTEMPTY.
	if br.last = br.rd.ReadBits(1) == 1; br.last {
		if empty := br.rd.ReadBits(1) == 1; empty {
			br.step = br.readBlockHeader // Next call will terminate stream
			return
		}
	}

	// Read MLEN and MNIBBLES and process meta data.
	var blkLen int // Valid values are [1..1<<24]
	if nibbles := br.rd.ReadBits(2) + 4; nibbles == 7 {
		if reserved := br.rd.ReadBits(1) == 1; reserved {
			panicf(errors.Corrupted, "reserved bit is set")
		}

		var skipLen int // Valid values are [0..1<<24]
		if skipBytes := br.rd.ReadBits(2); skipBytes > 0 {
			skipLen = int(br.rd.ReadBits(skipBytes * 8))
			if skipBytes > 1 && skipLen>>((skipBytes-1)*8) == 0 {
				panicf(errors.Corrupted, "exuberant skip length")
			}
			skipLen++
		}

		if br.rd.ReadPads() > 0 {
			panicf(errors.Corrupted, "non-zero padding bits")
		}
		br.blkLen = skipLen
		br.step = br.skipMetadata
		return
	} else {
		blkLen = int(br.rd.ReadBits(nibbles * 4))
		if nibbles > 4 && blkLen>>((nibbles-1)*4) == 0 {
			panicf(errors.Corrupted, "exuberant meta-block length")
		}
		blkLen++
	}
	br.blkLen = blkLen

	// Read ISUNCOMPRESSED and process uncompressed data.
	if !br.last {
		if uncompressed := br.rd.ReadBits(1) == 1; uncompressed {
			if br.rd.ReadPads() > 0 {
				panicf(errors.Corrupted, "non-zero padding bits")
			}
			br.litBlk.init(1)
			br.iacBlk.init(1)
			if br.rec != nil {
				br.rec.openBlocks(br)
			}
			br.step = br.readRawData
			return
		}
	}

	br.readPrefixCodes()
	if br.rec != nil {
		br.rec.openBlocks(br)
	}
	br.cmdStage = cmdBegin
	br.step = br.readCommands
}

// skipMetadata skips over the contents of a metadata meta-block.
func (br *Reader) skipMetadata() {
	for br.blkLen > 0 {
		buf := br.metadata[:]
		if br.blkLen < len(buf) {
			buf = buf[:br.blkLen]
		}
		cnt, err := io.ReadFull(&br.rd, buf)
		br.blkLen -= cnt
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			errors.Panic(err)
		}
	}
	br.step = br.readBlockHeader
}

// readRawData reads an uncompressed meta-block according to RFC section 9.2.
func (br *Reader) readRawData() {
	for br.blkLen > 0 {
		if br.dict.AvailWrite() == 0 {
			br.flushDict()
			return // Step will resume here
		}
		blk := br.dict.WriteSlice()
		if br.blkLen < len(blk) {
			blk = blk[:br.blkLen]
		}
		cnt, err := br.rd.Read(blk)
		br.dict.WriteMark(cnt)
		br.blkLen -= cnt
		br.pos += int64(cnt)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			errors.Panic(err)
		}
	}
	if br.rec != nil {
		br.rec.closeBlocks(br)
	}
	br.flushDict()
	br.step = br.readBlockHeader
}

// readPrefixCodes reads the meta-block header fields following the length:
// the block-split codes, distance parameters, context maps, and the prefix
// tree groups. RFC section 9.2.
func (br *Reader) readPrefixCodes() {
	rd := &br.rd

	// Read block-split codes for each of the three stream categories.
	for _, bd := range []*blockDecoder{&br.litBlk, &br.iacBlk, &br.distBlk} {
		numTypes := int(rd.ReadSymbol(&decCounts))
		bd.init(numTypes)
		if numTypes >= 2 {
			br.readHuffmanCode(numTypes+2, &bd.decType)
			br.readHuffmanCode(numBlkCntSyms, &bd.decLen)
			bd.typeLen = int(rd.ReadOffset(rd.ReadSymbol(&bd.decLen), blkLenRanges))
		}
	}

	// Read NPOSTFIX and NDIRECT distance parameters.
	br.npostfix = rd.ReadBits(2)
	br.ndirect = rd.ReadBits(4) << br.npostfix
	br.numDistSyms = 16 + int(br.ndirect) + 48<<br.npostfix
	numDistSyms := br.numDistSyms

	// Read context modes for each literal block type.
	br.ctxModes = allocUint8s(br.ctxModes, br.litBlk.numTypes)
	for i := range br.ctxModes {
		br.ctxModes[i] = uint8(rd.ReadBits(2))
	}

	// Read context maps for the literal and distance streams.
	br.cmapL = allocUint8s(br.cmapL, numLitContexts*br.litBlk.numTypes)
	numLitTrees := br.readContextMap(br.cmapL)
	br.trivialCtx = true
	for i := 0; i < len(br.cmapL); i += numLitContexts {
		for _, tree := range br.cmapL[i+1 : i+numLitContexts] {
			if tree != br.cmapL[i] {
				br.trivialCtx = false
			}
		}
	}

	br.cmapD = allocUint8s(br.cmapD, numDistContexts*br.distBlk.numTypes)
	numDistTrees := br.readContextMap(br.cmapD)

	// Read the prefix tree groups.
	br.litTrees = br.readTreeGroup(br.litTrees, numLitTrees, numLitSyms)
	br.iacTrees = br.readTreeGroup(br.iacTrees, br.iacBlk.numTypes, numInsSyms)
	br.distTrees = br.readTreeGroup(br.distTrees, numDistTrees, numDistSyms)
}

func (br *Reader) readTreeGroup(trees []prefixDecoder, numTrees, maxSyms int) []prefixDecoder {
	if cap(trees) < numTrees {
		trees = append(trees[:cap(trees)], make([]prefixDecoder, numTrees-cap(trees))...)
	}
	trees = trees[:numTrees]
	for i := range trees {
		br.readHuffmanCode(maxSyms, &trees[i])
	}
	return trees
}

// readContextMap reads a context map according to RFC section 7.3 and
// reports the number of trees it references.
func (br *Reader) readContextMap(cm []uint8) (numTrees int) {
	numTrees = int(br.rd.ReadSymbol(&decCounts))
	if numTrees == 1 {
		for i := range cm {
			cm[i] = 0
		}
		return numTrees
	}

	rleMax := br.rd.ReadSymbol(&decMaxRLE)
	var pd prefixDecoder
	br.readHuffmanCode(numTrees+int(rleMax), &pd)
	for i := 0; i < len(cm); {
		switch sym := br.rd.ReadSymbol(&pd); {
		case sym == 0:
			cm[i] = 0
			i++
		case sym <= rleMax:
			n := int(br.rd.ReadOffset(sym-1, maxRLERanges))
			if i+n > len(cm) {
				panicf(errors.Corrupted, "zero run exceeds context map")
			}
			for j := 0; j < n; j++ {
				cm[i] = 0
				i++
			}
		default:
			if sym-rleMax >= uint(numTrees) {
				panicf(errors.Corrupted, "context map value out of range")
			}
			cm[i] = uint8(sym - rleMax)
			i++
		}
	}
	if br.rd.ReadBits(1) == 1 {
		br.mtf.Decode(cm)
	}
	return numTrees
}

// readHuffmanCode reads a prefix code according to RFC sections 3.4 and 3.5.
func (br *Reader) readHuffmanCode(maxSyms int, pd *prefixDecoder) {
	if hskip := br.rd.ReadBits(2); hskip == 1 {
		br.readSimpleHuffmanCode(maxSyms, pd)
	} else {
		br.readComplexHuffmanCode(maxSyms, hskip, pd)
	}
}

// readSimpleHuffmanCode reads a simple prefix code according to RFC
// section 3.4.
func (br *Reader) readSimpleHuffmanCode(maxSyms int, pd *prefixDecoder) {
	nsym := int(br.rd.ReadBits(2)) + 1
	alphaBits := log2Floor(uint32(maxSyms-1)) + 1

	var symArr [4]uint16
	syms := symArr[:nsym]
	for i := range syms {
		sym := br.rd.ReadBits(alphaBits)
		if int(sym) >= maxSyms {
			panicf(errors.Corrupted, "alphabet symbol out of range: %d", sym)
		}
		syms[i] = uint16(sym)
	}

	var lens []uint
	switch nsym {
	case 1:
		lens = simpleLens1[:]
	case 2:
		lens = simpleLens2[:]
	case 3:
		lens = simpleLens3[:]
	case 4:
		if br.rd.ReadBits(1) == 1 {
			lens = simpleLens4b[:]
		} else {
			lens = simpleLens4a[:]
		}
	}

	// The symbols within each group of equal code length are sorted.
	for i := range syms {
		for j := i; j > 0 && lens[j-1] == lens[j] && syms[j-1] > syms[j]; j-- {
			syms[j-1], syms[j] = syms[j], syms[j-1]
		}
	}

	var codesArr [4]prefixCode
	codes := codesArr[:0]
	for i, sym := range syms {
		for _, c := range codes {
			if c.sym == sym {
				panicf(errors.Corrupted, "duplicate simple symbol: %d", sym)
			}
		}
		codes = append(codes, prefixCode{sym: sym, len: uint8(lens[i])})
	}
	sortCodesBySymbol(codes)
	pd.Init(codes, true)
}

// readComplexHuffmanCode reads a complex prefix code according to RFC
// section 3.5.
func (br *Reader) readComplexHuffmanCode(maxSyms int, hskip uint, pd *prefixDecoder) {
	// Read the code lengths of the code-length alphabet; hskip leading
	// entries of the fixed ordering are implied to be absent.
	var clens [len(complexLens)]uint8
	space, numCodes := 0, 0
	for _, sym := range complexLens[hskip:] {
		clen := br.rd.ReadSymbol(&decCLens)
		if clen > 0 {
			clens[sym] = uint8(clen)
			space += 32 >> clen
			numCodes++
			if space >= 32 {
				break
			}
		}
	}
	if numCodes == 0 || (numCodes > 1 && space != 32) {
		panicf(errors.Corrupted, "degenerate code-length code")
	}

	var clenCodesArr [len(complexLens)]prefixCode
	clenCodes := clenCodesArr[:0]
	for sym, clen := range clens {
		if clen > 0 {
			clenCodes = append(clenCodes, prefixCode{sym: uint16(sym), len: clen})
		}
	}
	var clenDec prefixDecoder
	clenDec.Init(clenCodes, true)

	// Read the symbol code lengths themselves.
	lens := allocUint8s(br.lensArr, maxSyms)
	br.lensArr = lens
	const unit = 1 << maxPrefixBits
	var sym, symSpace, repeat int
	var prevLen, repeatLen uint = 8, 0
	for sym < maxSyms && symSpace < unit {
		code := uint(br.rd.ReadSymbol(&clenDec))
		if code < 16 {
			lens[sym] = uint8(code)
			sym++
			if code != 0 {
				prevLen = code
				symSpace += unit >> code
			}
			repeat = 0
			repeatLen = 0
		} else {
			extra := code - 14 // Symbol 16 has 2 bits, symbol 17 has 3 bits
			var newLen uint
			if code == 16 {
				newLen = prevLen
			}
			if repeatLen != newLen {
				repeat = 0
				repeatLen = newLen
			}
			oldRepeat := repeat
			if repeat > 0 {
				repeat = (repeat - 2) << extra
			}
			repeat += int(br.rd.ReadBits(extra)) + 3
			delta := repeat - oldRepeat
			if sym+delta > maxSyms {
				panicf(errors.Corrupted, "exuberant repeat length")
			}
			for i := 0; i < delta; i++ {
				lens[sym] = uint8(repeatLen)
				sym++
			}
			if repeatLen > 0 {
				symSpace += delta * (unit >> repeatLen)
			}
		}
	}
	if symSpace > unit {
		panicf(errors.Corrupted, "prefix code space overflow")
	}

	var codes prefixCodes
	for s := 0; s < sym; s++ {
		if lens[s] > 0 {
			codes = append(codes, prefixCode{sym: uint16(s), len: lens[s]})
		}
	}
	switch {
	case len(codes) == 0:
		panicf(errors.Corrupted, "empty prefix code")
	case len(codes) > 1 && symSpace < unit:
		// The code lengths are under-subscribed; repair them by
		// redistributing the remaining space as unreachable codes.
		if codes = repairDegenerateCodes(codes, uint(maxSyms)); codes == nil {
			panicf(errors.Corrupted, "prefix code space violation")
		}
	}
	pd.Init(codes, true)
}

// readCommands runs the main command loop according to RFC section 9.3,
// suspending whenever the window needs to be flushed.
func (br *Reader) readCommands() {
	rd := &br.rd
	for {
		switch br.cmdStage {
		case cmdBegin:
			if br.blkLen == 0 {
				if br.rec != nil {
					br.rec.closeBlocks(br)
				}
				br.flushDict()
				br.step = br.readBlockHeader
				return
			}
			if br.iacBlk.typeLen == 0 {
				br.iacBlk.readSwitch(rd)
				if br.rec != nil {
					br.rec.switchCmdBlock(br)
				}
			}
			br.iacBlk.typeLen--
			iacSym := rd.ReadSymbol(&br.iacTrees[br.iacBlk.curType])
			if iacSym >= numInsSyms {
				panicf(errors.Corrupted, "insert-and-copy symbol out of range: %d", iacSym)
			}
			info := iacLUT[iacSym]
			br.insLen = int(rd.ReadOffset(uint(info.insSym), insLenRanges))
			br.cpyLen = int(rd.ReadOffset(uint(info.cpySym), cpyLenRanges))
			br.distZero = info.distZero
			br.cmdStage = cmdInsert

		case cmdInsert:
			for br.insLen > 0 {
				if br.blkLen == 0 {
					panicf(errors.Corrupted, "insert exceeds meta-block length")
				}
				if br.dict.AvailWrite() == 0 {
					br.flushDict()
					return
				}
				if br.litBlk.typeLen == 0 {
					br.litBlk.readSwitch(rd)
					if br.rec != nil {
						br.rec.switchLitBlock(br)
					}
				}
				br.litBlk.typeLen--
				var tree *prefixDecoder
				if br.trivialCtx {
					tree = &br.litTrees[br.cmapL[br.litBlk.curType*numLitContexts]]
				} else {
					p1, p2 := br.dict.LastBytes()
					mode := int(br.ctxModes[br.litBlk.curType])
					ctx := contextP1LUT[int(p1)+256*mode] | contextP2LUT[int(p2)+256*mode]
					tree = &br.litTrees[br.cmapL[br.litBlk.curType*numLitContexts+int(ctx)]]
				}
				litSym := rd.ReadSymbol(tree)
				if litSym >= numLitSyms {
					panicf(errors.Corrupted, "literal symbol out of range: %d", litSym)
				}
				br.dict.WriteByte(byte(litSym))
				br.pos++
				br.blkLen--
				br.insLen--
			}
			if br.blkLen == 0 {
				// The meta-block ends in an insert-only command;
				// the copy length is ignored.
				br.cmdStage = cmdBegin
				continue
			}
			br.cmdStage = cmdDist

		case cmdDist:
			distSym := uint(0)
			if br.distZero {
				br.dist = br.distRing[0]
			} else {
				if br.distBlk.typeLen == 0 {
					br.distBlk.readSwitch(rd)
				}
				br.distBlk.typeLen--
				ctx := distContext(br.cpyLen)
				distSym = rd.ReadSymbol(&br.distTrees[br.cmapD[br.distBlk.curType*numDistContexts+ctx]])
				if distSym >= uint(br.numDistSyms) {
					panicf(errors.Corrupted, "distance symbol out of range: %d", distSym)
				}
				br.dist = br.readDistance(distSym)
			}
			if br.dist <= 0 {
				panicf(errors.Corrupted, "non-positive distance")
			}

			maxDist := br.dict.HistSize()
			if br.dist > maxDist {
				// Static dictionary reference.
				cnt := resolveDictRef(br.wordArr[:], br.cpyLen, br.dist, maxDist)
				if cnt > br.blkLen {
					panicf(errors.Corrupted, "dictionary word exceeds meta-block length")
				}
				br.word = br.wordArr[:cnt]
				if br.rec != nil {
					br.rec.addRef(br, cnt, maxDist)
				}
				br.cmdStage = cmdWord
			} else {
				if br.cpyLen > br.blkLen {
					panicf(errors.Corrupted, "copy exceeds meta-block length")
				}
				if !br.distZero && distSym != 0 {
					br.pushDistance(br.dist)
				}
				if br.rec != nil {
					br.rec.addRef(br, br.cpyLen, maxDist)
				}
				br.cpyRem = br.cpyLen
				br.cmdStage = cmdCopy
			}

		case cmdCopy:
			if br.dict.AvailWrite() == 0 {
				br.flushDict()
				return
			}
			cnt := br.dict.WriteCopy(br.dist, br.cpyRem)
			br.pos += int64(cnt)
			br.blkLen -= cnt
			br.cpyRem -= cnt
			if br.cpyRem > 0 {
				continue // The copy wraps around the window
			}
			br.cmdStage = cmdBegin

		case cmdWord:
			for len(br.word) > 0 {
				if br.dict.AvailWrite() == 0 {
					br.flushDict()
					return
				}
				cnt := copy(br.dict.WriteSlice(), br.word)
				br.dict.WriteMark(cnt)
				br.word = br.word[cnt:]
				br.pos += int64(cnt)
				br.blkLen -= cnt
			}
			br.cmdStage = cmdBegin
		}
	}
}

// readDistance converts a distance symbol into an actual distance.
// RFC section 4.
func (br *Reader) readDistance(sym uint) int {
	if sym < 16 {
		ref := distShortLUT[sym]
		return br.distRing[ref.index] + ref.delta
	}
	if sym < 16+uint(br.ndirect) {
		return int(sym) - 16 + 1
	}
	idx := sym - 16 - uint(br.ndirect)
	postfix := idx & (1<<br.npostfix - 1)
	hcode := idx >> br.npostfix
	nbits := 1 + hcode>>1
	offset := (2+(hcode&1))<<nbits - 4
	return int((uint(offset)+br.rd.ReadBits(nbits))<<br.npostfix + postfix + uint(br.ndirect) + 1)
}

func (br *Reader) pushDistance(d int) {
	br.distRing[0], br.distRing[1], br.distRing[2], br.distRing[3] =
		d, br.distRing[0], br.distRing[1], br.distRing[2]
}

func sortCodesBySymbol(codes prefixCodes) {
	for i := range codes {
		for j := i; j > 0 && codes[j-1].sym > codes[j].sym; j-- {
			codes[j-1], codes[j] = codes[j], codes[j-1]
		}
	}
}

// Decompress decompresses the entire input buffer in one shot.
func Decompress(input []byte) ([]byte, error) {
	zr, err := NewReader(bytes.NewReader(input), nil)
	if err != nil {
		return nil, err
	}
	output, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return output, zr.Close()
}

// DecompressedSize probes the stream header and reports the decompressed
// size, which is only knowable without decoding when the stream consists of
// a single meta-block.
func DecompressedSize(input []byte) (size int, err error) {
	defer errors.Recover(&err)

	var rd bitReader
	rd.Init(bytes.NewReader(input))
	if wbits := rd.ReadSymbol(&decWinBits); wbits == 0 {
		panicf(errors.Corrupted, "invalid window bits")
	}
	if last := rd.ReadBits(1) == 1; !last {
		return 0, errorf(errors.Invalid, "not a single meta-block stream")
	}
	if empty := rd.ReadBits(1) == 1; empty {
		return 0, nil
	}
	nibbles := rd.ReadBits(2) + 4
	if nibbles == 7 {
		return 0, errorf(errors.Invalid, "not a single meta-block stream")
	}
	return 1 + int(rd.ReadBits(nibbles*4)), nil
}
