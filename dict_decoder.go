// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// The dictDecoder is the sliding window that doubles as the decoder output
// buffer; decoded bytes accumulate here and are periodically flushed to the
// user. The window is lazily grown up to its full size to avoid
// denial-of-service attacks with large memory allocation, and becomes a true
// ring only after the first wrap.
type dictDecoder struct {
	size int    // Sliding window size
	hist []byte // Sliding window history

	// Invariant: 0 <= rdPos <= wrPos <= len(hist)
	wrPos int  // Current output position in buffer
	rdPos int  // Have emitted hist[:rdPos] already
	full  bool // Has a full window length been written yet?
}

// Init initializes dictDecoder to have a sliding window of the given size.
// If dict is provided, it will initialize the sliding window with the input
// of a preset dictionary; the dictionary bytes are history only and are never
// emitted.
func (dd *dictDecoder) Init(size int, dict []byte) {
	*dd = dictDecoder{hist: dd.hist, size: size}

	if cap(dd.hist) < 4096 {
		dd.hist = make([]byte, 0, 4096)
	}
	dd.hist = dd.hist[:cap(dd.hist)]
	if len(dd.hist) > dd.size {
		dd.hist = dd.hist[:dd.size]
	}

	if len(dict) > dd.size {
		dict = dict[len(dict)-dd.size:]
	}
	for len(dict) > 0 {
		blk := dd.WriteSlice()
		cnt := copy(blk, dict)
		dd.WriteMark(cnt)
		dd.ReadFlush() // Preset history is never emitted
		dict = dict[cnt:]
	}
}

// HistSize reports the total amount of historical data in the window.
func (dd *dictDecoder) HistSize() int {
	if dd.full {
		return dd.size
	}
	return dd.wrPos
}

// AvailRead reports the number of bytes that can be flushed by ReadFlush.
func (dd *dictDecoder) AvailRead() int {
	return dd.wrPos - dd.rdPos
}

// AvailWrite reports the available amount of output buffer space.
func (dd *dictDecoder) AvailWrite() int {
	return len(dd.hist) - dd.wrPos
}

// WriteSlice returns a slice of the available buffer to write data to.
//
// This invariant will be kept: len(s) <= AvailWrite()
func (dd *dictDecoder) WriteSlice() []byte {
	return dd.hist[dd.wrPos:]
}

// WriteMark advances the writer pointer by cnt.
//
// This invariant must be kept: 0 <= cnt <= AvailWrite()
func (dd *dictDecoder) WriteMark(cnt int) {
	dd.wrPos += cnt
}

// WriteByte writes a single byte to the window.
//
// This invariant must be kept: 0 < AvailWrite()
func (dd *dictDecoder) WriteByte(c byte) {
	dd.hist[dd.wrPos] = c
	dd.wrPos++
}

// WriteCopy copies a string at a given (distance, length) to the output.
// This returns the number of bytes copied and may be less than the requested
// length if the available space in the output buffer is too small.
//
// This invariant must be kept: 0 < dist <= HistSize()
func (dd *dictDecoder) WriteCopy(dist, length int) int {
	dstBase := dd.wrPos
	dstPos := dstBase
	srcPos := dstPos - dist
	endPos := dstPos + length
	if endPos > len(dd.hist) {
		endPos = len(dd.hist)
	}

	// Copy non-overlapping section after destination position.
	//
	// This section is non-overlapping in that the copy length for this section
	// is always less than or equal to the backwards distance. This can occur
	// if a distance refers to data that wraps-around in the buffer.
	// Thus, a backwards copy is performed here; that is, the exact bytes in
	// the source prior to the copy is placed in the destination.
	if srcPos < 0 {
		srcPos += len(dd.hist)
		dstPos += copy(dd.hist[dstPos:endPos], dd.hist[srcPos:])
		srcPos = 0
	}

	// Copy possibly overlapping section before destination position.
	//
	// This section can overlap if the copy length for this section is larger
	// than the backwards distance. This is allowed by Brotli so that repeated
	// strings can be succinctly represented using (dist, length) pairs.
	// Thus, a forwards copy is performed here; that is, the bytes copied is
	// possibly dependent on the resulting bytes in the destination as the copy
	// progresses along. This is functionally equivalent to the following:
	//
	//	for i := 0; i < endPos-dstPos; i++ {
	//		dd.hist[dstPos+i] = dd.hist[srcPos+i]
	//	}
	//	dstPos = endPos
	for dstPos < endPos {
		dstPos += copy(dd.hist[dstPos:endPos], dd.hist[srcPos:dstPos])
	}

	dd.wrPos = dstPos
	return dstPos - dstBase
}

// ReadFlush returns a slice of the historical buffer that is ready to be
// emitted to the user. The data returned by ReadFlush must be fully consumed
// before calling any other method.
func (dd *dictDecoder) ReadFlush() []byte {
	toRead := dd.hist[dd.rdPos:dd.wrPos]
	dd.rdPos = dd.wrPos
	if dd.wrPos == len(dd.hist) {
		if len(dd.hist) == dd.size {
			dd.wrPos, dd.rdPos = 0, 0
			dd.full = true
		} else {
			// Allocate a larger history buffer and copy the current window.
			size := len(dd.hist) * 4
			if size > dd.size {
				size = dd.size
			}
			hist := make([]byte, size)
			copy(hist, dd.hist)
			dd.hist = hist
		}
	}
	return toRead
}

// LastBytes reports the last two bytes in the window for context computation.
func (dd *dictDecoder) LastBytes() (p1, p2 byte) {
	if dd.wrPos > 1 {
		return dd.hist[dd.wrPos-1], dd.hist[dd.wrPos-2]
	} else if dd.wrPos > 0 {
		p1 = dd.hist[dd.wrPos-1]
		if dd.full {
			p2 = dd.hist[len(dd.hist)-1]
		}
		return p1, p2
	} else if dd.full {
		return dd.hist[len(dd.hist)-1], dd.hist[len(dd.hist)-2]
	}
	return 0, 0
}
