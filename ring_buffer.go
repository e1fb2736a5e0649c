// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package brotli

// The encoder ringBuffer is a power-of-two input window with a mirrored tail:
// the first 1<<tailBits bytes of the window are duplicated past the end so
// that any read of up to 1<<tailBits bytes starting inside the live region is
// contiguous. pos is a monotonically increasing write cursor; pos&mask
// indexes the buffer.
type ringBuffer struct {
	data []byte
	size int // 1 << windowBits
	mask int
	tail int // 1 << tailBits
	pos  int64
}

func newRingBuffer(windowBits, tailBits uint) *ringBuffer {
	size := 1 << windowBits
	return &ringBuffer{
		data: make([]byte, size+1<<tailBits),
		size: size,
		mask: size - 1,
		tail: 1 << tailBits,
	}
}

// Write appends the bytes to the window, overwriting the oldest data once
// the window has filled.
func (rb *ringBuffer) Write(buf []byte) {
	for len(buf) > 0 {
		masked := int(rb.pos) & rb.mask
		cnt := copy(rb.data[masked:rb.size], buf)

		// Mirror the head of the window into the tail region.
		if masked < rb.tail {
			n := rb.tail - masked
			if n > cnt {
				n = cnt
			}
			copy(rb.data[rb.size+masked:], buf[:n])
		}

		rb.pos += int64(cnt)
		buf = buf[cnt:]
	}
}
