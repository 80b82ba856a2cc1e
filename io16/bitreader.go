package io16

import (
	"fmt"
	"io"
)

const bitReaderBufSize = 4096

// BitReader is a packed-bitstream reader for formats that are not
// byte-positional. No codec in this module uses it: Relic, Circus and
// Microtalk each carry their own bit-unpacking. It generalizes the teacher's read-ahead buffering discipline
// (fill/needBytes, shift-unread-bytes-to-front) from a CRC-accumulating
// bit reader to a plain configurable-endianness one: this package drops
// the CRC hooks (no codec in this engine needs a running checksum over a
// bitstream) but keeps the same buffer-fill shape.
type BitReader struct {
	r   io.Reader
	buf [bitReaderBufSize]byte
	pos int
	end int

	// Between 0 and 7 buffered bits left over from a previous partial-byte
	// read.
	x uint8
	n uint

	// MSB first or LSB first within each byte.
	msbFirst bool
}

// NewBitReader returns a BitReader reading from r. msbFirst selects whether
// Read(n) consumes bits from the most- or least-significant end of each
// byte.
func NewBitReader(r io.Reader, msbFirst bool) *BitReader {
	return &BitReader{r: r, msbFirst: msbFirst}
}

func (br *BitReader) fill() error {
	if br.pos > 0 {
		n := copy(br.buf[:], br.buf[br.pos:br.end])
		br.pos = 0
		br.end = n
	}
	n, err := br.r.Read(br.buf[br.end:])
	br.end += n
	if n > 0 {
		return nil
	}
	return err
}

func (br *BitReader) available() int { return br.end - br.pos }

func (br *BitReader) needBytes(n int) error {
	for br.available() < n {
		if err := br.fill(); err != nil {
			if br.available() >= n {
				return nil
			}
			if br.available() > 0 && err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// IsAligned reports whether the reader is at a byte boundary.
func (br *BitReader) IsAligned() bool { return br.n == 0 }

// Align discards any buffered partial-byte bits, advancing to the next
// byte boundary.
func (br *BitReader) Align() {
	br.n = 0
	br.x = 0
}

// ReadMSB reads the next n bits (at most 64), MSB-first: the first bit read
// becomes the highest bit of the result.
func (br *BitReader) ReadMSB(n uint) (uint64, error) {
	var x uint64
	if n == 0 {
		return 0, nil
	}
	if n > 64 {
		return 0, fmt.Errorf("io16.BitReader.ReadMSB: invalid bit count %d", n)
	}

	if br.n > 0 {
		switch {
		case br.n == n:
			br.n = 0
			return uint64(br.x), nil
		case br.n > n:
			br.n -= n
			mask := ^uint8(0) << br.n
			x = uint64(br.x&mask) >> br.n
			br.x &^= mask
			return x, nil
		}
		n -= br.n
		x = uint64(br.x)
		br.n = 0
	}

	nBytes := n / 8
	nBits := n % 8
	if nBits > 0 {
		nBytes++
	}
	if err := br.needBytes(int(nBytes)); err != nil {
		return 0, err
	}

	for range nBytes - 1 {
		x <<= 8
		x |= uint64(br.buf[br.pos])
		br.pos++
	}
	b := br.buf[br.pos]
	br.pos++

	if nBits > 0 {
		x <<= nBits
		br.n = 8 - nBits
		mask := ^uint8(0) << br.n
		x |= uint64(b&mask) >> br.n
		br.x = b &^ mask
	} else {
		x <<= 8
		x |= uint64(b)
	}
	return x, nil
}

// ReadLSB reads the next n bits (at most 32), LSB-first: the first bit read
// becomes the lowest bit of the result. Bits are reloaded 8 at a time and
// taken from the low end of each byte.
func (br *BitReader) ReadLSB(n uint) (uint32, error) {
	var x uint32
	var shift uint
	for shift < n {
		if br.n == 0 {
			if err := br.needBytes(1); err != nil {
				return 0, err
			}
			br.x = br.buf[br.pos]
			br.pos++
			br.n = 8
		}
		x |= uint32(br.x&1) << shift
		br.x >>= 1
		br.n--
		shift++
	}
	return x, nil
}

// Read reads n bits using the reader's configured bit order.
func (br *BitReader) Read(n uint) (uint64, error) {
	if br.msbFirst {
		return br.ReadMSB(n)
	}
	v, err := br.ReadLSB(uint(n))
	return uint64(v), err
}

// ReadByte implements io.ByteReader for byte-aligned callers; it first
// discards any buffered partial-byte bits.
func (br *BitReader) ReadByte() (byte, error) {
	br.Align()
	if err := br.needBytes(1); err != nil {
		return 0, err
	}
	b := br.buf[br.pos]
	br.pos++
	return b, nil
}
