// Package io16 provides endianness-aware primitive readers layered on a
// streamfile.File (layer 3 of the decoding engine), plus a bit-level reader
// for packed-bitstream formats. The codec layer does not use the bit-level
// reader: Relic, Circus and Microtalk each unpack their own bits.
package io16

import (
	"math"

	"github.com/farcloser/vgmgo/streamfile"
)

// Reader positions reads against a streamfile.File at an explicit absolute
// offset rather than a persistent cursor-based io.Reader, since metas read
// headers positionally (seek to field X, read, seek to field Y) rather than
// as a continuous stream.
type Reader struct {
	SF streamfile.File
}

func New(sf streamfile.File) *Reader { return &Reader{SF: sf} }

func (r *Reader) read(buf []byte, offset int64) error {
	n, err := streamfile.ReadFull(r.SF, buf, offset)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return streamfile.ErrShortRead
	}
	return nil
}

func (r *Reader) U8(offset int64) (uint8, error) {
	var b [1]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) S8(offset int64) (int8, error) {
	v, err := r.U8(offset)
	return int8(v), err
}

func (r *Reader) U16LE(offset int64) (uint16, error) {
	var b [2]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (r *Reader) U16BE(offset int64) (uint16, error) {
	var b [2]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	return uint16(b[1]) | uint16(b[0])<<8, nil
}

func (r *Reader) S16LE(offset int64) (int16, error) {
	v, err := r.U16LE(offset)
	return int16(v), err
}

func (r *Reader) S16BE(offset int64) (int16, error) {
	v, err := r.U16BE(offset)
	return int16(v), err
}

func (r *Reader) U24LE(offset int64) (uint32, error) {
	var b [3]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

func (r *Reader) U32LE(offset int64) (uint32, error) {
	var b [4]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (r *Reader) U32BE(offset int64) (uint32, error) {
	var b [4]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	return uint32(b[3]) | uint32(b[2])<<8 | uint32(b[1])<<16 | uint32(b[0])<<24, nil
}

func (r *Reader) S32LE(offset int64) (int32, error) {
	v, err := r.U32LE(offset)
	return int32(v), err
}

func (r *Reader) S32BE(offset int64) (int32, error) {
	v, err := r.U32BE(offset)
	return int32(v), err
}

func (r *Reader) U64LE(offset int64) (uint64, error) {
	var b [8]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (r *Reader) U64BE(offset int64) (uint64, error) {
	var b [8]byte
	if err := r.read(b[:], offset); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (r *Reader) F32LE(offset int64) (float32, error) {
	v, err := r.U32LE(offset)
	return math.Float32frombits(v), err
}

func (r *Reader) F32BE(offset int64) (float32, error) {
	v, err := r.U32BE(offset)
	return math.Float32frombits(v), err
}

func (r *Reader) F64LE(offset int64) (float64, error) {
	v, err := r.U64LE(offset)
	return math.Float64frombits(v), err
}

func (r *Reader) F64BE(offset int64) (float64, error) {
	v, err := r.U64BE(offset)
	return math.Float64frombits(v), err
}

// StringFixed reads n bytes as a string, trimming trailing NUL bytes.
func (r *Reader) StringFixed(offset int64, n int) (string, error) {
	buf := make([]byte, n)
	if err := r.read(buf, offset); err != nil {
		return "", err
	}
	end := n
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return string(buf[:end]), nil
}

// StringNullTerm reads up to maxLen bytes starting at offset and returns
// the leading NUL-terminated portion as a string.
func (r *Reader) StringNullTerm(offset int64, maxLen int) (string, error) {
	buf := make([]byte, maxLen)
	n, err := streamfile.ReadFull(r.SF, buf, offset)
	if err != nil {
		return "", err
	}
	buf = buf[:n]
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// StringASCIIUntil reads bytes from offset until delim (exclusive) or EOF.
func (r *Reader) StringASCIIUntil(offset int64, delim byte) (string, error) {
	const chunk = 256
	var out []byte
	pos := offset
	for {
		buf := make([]byte, chunk)
		n, err := r.SF.ReadAt(buf, pos)
		if err != nil {
			return "", err
		}
		for i := 0; i < n; i++ {
			if buf[i] == delim {
				return string(append(out, buf[:i]...)), nil
			}
		}
		if n == 0 {
			return string(out), nil
		}
		out = append(out, buf[:n]...)
		pos += int64(n)
	}
}
