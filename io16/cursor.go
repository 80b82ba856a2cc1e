package io16

import "github.com/farcloser/vgmgo/streamfile"

// Cursor adapts a streamfile.File plus a starting absolute offset into an
// io.Reader, advancing its own position on every Read, so that a
// continuous bitstream consumer such as BitReader can read the engine's
// offset-addressed streamfile.File. No codec in this module uses it.
type Cursor struct {
	SF  streamfile.File
	pos int64
}

// NewCursor returns a Cursor reading sf starting at offset.
func NewCursor(sf streamfile.File, offset int64) *Cursor {
	return &Cursor{SF: sf, pos: offset}
}

func (c *Cursor) Read(p []byte) (int, error) {
	n, err := c.SF.ReadAt(p, c.pos)
	c.pos += int64(n)
	if n > 0 && err != nil {
		return n, nil
	}
	return n, err
}
