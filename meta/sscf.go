package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// SSCF recognizes the "SSCF" container, whose payload from 0x80 onward is
// an encrypted RIFF/XMA container XORed against a keystream derived by
// repeatedly rotating a seed 32-bit word (spec.md §6.3): xorkey =
// rotl(xorkey, 11) once, then each 4-byte tile is written little-endian
// and xorkey = rotl(xorkey, 3) + previous_xorkey.
type SSCF struct{}

func NewSSCF() *SSCF { return &SSCF{} }

func (SSCF) Name() string { return "sscf" }

const sscfDataStart = 0x80

func (SSCF) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)
	magic, err := r.StringFixed(0, 4)
	if err != nil || magic != "SSCF" {
		return nil, ErrNotThisFormat
	}

	seed, err := r.U32LE(0x14)
	if err != nil {
		return nil, err
	}

	decrypted := streamfile.NewXorshift2048(sf, seed, 11)

	dr := io16.New(decrypted)
	riffMagic, err := dr.StringFixed(sscfDataStart, 4)
	if err != nil || riffMagic != "RIFF" {
		return nil, ErrNotThisFormat
	}

	f := &vgmformat.Format{
		MetaName:      "sscf",
		Codec:         vgmformat.CodecXMA,
		Layout:        vgmformat.LayoutNone,
		Channels:      2,
		InputChannels: 2,
		SampleRate:    44100,
		CodecConfig:   vgmformat.XMAConfig{BlockSize: 2048},
		StreamFile:    decrypted,
	}
	f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: sscfDataStart}}
	return f, nil
}
