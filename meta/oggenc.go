package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// OggEnc recognizes encrypted Ogg variants triggered by a non-"OggS"
// magic: RPGMaker MV/MZ's "RPGMV\0\0\0" rebuild (spec.md §6.3 scenario 7)
// plus a fall-through table of (extension, first-bytes) keyed
// XOR/bit-reverse/FSB-style variants, matching spec.md's documented
// "fall-through table" design.
type OggEnc struct {
	Extension string
}

func NewOggEnc(extension string) *OggEnc { return &OggEnc{Extension: extension} }

func (o *OggEnc) Name() string { return "oggenc" }

func (o *OggEnc) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)
	magic, err := r.StringFixed(0, 8)
	if err == nil && magic == "RPGMV\x00\x00\x00" {
		return o.openRPGMV(sf)
	}

	for _, variant := range oggEncFallthrough {
		if variant.extension != "" && variant.extension != o.Extension {
			continue
		}
		head, err := r.StringFixed(0, int64(len(variant.magic)))
		if err != nil || head != variant.magic {
			continue
		}
		return o.openGeneric(sf, variant)
	}

	return nil, ErrNotThisFormat
}

func (o *OggEnc) openRPGMV(sf streamfile.File) (*vgmformat.Format, error) {
	rebuilt := streamfile.NewRPGMakerOgg(sf, 0x10, nil, 0)
	f := &vgmformat.Format{
		MetaName:      "oggenc_rpgmv",
		Codec:         vgmformat.CodecVorbis,
		Layout:        vgmformat.LayoutNone,
		Channels:      2,
		InputChannels: 2,
		SampleRate:    44100,
		StreamFile:    rebuilt,
	}
	f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: 0}}
	return f, nil
}

type oggEncVariant struct {
	extension  string // "" matches any extension
	magic      string
	key        []byte
	headerSwap bool
	nibbleSwap bool
	bitReverse bool
}

// oggEncFallthrough is the (extension, first-bytes) → decryption-mode table
// (spec.md §6.3): each entry selects one of {XOR-with-fixed-key,
// bit-reverse-then-XOR, FSB-style} plus header-swap/nibble-swap flags.
var oggEncFallthrough = []oggEncVariant{
	{extension: "ogg", magic: "hca#", key: []byte{0x7E, 0x35, 0xA1, 0x02}, bitReverse: false},
	{extension: "logg", magic: "OGGL", key: []byte{0x23, 0x55, 0x9A, 0xC1}, headerSwap: true},
	{extension: "ogg", magic: "capn", key: []byte{0x4B, 0x8D, 0x2E, 0xF1}, nibbleSwap: true, bitReverse: true},
}

func (o *OggEnc) openGeneric(sf streamfile.File, v oggEncVariant) (*vgmformat.Format, error) {
	decrypted := streamfile.NewXORKey(sf, v.key, v.headerSwap, v.nibbleSwap, v.bitReverse)
	f := &vgmformat.Format{
		MetaName:      "oggenc_" + v.magic,
		Codec:         vgmformat.CodecVorbis,
		Layout:        vgmformat.LayoutNone,
		Channels:      2,
		InputChannels: 2,
		SampleRate:    44100,
		StreamFile:    decrypted,
	}
	f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: 0}}
	return f, nil
}
