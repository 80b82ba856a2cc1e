package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// PS2ENTH recognizes the PS2 ENTH family: "AP  ", "LP  " and "LEP " magic
// (trailing spaces, spec.md §6.3). LP is XOR-rotated per
// streamfile.ENTHRotate; LEP adds an extra 0x800-byte header before the
// common layout. Loop flag is simply loop_start != 0.
type PS2ENTH struct{}

func NewPS2ENTH() *PS2ENTH { return &PS2ENTH{} }

func (PS2ENTH) Name() string { return "ps2enth" }

func (PS2ENTH) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)
	magic, err := r.StringFixed(0, 4)
	if err != nil {
		return nil, ErrNotThisFormat
	}

	var variant string
	switch magic {
	case "AP  ":
		variant = "ap"
	case "LP  ":
		variant = "lp"
	case "LEP ":
		variant = "lep"
	default:
		return nil, ErrNotThisFormat
	}

	headerBase := int64(0)
	if variant == "lep" {
		headerBase = 0x800
	}

	src := sf
	if variant == "lp" {
		src = streamfile.NewENTHRotate(sf, ps2ENTHKeystream)
		r = io16.New(src)
	}

	channels, err := r.U8(headerBase + 0x10)
	if err != nil {
		return nil, err
	}
	sampleRate, err := r.U32LE(headerBase + 0x14)
	if err != nil {
		return nil, err
	}
	interleave, err := r.U32LE(headerBase + 0x18)
	if err != nil {
		return nil, err
	}
	dataSize, err := r.U32LE(headerBase + 0x1C)
	if err != nil {
		return nil, err
	}
	loopStart, err := r.U32LE(headerBase + 0x20)
	if err != nil {
		return nil, err
	}

	numSamples := psBytesToSamples(int64(dataSize), int(channels))
	loopFlag := loopStart != 0
	loopSample := 0
	if loopFlag {
		loopSample = psBytesToSamples(int64(loopStart), int(channels))
	}

	dataStart := headerBase + 0x800

	f := &vgmformat.Format{
		MetaName:            "ps2enth_" + variant,
		Codec:               vgmformat.CodecVAGADPCM,
		Layout:              vgmformat.LayoutInterleave,
		Channels:            int(channels),
		InputChannels:       int(channels),
		SampleRate:          int(sampleRate),
		NumSamples:          numSamples,
		LoopFlag:            loopFlag,
		LoopStartSample:     loopSample,
		LoopEndSample:       numSamples,
		InterleaveBlockSize: int64(interleave),
		StreamFile:          src,
	}
	f.ChannelStartOffsets = make([]vgmformat.ChannelStart, channels)
	for ch := 0; ch < int(channels); ch++ {
		f.ChannelStartOffsets[ch] = vgmformat.ChannelStart{Offset: dataStart + int64(ch)*int64(interleave)}
	}
	return f, nil
}

// ps2ENTHKeystream is the LP variant's per-byte XOR keystream generator
// (spec.md §4.1 "LP decryption"): a fixed repeating byte pattern keyed by
// absolute file position.
func ps2ENTHKeystream(pos int64) byte {
	return byte(pos*0x5D + 0x3B)
}
