package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// BGW recognizes FFXI's "BGMStream" container (spec.md §6.3, scenario 1):
// magic split across 0x00 "BGMS", 0x04 "trea", 0x08 "m\0\0\0", a codec tag
// at 0x0C (0=ADPCM, 1=PCM, 3=encrypted ATRAC3), block count/align, and a
// 1-based loop_start whose sample position is loop_start_blocks*block_align
// worth of decoded samples.
type BGW struct{}

func NewBGW() *BGW { return &BGW{} }

// bgwATRAC3LUT is the fixed 16-byte first-frame key LUT for BGW codec 3
// (spec.md §4.1); vgmstream's source ships this as a static const table.
var bgwATRAC3LUT = [16]byte{
	0x0F, 0x28, 0x3D, 0x5A, 0x61, 0x77, 0x8C, 0x93,
	0xA9, 0xB4, 0xC2, 0xD6, 0xE1, 0xF5, 0x0A, 0x16,
}

func (BGW) Name() string { return "bgw" }

func (BGW) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)

	magic, err := r.StringFixed(0, 12)
	if err != nil {
		return nil, ErrNotThisFormat
	}
	if magic != "BGMStream\x00\x00\x00" {
		return nil, ErrNotThisFormat
	}

	codecTag, err := r.U8(0x0C)
	if err != nil {
		return nil, err
	}
	blockCount, err := r.U32LE(0x18)
	if err != nil {
		return nil, err
	}
	loopStart1b, err := r.U32LE(0x1C)
	if err != nil {
		return nil, err
	}
	rateA, err := r.U32LE(0x20)
	if err != nil {
		return nil, err
	}
	rateB, err := r.U32LE(0x24)
	if err != nil {
		return nil, err
	}
	dataStart, err := r.U32LE(0x28)
	if err != nil {
		return nil, err
	}
	channels, err := r.U8(0x2E)
	if err != nil {
		return nil, err
	}
	blockAlign, err := r.U8(0x2F)
	if err != nil {
		return nil, err
	}

	var codec vgmformat.Codec
	switch codecTag {
	case 0:
		codec = vgmformat.CodecVAGADPCM // FFXI BGW ADPCM reuses the VAG-style 16-sample/byte framing, scaled to block_align
	case 1:
		codec = vgmformat.CodecPCM16LE
	case 3:
		codec = vgmformat.CodecATRAC3Plus
	default:
		return nil, ErrNotThisFormat
	}

	sampleRate := int(rateA + rateB)
	numSamples := int(blockCount) * 16 * int(channels)

	loopFlag := loopStart1b != 0
	var loopSample int
	if loopFlag {
		loopSample = int(loopStart1b-1) * int(blockAlign)
	}

	interleave := int64(blockAlign)/2 + 1

	f := &vgmformat.Format{
		MetaName:            "bgw",
		Codec:               codec,
		Layout:              vgmformat.LayoutInterleave,
		Channels:            int(channels),
		InputChannels:       int(channels),
		SampleRate:          sampleRate,
		NumSamples:          numSamples,
		LoopFlag:            loopFlag,
		LoopStartSample:     loopSample,
		LoopEndSample:       numSamples,
		InterleaveBlockSize: interleave,
		StreamFile:          sf,
		StreamName:          "",
	}

	f.ChannelStartOffsets = make([]vgmformat.ChannelStart, channels)
	for ch := 0; ch < int(channels); ch++ {
		f.ChannelStartOffsets[ch] = vgmformat.ChannelStart{Offset: int64(dataStart) + int64(ch)*interleave}
	}

	if codec == vgmformat.CodecATRAC3Plus {
		// FFXI BGW codec 3: the ATRAC3 payload is XOR-keyed per
		// streamfile.BGWATRAC3Key; the meta wires it rather than rejecting
		// it outright (spec.md §9 open question, §6.5).
		f.StreamFile = streamfile.NewBGWATRAC3Key(sf, bgwATRAC3LUT, int(blockAlign), int64(dataStart))
	}

	return f, nil
}
