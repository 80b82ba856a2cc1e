package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// VSV has no magic; it is recognized only by range checks on fixed header
// bytes (spec.md §6.3, scenario 3): byte 0x03 <= 100 and byte 0x0A == 0.
// The loop flag and loop_start (in 0x800-byte blocks) share u16le 0x06 via
// a high-bit/low-15-bits split. The decoder must treat the file's first
// 0x10 bytes as zero (they contain header fields, not audio) to avoid an
// audible click.
type VSV struct{}

func NewVSV() *VSV { return &VSV{} }

func (VSV) Name() string { return "vsv" }

const vsvBlockSize = 0x800

func (VSV) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)

	b03, err := r.U8(0x03)
	if err != nil {
		return nil, ErrNotThisFormat
	}
	if b03 > 100 {
		return nil, ErrNotThisFormat
	}
	b0A, err := r.U8(0x0A)
	if err != nil {
		return nil, ErrNotThisFormat
	}
	if b0A != 0 {
		return nil, ErrNotThisFormat
	}

	loopWord, err := r.U16LE(0x06)
	if err != nil {
		return nil, err
	}
	sampleRate, err := r.U16LE(0x08)
	if err != nil {
		return nil, err
	}
	flags, err := r.U8(0x0B)
	if err != nil {
		return nil, err
	}
	dataBlocks, err := r.U16LE(0x0C)
	if err != nil {
		return nil, err
	}

	loopFlag := loopWord&0x8000 != 0
	loopStartBlocks := int(loopWord &^ 0x8000)
	channels := 1
	if flags&0x01 != 0 {
		channels = 2
	}
	dataSize := int64(dataBlocks) * vsvBlockSize

	numSamples := psBytesToSamples(dataSize, channels)
	loopSample := 0
	if loopFlag {
		loopSample = psBytesToSamples(int64(loopStartBlocks)*vsvBlockSize, channels)
	}

	f := &vgmformat.Format{
		MetaName:        "vsv",
		Codec:           vgmformat.CodecVAGADPCM,
		Layout:          vgmformat.LayoutInterleave,
		Channels:        channels,
		InputChannels:   channels,
		SampleRate:      int(sampleRate),
		NumSamples:      numSamples,
		LoopFlag:        loopFlag,
		LoopStartSample: loopSample,
		LoopEndSample:   numSamples,
		// Null the first 0x10 bytes so the decoder never reads header
		// fields as audio (spec.md §6.3 "nulling ... required before
		// decode").
		StreamFile: streamfile.NewZeroMask(sf, 0x10),
	}

	if channels == 2 {
		f.InterleaveBlockSize = vsvBlockSize
		f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: 0}, {Offset: vsvBlockSize}}
	} else {
		f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: 0}}
	}

	return f, nil
}

// psBytesToSamples converts PSX/VAG ADPCM byte counts to sample counts:
// 16 encoded bytes per channel produce 28 samples (spec.md glossary,
// used throughout §8.2's IVB/VSV scenarios).
func psBytesToSamples(dataSize int64, channels int) int {
	if channels <= 0 {
		channels = 1
	}
	bytesPerChannel := dataSize / int64(channels)
	return int(bytesPerChannel / 16 * 28)
}
