package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// IVB recognizes the "IVB\0" container (spec.md §6.3, scenario 4):
// subsong descriptors are fixed 0x10-byte records starting at 0x10, each
// giving a mono channel's block layout (channel_size, channel_blocks,
// last_block_size); data for all subsongs starts at a common 0x800 offset
// and streams are always 2-channel 44100 Hz PSX ADPCM.
type IVB struct{}

func NewIVB() *IVB { return &IVB{} }

func (IVB) Name() string { return "ivb" }

const (
	ivbDescriptorSize = 0x10
	ivbDataStart      = 0x800
	ivbChannels       = 2
	ivbSampleRate     = 44100
)

func (IVB) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)

	magic, err := r.StringFixed(0, 4)
	if err != nil || magic != "IVB\x00" {
		return nil, ErrNotThisFormat
	}

	subsongCount, err := r.S32LE(0x04)
	if err != nil {
		return nil, err
	}
	interleave, err := r.S32LE(0x08)
	if err != nil {
		return nil, err
	}

	subsong := opts.Subsong
	if subsong <= 0 {
		subsong = 1
	}
	if subsong > int(subsongCount) {
		return nil, ErrNotThisFormat
	}

	descOffset := int64(0x10) + int64(subsong-1)*ivbDescriptorSize
	channelSize, err := r.U32LE(descOffset)
	if err != nil {
		return nil, err
	}
	channelBlocks, err := r.U32LE(descOffset + 4)
	if err != nil {
		return nil, err
	}
	lastBlockSize, err := r.U32LE(descOffset + 8)
	if err != nil {
		return nil, err
	}
	_ = channelSize

	streamSize := int64(channelBlocks-1)*int64(interleave)*ivbChannels + int64(lastBlockSize)*ivbChannels
	numSamples := psBytesToSamples(streamSize, ivbChannels)

	// Data for subsongs after the first is offset by the cumulative size
	// of every preceding subsong's own stream.
	dataOffset := int64(ivbDataStart)
	for i := 1; i < subsong; i++ {
		prevOffset := int64(0x10) + int64(i-1)*ivbDescriptorSize
		prevBlocks, _ := r.U32LE(prevOffset + 4)
		prevLast, _ := r.U32LE(prevOffset + 8)
		dataOffset += int64(prevBlocks-1)*int64(interleave)*ivbChannels + int64(prevLast)*ivbChannels
	}

	f := &vgmformat.Format{
		MetaName:            "ivb",
		Codec:               vgmformat.CodecVAGADPCM,
		Layout:              vgmformat.LayoutInterleave,
		Channels:            ivbChannels,
		InputChannels:       ivbChannels,
		SampleRate:          ivbSampleRate,
		NumSamples:          numSamples,
		InterleaveBlockSize: int64(interleave),
		InterleaveLastBlockSize: int64(lastBlockSize),
		SubsongIndex:        subsong,
		SubsongCount:        int(subsongCount),
		StreamFile:          sf,
	}
	f.ChannelStartOffsets = []vgmformat.ChannelStart{
		{Offset: dataOffset},
		{Offset: dataOffset + int64(interleave)},
	}
	return f, nil
}
