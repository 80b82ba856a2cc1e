package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// SPW recognizes the "SeWave" container (spec.md §6.3, scenario 2): a
// samples-in-16-sample-blocks field and a 1-based loop_start counted in
// the same 16-sample blocks.
type SPW struct{}

func NewSPW() *SPW { return &SPW{} }

func (SPW) Name() string { return "spw" }

const spwBlockSamples = 16

func (SPW) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)

	magic, err := r.StringFixed(0, 8)
	if err != nil || magic != "SeWave\x00\x00" {
		return nil, ErrNotThisFormat
	}

	samplesField, err := r.U32LE(0x14)
	if err != nil {
		return nil, err
	}
	loopStart1b, err := r.U32LE(0x18)
	if err != nil {
		return nil, err
	}
	startOffset, err := r.U32LE(0x24)
	if err != nil {
		return nil, err
	}
	channels, err := r.U8(0x2A)
	if err != nil {
		return nil, err
	}

	numSamples := int(samplesField) * spwBlockSamples
	loopFlag := loopStart1b != 0
	loopSample := 0
	if loopFlag {
		loopSample = int(loopStart1b-1) * spwBlockSamples
	}

	const interleave = 9

	f := &vgmformat.Format{
		MetaName:            "spw",
		Codec:               vgmformat.CodecVAGADPCM,
		Layout:              vgmformat.LayoutInterleave,
		Channels:            int(channels),
		InputChannels:       int(channels),
		SampleRate:          44100,
		NumSamples:          numSamples,
		LoopFlag:            loopFlag,
		LoopStartSample:     loopSample,
		LoopEndSample:       numSamples,
		InterleaveBlockSize: interleave,
		StreamFile:          sf,
	}
	f.ChannelStartOffsets = make([]vgmformat.ChannelStart, channels)
	for ch := 0; ch < int(channels); ch++ {
		f.ChannelStartOffsets[ch] = vgmformat.ChannelStart{Offset: int64(startOffset) + int64(ch)*interleave}
	}
	return f, nil
}
