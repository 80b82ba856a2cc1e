// Package coding implements the per-frame codec decoders (spec.md §4.3):
// pure converters from codec-specific bitstreams to PCM16, each owning
// opaque per-channel state. Every codec satisfies Decoder; New dispatches
// on vgmformat.Codec to build the right concrete state, replacing the
// source's void* handle casting with a tagged-variant Go interface (spec.md
// §9).
package coding

import (
	"fmt"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// Decoder is the per-codec entry point, matching spec.md §4.3's
// decode(state, stream, out_pcm16, samples_to_do, channel_index,
// total_channels). Decode must fill exactly nSamples PCM16 samples for
// channel into out, reading from sf starting at offset. Codec state for
// all channels lives inside the Decoder instance, indexed by channel, so
// one Decoder is constructed per stream rather than per channel.
type Decoder interface {
	Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error
	// Reset clears any running state (history/predictors) back to silence
	// for channel, used on stream reset and loop restoration.
	Reset(channel int) error
	// SeekDiscard advances internal decode state for channel by samples
	// without producing output, used to reestablish frame alignment after
	// a seek (spec.md §8.1 "documented per-codec seek slack").
	SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error
}

// New constructs a Decoder for codec, given its per-stream config and
// channel count.
func New(codec vgmformat.Codec, cfg any, channels int) (Decoder, error) {
	switch codec {
	case vgmformat.CodecPCM16LE, vgmformat.CodecPCM16BE, vgmformat.CodecPCM8,
		vgmformat.CodecPCM8U, vgmformat.CodecPCM24LE, vgmformat.CodecPCM32LE,
		vgmformat.CodecFloat32LE:
		return NewPCM(codec), nil
	case vgmformat.CodecVAGADPCM:
		return NewVAG(), nil
	case vgmformat.CodecIMAADPCM:
		return NewIMA(channels), nil
	case vgmformat.CodecMTAFADPCM:
		return NewMTAF(channels), nil
	case vgmformat.CodecDSPADPCM:
		return NewDSP(), nil
	case vgmformat.CodecOngakukan:
		return NewOngakukan(), nil
	case vgmformat.CodecVorbis:
		return NewVorbis(channels)
	case vgmformat.CodecOpusWwise:
		return NewOpus(channels)
	case vgmformat.CodecRelicDCT:
		rc, _ := cfg.(vgmformat.RelicConfig)
		return NewRelic(rc)
	case vgmformat.CodecCircusVQ:
		cc, _ := cfg.(vgmformat.CircusConfig)
		return NewCircus(cc, channels)
	case vgmformat.CodecMicrotalk:
		mc, _ := cfg.(vgmformat.MicrotalkConfig)
		return NewMicrotalk(mc)
	case vgmformat.CodecAESNUS:
		return NewAESNUS(), nil
	case vgmformat.CodecATRAC9, vgmformat.CodecATRAC3Plus, vgmformat.CodecCELTFSB,
		vgmformat.CodecXMA, vgmformat.CodecEAXMA, vgmformat.CodecACM:
		return NewExternal(codec, cfg)
	}
	return nil, fmt.Errorf("coding.New: unsupported codec %s", codec)
}
