// Package vgmformat holds the shared stream-descriptor data model (spec.md
// §3.1's "stream descriptor") that both the meta layer (which produces it)
// and the root vgmstream package (which drives playback from it) depend
// on. Splitting it out of the root package is the Go-idiomatic resolution
// of spec.md §9's "cyclic references (stream ↔ codec state ↔ inner
// transformed stream)" note: metas must be able to construct a Format
// without importing the orchestrator that consumes it.
package vgmformat

import "github.com/farcloser/vgmgo/streamfile"

// Codec identifies which codec family decodes a stream's frames.
type Codec int

const (
	CodecPCM16LE Codec = iota
	CodecPCM16BE
	CodecPCM8
	CodecPCM8U
	CodecPCM24LE
	CodecPCM32LE
	CodecFloat32LE
	CodecVAGADPCM    // PSX/VAG ADPCM
	CodecIMAADPCM
	CodecMTAFADPCM   // IMA variant, MTAF block layout
	CodecDSPADPCM    // Nintendo DSP ADPCM
	CodecOngakukan   // Ongakukan single-byte-per-two-samples ADPCM
	CodecVorbis
	CodecOpusWwise
	CodecATRAC9
	CodecATRAC3Plus
	CodecCELTFSB
	CodecXMA
	CodecEAXMA
	CodecRelicDCT
	CodecCircusVQ
	CodecMicrotalk
	CodecACM
	CodecAESNUS // AES-192 ECB wrapped PCM (Namco NUS)
)

func (c Codec) String() string {
	names := [...]string{
		"pcm16le", "pcm16be", "pcm8", "pcm8u", "pcm24le", "pcm32le", "float32le",
		"vag_adpcm", "ima_adpcm", "mtaf_adpcm", "dsp_adpcm", "ongakukan_adpcm",
		"vorbis", "opus_wwise", "atrac9", "atrac3plus", "celt_fsb", "xma",
		"ea_xma", "relic_dct", "circus_vq", "microtalk", "acm", "aes_nus",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown_codec"
}

// Layout identifies the traversal policy over encoded data (spec.md §4.4).
type Layout int

const (
	LayoutNone Layout = iota
	LayoutInterleave
	LayoutBlocked
	LayoutAAXSegmented
	LayoutMusACM
)

// SampleFormat is the output PCM sample representation (spec.md §6.2).
type SampleFormat int

const (
	SampleFormatPCM16 SampleFormat = iota
	SampleFormatPCM24
	SampleFormatPCM32
	SampleFormatFloat32
)

// SampleSize returns the byte width of one sample in this format.
func (s SampleFormat) SampleSize() int {
	switch s {
	case SampleFormatPCM16:
		return 2
	case SampleFormatPCM24:
		return 3
	case SampleFormatPCM32, SampleFormatFloat32:
		return 4
	}
	return 2
}

// BlockHeader is format-specific per-block metadata a blocked layout reads
// before decoding each block (spec.md §4.4's "blocked (family)"). It
// updates the channel's offset/step/history state for the next block.
type BlockHeader struct {
	BlockSamples int
	// NextBlockOffset is the absolute offset of the following block header.
	NextBlockOffset int64
	// PerChannel holds per-channel offsets/history updated by the parser;
	// indexed the same as Format.Channels.
	PerChannel []BlockChannelState
}

// BlockChannelState is the portion of a channel's traversal state a block
// header can update.
type BlockChannelState struct {
	Offset int64
	// Codec-specific extras (e.g. MTAF's per-channel step index/history),
	// stored generically so block parsers stay decoupled from specific
	// codec state types.
	Extra [2]int32
}

// BlockHeaderParser reads one block header at offset and returns the
// updated per-channel state plus this block's sample count and the next
// block's offset. One parser exists per blocked-layout variant.
type BlockHeaderParser func(sf streamfile.File, offset int64, channels int) (BlockHeader, error)

// Segment describes one self-contained sub-stream of a segmented layout
// (spec.md §4.4 "segmented (AAX)"): its own codec, sample count, and a
// byte region to decode from.
type Segment struct {
	NumSamples int
	StartOffset int64
	Codec       Codec
	CodecConfig any
}

// ChannelStart is the per-channel starting byte offset computed by a meta
// from the layout's interleave formula (spec.md §3.1 invariant).
type ChannelStart struct {
	Offset int64
}

// Format is the top-level stream descriptor produced by a meta (spec.md
// §3.1's "stream descriptor"). It is immutable metadata; mutable play
// state lives in the root package's Decoder, which is constructed from a
// Format.
type Format struct {
	MetaName string
	Codec    Codec
	Layout   Layout

	Channels      int
	InputChannels int // pre-downmix, before Upmix/Downmix mix commands apply
	SampleRate    int
	NumSamples    int

	LoopFlag       bool
	LoopStartSample int
	LoopEndSample   int

	InterleaveBlockSize      int64
	InterleaveFirstBlockSize int64 // 0 means "same as InterleaveBlockSize"
	InterleaveLastBlockSize  int64

	CodecFrameSize int

	SubsongIndex int // 1-based
	SubsongCount int

	CodecConfig any

	ChannelStartOffsets []ChannelStart

	// StreamFile is the (possibly wrapped/transformed) source bytes are
	// decoded from. All channels share this one File and read it at their
	// own offsets.
	StreamFile streamfile.File

	// BlockParser is set when Layout == LayoutBlocked.
	BlockParser BlockHeaderParser

	// Segments is set when Layout == LayoutAAXSegmented or LayoutMusACM.
	Segments     []Segment
	LoopSegment  int

	StreamName string
}
