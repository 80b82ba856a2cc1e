// Package vgmstream is the public decode API (spec.md §6.1): the facade
// that ties streamfile, coding, layout, meta and mixing together, the same
// way the teacher's root `flac` package is the facade over `frame`,
// `meta`, and `internal/bits`.
package vgmstream

import (
	"fmt"

	"github.com/farcloser/vgmgo/coding"
	"github.com/farcloser/vgmgo/layout"
	"github.com/farcloser/vgmgo/meta"
	"github.com/farcloser/vgmgo/mixing"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// Stream is the per-file decode handle: format metadata, codec/layout
// state, mixer, and play position. It is not safe for concurrent use
// (spec.md §5: single-threaded, synchronous, no hot-path goroutines).
type Stream struct {
	registry *meta.Registry
	cfg      Config

	Format  *vgmformat.Format
	decoder coding.Decoder
	lay     layout.Layout
	mixer   *mixing.Mixer

	// Buf is the scratch buffer Play decodes into (spec.md §6.1's
	// play()/fill() split: play() "produces into s.Decoder.Buf").
	Buf []int16

	channelOffsets []int64

	currentSample int64
	playPosition  int64
	loopCount     float64
	done          bool

	effLoopFlag     bool
	loopStartSample int64
	loopEndSample   int64
	loopsRemaining  int // -1 = loop forever, else remaining loop-backs owed
	inFadeTail      bool

	loopSnapshot      *layout.Snapshot
	loopSnapshotTaken bool
	fadeStartSample   int64
	fadeEndSample     int64
	fadeConfigured    bool
}

// Init constructs a Stream wired to the default format registry (spec.md
// §6.1). Callers typically follow with Setup then Open.
func Init() *Stream {
	return &Stream{registry: DefaultRegistry(), cfg: DefaultConfig()}
}

// Setup installs cfg, replacing the current configuration as a whole
// (spec.md §6.1). cfg.DisableConfigOverride is not read by Setup or by
// anything else in this package.
func (s *Stream) Setup(cfg Config) {
	s.cfg = cfg
}

// Open recognizes sf's container format and prepares the stream for
// playback (spec.md §6.1's open()). It resolves the loop/fade
// configuration against cfg immediately so Play/Fill never re-derive it.
func (s *Stream) Open(sf streamfile.File, opts OpenOptions) error {
	format, err := s.registry.Open(sf, meta.Options{
		Subsong:          opts.Subsong,
		FormatInternalID: opts.FormatInternalID,
		StereoTrack:      opts.StereoTrack,
	})
	if err != nil {
		return newDecodeError(ErrKindNotRecognized, opts.FormatInternalID, -1, err)
	}

	dec, err := coding.New(format.Codec, format.CodecConfig, format.Channels)
	if err != nil {
		return newDecodeError(ErrKindUnsupportedCodec, format.MetaName, -1, err)
	}

	lay, err := buildLayout(format)
	if err != nil {
		return newDecodeError(ErrKindInternalDecoderError, format.MetaName, -1, err)
	}

	s.Format = format
	s.decoder = dec
	s.lay = lay
	s.channelOffsets = make([]int64, format.Channels)
	for ch := range s.channelOffsets {
		if ch < len(format.ChannelStartOffsets) {
			s.channelOffsets[ch] = format.ChannelStartOffsets[ch].Offset
		}
	}

	s.currentSample = 0
	s.playPosition = 0
	s.loopCount = 0
	s.done = false
	s.loopSnapshot = nil
	s.loopSnapshotTaken = false

	s.applyLoopConfig()
	s.mixer = mixing.NewMixer(format.Channels, s.buildMixCommands())

	return nil
}

// buildLayout constructs the traversal policy named by format.Layout. For
// an AAX segmented layout it wires one coding.Decoder per segment from that
// segment's Codec (buildSegmentedFromFormat); a MusACM layout is rejected
// with an error.
func buildLayout(f *vgmformat.Format) (layout.Layout, error) {
	switch f.Layout {
	case vgmformat.LayoutNone:
		return &layout.None{Channels: f.Channels}, nil
	case vgmformat.LayoutInterleave:
		return &layout.Interleave{
			Channels:        f.Channels,
			BlockSize:       f.InterleaveBlockSize,
			FirstBlockSize:  f.InterleaveFirstBlockSize,
			LastBlockSize:   f.InterleaveLastBlockSize,
			SamplesPerBlock: samplesPerBlockFor(f),
			StartOffset:     startOffsetsOf(f),
			TotalBlocks:     totalBlocksFor(f),
		}, nil
	case vgmformat.LayoutBlocked:
		if f.BlockParser == nil {
			return nil, fmt.Errorf("vgmstream: blocked layout missing BlockParser")
		}
		return &layout.Blocked{Channels: f.Channels, Parser: f.BlockParser}, nil
	case vgmformat.LayoutAAXSegmented:
		return buildSegmentedFromFormat(f)
	case vgmformat.LayoutMusACM:
		return nil, fmt.Errorf("vgmstream: mus_acm layout requires meta-constructed segments")
	}
	return nil, fmt.Errorf("vgmstream: unknown layout %d", f.Layout)
}

func samplesPerBlockFor(f *vgmformat.Format) int {
	if f.InterleaveBlockSize <= 0 {
		return 1
	}
	perChannelBytes := coding.BytesConsumed(f.Codec, 1)
	if perChannelBytes <= 0 {
		return 1
	}
	return int(f.InterleaveBlockSize / perChannelBytes)
}

func totalBlocksFor(f *vgmformat.Format) int {
	spb := samplesPerBlockFor(f)
	if spb <= 0 {
		return 1
	}
	return (f.NumSamples + spb - 1) / spb
}

func startOffsetsOf(f *vgmformat.Format) []int64 {
	out := make([]int64, len(f.ChannelStartOffsets))
	for i, c := range f.ChannelStartOffsets {
		out[i] = c.Offset
	}
	return out
}

// buildSegmentedFromFormat wires one coding.Decoder per AAX segment
// directly from Format.Segments, used when a meta populates Segments
// without pre-building the layout.AAX itself.
func buildSegmentedFromFormat(f *vgmformat.Format) (*layout.AAX, error) {
	segs := make([]layout.SegmentDecoder, len(f.Segments))
	for i, seg := range f.Segments {
		dec, err := coding.New(seg.Codec, seg.CodecConfig, f.Channels)
		if err != nil {
			return nil, err
		}
		segs[i] = layout.SegmentDecoder{
			Decoder:         dec,
			Offsets:         []int64{seg.StartOffset},
			NumSamples:      int64(seg.NumSamples),
			BytesPerBlock:   16,
			SamplesPerBlock: 28,
		}
	}
	loopSeg := f.LoopSegment
	if loopSeg < 0 {
		loopSeg = 0
	}
	return &layout.AAX{Channels: f.Channels, Segments: segs, LoopSegment: loopSeg}, nil
}

// --- layout.Context ---

func (s *Stream) StreamFile() streamfile.File { return s.Format.StreamFile }
func (s *Stream) Coding() coding.Decoder      { return s.decoder }
func (s *Stream) ChannelOffset(channel int) int64 {
	if channel < 0 || channel >= len(s.channelOffsets) {
		return 0
	}
	return s.channelOffsets[channel]
}
func (s *Stream) SetChannelOffset(channel int, offset int64) {
	if channel < 0 || channel >= len(s.channelOffsets) {
		return
	}
	s.channelOffsets[channel] = offset
}

// layout.Context requires an unqualified Format() method; Go forbids a
// method and an exported field from sharing a name, so the field above is
// named Format and this method is the interface-satisfying accessor.
type contextAdapter struct{ s *Stream }

func (c contextAdapter) Format() *vgmformat.Format          { return c.s.Format }
func (c contextAdapter) StreamFile() streamfile.File        { return c.s.StreamFile() }
func (c contextAdapter) Coding() coding.Decoder              { return c.s.Coding() }
func (c contextAdapter) ChannelOffset(channel int) int64     { return c.s.ChannelOffset(channel) }
func (c contextAdapter) SetChannelOffset(channel int, o int64) { c.s.SetChannelOffset(channel, o) }

func (s *Stream) ctx() layout.Context { return contextAdapter{s} }

// playChunk is the frame count Play decodes per call into s.Buf.
const playChunk = 4096

// Play renders one internal chunk of PCM into s.Buf and returns the number
// of frames produced (spec.md §6.1's play()/fill() split); most callers
// use Fill directly with their own buffer instead.
func (s *Stream) Play() (int, error) {
	if s.Format == nil {
		return 0, ErrStreamNotOpen
	}
	need := playChunk * s.Format.Channels
	if cap(s.Buf) < need {
		s.Buf = make([]int16, need)
	}
	s.Buf = s.Buf[:need]
	return s.Fill(s.Buf)
}

// Fill decodes into buf (interleaved, buf[frame*channels+channel]),
// applying loop/fade handling, and returns the number of frames produced.
// It never returns fewer than requested except at genuine end of stream
// (spec.md §6.1); a mid-stream codec error is logged and the remainder of
// buf is zero-filled rather than aborting the whole call (spec.md §7). A
// failure to restore the loop point returns the frames produced so far with
// a *DecodeError.
func (s *Stream) Fill(buf []int16) (int, error) {
	if s.Format == nil {
		return 0, ErrStreamNotOpen
	}
	channels := s.Format.Channels
	nSamples := len(buf) / channels
	if nSamples == 0 {
		return 0, nil
	}

	produced := 0
	for produced < nSamples {
		if s.done {
			break
		}

		s.maybeSnapshotLoop()

		// Reached (or past) the loop point: decide whether to loop again,
		// take the one extra pass that gives a configured fade material to
		// ramp over, or stop.
		if s.effLoopFlag && s.currentSample >= s.loopEndSample {
			if s.shouldKeepLooping() {
				if err := s.performLoop(); err != nil {
					return produced, newDecodeError(ErrKindInternalDecoderError, s.Format.MetaName, s.currentSample, err)
				}
				continue
			}
			if s.fadeConfigured && !s.inFadeTail {
				s.inFadeTail = true
				if err := s.performLoop(); err != nil {
					return produced, newDecodeError(ErrKindInternalDecoderError, s.Format.MetaName, s.currentSample, err)
				}
				continue
			}
			s.done = true
			break
		}

		if s.inFadeTail && s.playPosition >= s.fadeEndSample {
			s.done = true
			break
		}

		boundary := int64(s.Format.NumSamples)
		if s.effLoopFlag && s.currentSample < s.loopEndSample {
			boundary = s.loopEndSample
		}
		want := nSamples - produced
		if remain := boundary - s.currentSample; remain < int64(want) {
			want = int(remain)
		}
		if want <= 0 {
			s.done = true
			break
		}

		n, err := s.lay.Render(s.ctx(), buf[produced*channels:], want)
		if err != nil {
			logf(LogLevelError, "vgmstream: decode error at sample %d: %v", s.currentSample, err)
			for i := produced * channels; i < len(buf); i++ {
				buf[i] = 0
			}
			return produced, nil
		}
		if n == 0 {
			s.done = true
			break
		}

		mixed := s.mixer.Apply(buf[produced*channels:(produced+n)*channels], n, s.playPosition)
		copy(buf[produced*channels:(produced+n)*channels], mixed)

		produced += n
		s.currentSample += int64(n)
		s.playPosition += int64(n)
	}

	for i := produced * channels; i < len(buf); i++ {
		buf[i] = 0
	}
	return produced, nil
}

// GetPlayPosition returns the running count of samples delivered so far
// (spec.md §6.1), which differs from currentSample once looping wraps it.
func (s *Stream) GetPlayPosition() int64 { return s.playPosition }

// Seek moves the play cursor to sampleIndex. Codecs without random access
// (Ongakukan, Relic, Circus) reseek by discarding from the nearest prior
// frame boundary via Decoder.SeekDiscard (spec.md §8.1 "documented
// per-codec seek slack"); this engine takes the simple, always-correct
// path of resetting state and discarding forward from zero, which every
// codec supports uniformly.
func (s *Stream) Seek(sampleIndex int64) error {
	if s.Format == nil {
		return ErrStreamNotOpen
	}
	if err := s.Reset(); err != nil {
		return err
	}
	if sampleIndex <= 0 {
		return nil
	}

	const discardChunk = 4096
	scratch := make([]int16, discardChunk*s.Format.Channels)
	remaining := sampleIndex
	for remaining > 0 {
		want := remaining
		if want > discardChunk {
			want = discardChunk
		}
		n, err := s.Fill(scratch[:want*int64(s.Format.Channels)])
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
	}
	return nil
}

// Reset rewinds play state to the beginning without re-recognizing the
// format (spec.md §6.1).
func (s *Stream) Reset() error {
	if s.Format == nil {
		return ErrStreamNotOpen
	}
	for ch := range s.channelOffsets {
		if ch < len(s.Format.ChannelStartOffsets) {
			s.channelOffsets[ch] = s.Format.ChannelStartOffsets[ch].Offset
		}
		if err := s.decoder.Reset(ch); err != nil {
			return err
		}
	}

	switch lay := s.lay.(type) {
	case *layout.AAX:
		if err := lay.ResetToStart(); err != nil {
			return err
		}
	case *layout.MusACM:
		if err := lay.ResetToStart(); err != nil {
			return err
		}
	}

	s.currentSample = 0
	s.playPosition = 0
	s.loopCount = 0
	s.done = false
	s.inFadeTail = false
	s.loopSnapshot = nil
	s.loopSnapshotTaken = false
	return nil
}

// Close releases the underlying streamfile.File. free() from spec.md
// §6.1 has no separate Go realization: garbage collection reclaims
// everything Close doesn't own.
func (s *Stream) Close() error {
	if s.Format == nil || s.Format.StreamFile == nil {
		return nil
	}
	return s.Format.StreamFile.Close()
}
