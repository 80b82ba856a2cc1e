package meta

import (
	"strings"

	"github.com/farcloser/vgmgo/coding"
	"github.com/farcloser/vgmgo/layout"
	"github.com/farcloser/vgmgo/meta/criutf"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// AAX recognizes a CRI @UTF table whose rows are segment descriptors;
// per-segment name strings start with "AAX\0" (spec.md §6.3). Every
// segment is decoded as PSX/VAG ADPCM (CodecVAGADPCM, 16-byte frames of 28
// samples); there is no ADX decoder. Looping re-enters at a designated segment index
// rather than a sample position.
type AAX struct{}

func NewAAX() *AAX { return &AAX{} }

func (AAX) Name() string { return "aax" }

func (AAX) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	tbl, err := criutf.Open(sf, 0)
	if err != nil {
		return nil, ErrNotThisFormat
	}

	if tbl.NumRows() == 0 {
		return nil, ErrNotThisFormat
	}
	name, err := tbl.QueryString(0, "name")
	if err != nil || !strings.HasPrefix(name, "AAX\x00") {
		return nil, ErrNotThisFormat
	}

	numRows := tbl.NumRows()
	segments := make([]vgmformat.Segment, 0, numRows)
	var totalSamples int
	loopSegment := -1

	for row := 0; row < numRows; row++ {
		offsetData, err := tbl.QueryData(row, "data")
		if err != nil {
			return nil, err
		}
		samples, err := tbl.QueryU32(row, "num_samples")
		if err != nil {
			samples = 0
		}
		isLoop, err := tbl.QueryU32(row, "is_loop_segment")
		if err == nil && isLoop != 0 {
			loopSegment = row
		}
		segments = append(segments, vgmformat.Segment{
			NumSamples:  int(samples),
			StartOffset: offsetData.Offset,
			Codec:       vgmformat.CodecVAGADPCM,
		})
		totalSamples += int(samples)
	}

	f := &vgmformat.Format{
		MetaName:      "aax",
		Codec:         vgmformat.CodecVAGADPCM,
		Layout:        vgmformat.LayoutAAXSegmented,
		Channels:      1,
		InputChannels: 1,
		SampleRate:    44100,
		NumSamples:    totalSamples,
		Segments:      segments,
		LoopSegment:   loopSegment,
		LoopFlag:      loopSegment >= 0,
		StreamFile:    sf,
	}
	return f, nil
}

// BuildAAXLayout constructs the layout.AAX traversal state for an opened
// AAX Format, wiring one coding.Decoder from newDecoder per segment with
// the PSX/VAG frame ratio of 16 bytes per 28 samples.
func BuildAAXLayout(f *vgmformat.Format, newDecoder func() (coding.Decoder, error)) (*layout.AAX, error) {
	segs := make([]layout.SegmentDecoder, len(f.Segments))
	for i, s := range f.Segments {
		dec, err := newDecoder()
		if err != nil {
			return nil, err
		}
		segs[i] = layout.SegmentDecoder{
			Decoder:         dec,
			Offsets:         []int64{s.StartOffset},
			NumSamples:      int64(s.NumSamples),
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
