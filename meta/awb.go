package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// AWB recognizes CRI's audio wave bank in its two dialects (spec.md §6.3):
// standard AWB ("AFS2" magic, 32 or 16-bit offset table selected by a
// flags byte) and the "AFS2" wrapper some titles call AFS2 directly with
// an identical layout — both share one offset-table walk here, switching
// only the offset entry width.
type AWB struct{}

func NewAWB() *AWB { return &AWB{} }

func (AWB) Name() string { return "awb" }

func (AWB) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)

	magic, err := r.StringFixed(0, 4)
	if err != nil || (magic != "AFS2" && magic != "AFS\x00") {
		return nil, ErrNotThisFormat
	}

	offsetWidthFlag, err := r.U8(0x06)
	if err != nil {
		return nil, err
	}
	fileCount, err := r.U32LE(0x08)
	if err != nil {
		return nil, err
	}
	alignment, err := r.U32LE(0x0C)
	if err != nil || alignment == 0 {
		alignment = 32
	}

	entryWidth := int64(4)
	if offsetWidthFlag == 0 {
		entryWidth = 2
	}

	tableStart := int64(0x10) + int64(fileCount)*4 // id table precedes the offset table in AFS2
	subsong := opts.Subsong
	if subsong <= 0 {
		subsong = 1
	}
	if subsong > int(fileCount) {
		return nil, ErrNotThisFormat
	}
	idx := int64(subsong - 1)

	readOffset := func(pos int64) (int64, error) {
		if entryWidth == 2 {
			v, err := r.U16LE(pos)
			return int64(v), err
		}
		v, err := r.U32LE(pos)
		return int64(v), err
	}

	start, err := readOffset(tableStart + idx*entryWidth)
	if err != nil {
		return nil, err
	}
	end, err := readOffset(tableStart + (idx+1)*entryWidth)
	if err != nil {
		return nil, err
	}
	start = alignUp(start, int64(alignment))
	_ = end

	f := &vgmformat.Format{
		MetaName:      "awb",
		Codec:         vgmformat.CodecVAGADPCM,
		Layout:        vgmformat.LayoutNone,
		Channels:      2,
		InputChannels: 2,
		SampleRate:    44100,
		SubsongIndex:  subsong,
		SubsongCount:  int(fileCount),
		StreamFile:    sf,
	}
	f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: start}, {Offset: start}}
	return f, nil
}
