package meta

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// XAVS recognizes the "XAVS" chunked container (spec.md §6.3, scenario 5):
// a chunk stream starting at 0x18, each chunk framed by a u32le
// (chunk_id:8 | chunk_size:24) header. chunk_id 0x4n selects 48000 Hz
// audio stream n (interleave 0x200); 0x6n selects 24000 Hz stream n
// (interleave 0x100); 0x56 is video (skipped); 0x21 is an empty marker;
// 0x5F is end-of-stream.
type XAVS struct{}

func NewXAVS() *XAVS { return &XAVS{} }

func (XAVS) Name() string { return "xavs" }

const xavsChunkStart = 0x18

func (XAVS) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)

	magic, err := r.StringFixed(0, 4)
	if err != nil || magic != "XAVS" {
		return nil, ErrNotThisFormat
	}
	subsongCount, err := r.U16LE(0x0C)
	if err != nil {
		return nil, err
	}
	_ = subsongCount // informational only; chunk scan below is authoritative

	subsong := opts.Subsong
	if subsong <= 0 {
		subsong = 1
	}

	size := sf.Size()

	type match struct {
		offset     int64
		sampleRate int
		interleave int64
	}
	var matches []match

	pos := int64(xavsChunkStart)
	for pos+4 <= size {
		header, err := r.U32LE(pos)
		if err != nil {
			break
		}
		chunkID := byte(header)
		chunkSize := int64(header >> 8)

		switch {
		case chunkID == 0x5F: // EOS
			pos = size
			continue
		case chunkID == 0x21, chunkID == 0x56:
			// empty marker / video: skip
		case chunkID&0xF0 == 0x40:
			matches = append(matches, match{offset: pos + 4, sampleRate: 48000, interleave: 0x200})
		case chunkID&0xF0 == 0x60:
			matches = append(matches, match{offset: pos + 4, sampleRate: 24000, interleave: 0x100})
		}
		pos += 4 + chunkSize
	}

	if subsong > len(matches) {
		return nil, ErrNotThisFormat
	}
	m := matches[subsong-1]

	f := &vgmformat.Format{
		MetaName:            "xavs",
		Codec:               vgmformat.CodecVAGADPCM,
		Layout:              vgmformat.LayoutNone,
		Channels:            1,
		InputChannels:       1,
		SampleRate:          m.sampleRate,
		InterleaveBlockSize: m.interleave,
		SubsongIndex:        subsong,
		SubsongCount:        len(matches),
		StreamFile:          sf,
	}
	f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: m.offset}}
	return f, nil
}
