package meta

import (
	"fmt"

	"github.com/farcloser/vgmgo/meta/acb"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// ACBAWB recognizes a CRI ACB cue sheet, resolves opts.Subsong to a
// waveform via the acb package's cue-name walk, and hands the embedded
// AWB region to the AWB meta as a subfile (spec.md §6.3 "ACB→AWB"). ACB's
// own @UTF header starts with a "Header" row rather than the "CPK "/"AFS2"
// magics the other container metas key off, so it's distinguished instead
// by the presence of a top-level AwbFile column.
type ACBAWB struct{}

func NewACBAWB() *ACBAWB { return &ACBAWB{} }

func (ACBAWB) Name() string { return "acb" }

func (ACBAWB) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	cue, err := acb.Open(sf)
	if err != nil {
		return nil, ErrNotThisFormat
	}
	if cue.AwbFile == nil {
		// Externally streamed AWB (a sibling .awb file) isn't resolved here;
		// this engine only follows an embedded memory AWB (spec.md §6.3
		// "Waveform resolution ... rejects for memory decode" per
		// SPEC_FULL.md's ACB note).
		return nil, ErrNotThisFormat
	}

	sub := streamfile.NewSubfile(sf, cue.AwbFile.Offset, cue.AwbFile.Size, "embedded.awb")

	awb := NewAWB()
	f, err := awb.TryOpen(sub, opts)
	if err != nil {
		return nil, fmt.Errorf("meta.ACBAWB: embedded awb: %w", err)
	}
	f.MetaName = "acb_awb"
	return f, nil
}
