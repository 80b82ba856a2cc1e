package layout

import "github.com/farcloser/vgmgo/coding"

// AAX drives a concatenation of N sub-streams, each with its own codec
// instance and state,
// switching segments on exhaustion and jumping to LoopSegment on loop
// (spec.md §4.4 "segmented (AAX)").
type AAX struct {
	Channels     int
	Segments     []SegmentDecoder
	LoopSegment  int

	current   int
	intoSeg   int64
}

// SegmentDecoder is one AAX segment's decode unit: its own coding.Decoder,
// channel start offsets and sample count; it reads from ctx's stream file.
// BytesPerBlock/SamplesPerBlock describe the segment codec's frame ratio
// (16 bytes/28 samples for PSX/VAG ADPCM) so the layout can advance each
// channel's file offset without depending on a specific vgmformat.Codec
// tag (a segment's codec is opaque here, same as spec.md's per-segment
// codec state).
type SegmentDecoder struct {
	Decoder         coding.Decoder
	Offsets         []int64 // per channel, offsets into ctx's StreamFile
	NumSamples      int64
	BytesPerBlock   int64
	SamplesPerBlock int64
}

func (s *SegmentDecoder) bytesFor(samples int64) int64 {
	if s.SamplesPerBlock <= 0 {
		return samples * 2
	}
	blocks := (samples + s.SamplesPerBlock - 1) / s.SamplesPerBlock
	return blocks * s.BytesPerBlock
}

func (a *AAX) Render(ctx Context, out []int16, nSamples int) (int, error) {
	produced := 0
	for produced < nSamples {
		if a.current >= len(a.Segments) {
			break
		}
		seg := &a.Segments[a.current]
		remaining := seg.NumSamples - a.intoSeg
		if remaining <= 0 {
			a.current++
			a.intoSeg = 0
			continue
		}

		todo := int(remaining)
		if want := nSamples - produced; todo > want {
			todo = want
		}

		for ch := 0; ch < a.Channels && ch < len(seg.Offsets); ch++ {
			offset := seg.Offsets[ch] + seg.bytesFor(a.intoSeg)
			scratch := make([]int16, todo)
			if err := seg.Decoder.Decode(ctx.StreamFile(), offset, scratch, todo, ch); err != nil {
				return produced, err
			}
			for i := 0; i < todo; i++ {
				out[(produced+i)*a.Channels+ch] = scratch[i]
			}
		}

		produced += todo
		a.intoSeg += int64(todo)
	}
	return produced, nil
}

// Loop resets every segment from LoopSegment onward and re-enters decode
// there, per spec.md §4.4's "on loop it jumps to the loop segment and
// resets all downstream segments".
func (a *AAX) Loop() error {
	a.current = a.LoopSegment
	a.intoSeg = 0
	for i := a.LoopSegment; i < len(a.Segments); i++ {
		for ch := 0; ch < a.Channels; ch++ {
			if err := a.Segments[i].Decoder.Reset(ch); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResetToStart rewinds to segment 0 regardless of LoopSegment, resetting
// every segment's decoder. Used by a full stream Reset, which differs from
// Loop in that it must not leave playback stuck mid-way through the
// pre-loop segments.
func (a *AAX) ResetToStart() error {
	a.current = 0
	a.intoSeg = 0
	for i := range a.Segments {
		for ch := 0; ch < a.Channels; ch++ {
			if err := a.Segments[i].Decoder.Reset(ch); err != nil {
				return err
			}
		}
	}
	return nil
}
