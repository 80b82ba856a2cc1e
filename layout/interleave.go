package layout

import "github.com/farcloser/vgmgo/coding"

// Interleave traverses fixed-size per-channel blocks laid out sequentially
// on disk: channel ch's data for block b starts at
// startOffset[ch] + b*BlockSize, except block 0 may use FirstBlockSize and
// the final block may use LastBlockSize (spec.md §4.4). CurrentSample
// tracks play position across Render calls so block boundaries are
// respected even when requests don't align to a block.
type Interleave struct {
	Channels            int
	BlockSize           int64
	FirstBlockSize      int64 // 0 means "same as BlockSize"
	LastBlockSize       int64 // 0 means "same as BlockSize"
	SamplesPerBlock     int
	StartOffset         []int64 // per channel
	TotalBlocks         int

	CurrentSample int64
}

func (l *Interleave) blockSizeFor(block int) int64 {
	if block == 0 && l.FirstBlockSize > 0 {
		return l.FirstBlockSize
	}
	if block == l.TotalBlocks-1 && l.LastBlockSize > 0 {
		return l.LastBlockSize
	}
	return l.BlockSize
}

func (l *Interleave) Render(ctx Context, out []int16, nSamples int) (int, error) {
	f := ctx.Format()
	spb := int64(l.SamplesPerBlock)
	if spb <= 0 {
		spb = 1
	}

	produced := 0
	for produced < nSamples {
		block := int(l.CurrentSample / spb)
		intoBlock := l.CurrentSample % spb
		todo := int(spb - intoBlock)
		if remaining := nSamples - produced; todo > remaining {
			todo = remaining
		}
		if todo <= 0 {
			break
		}

		scratch := make([]int16, todo)
		for ch := 0; ch < l.Channels; ch++ {
			var base int64
			if ch < len(l.StartOffset) {
				base = l.StartOffset[ch]
			}
			blockStart := base + int64(block)*l.BlockSize
			offset := blockStart + coding.BytesConsumed(f.Codec, int(intoBlock))

			if err := ctx.Coding().Decode(ctx.StreamFile(), offset, scratch, todo, ch); err != nil {
				return produced, err
			}
			for i := 0; i < todo; i++ {
				out[(produced+i)*l.Channels+ch] = scratch[i]
			}
		}

		produced += todo
		l.CurrentSample += int64(todo)
	}
	return produced, nil
}
