package layout

import "github.com/farcloser/vgmgo/vgmformat"

// Blocked traverses a repeating format-defined block: before each block's
// samples are decoded, Parser reads the block's header, returning the
// number of samples the block holds and every channel's updated offset
// (and, for ADPCM formats, per-channel history), which layout applies by
// calling HistorySetter if non-nil (spec.md §4.4 "blocked (family)").
type Blocked struct {
	Channels int
	Parser   vgmformat.BlockHeaderParser

	// HistorySetter lets ADPCM codecs that keep external history (IMA/MTAF,
	// DSP) absorb the block header's per-channel predictor/step or
	// hist1/hist2 fields; nil for codecs with no persisted block header
	// state (VAG, Ongakukan use in-band flags instead).
	HistorySetter func(channel int, state vgmformat.BlockChannelState)

	nextBlockOffset int64
	remaining       int
	initialized     bool
}

func (l *Blocked) Render(ctx Context, out []int16, nSamples int) (int, error) {
	produced := 0
	for produced < nSamples {
		if !l.initialized || l.remaining == 0 {
			offset := l.nextBlockOffset
			if !l.initialized {
				offset = ctx.ChannelOffset(0)
			}
			hdr, err := l.Parser(ctx.StreamFile(), offset, l.Channels)
			if err != nil {
				return produced, err
			}
			l.initialized = true
			l.remaining = hdr.BlockSamples
			l.nextBlockOffset = hdr.NextBlockOffset
			for ch, st := range hdr.PerChannel {
				ctx.SetChannelOffset(ch, st.Offset)
				if l.HistorySetter != nil {
					l.HistorySetter(ch, st)
				}
			}
			if l.remaining <= 0 {
				return produced, nil
			}
		}

		todo := l.remaining
		if remainingRequest := nSamples - produced; todo > remainingRequest {
			todo = remainingRequest
		}

		for ch := 0; ch < l.Channels; ch++ {
			offset := ctx.ChannelOffset(ch)
			scratch := make([]int16, todo)
			if err := ctx.Coding().Decode(ctx.StreamFile(), offset, scratch, todo, ch); err != nil {
				return produced, err
			}
			for i := 0; i < todo; i++ {
				out[(produced+i)*l.Channels+ch] = scratch[i]
			}
		}

		produced += todo
		l.remaining -= todo
	}
	return produced, nil
}
