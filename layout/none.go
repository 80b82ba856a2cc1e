package layout

import "github.com/farcloser/vgmgo/coding"

// None is the flat layout: the codec is invoked once per channel per play
// call with the full requested sample count, fully responsible for its own
// framing (spec.md §4.4 "decoder is called once per play with the full
// channel count").
type None struct {
	Channels int
}

func (n *None) Render(ctx Context, out []int16, nSamples int) (int, error) {
	f := ctx.Format()
	scratch := make([]int16, nSamples)

	for ch := 0; ch < n.Channels; ch++ {
		offset := ctx.ChannelOffset(ch)
		if err := ctx.Coding().Decode(ctx.StreamFile(), offset, scratch, nSamples, ch); err != nil {
			return 0, err
		}
		for i := 0; i < nSamples; i++ {
			out[i*n.Channels+ch] = scratch[i]
		}
		ctx.SetChannelOffset(ch, offset+coding.BytesConsumed(f.Codec, nSamples))
	}

	return nSamples, nil
}
