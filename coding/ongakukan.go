package coding

import (
	"github.com/farcloser/vgmgo/streamfile"
)

// ongakukanFilterTable is the fixed 16-entry scale-update table (spec.md
// §4.3: PS2/PSP Ongakukan ADPCM).
var ongakukanFilterTable = [16]int32{
	233, 549, 453, 375, 310, 233, 233, 233,
	233, 233, 233, 233, 310, 375, 453, 549,
}

type ongakukanChannelState struct {
	baseScale  int32
	hist0      int32
	hist1      int32
	odd        bool // seek may land mid-byte only at an even sample boundary
}

// Ongakukan decodes the PS2/PSP single-byte-per-two-samples codec: each
// byte's high nibble updates hist0 from hist1, then its low nibble updates
// hist1 from hist0, both scaled by a running base_scale adjusted through
// ongakukanFilterTable after every nibble (spec.md §4.3). Total sample
// count is always data_size*2; seeking must land on an even sample and
// restarts codec state, since there is no random access inside a byte.
type Ongakukan struct {
	states map[int]*ongakukanChannelState
}

func NewOngakukan() *Ongakukan {
	return &Ongakukan{states: make(map[int]*ongakukanChannelState)}
}

func (o *Ongakukan) state(channel int) *ongakukanChannelState {
	s, ok := o.states[channel]
	if !ok {
		s = &ongakukanChannelState{baseScale: 16}
		o.states[channel] = s
	}
	return s
}

func ongakukanStep(nibble byte, hist, other int32, scale *int32) int32 {
	sample := other + (int32(nibble)-8)*(*scale)
	*scale = (*scale * ongakukanFilterTable[nibble]) >> 8
	return sample
}

func (o *Ongakukan) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	st := o.state(channel)
	produced := 0
	nBytes := (nSamples + 1) / 2
	buf := make([]byte, nBytes)
	n, err := streamfile.ReadFull(sf, buf, offset)
	if err != nil {
		return err
	}

	for i := 0; i < n && produced < nSamples; i++ {
		hi := buf[i] >> 4
		st.hist0 = ongakukanStep(hi, st.hist0, st.hist1, &st.baseScale)
		out[produced] = clampADPCM(float64(st.hist0))
		produced++

		if produced >= nSamples {
			break
		}
		lo := buf[i] & 0x0F
		st.hist1 = ongakukanStep(lo, st.hist1, st.hist0, &st.baseScale)
		out[produced] = clampADPCM(float64(st.hist1))
		produced++
	}
	for ; produced < nSamples; produced++ {
		out[produced] = 0
	}
	return nil
}

func (o *Ongakukan) Reset(channel int) error {
	o.states[channel] = &ongakukanChannelState{baseScale: 16}
	return nil
}

// SeekDiscard resets the channel's state and then decodes and discards
// samples from the requested offset; Ongakukan has no random access inside
// a byte, so callers must align target samples to an even boundary
// (spec.md §4.3).
func (o *Ongakukan) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	if err := o.Reset(channel); err != nil {
		return err
	}
	scratch := make([]int16, samples)
	return o.Decode(sf, offset, scratch, samples, channel)
}
