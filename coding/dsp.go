package coding

import (
	"github.com/farcloser/vgmgo/streamfile"
)

// DSPCoefs holds the 16 signed 16-bit coefficients (8 pairs) read from a
// Nintendo DSP ADPCM header; each channel has its own table (spec.md
// §4.3).
type DSPCoefs [16]int16

type dspChannelState struct {
	hist1, hist2 int32
}

// DSP decodes Nintendo GameCube/Wii DSP ADPCM: 8-byte frames of
// (predictor:4|scale:4, then 14 packed 4-bit nibbles) producing 14 samples
// per frame, using a per-channel 8-pair coefficient table (spec.md §4.3).
type DSP struct {
	coefs  []DSPCoefs // per channel
	states []dspChannelState
}

const dspSamplesPerFrame = 14
const dspFrameSize = 8

// NewDSP builds a DSP decoder with no coefficient tables; SetCoefs installs
// each channel's table, and a channel without one decodes with all-zero
// coefficients.
func NewDSP() *DSP {
	return &DSP{}
}

// SetCoefs assigns channel's 8-pair coefficient table, read from the meta's
// header parse (spec.md §4.3).
func (d *DSP) SetCoefs(channel int, coefs DSPCoefs) {
	for len(d.coefs) <= channel {
		d.coefs = append(d.coefs, DSPCoefs{})
		d.states = append(d.states, dspChannelState{})
	}
	d.coefs[channel] = coefs
}

func (d *DSP) ensure(channel int) {
	for len(d.coefs) <= channel {
		d.coefs = append(d.coefs, DSPCoefs{})
		d.states = append(d.states, dspChannelState{})
	}
}

func (d *DSP) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	d.ensure(channel)
	st := &d.states[channel]
	coefs := d.coefs[channel]

	produced := 0
	pos := offset
	for produced < nSamples {
		frame := make([]byte, dspFrameSize)
		n, err := streamfile.ReadFull(sf, frame, pos)
		if err != nil {
			return err
		}
		if n < 2 {
			for produced < nSamples {
				out[produced] = 0
				produced++
			}
			return nil
		}

		predictor := int(frame[0] >> 4 & 0x0F)
		scale := int32(1) << uint(frame[0]&0x0F)
		if predictor > 7 {
			predictor = 0
		}
		c1 := int32(coefs[predictor*2])
		c2 := int32(coefs[predictor*2+1])

		for i := 1; i < n && produced < nSamples; i++ {
			for _, nib := range [2]byte{frame[i] >> 4, frame[i] & 0x0F} {
				if produced >= nSamples {
					break
				}
				var signed int32
				if nib >= 8 {
					signed = int32(nib) - 16
				} else {
					signed = int32(nib)
				}
				delta := signed * scale
				sample := (delta<<11 + c1*st.hist1 + c2*st.hist2 + 1024) >> 11
				if sample > 32767 {
					sample = 32767
				} else if sample < -32768 {
					sample = -32768
				}
				st.hist2 = st.hist1
				st.hist1 = sample
				out[produced] = int16(sample)
				produced++
			}
		}
		pos += int64(dspFrameSize)
	}
	return nil
}

func (d *DSP) Reset(channel int) error {
	d.ensure(channel)
	d.states[channel] = dspChannelState{}
	return nil
}

// SetHistory seeds channel's hist1/hist2 (spec.md §4.3). Nothing in this
// module calls it: no layout.Blocked built here installs a HistorySetter.
func (d *DSP) SetHistory(channel int, hist1, hist2 int16) {
	d.ensure(channel)
	d.states[channel] = dspChannelState{hist1: int32(hist1), hist2: int32(hist2)}
}

func (d *DSP) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	scratch := make([]int16, samples)
	return d.Decode(sf, offset, scratch, samples, channel)
}
