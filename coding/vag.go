package coding

import (
	"github.com/farcloser/vgmgo/streamfile"
)

// vagCoefs is the standard 5-entry predictor coefficient pair table used by
// PSX/VAG ADPCM (spec.md §4.3).
var vagCoefs = [5][2]float64{
	{0.0, 0.0},
	{60.0 / 64.0, 0.0},
	{115.0 / 64.0, -52.0 / 64.0},
	{98.0 / 64.0, -55.0 / 64.0},
	{122.0 / 64.0, -60.0 / 64.0},
}

// vagChannelState is the per-channel ADPCM history (spec.md §3.1).
type vagChannelState struct {
	hist1, hist2 float64
	frameSize    int
	looped       bool
}

// VAG decodes PSX/VAG ADPCM: 16-byte frames of (predictor:4|shift:4, flag:8,
// 14 packed-nibble bytes) reconstructing 28 samples per frame (spec.md
// §4.3). FrameSize is configurable per VAG_ADPCM_cfg variants; it defaults
// to the standard 16 bytes (28 samples) when zero.
type VAG struct {
	states map[int]*vagChannelState
	frameSize int
}

// NewVAG builds a VAG decoder with the standard 16-byte frame size. Use
// NewVAGSized for VAG_ADPCM_cfg variants with a non-standard frame size.
func NewVAG() *VAG { return NewVAGSized(16) }

func NewVAGSized(frameSize int) *VAG {
	if frameSize <= 0 {
		frameSize = 16
	}
	return &VAG{states: make(map[int]*vagChannelState), frameSize: frameSize}
}

func (v *VAG) state(channel int) *vagChannelState {
	s, ok := v.states[channel]
	if !ok {
		s = &vagChannelState{frameSize: v.frameSize}
		v.states[channel] = s
	}
	return s
}

const vagSamplesPerFrame = 28

func (v *VAG) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	st := v.state(channel)
	produced := 0
	pos := offset

	for produced < nSamples {
		if st.looped {
			for produced < nSamples {
				out[produced] = 0
				produced++
			}
			return nil
		}

		frame := make([]byte, st.frameSize)
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
		shift := int(frame[0] & 0x0F)
		flag := frame[1]
		if predictor > 4 {
			predictor = 0
		}

		if flag == 0x07 {
			// End-of-loop marker: this frame decodes to silence and the
			// stream should emit zeros thereafter (spec.md §4.3).
			st.looped = true
			continue
		}

		samples := make([]int16, 0, vagSamplesPerFrame)
		for i := 2; i < len(frame) && i < st.frameSize; i++ {
			for _, nib := range [2]byte{frame[i] & 0x0F, frame[i] >> 4} {
				var s int16
				if nib >= 8 {
					s = int16(int32(nib)-16) << (12 - shift)
				} else {
					s = int16(nib) << (12 - shift)
				}
				sample := float64(s) + st.hist1*vagCoefs[predictor][0] + st.hist2*vagCoefs[predictor][1]
				st.hist2 = st.hist1
				st.hist1 = sample
				samples = append(samples, clampADPCM(sample))
			}
		}

		for _, s := range samples {
			if produced >= nSamples {
				break
			}
			out[produced] = s
			produced++
		}
		pos += int64(st.frameSize)
	}
	return nil
}

func clampADPCM(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (v *VAG) Reset(channel int) error {
	v.states[channel] = &vagChannelState{frameSize: v.frameSize}
	return nil
}

func (v *VAG) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	// Decodes samples from offset with the channel's current history and
	// throws the output away.
	scratch := make([]int16, samples)
	return v.Decode(sf, offset, scratch, samples, channel)
}
