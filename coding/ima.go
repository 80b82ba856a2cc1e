package coding

import (
	"github.com/farcloser/vgmgo/streamfile"
)

var imaIndexTable = [16]int{-1, -1, -1, -1, 2, 4, 6, 8, -1, -1, -1, -1, 2, 4, 6, 8}

var imaStepTable = [89]int32{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17,
	19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118,
	130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796,
	876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871, 5358,
	5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

type imaChannelState struct {
	predictor int32
	stepIndex int
}

func imaDecodeNibble(nib byte, st *imaChannelState) int16 {
	step := imaStepTable[st.stepIndex]
	diff := step >> 3
	if nib&1 != 0 {
		diff += step >> 2
	}
	if nib&2 != 0 {
		diff += step >> 1
	}
	if nib&4 != 0 {
		diff += step
	}
	if nib&8 != 0 {
		diff = -diff
	}

	pred := st.predictor + diff
	if pred > 32767 {
		pred = 32767
	} else if pred < -32768 {
		pred = -32768
	}
	st.predictor = pred

	st.stepIndex += imaIndexTable[nib]
	if st.stepIndex < 0 {
		st.stepIndex = 0
	} else if st.stepIndex > 88 {
		st.stepIndex = 88
	}
	return int16(pred)
}

// IMA decodes standard IMA ADPCM: each byte packs two 4-bit nibbles LSB
// first, one nibble producing one sample via the shared step/index tables
// (spec.md §4.3). Each channel carries its own predictor/step-index state,
// which persists across Decode calls until Reset or SetHistory replaces it.
type IMA struct {
	states []imaChannelState
}

func NewIMA(channels int) *IMA {
	return &IMA{states: make([]imaChannelState, channels)}
}

func (d *IMA) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	st := &d.states[channel]
	nBytes := (nSamples + 1) / 2
	buf := make([]byte, nBytes)
	n, err := streamfile.ReadFull(sf, buf, offset)
	if err != nil {
		return err
	}

	produced := 0
	for i := 0; i < n && produced < nSamples; i++ {
		lo := buf[i] & 0x0F
		out[produced] = imaDecodeNibble(lo, st)
		produced++
		if produced >= nSamples {
			break
		}
		hi := buf[i] >> 4
		out[produced] = imaDecodeNibble(hi, st)
		produced++
	}
	for ; produced < nSamples; produced++ {
		out[produced] = 0
	}
	return nil
}

func (d *IMA) Reset(channel int) error {
	d.states[channel] = imaChannelState{}
	return nil
}

// SetHistory seeds channel's predictor/step-index explicitly (spec.md
// §4.3's "MTAF variant stores the initial predictor/index per block").
// Nothing in this module calls it: no layout.Blocked built here installs a
// HistorySetter.
func (d *IMA) SetHistory(channel int, predictor int16, stepIndex int) {
	d.states[channel] = imaChannelState{predictor: int32(predictor), stepIndex: stepIndex}
}

func (d *IMA) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	scratch := make([]int16, samples)
	return d.Decode(sf, offset, scratch, samples, channel)
}

// MTAF is the block-oriented IMA ADPCM variant used by MT Framework titles:
// each block stores per-channel initial predictor/step-index in its header
// (consumed via layout.Blocked + vgmformat.BlockHeaderParser), and each
// channel's body is a contiguous run of bytes decoded with IMA's
// two-nibbles-per-byte loop (spec.md §4.3, §6.5).
type MTAF struct {
	inner *IMA
}

func NewMTAF(channels int) *MTAF {
	return &MTAF{inner: NewIMA(channels)}
}

func (d *MTAF) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	return d.inner.Decode(sf, offset, out, nSamples, channel)
}

func (d *MTAF) Reset(channel int) error { return d.inner.Reset(channel) }

func (d *MTAF) SetHistory(channel int, predictor int16, stepIndex int) {
	d.inner.SetHistory(channel, predictor, stepIndex)
}

func (d *MTAF) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	return d.inner.SeekDiscard(sf, offset, samples, channel)
}
