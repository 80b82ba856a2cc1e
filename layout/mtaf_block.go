package layout

import (
	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

const mtafBlockSize = 0x100

// MTAFBlockHeader parses one MTAF block header: a fixed 0x100-byte region
// per channel holding step_index at +4 and the initial predictor (history)
// at +8, followed by 0x100/2 bytes per channel (0x100 samples) of packed
// IMA nibbles (spec.md §4.3
// "per-channel step index clamp, block-layout-driven interleave of
// 0x100/2 samples, reading headers every 0x100 block").
func MTAFBlockHeader(sf streamfile.File, offset int64, channels int) (vgmformat.BlockHeader, error) {
	r := io16.New(sf)
	perChannel := make([]vgmformat.BlockChannelState, channels)

	headerSize := int64(channels) * mtafBlockSize
	dataStart := offset + headerSize

	for ch := 0; ch < channels; ch++ {
		chBase := offset + int64(ch)*mtafBlockSize
		stepIndex, err := r.U32LE(chBase + 4)
		if err != nil {
			return vgmformat.BlockHeader{}, err
		}
		predictor, err := r.U32LE(chBase + 8)
		if err != nil {
			return vgmformat.BlockHeader{}, err
		}
		perChannel[ch] = vgmformat.BlockChannelState{
			Offset: dataStart + int64(ch)*(mtafBlockSize/2),
			Extra:  [2]int32{int32(predictor), int32(stepIndex)},
		}
	}

	return vgmformat.BlockHeader{
		BlockSamples:    mtafBlockSize, // one byte per two samples, 0x80 bytes/channel
		NextBlockOffset: dataStart + int64(channels)*(mtafBlockSize/2),
		PerChannel:      perChannel,
	}, nil
}
