package coding

import (
	"encoding/binary"
	"math"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// PCM decodes the uncompressed sample formats (spec.md §4.3): s16le/be,
// s24le, s32le, f32le, s8 (CodecPCM8) and u8 (CodecPCM8U). Big-endian
// 24-bit, 32-bit and float samples are not decoded. It is stateless across
// calls (no history), so Reset and SeekDiscard are no-ops.
type PCM struct {
	codec vgmformat.Codec
}

func NewPCM(codec vgmformat.Codec) *PCM { return &PCM{codec: codec} }

func (p *PCM) bytesPerSample() int {
	switch p.codec {
	case vgmformat.CodecPCM8, vgmformat.CodecPCM8U:
		return 1
	case vgmformat.CodecPCM16LE, vgmformat.CodecPCM16BE:
		return 2
	case vgmformat.CodecPCM24LE:
		return 3
	case vgmformat.CodecPCM32LE, vgmformat.CodecFloat32LE:
		return 4
	}
	return 2
}

func (p *PCM) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	bps := p.bytesPerSample()
	buf := make([]byte, nSamples*bps)
	n, err := streamfile.ReadFull(sf, buf, offset)
	if err != nil {
		return err
	}
	got := n / bps

	for i := 0; i < got; i++ {
		b := buf[i*bps:]
		switch p.codec {
		case vgmformat.CodecPCM8:
			out[i] = int16(int8(b[0])) << 8
		case vgmformat.CodecPCM8U:
			out[i] = (int16(b[0]) - 128) << 8
		case vgmformat.CodecPCM16LE:
			out[i] = int16(binary.LittleEndian.Uint16(b))
		case vgmformat.CodecPCM16BE:
			out[i] = int16(binary.BigEndian.Uint16(b))
		case vgmformat.CodecPCM24LE:
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			out[i] = int16(v >> 8)
		case vgmformat.CodecPCM32LE:
			out[i] = int16(int32(binary.LittleEndian.Uint32(b)) >> 16)
		case vgmformat.CodecFloat32LE:
			f := math.Float32frombits(binary.LittleEndian.Uint32(b))
			out[i] = clampFloatToInt16(f)
		}
	}
	for i := got; i < nSamples; i++ {
		out[i] = 0
	}
	return nil
}

func clampFloatToInt16(f float32) int16 {
	v := f * 32768
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (p *PCM) Reset(channel int) error { return nil }

func (p *PCM) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	return nil
}
