package coding

import "github.com/farcloser/vgmgo/vgmformat"

// BytesConsumed returns how many bytes of the underlying stream a Decode
// call for nSamples samples of codec reads, so layouts can advance a
// channel's file cursor without each codec having to expose its own
// position. Frame-oriented codecs round up to a whole number of frames,
// matching how each Decode implementation itself reads a whole frame even
// when asked for a partial one.
func BytesConsumed(codec vgmformat.Codec, nSamples int) int64 {
	switch codec {
	case vgmformat.CodecPCM8, vgmformat.CodecPCM8U:
		return int64(nSamples)
	case vgmformat.CodecPCM16LE, vgmformat.CodecPCM16BE:
		return int64(nSamples) * 2
	case vgmformat.CodecPCM24LE:
		return int64(nSamples) * 3
	case vgmformat.CodecPCM32LE, vgmformat.CodecFloat32LE:
		return int64(nSamples) * 4
	case vgmformat.CodecVAGADPCM:
		frames := (nSamples + vagSamplesPerFrame - 1) / vagSamplesPerFrame
		return int64(frames * 16)
	case vgmformat.CodecDSPADPCM:
		frames := (nSamples + dspSamplesPerFrame - 1) / dspSamplesPerFrame
		return int64(frames * dspFrameSize)
	case vgmformat.CodecIMAADPCM, vgmformat.CodecMTAFADPCM, vgmformat.CodecOngakukan:
		return int64((nSamples + 1) / 2)
	default:
		return 0 // transform codecs track their own internal position
	}
}
