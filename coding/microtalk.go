package coding

import (
	"fmt"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

const microtalkSamplesPerFrame = 432

// microtalkMaskTable is the bit-count-to-mask lookup the codec's bitreader
// uses instead of computing (1<<count)-1 (spec.md §4.3).
var microtalkMaskTable = [8]uint8{0x01, 0x03, 0x07, 0x0F, 0x1F, 0x3F, 0x7F, 0xFF}

// microtalkRCTable holds the 64 quantized reflection-coefficient values; the
// table is mirrored (t[64-i] == -t[i] for i in 1..32).
var microtalkRCTable = [64]float64{
	+0.000000, -0.996776, -0.990327, -0.983879,
	-0.977431, -0.970982, -0.964534, -0.958085,
	-0.951637, -0.930754, -0.904960, -0.879167,
	-0.853373, -0.827579, -0.801786, -0.775992,
	-0.750198, -0.724405, -0.698611, -0.670635,
	-0.619048, -0.567460, -0.515873, -0.464286,
	-0.412698, -0.361111, -0.309524, -0.257937,
	-0.206349, -0.154762, -0.103175, -0.051587,
	+0.000000, +0.051587, +0.103175, +0.154762,
	+0.206349, +0.257937, +0.309524, +0.361111,
	+0.412698, +0.464286, +0.515873, +0.567460,
	+0.619048, +0.670635, +0.698611, +0.724405,
	+0.750198, +0.775992, +0.801786, +0.827579,
	+0.853373, +0.879167, +0.904960, +0.930754,
	+0.951637, +0.958085, +0.964534, +0.970982,
	+0.977431, +0.983879, +0.990327, +0.996776,
}

const (
	microtalkModelNormal = iota
	microtalkModelLargePulse
)

// microtalkCodebooks is the pair of 256-entry Huffman-style lookup tables
// (normal/large-pulse) the multipulse excitation decoder walks: a peeked
// 8-bit code selects the command to run (spec.md §4.3).
var microtalkCodebooks = [2][256]uint8{
	{
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 17,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 21,
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 18,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 25,
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 17,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 22,
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 18,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 0,
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 17,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 21,
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 18,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 26,
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 17,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 22,
		4, 6, 5, 9, 4, 6, 5, 13, 4, 6, 5, 10, 4, 6, 5, 18,
		4, 6, 5, 9, 4, 6, 5, 14, 4, 6, 5, 10, 4, 6, 5, 2,
	},
	{
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 23,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 27,
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 24,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 1,
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 23,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 28,
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 24,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 3,
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 23,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 27,
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 24,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 1,
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 23,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 28,
		4, 11, 7, 15, 4, 12, 8, 19, 4, 11, 7, 16, 4, 12, 8, 24,
		4, 11, 7, 15, 4, 12, 8, 20, 4, 11, 7, 16, 4, 12, 8, 3,
	},
}

type microtalkCommand struct {
	nextModel  int
	codeSize   int
	pulseValue float64
}

// microtalkCommands is the 29-entry command table a multipulse Huffman code
// resolves to: commands with index > 3 insert a pulse, index in (1,3]
// insert a run of zeros, and index <= 1 insert a large escape-coded pulse.
var microtalkCommands = [29]microtalkCommand{
	{microtalkModelLargePulse, 8, 0.0},
	{microtalkModelLargePulse, 7, 0.0},
	{microtalkModelNormal, 8, 0.0},
	{microtalkModelNormal, 7, 0.0},
	{microtalkModelNormal, 2, 0.0},
	{microtalkModelNormal, 2, -1.0},
	{microtalkModelNormal, 2, +1.0},
	{microtalkModelNormal, 3, -1.0},
	{microtalkModelNormal, 3, +1.0},
	{microtalkModelLargePulse, 4, -2.0},
	{microtalkModelLargePulse, 4, +2.0},
	{microtalkModelLargePulse, 3, -2.0},
	{microtalkModelLargePulse, 3, +2.0},
	{microtalkModelLargePulse, 5, -3.0},
	{microtalkModelLargePulse, 5, +3.0},
	{microtalkModelLargePulse, 4, -3.0},
	{microtalkModelLargePulse, 4, +3.0},
	{microtalkModelLargePulse, 6, -4.0},
	{microtalkModelLargePulse, 6, +4.0},
	{microtalkModelLargePulse, 5, -4.0},
	{microtalkModelLargePulse, 5, +4.0},
	{microtalkModelLargePulse, 7, -5.0},
	{microtalkModelLargePulse, 7, +5.0},
	{microtalkModelLargePulse, 6, -5.0},
	{microtalkModelLargePulse, 6, +5.0},
	{microtalkModelLargePulse, 8, -6.0},
	{microtalkModelLargePulse, 8, +6.0},
	{microtalkModelLargePulse, 7, -6.0},
	{microtalkModelLargePulse, 7, +6.0},
}

// microtalkCBXFixedGains are the EA CBX variant's fixed per-gain-index
// table, used in place of the base_gain/base_mult header fields EA-MT
// carries (spec.md §4.3).
var microtalkCBXFixedGains = [64]float64{
	64.0, 68.351997, 72.999931, 77.963921,
	83.265465, 88.927513, 94.974579, 101.43285,
	108.33028, 115.69673, 123.5641, 131.96646,
	140.94017, 150.52409, 160.75972, 171.69138,
	183.36638, 195.83528, 209.15207, 223.3744,
	238.56386, 254.78619, 272.11163, 290.6152,
	310.37701, 331.48264, 354.02344, 378.09702,
	403.80759, 431.26648, 460.59259, 491.91287,
	525.36292, 561.08759, 599.24152, 639.98993,
	683.50922, 729.98779, 779.62695, 832.64154,
	889.26111, 949.73083, 1014.3125, 1083.2858,
	1156.9491, 1235.6216, 1319.6438, 1409.3795,
	1505.2173, 1607.572, 1716.8868, 1833.6351,
	1958.3223, 2091.488, 2233.7092, 2385.6013,
	2547.822, 2721.0737, 2906.1067, 3103.7219,
	3314.7749, 3540.1794, 3780.9116, 4038.0134,
}

// microtalkBitReader mirrors the codec's bitreader_t: it reads bytes
// directly from the streamfile at an absolute position (no streaming
// read-callback, the stream is just read to its end) and feeds an 8-bit
// LSB-first shift register one byte at a time (spec.md §4.3).
type microtalkBitReader struct {
	sf   streamfile.File
	pos  int64
	size int64
	eof  bool

	bitsValue uint32
	bitsCount int
}

func (br *microtalkBitReader) readByte() uint8 {
	if br.pos >= br.size {
		br.eof = true
		br.pos++
		return 0
	}
	var b [1]byte
	n, _ := br.sf.ReadAt(b[:], br.pos)
	br.pos++
	if n == 0 {
		br.eof = true
		return 0
	}
	return b[0]
}

func (br *microtalkBitReader) readS16() int16 {
	hi := int(br.readByte())
	lo := int(br.readByte())
	return int16(hi<<8 | lo)
}

func (br *microtalkBitReader) initBits() {
	if br.bitsCount == 0 {
		br.bitsValue = uint32(br.readByte())
		br.bitsCount = 8
	}
}

func (br *microtalkBitReader) peekBits(count int) uint8 {
	return uint8(br.bitsValue) & microtalkMaskTable[count-1]
}

// readBits assumes count <= 8, which always holds since every field width
// in this codec is a compile-time constant.
func (br *microtalkBitReader) readBits(count int) uint8 {
	mask := microtalkMaskTable[count-1]
	ret := uint8(br.bitsValue) & mask
	br.bitsValue >>= uint(count)
	br.bitsCount -= count
	if br.bitsCount < 8 {
		br.bitsValue |= uint32(br.readByte()) << uint(br.bitsCount)
		br.bitsCount += 8
	}
	return ret
}

func (br *microtalkBitReader) consumeBits(count int) { br.readBits(count) }

// microtalkDecodeState is the per-stream decode state that persists across
// frames: the header fields (parsed once), the running reflection
// coefficients/LPC synthesis history, and the combined adaptive-codebook +
// current-subframe sample buffer the pitch predictor reads back from
// (spec.md §4.3). One state is used per channel, since each channel carries
// an independent Microtalk bitstream.
type microtalkDecodeState struct {
	parsedHeader         bool
	reducedBandwidth     bool
	multipulseThreshold  int
	fixedGains           [64]float64
	rcData               [12]float64
	synthHistory         [12]float64
	subframes            [324 + 432]float64 // subframes[:324] is adapt_cb, subframes[324:] is samples
}

func (s *microtalkDecodeState) parseHeader(br *microtalkBitReader, cfg vgmformat.MicrotalkConfig) {
	if cfg.IsCBX {
		// CBX uses fixed parameters instead of reading them from the
		// bitstream, equivalent to EA-MT with base_thre=8, base_gain=7,
		// base_mult=28 plus rounding differences (spec.md §4.3).
		s.reducedBandwidth = true
		s.multipulseThreshold = 32 - 8
		s.fixedGains = microtalkCBXFixedGains
	} else {
		s.reducedBandwidth = br.readBits(1) == 1
		baseThre := int(br.readBits(4))
		baseGain := int(br.readBits(4))
		baseMult := int(br.readBits(6))

		s.multipulseThreshold = 32 - baseThre
		s.fixedGains[0] = 8.0 * float64(1+baseGain)

		multiplier := 1.04 + float64(baseMult)*0.001
		for i := 1; i < 64; i++ {
			s.fixedGains[i] = s.fixedGains[i-1] * multiplier
		}
	}
}

// microtalkDecodeExcitation writes out[outBase+i] for i = 0, stride,
// 2*stride, ... below 108 with either the
// multipulse model's codebook-driven pulse/zero-run sequence or the RELP
// model's directly-coded residual, matching the codec's two excitation
// modes (spec.md §4.3).
func microtalkDecodeExcitation(br *microtalkBitReader, useMultipulse bool, out []float64, outBase, stride int) {
	i := 0
	if useMultipulse {
		model := microtalkModelNormal
		for i < 108 {
			huffman := br.peekBits(8)
			cmd := microtalkCodebooks[model][huffman]
			model = microtalkCommands[cmd].nextModel
			br.consumeBits(microtalkCommands[cmd].codeSize)

			switch {
			case cmd > 3:
				// a pulse with magnitude <= 6.0
				out[outBase+i] = microtalkCommands[cmd].pulseValue
				i += stride
			case cmd > 1:
				// between 7 and 70 zeros
				count := 7 + int(br.readBits(6))
				if i+count*stride > 108 {
					count = (108 - i) / stride
				}
				for count > 0 {
					out[outBase+i] = 0
					i += stride
					count--
				}
			default:
				// an escape-coded pulse with magnitude >= 7.0
				x := 7
				for br.readBits(1) != 0 {
					x++
				}
				if br.readBits(1) == 0 {
					x = -x
				}
				out[outBase+i] = float64(x)
				i += stride
			}
		}
		return
	}

	// RELP model: the entire residual signal is coded explicitly as a
	// 2-bit Huffman code resolving to {0, -2, +2}.
	for i < 108 {
		bits := 0
		val := 0.0
		switch br.peekBits(2) {
		case 0, 2:
			val, bits = 0.0, 1
		case 1:
			val, bits = -2.0, 2
		case 3:
			val, bits = +2.0, 2
		}
		br.consumeBits(bits)
		out[outBase+i] = val
		i += stride
	}
}

// microtalkRCToLPC converts 12 reflection coefficients to LPC predictor taps
// via the codec's own Levinson-style recursion (spec.md §4.3).
func microtalkRCToLPC(rcData *[12]float64) [12]float64 {
	var tmp1, tmp2 [12]float64
	for i := 10; i >= 0; i-- {
		tmp2[i+1] = rcData[i]
	}
	tmp2[0] = 1.0

	var lpc [12]float64
	for i := 0; i < 12; i++ {
		x := -(rcData[11] * tmp2[11])
		for j := 10; j >= 0; j-- {
			x -= rcData[j] * tmp2[j]
			tmp2[j+1] = x*rcData[j] + tmp2[j]
		}
		tmp2[0] = x
		tmp1[i] = x

		for j := 0; j < i; j++ {
			x -= tmp1[i-1-j] * lpc[j]
		}
		lpc[i] = x
	}
	return lpc
}

// synthesisFilter runs the 12-tap LPC synthesis filter over blocks groups of
// 12 samples starting at offset within the combined sample buffer, updating
// synthHistory as it goes (spec.md §4.3).
func (s *microtalkDecodeState) synthesisFilter(offset, blocks int) {
	lpc := microtalkRCToLPC(&s.rcData)
	samples := s.subframes[324:]
	ptr := offset

	for i := 0; i < blocks; i++ {
		for j := 0; j < 12; j++ {
			x := samples[ptr]
			k := 0
			for ; k < j; k++ {
				x += lpc[k] * s.synthHistory[k-j+12]
			}
			for ; k < 12; k++ {
				x += lpc[k] * s.synthHistory[k-j]
			}
			s.synthHistory[11-j] = x
			samples[ptr] = x
			ptr++
		}
	}
}

// microtalkInterpolateRest reconstructs the low-pass-filtered samples a
// reduced-bandwidth frame skipped, via a 5-tap sinc interpolator, writing
// back into excitation at base+{0,2,4,...,106} (spec.md §4.3).
func microtalkInterpolateRest(excitation []float64, base int) {
	for i := 0; i < 108; i += 2 {
		tmp1 := (excitation[base+i-5] + excitation[base+i+5]) * 0.01803268
		tmp2 := (excitation[base+i-3] + excitation[base+i+3]) * 0.11459156
		tmp3 := (excitation[base+i-1] + excitation[base+i+1]) * 0.59738597
		excitation[base+i] = tmp1 - tmp2 + tmp3
	}
}

// decodeFrameMain decodes one 432-sample frame: 12 reflection-coefficient
// deltas at widths {6,6,6,6,5,5,5,5,5,5,5,5}, then 4 subframes of 108
// samples each carrying a pitch lag/gain and an excitation signal combined
// with the adaptive codebook's pitch-predicted contribution, synthesized
// through the LPC filter (spec.md §4.3).
func (s *microtalkDecodeState) decodeFrameMain(br *microtalkBitReader, cfg vgmformat.MicrotalkConfig) {
	useMultipulse := false
	var excitation [5 + 108 + 5]float64
	var rcDelta [12]float64

	br.initBits()
	if !s.parsedHeader {
		s.parseHeader(br, cfg)
		s.parsedHeader = true
	}

	for i := 0; i < 12; i++ {
		var idx int
		switch {
		case i == 0:
			idx = int(br.readBits(6))
			if idx < s.multipulseThreshold {
				useMultipulse = true
			}
		case i < 4:
			idx = int(br.readBits(6))
		default:
			idx = 16 + int(br.readBits(5))
		}
		rcDelta[i] = (microtalkRCTable[idx] - s.rcData[i]) * 0.25
	}

	for i := 0; i < 4; i++ {
		pitchLag := int(br.readBits(8))
		pitchValue := int(br.readBits(4))
		gainIndex := int(br.readBits(6))

		pitchGain := float64(pitchValue) / 15.0
		fixedGain := s.fixedGains[gainIndex]

		if !s.reducedBandwidth {
			microtalkDecodeExcitation(br, useMultipulse, excitation[:], 5, 1)
		} else {
			align := int(br.readBits(1))
			zeroFlag := int(br.readBits(1))

			microtalkDecodeExcitation(br, useMultipulse, excitation[:], 5+align, 2)

			if zeroFlag != 0 {
				// the spectrum is duplicated into high frequencies: fill
				// the remaining samples with zero.
				for j := 0; j < 54; j++ {
					excitation[5+(1-align)+2*j] = 0
				}
			} else {
				// the spectrum is low-pass filtered: interpolate the
				// skipped samples and halve the gain to keep the sinc
				// impulse response's energy unchanged.
				for j := 0; j < 5; j++ {
					excitation[j] = 0
					excitation[5+108+j] = 0
				}
				microtalkInterpolateRest(excitation[:], 5+(1-align))
				fixedGain *= 0.5
			}
		}

		for j := 0; j < 108; j++ {
			// adapt_cb and samples are one combined buffer (subframes), so
			// a pitch lag can legitimately index back into either half;
			// only the lower bound needs clamping (the encoder keeps the
			// upper bound in range).
			idx := 108*i + 216 - pitchLag + j
			if idx < 0 {
				idx = 0
			}
			tmp1 := fixedGain * excitation[5+j]
			tmp2 := pitchGain * s.subframes[idx]
			s.subframes[324+108*i+j] = tmp1 + tmp2
		}
	}

	copy(s.subframes[0:324], s.subframes[432:432+324])

	for i := 0; i < 4; i++ {
		for j := 0; j < 12; j++ {
			s.rcData[j] += rcDelta[j]
		}
		blocks := 1
		if i == 3 {
			blocks = 33
		}
		s.synthesisFilter(12*i, blocks)
	}
}

// decodeFramePCM wraps decodeFrameMain with EA's raw-PCM override: a
// leading 0xEE sentinel byte (read, then after decodeFrameMain the reader
// steps back one byte and drops its pending bits) signals that a bounds-checked sample range of this
// frame should be overwritten with raw 16-bit PCM instead of the decoded
// excitation/synthesis result (spec.md §4.3).
func (s *microtalkDecodeState) decodeFramePCM(br *microtalkBitReader, cfg vgmformat.MicrotalkConfig) error {
	pcmPresent := br.readByte() == 0xEE

	s.decodeFrameMain(br, cfg)

	// Step the byte position back by one and drop the pending bits, so the
	// override fields (or the next frame) start on a clean byte boundary.
	br.pos--
	br.bitsCount = 0

	if pcmPresent {
		offset := int(br.readS16())
		count := int(br.readS16())
		if offset < 0 || offset > microtalkSamplesPerFrame {
			return fmt.Errorf("coding: microtalk: invalid PCM override offset %d", offset)
		}
		if count < 0 || count > microtalkSamplesPerFrame-offset {
			return fmt.Errorf("coding: microtalk: invalid PCM override count %d", count)
		}
		samples := s.subframes[324:]
		for i := 0; i < count; i++ {
			samples[offset+i] = float64(br.readS16())
		}
	}
	return nil
}

func (s *microtalkDecodeState) pcmSamples() []int16 {
	samples := s.subframes[324:]
	out := make([]int16, microtalkSamplesPerFrame)
	for i, v := range samples {
		out[i] = clampADPCM(v)
	}
	return out
}

// Microtalk decodes EA's UTK/Microtalk speech codec: each frame carries
// quantized reflection coefficients (converted to LPC predictor taps via a
// Levinson-style recursion) and 4 subframes, each combining a pitch-gain
// scaled read from the adaptive codebook with either a multipulse or RELP
// excitation signal, synthesized through the LPC filter to produce PCM
// (spec.md §4.3). Of the config fields only IsCBX and EAPCMOverride are
// read; ReducedBandwidth, MultipulseThreshold, FixedGain0 and GainMultiplier
// have no effect on decoding. The whole stream is decoded once per channel, like the engine's other
// self-contained bitstream codecs (Circus, Vorbis, Opus).
type Microtalk struct {
	cfg     vgmformat.MicrotalkConfig
	decoded map[int][]int16
}

func NewMicrotalk(cfg vgmformat.MicrotalkConfig) (*Microtalk, error) {
	return &Microtalk{cfg: cfg, decoded: make(map[int][]int16)}, nil
}

func (m *Microtalk) ensureDecoded(sf streamfile.File, channel int, start int64) error {
	if _, ok := m.decoded[channel]; ok {
		return nil
	}

	size := sf.Size()

	br := &microtalkBitReader{sf: sf, pos: start, size: size}
	st := &microtalkDecodeState{}

	var decoded []int16
	for br.pos < size {
		var frameErr error
		if m.cfg.EAPCMOverride {
			frameErr = st.decodeFramePCM(br, m.cfg)
		} else {
			st.decodeFrameMain(br, m.cfg)
		}
		if frameErr != nil {
			break
		}
		decoded = append(decoded, st.pcmSamples()...)
		if br.eof {
			break
		}
	}

	m.decoded[channel] = decoded
	return nil
}

func (m *Microtalk) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	if err := m.ensureDecoded(sf, channel, offset); err != nil {
		return err
	}
	decoded := m.decoded[channel]

	// offset is interpreted as a starting frame index for this codec, like
	// the other whole-stream-decoded codecs (Circus, Vorbis, Opus).
	frameIdx := int(offset)
	for i := 0; i < nSamples; i++ {
		idx := frameIdx + i
		if idx < 0 || idx >= len(decoded) {
			out[i] = 0
			continue
		}
		out[i] = decoded[idx]
	}
	return nil
}

func (m *Microtalk) Reset(channel int) error {
	delete(m.decoded, channel)
	return nil
}

func (m *Microtalk) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	scratch := make([]int16, samples)
	return m.Decode(sf, offset, scratch, samples, channel)
}
