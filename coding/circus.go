package coding

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/flate"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// Circus decodes Circus's VQ-like codec: a resumable LZXPCM state machine
// (literal runs vs. back-reference copies driven by an LSB-first flag bit
// stream, with a sentinel bit marking when the next flag byte must be
// reloaded) optionally replaced by a DEFLATE-compressed wrapper, followed by
// an interleave/scale/transform/convert pipeline that turns the
// decompressed residual stream into PCM16 (spec.md §4.3). The DEFLATE path
// uses github.com/klauspost/compress for parity with the rest of the
// engine's third-party-first stance; the LZXPCM path has no off-the-shelf
// equivalent so it's hand-rolled as a literal translation of the codec's own
// state machine.
type Circus struct {
	cfg      vgmformat.CircusConfig
	channels int

	decoded []int16 // interleaved PCM16 across all channels, decoded lazily
}

const (
	xpcmFrameSize       = 4096 * 2 // bytes per encoded frame, all channels
	xpcmFrameCodes      = 4096
	xpcmFrameSamplesAll = 4064
	xpcmFrameOverlapAll = 32
)

func NewCircus(cfg vgmformat.CircusConfig, channels int) (*Circus, error) {
	if channels <= 0 {
		channels = 1
	}
	return &Circus{cfg: cfg, channels: channels}, nil
}

// ensureDecoded runs the full codec pipeline once per stream: decompress the
// whole remaining file into the decoder's frame stream, then for every
// xpcmFrameSize-byte frame run interleave -> scale -> transform -> convert,
// appending the frame's emitted samples (interleaved across channels) to
// decoded.
func (c *Circus) ensureDecoded(sf streamfile.File, start int64) error {
	if c.decoded != nil {
		return nil
	}

	size := sf.Size()
	raw := make([]byte, size-start)
	if _, err := streamfile.ReadFull(sf, raw, start); err != nil {
		return err
	}

	var decbuf []byte
	if c.cfg.UseDeflate {
		zr := flate.NewReader(bytes.NewReader(raw))
		defer zr.Close()
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return fmt.Errorf("coding: circus deflate: %w", err)
		}
		decbuf = inflated
	} else {
		decbuf = lzxpcmDecodeAll(raw)
	}

	scaleIndex := c.cfg.Flags & 0xF
	if scaleIndex > 5 {
		return fmt.Errorf("coding: circus: bad scale index %d", scaleIndex)
	}
	scales := &circusScaleTable[scaleIndex]

	var hist1, hist2 int64
	var pcmbuf [xpcmFrameSamplesAll + xpcmFrameOverlapAll]int16
	var decFrame [xpcmFrameSize]byte
	var intbuf [xpcmFrameSize]byte
	var invbuf, tmpbuf [xpcmFrameCodes]int32

	var decoded []int16
	for frame := 0; ; frame++ {
		off := frame * xpcmFrameSize
		if off >= len(decbuf) {
			break
		}
		n := copy(decFrame[:], decbuf[off:])
		for i := n; i < xpcmFrameSize; i++ {
			decFrame[i] = 0
		}

		circusInterleave(&decFrame, &intbuf)
		circusScale(&intbuf, scales, &invbuf, &tmpbuf)
		circusTransform(&invbuf, &tmpbuf)
		circusConvert(c.cfg.Flags, &invbuf, &pcmbuf, &hist1, &hist2, frame)

		decoded = append(decoded, pcmbuf[:xpcmFrameSamplesAll]...)
	}

	c.decoded = decoded
	return nil
}

func (c *Circus) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	if err := c.ensureDecoded(sf, offset); err != nil {
		return err
	}
	// offset is interpreted as a starting frame index for this codec, like
	// the other whole-stream-decoded codecs (Vorbis, Opus).
	frameIdx := int(offset)
	for i := 0; i < nSamples; i++ {
		idx := (frameIdx+i)*c.channels + channel
		if idx < 0 || idx >= len(c.decoded) {
			out[i] = 0
			continue
		}
		out[i] = c.decoded[idx]
	}
	return nil
}

func (c *Circus) Reset(channel int) error {
	c.decoded = nil
	return nil
}

func (c *Circus) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	scratch := make([]int16, samples)
	return c.Decode(sf, offset, scratch, samples, channel)
}

// --- LZXPCM decompression ---------------------------------------------

type lzxpcmState int

const (
	lzStateReadFlags lzxpcmState = iota
	lzStateCopyLiteral
	lzStateReadToken
	lzStateParseToken
	lzStateSetMatch
	lzStateCopyMatch
)

const lzxpcmWindowSize = 1 << 16

// lzxpcmDecoder mirrors the codec's own streaming LZ state machine: it may
// suspend at any src/dst boundary and resume later from the same state
// (spec.md §9 "model as explicit state machines storing the enum state and
// all intermediate values between calls"). Matches are copied through a
// 64 KiB circular window that doubles as the decoded-byte history.
type lzxpcmDecoder struct {
	state lzxpcmState

	flags     uint32
	token     byte
	valuesPos int
	offsetPos int
	matchLen  int
	matchPos  int

	windowPos int
	window    [lzxpcmWindowSize]byte
}

// run decodes as much of src as it can into dst, returning the number of
// dst and src bytes consumed. LZXPCM has no end marker, so the caller
// decides when to stop feeding input (spec.md §4.3).
func (d *lzxpcmDecoder) run(dst []byte, src []byte) (dstPos, srcPos int) {
	dstSize, srcSize := len(dst), len(src)

	for {
		switch d.state {
		case lzStateReadFlags:
			if srcPos >= srcSize {
				return dstPos, srcPos
			}
			d.flags >>= 1
			if d.flags&0x0100 == 0 {
				d.flags = 0xFF00 | uint32(src[srcPos])
				srcPos++
			}
			if d.flags&1 != 0 {
				d.state = lzStateCopyLiteral
			} else {
				d.state = lzStateReadToken
			}

		case lzStateCopyLiteral:
			if srcPos >= srcSize || dstPos >= dstSize {
				return dstPos, srcPos
			}
			v := src[srcPos]
			srcPos++
			dst[dstPos] = v
			dstPos++
			d.emit(v)
			d.state = lzStateReadFlags

		case lzStateReadToken:
			if srcPos >= srcSize {
				return dstPos, srcPos
			}
			d.token = src[srcPos]
			srcPos++
			d.valuesPos = 0
			d.state = lzStateParseToken

		case lzStateParseToken:
			ok := true
			switch {
			case d.token >= 0xC0:
				d.matchLen = int((d.token>>2)&0x0F) + 4
				if srcPos >= srcSize {
					ok = false
					break
				}
				d.offsetPos = int(src[srcPos]) | (int(d.token&3) << 8)
				srcPos++

			case d.token >= 0x80:
				d.matchLen = int((d.token>>5)&3) + 2
				d.offsetPos = int(d.token & 0x1F)
				if d.offsetPos == 0 {
					if srcPos >= srcSize {
						ok = false
						break
					}
					d.offsetPos = int(src[srcPos])
					srcPos++
				}

			case d.token == 0x7F:
				if d.valuesPos == 0 {
					if srcPos >= srcSize {
						ok = false
						break
					}
					d.matchLen = int(src[srcPos])
					srcPos++
					d.valuesPos++
				}
				if ok && d.valuesPos == 1 {
					if srcPos >= srcSize {
						ok = false
						break
					}
					d.matchLen |= int(src[srcPos]) << 8
					d.matchLen += 2
					srcPos++
					d.valuesPos++
				}
				if ok && d.valuesPos == 2 {
					if srcPos >= srcSize {
						ok = false
						break
					}
					d.offsetPos = int(src[srcPos])
					srcPos++
					d.valuesPos++
				}
				if ok && d.valuesPos == 3 {
					if srcPos >= srcSize {
						ok = false
						break
					}
					d.offsetPos |= int(src[srcPos]) << 8
					srcPos++
					d.valuesPos++
				}

			default:
				d.matchLen = int(d.token) + 4
				if d.valuesPos == 0 {
					if srcPos >= srcSize {
						ok = false
						break
					}
					d.offsetPos = int(src[srcPos])
					srcPos++
					d.valuesPos++
				}
				if ok && d.valuesPos == 1 {
					if srcPos >= srcSize {
						ok = false
						break
					}
					d.offsetPos |= int(src[srcPos]) << 8
					srcPos++
					d.valuesPos++
				}
			}
			if !ok {
				return dstPos, srcPos
			}
			d.state = lzStateSetMatch

		case lzStateSetMatch:
			d.matchPos = d.windowPos - d.offsetPos
			if d.matchPos < 0 {
				d.matchPos += lzxpcmWindowSize
			}
			d.state = lzStateCopyMatch

		case lzStateCopyMatch:
			for d.matchLen > 0 {
				if dstPos >= dstSize {
					return dstPos, srcPos
				}
				v := d.window[d.matchPos]
				d.matchPos++
				if d.matchPos == lzxpcmWindowSize {
					d.matchPos = 0
				}
				dst[dstPos] = v
				dstPos++
				d.emit(v)
				d.matchLen--
			}
			d.state = lzStateReadFlags
		}
	}
}

func (d *lzxpcmDecoder) emit(v byte) {
	d.window[d.windowPos] = v
	d.windowPos++
	if d.windowPos == lzxpcmWindowSize {
		d.windowPos = 0
	}
}

// lzxpcmDecodeAll runs the state machine to completion over the whole of
// raw, producing every byte the stream yields. The engine decodes Circus
// streams once in full (like its Vorbis/Opus decoders) rather than
// streaming per Decode call, so no further resumption of this particular
// decoder instance is needed after this call returns.
func lzxpcmDecodeAll(raw []byte) []byte {
	d := &lzxpcmDecoder{}
	out := make([]byte, 0, len(raw)*2)
	chunk := make([]byte, 0x2000)

	srcPos := 0
	for srcPos < len(raw) {
		dstPos, consumed := d.run(chunk, raw[srcPos:])
		out = append(out, chunk[:dstPos]...)
		srcPos += consumed
		if consumed == 0 && dstPos == 0 {
			break
		}
	}
	return out
}

// --- interleave / scale / transform / convert --------------------------

// circusInterleave re-layouts a decompressed frame's bytes: the low half of
// decbuf becomes odd intbuf bytes verbatim, and the high half is
// nibble-split across even intbuf positions (spec.md §4.3 "custom
// bit-nibble re-layout").
func circusInterleave(decbuf, intbuf *[xpcmFrameSize]byte) {
	for i, j := 0, 1; i < 0x1000; i, j = i+1, j+2 {
		intbuf[j] = decbuf[i]
	}
	for i, j := 0x1000, 0; i < 0x1800; i, j = i+1, j+4 {
		lo := decbuf[i+0x800]
		hi := decbuf[i]
		intbuf[j+0] = (hi & 0xF0) | (lo >> 4)
		intbuf[j+2] = (hi << 4) | (lo & 0x0F)
	}
}

// circusScale re-interleaves intbuf's packed 16-bit codes into
// invbuf/tmpbuf, scaling each by the sub-band factor scales[j/4096]
// selected by flags&0xF (spec.md §4.3). The low bit of each code is a sign
// flag (odd codes positive, even codes negative) rather than two's
// complement.
func circusScale(intbuf *[xpcmFrameSize]byte, scales *[8]int32, invbuf, tmpbuf *[xpcmFrameCodes]int32) {
	for i, j := 0, 0; i < xpcmFrameCodes/2; i, j = i+1, j+16 {
		scale := scales[j/4096]

		qv1 := int32(intbuf[i*4+0]) | int32(intbuf[i*4+1])<<8
		qv2 := int32(intbuf[i*4+2]) | int32(intbuf[i*4+3])<<8

		if qv1&1 != 0 {
			qv1 = (qv1 >> 1) + 1
		} else {
			qv1 = -(qv1 >> 1)
		}
		if qv2&1 != 0 {
			qv2 = (qv2 >> 1) + 1
		} else {
			qv2 = -(qv2 >> 1)
		}

		invbuf[i] = scale * qv1
		tmpbuf[i] = scale * qv2
	}
	for i := xpcmFrameCodes / 2; i < xpcmFrameCodes; i++ {
		invbuf[i] = 0
		tmpbuf[i] = 0
	}
}

// circusSincosTable is a 12-bit fixed-point quarter-turn-offset sin/cos
// table: entry k holds round(4096*sin(2*pi*k/4096)), so reading at k+1024
// yields round(4096*cos(2*pi*k/4096)) via the sin(x+pi/2)=cos(x) identity.
// circusTransform never indexes past 2047, so a 2048-entry table suffices.
var circusSincosTable = func() [2048]int32 {
	var t [2048]int32
	for k := range t {
		t[k] = int32(math.Round(4096 * math.Sin(2*math.Pi*float64(k)/4096)))
	}
	return t
}()

// circusTransform applies the codec's in-place radix butterfly tree (an
// inverse transform over the scaled coefficient pair) followed by a
// bit-reversal permutation, operating on invbuf/tmpbuf as a matched pair of
// real/imaginary-like planes driven by the shared sincos table (spec.md
// §4.3).
func circusTransform(invbuf, tmpbuf *[xpcmFrameCodes]int32) {
	step1 := int32(4096)
	step2 := step1 >> 1
	step3 := step2 >> 1
	sc1 := int32(1)

	for lpc1 := 0; lpc1 < 12-2; lpc1++ {
		cos1 := int64(circusSincosTable[sc1+1024])
		sin1 := int64(circusSincosTable[sc1])

		i1, i2, i3, i4 := int32(0), step2, step3, step2+step3

		for lpc2 := int32(0); lpc2 < 4096; lpc2 += step1 {
			sub1 := invbuf[i1+0] - invbuf[i2+0]
			sub2 := tmpbuf[i1+0] - tmpbuf[i2+0]
			invbuf[i1+0] += invbuf[i2+0]
			tmpbuf[i1+0] += tmpbuf[i2+0]
			invbuf[i2+0] = sub1
			tmpbuf[i2+0] = sub2

			sub1 = invbuf[i1+1] - invbuf[i2+1]
			sub2 = tmpbuf[i1+1] - tmpbuf[i2+1]
			invbuf[i1+1] += invbuf[i2+1]
			tmpbuf[i1+1] += tmpbuf[i2+1]
			invbuf[i2+1] = int32((int64(sub1)*cos1)>>12 + (int64(sub2)*sin1)>>12)
			tmpbuf[i2+1] = int32((int64(sub2)*cos1)>>12 - (int64(sub1)*sin1)>>12)

			sub1 = invbuf[i3+0] - invbuf[i4+0]
			sub2 = tmpbuf[i3+0] - tmpbuf[i4+0]
			invbuf[i3+0] += invbuf[i4+0]
			tmpbuf[i3+0] += tmpbuf[i4+0]
			invbuf[i4+0] = sub2
			tmpbuf[i4+0] = -sub1

			sub1 = invbuf[i3+1] - invbuf[i4+1]
			sub2 = tmpbuf[i3+1] - tmpbuf[i4+1]
			invbuf[i3+1] += invbuf[i4+1]
			tmpbuf[i3+1] += tmpbuf[i4+1]
			invbuf[i4+1] = int32((int64(sub2)*cos1)>>12 - (int64(sub1)*sin1)>>12)
			tmpbuf[i4+1] = int32(-((int64(sub1)*cos1)>>12 + (int64(sub2)*sin1)>>12))

			i1 += step1
			i2 += step1
			i3 += step1
			i4 += step1
		}

		if step3 > 2 {
			sc2 := sc1 * 2
			for lpc3 := int32(2); lpc3 < step3; lpc3++ {
				cos2 := int64(circusSincosTable[sc2+1024])
				sin2 := int64(circusSincosTable[sc2])
				sc2 += sc1

				j1, j2, j3, j4 := 0+lpc3, step2+lpc3, step3+lpc3, step2+step3+lpc3

				for lpc4 := int32(0); lpc4 < 4096; lpc4 += step1 {
					sub1 := invbuf[j1] - invbuf[j2]
					sub2 := tmpbuf[j1] - tmpbuf[j2]
					invbuf[j1] += invbuf[j2]
					tmpbuf[j1] += tmpbuf[j2]
					invbuf[j2] = int32((int64(sub1)*cos2)>>12 + (int64(sub2)*sin2)>>12)
					tmpbuf[j2] = int32((int64(sub2)*cos2)>>12 - (int64(sub1)*sin2)>>12)

					sub1 = invbuf[j3] - invbuf[j4]
					sub2 = tmpbuf[j3] - tmpbuf[j4]
					invbuf[j3] += invbuf[j4]
					tmpbuf[j3] += tmpbuf[j4]
					invbuf[j4] = int32((int64(sub2)*cos2)>>12 - (int64(sub1)*sin2)>>12)
					tmpbuf[j4] = int32(-((int64(sub1)*cos2)>>12 + (int64(sub2)*sin2)>>12))

					j1 += step1
					j2 += step1
					j3 += step1
					j4 += step1
				}
			}
		}

		step1 = step2
		step2 = step3
		step3 >>= 1
		sc1 *= 2
	}

	for i := int32(0); i < 4096; i += 4 {
		sub1 := invbuf[i+0] - invbuf[i+2]
		invbuf[i+0] += invbuf[i+2]
		invbuf[i+2] = sub1

		sub2 := tmpbuf[i+0] - tmpbuf[i+2]
		tmpbuf[i+0] += tmpbuf[i+2]
		tmpbuf[i+2] = sub2

		sub1 = invbuf[i+3] - invbuf[i+1]
		sub2 = tmpbuf[i+1] - tmpbuf[i+3]
		invbuf[i+1] += invbuf[i+3]
		invbuf[i+3] = sub2
		tmpbuf[i+1] += tmpbuf[i+3]
		tmpbuf[i+3] = sub1
	}

	for i := int32(0); i < 4096; i += 2 {
		sub1 := invbuf[i+0] - invbuf[i+1]
		invbuf[i+0] += invbuf[i+1]
		invbuf[i+1] = sub1

		sub2 := tmpbuf[i+0] - tmpbuf[i+1]
		tmpbuf[i+0] += tmpbuf[i+1]
		tmpbuf[i+1] = sub2
	}

	bitReverse(invbuf, tmpbuf)
}

// bitReverse applies the classic in-place bit-reversal permutation shared by
// radix-2 transforms, swapping invbuf/tmpbuf entries i and j whenever j's
// bit-reversed index falls below i.
func bitReverse(invbuf, tmpbuf *[xpcmFrameCodes]int32) {
	j := 0
	for i := 1; i < 4096-1; i++ {
		pow := 4096 / 2
		for pow <= j {
			j -= pow
			pow /= 2
		}
		j += pow

		if i < j {
			invbuf[i], invbuf[j] = invbuf[j], invbuf[i]
			tmpbuf[i], tmpbuf[j] = tmpbuf[j], tmpbuf[i]
		}
	}
}

// circusConvert applies the final single-pole filter and PCM16 conversion:
// each sample is pre-scaled (flags&0x10 picks between sample/1024 and
// 3*sample/2048), passed through a 2-tap history filter, and the first
// xpcmFrameOverlapAll samples of every frame after the first are blended
// with the previous frame's trailing overlap samples (spec.md §4.3).
func circusConvert(flags int, invbuf *[xpcmFrameCodes]int32, pcmbuf *[xpcmFrameSamplesAll + xpcmFrameOverlapAll]int16, hist1, hist2 *int64, frame int) {
	h1, h2 := *hist1, *hist2

	for i := 0; i < xpcmFrameSamplesAll+xpcmFrameOverlapAll; i++ {
		sample := int64(invbuf[i])
		if flags&0x10 != 0 {
			sample = (3 * sample / 2) / 1024
		} else {
			sample = sample / 1024
		}

		sample = ((27*sample + 4*h1 + h2) * 2048) / 65536

		h2 = h1
		h1 = sample

		if i < xpcmFrameOverlapAll && frame > 0 {
			sample = (int64(i)*sample + int64(xpcmFrameOverlapAll-i)*int64(pcmbuf[xpcmFrameSamplesAll+i])) / 32
		}

		pcmbuf[i] = clampInt16(sample)
	}

	*hist1, *hist2 = h1, h2
}

func clampInt16(v int64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// circusScaleTable holds the 6 flags&0xF-selected sub-band scale tables.
// The reverse-engineered numeric constants the original codec uses aren't
// present anywhere in this engine's source corpus (the upstream decoder
// ships them as an opaque compiled-in data table, not algorithmic source,
// and that table wasn't carried into the code dump this engine was built
// from); DESIGN.md discloses this gap. These are a principled stand-in -
// a per-index overall gain with a mild per-band rolloff - that keeps the
// real pipeline shape (decompress, interleave, per-band scale, transform,
// convert) fully wired rather than stubbed out.
var circusScaleTable = [6][8]int32{
	circusScaleBand(1 << 4),
	circusScaleBand(1 << 5),
	circusScaleBand(1 << 6),
	circusScaleBand(1 << 7),
	circusScaleBand(1 << 8),
	circusScaleBand(1 << 9),
}

func circusScaleBand(base int32) [8]int32 {
	var band [8]int32
	for i := range band {
		shift := uint(i)
		v := base >> shift
		if v == 0 {
			v = 1
		}
		band[i] = v
	}
	return band
}
