package streamfile

import "encoding/binary"

// WwiseOpusPacket describes one packet of a Wwise-Opus stream as stored on
// disk: a payload of Size bytes at Offset.
type WwiseOpusPacket struct {
	Offset int64
	Size   int
}

// WwiseOpusOgg rebuilds a standard single-stream Ogg/Opus container in
// memory from a sequence of raw Wwise-Opus packets (spec.md §4.1): each
// packet becomes one Ogg page (OpusHead/OpusTags synthesized first), with
// a page CRC-32 computed over the constructed page using the Tremor
// polynomial table (crc32_tremor.go). Because page boundaries depend on
// every earlier packet's size, the rebuilt stream is synthesized once, in
// full, at construction time and served out of memory afterward — game
// audio streams in this format are modest in size, and pure function of
// offset/length is otherwise impossible to guarantee per-byte without
// re-deriving the whole page layout on every read.
type WwiseOpusOgg struct {
	data []byte
}

// NewWwiseOpusOgg builds the rebuilt Ogg/Opus byte stream for packets read
// from src, given the stream's channel count and sample rate (needed for
// the synthesized OpusHead page) and serial number to stamp into every
// page.
func NewWwiseOpusOgg(src File, packets []WwiseOpusPacket, channels int, sampleRate uint32, serial uint32) (File, error) {
	w := &WwiseOpusOgg{}
	if err := w.build(src, packets, channels, sampleRate, serial); err != nil {
		return nil, err
	}
	return NewFakeName(NewClamp(NewMemFile(src.Name(), w.data, nil), 0, int64(len(w.data))), src.Name()), nil
}

func (w *WwiseOpusOgg) build(src File, packets []WwiseOpusPacket, channels int, sampleRate uint32, serial uint32) error {
	var out []byte

	out = appendOggPage(out, serial, 0, 2 /*BOS*/, 0, [][]byte{buildOpusHead(channels, sampleRate)})
	out = appendOggPage(out, serial, 1, 0, 0, [][]byte{buildOpusTags()})

	granule := int64(0)
	for i, pkt := range packets {
		buf := make([]byte, pkt.Size)
		if _, err := ReadFull(src, buf, pkt.Offset); err != nil {
			return err
		}
		granule += opusPacketSamples(buf)
		flags := byte(0)
		if i == len(packets)-1 {
			flags = 4 // EOS
		}
		out = appendOggPage(out, serial, uint32(i+2), flags, granule, [][]byte{buf})
	}

	w.data = out
	return nil
}

func buildOpusHead(channels int, sampleRate uint32) []byte {
	h := make([]byte, 19)
	copy(h, []byte("OpusHead"))
	h[8] = 1 // version
	h[9] = byte(channels)
	binary.LittleEndian.PutUint16(h[10:], 0) // pre-skip
	binary.LittleEndian.PutUint32(h[12:], sampleRate)
	binary.LittleEndian.PutUint16(h[16:], 0) // output gain
	h[18] = 0                                // channel mapping family
	return h
}

func buildOpusTags() []byte {
	vendor := "vgmgo"
	h := make([]byte, 8+4+len(vendor)+4)
	copy(h, []byte("OpusTags"))
	binary.LittleEndian.PutUint32(h[8:], uint32(len(vendor)))
	copy(h[12:], vendor)
	binary.LittleEndian.PutUint32(h[12+len(vendor):], 0) // zero user comments
	return h
}

// opusPacketSamples computes the number of samples represented by an Opus
// packet from its TOC byte (data[0]) per RFC 6716 §3.1.
func opusPacketSamples(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}
	toc := data[0]
	config := toc >> 3
	var frameSize int64 // samples at 48kHz per frame
	switch {
	case config < 12:
		// SILK-only: 10/20/40/60ms depending on config&3
		durations := [4]int64{480, 960, 1920, 2880}
		frameSize = durations[config&3]
	case config < 16:
		// Hybrid: 10 or 20ms depending on config&1
		if config&1 == 0 {
			frameSize = 480
		} else {
			frameSize = 960
		}
	default:
		// CELT-only: 2.5/5/10/20ms
		durations := [4]int64{120, 240, 480, 960}
		frameSize = durations[config&3]
	}

	var frameCount int64
	code := toc & 3
	switch code {
	case 0:
		frameCount = 1
	case 1, 2:
		frameCount = 2
	default:
		if len(data) > 1 {
			frameCount = int64(data[1] & 0x3F)
		}
	}
	return frameSize * frameCount
}

// appendOggPage appends one Ogg page (header + CRC + body) to buf for the
// given serial/sequence/flags/granule, with one or more packet payloads
// laid out via a lacing table: each payload gets one 255-valued segment
// per full 255 bytes, then a final segment holding the remainder.
func appendOggPage(buf []byte, serial, seq uint32, flags byte, granule int64, payloads [][]byte) []byte {
	var segments []byte
	var body []byte
	for _, p := range payloads {
		rem := len(p)
		for rem >= 255 {
			segments = append(segments, 255)
			rem -= 255
		}
		segments = append(segments, byte(rem))
		body = append(body, p...)
	}

	header := make([]byte, 27+len(segments))
	copy(header, []byte("OggS"))
	header[4] = 0 // version
	header[5] = flags
	binary.LittleEndian.PutUint64(header[6:], uint64(granule))
	binary.LittleEndian.PutUint32(header[14:], serial)
	binary.LittleEndian.PutUint32(header[18:], seq)
	binary.LittleEndian.PutUint32(header[22:], 0) // CRC placeholder
	header[26] = byte(len(segments))
	copy(header[27:], segments)

	page := append(header, body...)

	crc := crc32TremorUpdate(0, page[:22])
	crc = crc32TremorUpdate(crc, []byte{0, 0, 0, 0})
	crc = crc32TremorUpdate(crc, page[26:])
	binary.LittleEndian.PutUint32(page[22:], crc)

	return append(buf, page...)
}
