package streamfile

import "encoding/binary"

// EASNSBlock describes one on-disk SNS block feeding the EA-XMA
// synthesizer: a region of interleaved per-stream XMA2 packet fragments.
type EASNSBlock struct {
	Offset int64
	Size   int64
}

// EAXMA synthesizes a virtual 0x800-aligned XMA2 packet stream from EA's
// on-disk SNS blocks (spec.md §4.1): it re-interleaves per-stream packets
// read out of the SNS blocks and rewrites each packet header's
// packet-skip field to numStreams-1, so a generic XMA2 decoder downstream
// sees a standard packet stream regardless of EA's container framing.
// Like WwiseOpusOgg, the rewritten stream is built once and served from
// memory: the packet-skip rewrite is a function of every packet's position
// among its siblings, not of an individual byte range.
type EAXMA struct {
	data []byte
}

const xmaPacketSize = 0x800

func NewEAXMA(src File, blocks []EASNSBlock, numStreams int) (File, error) {
	e := &EAXMA{}
	if err := e.build(src, blocks, numStreams); err != nil {
		return nil, err
	}
	return NewFakeName(NewClamp(NewMemFile(src.Name(), e.data, nil), 0, int64(len(e.data))), src.Name()), nil
}

func (e *EAXMA) build(src File, blocks []EASNSBlock, numStreams int) error {
	var streams [][][]byte // streams[streamIdx] = packets for that stream, in order

	streams = make([][][]byte, numStreams)
	for _, blk := range blocks {
		remaining := blk.Size
		off := blk.Offset
		streamIdx := 0
		for remaining >= xmaPacketSize {
			pkt := make([]byte, xmaPacketSize)
			if _, err := ReadFull(src, pkt, off); err != nil {
				return err
			}
			streams[streamIdx%numStreams] = append(streams[streamIdx%numStreams], pkt)
			off += xmaPacketSize
			remaining -= xmaPacketSize
			streamIdx++
		}
	}

	packetSkip := byte(numStreams - 1)
	var out []byte
	maxLen := 0
	for _, s := range streams {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	for i := 0; i < maxLen; i++ {
		for _, s := range streams {
			if i >= len(s) {
				continue
			}
			pkt := s[i]
			rewritePacketSkip(pkt, packetSkip)
			out = append(out, pkt...)
		}
	}

	e.data = out
	return nil
}

// rewritePacketSkip overwrites the packet-skip field of an XMA2 packet
// header in place. The XMA2 packet header's first 4 bytes (32 bits) pack
// {frame-count-in-packet:6 bits, first-frame-offset:15 bits, packet-skip:11 bits}
// big-endian; this rewrites only the low 11 bits (packet-skip).
func rewritePacketSkip(pkt []byte, skip byte) {
	if len(pkt) < 4 {
		return
	}
	header := binary.BigEndian.Uint32(pkt[0:4])
	header = header&^0x7FF | uint32(skip)&0x7FF
	binary.BigEndian.PutUint32(pkt[0:4], header)
}
