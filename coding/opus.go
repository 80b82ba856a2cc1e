package coding

import (
	"fmt"

	"github.com/thesyncim/gopus"

	"github.com/farcloser/vgmgo/streamfile"
)

// Opus wraps github.com/thesyncim/gopus for the Wwise Opus variant: the
// engine rebuilds a standards-compliant Ogg Opus stream from Wwise's
// packet-offset table via streamfile.WwiseOpusOgg, then hands the result
// here for straight Ogg Opus decode (spec.md §4.3, §6.5).
type Opus struct {
	channels int
	dec      *gopus.Decoder

	decoded []int16
}

func NewOpus(channels int) (*Opus, error) {
	dec, err := gopus.NewDecoder(48000, channels)
	if err != nil {
		return nil, fmt.Errorf("coding: opus init: %w", err)
	}
	return &Opus{channels: channels, dec: dec}, nil
}

func (o *Opus) ensureDecoded(sf streamfile.File) error {
	if o.decoded != nil {
		return nil
	}
	size := sf.Size()
	raw := make([]byte, size)
	if _, err := streamfile.ReadFull(sf, raw, 0); err != nil {
		return err
	}

	packets, err := splitOggOpusPackets(raw)
	if err != nil {
		return err
	}

	var pcm []int16
	for _, pkt := range packets {
		frame, err := o.dec.Decode(pkt, 0, false)
		if err != nil {
			return fmt.Errorf("coding: opus decode: %w", err)
		}
		pcm = append(pcm, frame...)
	}
	o.decoded = pcm
	return nil
}

// splitOggOpusPackets walks an Ogg bitstream's page/lacing structure and
// returns the raw Opus packets, reassembling packets that continue across a
// page boundary. The first two logical packets are always OpusHead and
// OpusTags (streamfile.WwiseOpusOgg always emits OpusHead on page 0 and
// OpusTags alone on page 1, per spec.md §6.5), so both are skipped
// regardless of which page each one finishes on.
func splitOggOpusPackets(data []byte) ([][]byte, error) {
	const headerPacketCount = 2

	var packets [][]byte
	var cur []byte
	pos := 0
	completed := 0
	for pos+27 <= len(data) {
		if string(data[pos:pos+4]) != "OggS" {
			break
		}
		segCount := int(data[pos+26])
		segTable := data[pos+27 : pos+27+segCount]
		body := pos + 27 + segCount
		for _, seg := range segTable {
			cur = append(cur, data[body:body+int(seg)]...)
			body += int(seg)
			if seg < 255 {
				if completed >= headerPacketCount {
					packets = append(packets, cur)
				}
				completed++
				cur = nil
			}
		}
		pos = body
	}
	return packets, nil
}

func (o *Opus) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	if err := o.ensureDecoded(sf); err != nil {
		return err
	}
	frameIdx := int(offset)
	for i := 0; i < nSamples; i++ {
		idx := (frameIdx+i)*o.channels + channel
		if idx < 0 || idx >= len(o.decoded) {
			out[i] = 0
			continue
		}
		out[i] = o.decoded[idx]
	}
	return nil
}

func (o *Opus) Reset(channel int) error { return nil }

func (o *Opus) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	return nil
}
