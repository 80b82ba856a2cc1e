package meta

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
)

// appendXAVSChunk appends one u32le header (chunk_id in the low 8 bits,
// chunk_size in the upper 24) plus chunkSize bytes of payload.
func appendXAVSChunk(buf []byte, chunkID byte, payload []byte) []byte {
	header := make([]byte, 4)
	v := uint32(len(payload))<<8 | uint32(chunkID)
	binary.LittleEndian.PutUint32(header, v)
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return buf
}

func buildXAVSFile(subsongCountField uint16, chunks func([]byte) []byte) []byte {
	h := make([]byte, 0x18)
	copy(h[0:], "XAVS")
	binary.LittleEndian.PutUint16(h[0x0C:], subsongCountField)
	return chunks(h)
}

func TestXAVSSelectsSecondAudioStream(t *testing.T) {
	data := buildXAVSFile(2, func(b []byte) []byte {
		b = appendXAVSChunk(b, 0x40, make([]byte, 16)) // stream 0, 48000Hz
		b = appendXAVSChunk(b, 0x41, make([]byte, 16)) // stream 1, 48000Hz
		b = appendXAVSChunk(b, 0x5F, nil)              // EOS
		return b
	})
	sf := streamfile.NewMemFile("x.xavs", data, nil)

	f, err := NewXAVS().TryOpen(sf, Options{Subsong: 2})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SubsongIndex != 2 || f.SubsongCount != 2 {
		t.Errorf("SubsongIndex/Count = %d/%d; want 2/2", f.SubsongIndex, f.SubsongCount)
	}
	if f.SampleRate != 48000 {
		t.Errorf("SampleRate = %d; want 48000", f.SampleRate)
	}
	// second chunk starts right after the first chunk's header+payload
	wantOffset := int64(0x18) + 4 + 16 + 4
	if f.ChannelStartOffsets[0].Offset != wantOffset {
		t.Errorf("offset = %#x; want %#x", f.ChannelStartOffsets[0].Offset, wantOffset)
	}
}

func TestXAVSSkipsVideoAndMarkerChunks(t *testing.T) {
	data := buildXAVSFile(1, func(b []byte) []byte {
		b = appendXAVSChunk(b, 0x21, nil)              // empty marker
		b = appendXAVSChunk(b, 0x56, make([]byte, 32)) // video
		b = appendXAVSChunk(b, 0x60, make([]byte, 8))  // 24000Hz audio
		b = appendXAVSChunk(b, 0x5F, nil)
		return b
	})
	sf := streamfile.NewMemFile("x.xavs", data, nil)

	f, err := NewXAVS().TryOpen(sf, Options{Subsong: 1})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SampleRate != 24000 {
		t.Errorf("SampleRate = %d; want 24000", f.SampleRate)
	}
	if f.InterleaveBlockSize != 0x100 {
		t.Errorf("InterleaveBlockSize = %#x; want 0x100", f.InterleaveBlockSize)
	}
}

func TestXAVSRejectsSubsongBeyondAvailableStreams(t *testing.T) {
	data := buildXAVSFile(1, func(b []byte) []byte {
		b = appendXAVSChunk(b, 0x40, make([]byte, 16))
		b = appendXAVSChunk(b, 0x5F, nil)
		return b
	})
	sf := streamfile.NewMemFile("x.xavs", data, nil)

	if _, err := NewXAVS().TryOpen(sf, Options{Subsong: 3}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}

func TestXAVSRejectsBadMagic(t *testing.T) {
	data := buildXAVSFile(1, func(b []byte) []byte { return b })
	copy(data[0:4], "NOPE")
	sf := streamfile.NewMemFile("x.xavs", data, nil)

	if _, err := NewXAVS().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
