package meta

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
)

func buildPS2ENTHHeader(magic string, headerBase int64, channels byte, sampleRate, interleave, dataSize, loopStart uint32) []byte {
	h := make([]byte, headerBase+0x800)
	copy(h[0:], magic)
	h[headerBase+0x10] = channels
	binary.LittleEndian.PutUint32(h[headerBase+0x14:], sampleRate)
	binary.LittleEndian.PutUint32(h[headerBase+0x18:], interleave)
	binary.LittleEndian.PutUint32(h[headerBase+0x1C:], dataSize)
	binary.LittleEndian.PutUint32(h[headerBase+0x20:], loopStart)
	return h
}

func TestPS2ENTHApVariantNoLoop(t *testing.T) {
	h := buildPS2ENTHHeader("AP  ", 0, 2, 44100, 0x100, 0x800, 0)
	sf := streamfile.NewMemFile("x.enth", h, nil)

	f, err := NewPS2ENTH().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.Channels != 2 {
		t.Errorf("Channels = %d; want 2", f.Channels)
	}
	if f.LoopFlag {
		t.Error("LoopFlag = true; want false")
	}
	if f.ChannelStartOffsets[0].Offset != 0x800 {
		t.Errorf("channel0 offset = %#x; want 0x800", f.ChannelStartOffsets[0].Offset)
	}
}

func TestPS2ENTHLepVariantHasExtraHeaderOffset(t *testing.T) {
	h := buildPS2ENTHHeader("LEP ", 0x800, 1, 22050, 0x80, 0x400, 0x40)
	sf := streamfile.NewMemFile("x.enth", h, nil)

	f, err := NewPS2ENTH().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if !f.LoopFlag {
		t.Fatal("LoopFlag = false; want true")
	}
	if f.ChannelStartOffsets[0].Offset != 0x800+0x800 {
		t.Errorf("data offset = %#x; want 0x1000", f.ChannelStartOffsets[0].Offset)
	}
}

func TestPS2ENTHRejectsUnknownMagic(t *testing.T) {
	h := buildPS2ENTHHeader("NOPE", 0, 1, 44100, 0x100, 0x100, 0)
	sf := streamfile.NewMemFile("x.enth", h, nil)

	if _, err := NewPS2ENTH().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
