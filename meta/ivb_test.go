package meta

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
)

// buildIVBHeader lays out a 2-subsong IVB container: 4-byte magic,
// subsong count, interleave, then two 0x10-byte descriptors starting at 0x10.
func buildIVBHeader(subsongCount, interleave int32, descs [][3]uint32) []byte {
	h := make([]byte, 0x10+len(descs)*ivbDescriptorSize)
	copy(h[0:], "IVB\x00")
	binary.LittleEndian.PutUint32(h[0x04:], uint32(subsongCount))
	binary.LittleEndian.PutUint32(h[0x08:], uint32(interleave))
	for i, d := range descs {
		off := 0x10 + i*ivbDescriptorSize
		binary.LittleEndian.PutUint32(h[off:], d[0])
		binary.LittleEndian.PutUint32(h[off+4:], d[1])
		binary.LittleEndian.PutUint32(h[off+8:], d[2])
	}
	return h
}

func TestIVBFirstSubsong(t *testing.T) {
	descs := [][3]uint32{
		{0, 10, 0x200},
		{0, 20, 0x100},
	}
	h := buildIVBHeader(2, 0x400, descs)
	sf := streamfile.NewMemFile("x.ivb", h, nil)

	f, err := NewIVB().TryOpen(sf, Options{Subsong: 1})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SubsongIndex != 1 || f.SubsongCount != 2 {
		t.Errorf("SubsongIndex/Count = %d/%d; want 1/2", f.SubsongIndex, f.SubsongCount)
	}
	if f.Channels != 2 {
		t.Errorf("Channels = %d; want 2", f.Channels)
	}
	if f.SampleRate != 44100 {
		t.Errorf("SampleRate = %d; want 44100", f.SampleRate)
	}
	if f.ChannelStartOffsets[0].Offset != 0x800 {
		t.Errorf("channel0 offset = %#x; want 0x800", f.ChannelStartOffsets[0].Offset)
	}
	if f.ChannelStartOffsets[1].Offset != 0x800+0x400 {
		t.Errorf("channel1 offset = %#x; want 0x800+interleave", f.ChannelStartOffsets[1].Offset)
	}
}

func TestIVBSecondSubsongOffsetByFirst(t *testing.T) {
	descs := [][3]uint32{
		{0, 10, 0x200},
		{0, 20, 0x100},
	}
	h := buildIVBHeader(2, 0x400, descs)
	sf := streamfile.NewMemFile("x.ivb", h, nil)

	f, err := NewIVB().TryOpen(sf, Options{Subsong: 2})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SubsongIndex != 2 {
		t.Errorf("SubsongIndex = %d; want 2", f.SubsongIndex)
	}
	wantFirstStreamSize := int64(10-1)*0x400*2 + int64(0x200)*2
	wantOffset := int64(0x800) + wantFirstStreamSize
	if f.ChannelStartOffsets[0].Offset != wantOffset {
		t.Errorf("channel0 offset = %#x; want %#x", f.ChannelStartOffsets[0].Offset, wantOffset)
	}
}

func TestIVBRejectsSubsongOutOfRange(t *testing.T) {
	descs := [][3]uint32{{0, 10, 0x200}}
	h := buildIVBHeader(1, 0x400, descs)
	sf := streamfile.NewMemFile("x.ivb", h, nil)

	if _, err := NewIVB().TryOpen(sf, Options{Subsong: 5}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}

func TestIVBDefaultsToFirstSubsong(t *testing.T) {
	descs := [][3]uint32{{0, 10, 0x200}}
	h := buildIVBHeader(1, 0x400, descs)
	sf := streamfile.NewMemFile("x.ivb", h, nil)

	f, err := NewIVB().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SubsongIndex != 1 {
		t.Errorf("SubsongIndex = %d; want 1 (default)", f.SubsongIndex)
	}
}

func TestIVBRejectsBadMagic(t *testing.T) {
	descs := [][3]uint32{{0, 10, 0x200}}
	h := buildIVBHeader(1, 0x400, descs)
	copy(h[0:4], "NOPE")
	sf := streamfile.NewMemFile("x.ivb", h, nil)

	if _, err := NewIVB().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
