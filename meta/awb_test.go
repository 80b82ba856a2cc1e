package meta

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
)

// buildAWBFile lays out an AFS2 bank with a 4-byte id table followed by a
// (fileCount+1)-entry offset table, each entry entryWidth bytes wide.
func buildAWBFile(fileCount int, entryWidth int64, alignment uint32, offsets []int64) []byte {
	idTableSize := fileCount * 4
	tableStart := 0x10 + idTableSize
	offsetTableSize := int(entryWidth) * len(offsets)
	h := make([]byte, tableStart+offsetTableSize)
	copy(h[0:], "AFS2")
	if entryWidth == 2 {
		h[0x06] = 0
	} else {
		h[0x06] = 1
	}
	binary.LittleEndian.PutUint32(h[0x08:], uint32(fileCount))
	binary.LittleEndian.PutUint32(h[0x0C:], alignment)
	for i, off := range offsets {
		pos := tableStart + i*int(entryWidth)
		if entryWidth == 2 {
			binary.LittleEndian.PutUint16(h[pos:], uint16(off))
		} else {
			binary.LittleEndian.PutUint32(h[pos:], uint32(off))
		}
	}
	return h
}

func TestAWBSelectsSubsongOffset32Bit(t *testing.T) {
	// 3 files, 32-bit offset table: offsets[0], offsets[1], offsets[2], end-sentinel.
	data := buildAWBFile(3, 4, 32, []int64{0x100, 0x200, 0x300, 0x400})
	sf := streamfile.NewMemFile("x.awb", data, nil)

	f, err := NewAWB().TryOpen(sf, Options{Subsong: 2})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SubsongIndex != 2 || f.SubsongCount != 3 {
		t.Errorf("SubsongIndex/Count = %d/%d; want 2/3", f.SubsongIndex, f.SubsongCount)
	}
	wantOffset := alignUp(0x200, 32)
	if f.ChannelStartOffsets[0].Offset != wantOffset {
		t.Errorf("offset = %#x; want %#x", f.ChannelStartOffsets[0].Offset, wantOffset)
	}
}

func TestAWBDefaultAlignmentWhenZero(t *testing.T) {
	data := buildAWBFile(1, 4, 0, []int64{0x101, 0x200})
	sf := streamfile.NewMemFile("x.awb", data, nil)

	f, err := NewAWB().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	wantOffset := alignUp(0x101, 32)
	if f.ChannelStartOffsets[0].Offset != wantOffset {
		t.Errorf("offset = %#x; want %#x", f.ChannelStartOffsets[0].Offset, wantOffset)
	}
}

func TestAWBRejectsSubsongOutOfRange(t *testing.T) {
	data := buildAWBFile(1, 4, 32, []int64{0x100, 0x200})
	sf := streamfile.NewMemFile("x.awb", data, nil)

	if _, err := NewAWB().TryOpen(sf, Options{Subsong: 2}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}

func TestAWBRejectsBadMagic(t *testing.T) {
	data := buildAWBFile(1, 4, 32, []int64{0x100, 0x200})
	copy(data[0:4], "NOPE")
	sf := streamfile.NewMemFile("x.awb", data, nil)

	if _, err := NewAWB().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
