package meta

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

func TestFSBPlainFSB4(t *testing.T) {
	h := make([]byte, 0x40)
	copy(h[0:], "FSB4")
	binary.LittleEndian.PutUint32(h[0x0C:], 12345)
	sf := streamfile.NewMemFile("x.fsb", h, nil)

	f, err := NewFSB().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.Codec != vgmformat.CodecVorbis {
		t.Errorf("Codec = %v; want CodecVorbis", f.Codec)
	}
	if f.NumSamples != 12345 {
		t.Errorf("NumSamples = %d; want 12345", f.NumSamples)
	}
	if f.ChannelStartOffsets[0].Offset != 0x3C {
		t.Errorf("data offset = %#x; want 0x3c", f.ChannelStartOffsets[0].Offset)
	}
}

func TestFSBPlainFSB5HasLargerHeader(t *testing.T) {
	h := make([]byte, 0x64)
	copy(h[0:], "FSB5")
	binary.LittleEndian.PutUint32(h[0x0C:], 999)
	sf := streamfile.NewMemFile("x.fsb", h, nil)

	f, err := NewFSB().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.ChannelStartOffsets[0].Offset != 0x60 {
		t.Errorf("data offset = %#x; want 0x60", f.ChannelStartOffsets[0].Offset)
	}
}

func reverseBitsForTest(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

func TestFSBBuiltinKeyDecryption(t *testing.T) {
	key := fsbBuiltinKeys[0]
	target := make([]byte, 0x40)
	copy(target[0:], "FSB4")
	binary.LittleEndian.PutUint32(target[0x0C:], 777)

	// Encrypt with headerSwap=false so the meta's bitReverseFirst=false
	// pass recovers it: decrypted[i] = reverseBits(raw[i] ^ key[i%len]),
	// so raw[i] = reverseBits(target[i]) ^ key[i%len].
	raw := make([]byte, len(target))
	for i, tb := range target {
		raw[i] = reverseBitsForTest(tb) ^ key[i%len(key)]
	}
	sf := streamfile.NewMemFile("x.fsb", raw, nil)

	f, err := NewFSB().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.NumSamples != 777 {
		t.Errorf("NumSamples = %d; want 777", f.NumSamples)
	}
}

func TestFSBMissingSidecarKeyDoesNotPanic(t *testing.T) {
	// sf.OpenSibling returns (nil, nil) for a MemFile with no matching
	// sibling; TryOpen must fall back to the built-in key list instead of
	// dereferencing the nil file.
	data := make([]byte, 0x40)
	sf := streamfile.NewMemFile("x.fsb", data, nil)

	if _, err := NewFSB().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}

func TestFSBRejectsUnrecognizedData(t *testing.T) {
	data := make([]byte, 0x40)
	for i := range data {
		data[i] = 0x00
	}
	sf := streamfile.NewMemFile("x.fsb", data, nil)

	if _, err := NewFSB().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
