package meta

import (
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

func TestOggEncRPGMVReconstructsOggSHeader(t *testing.T) {
	data := make([]byte, 0x40)
	copy(data[0:], "RPGMV\x00\x00\x00")
	// A second OggS page later in the file supplies the reconstructed
	// header's stream-serial bytes.
	copy(data[0x20:], "OggS")
	data[0x20+0x0E] = 0xAB
	data[0x20+0x0F] = 0xCD

	sf := streamfile.NewMemFile("x.ogg", data, nil)
	f, err := NewOggEnc("ogg").TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.Codec != vgmformat.CodecVorbis {
		t.Errorf("Codec = %v; want CodecVorbis", f.Codec)
	}

	buf := make([]byte, 16)
	n, err := f.StreamFile.ReadAt(buf, 0)
	if err != nil || n != 16 {
		t.Fatalf("ReadAt: n=%d err=%v", n, err)
	}
	if string(buf[0:4]) != "OggS" {
		t.Errorf("reconstructed header magic = %q; want OggS", buf[0:4])
	}
	if buf[0x0E] != 0xAB || buf[0x0F] != 0xCD {
		t.Errorf("stream ID bytes = %#x %#x; want ab cd", buf[0x0E], buf[0x0F])
	}
}

func TestOggEncFallthroughMatchesExtensionAndMagic(t *testing.T) {
	data := make([]byte, 16)
	copy(data[0:], "hca#")
	sf := streamfile.NewMemFile("x.ogg", data, nil)

	f, err := NewOggEnc("ogg").TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.Codec != vgmformat.CodecVorbis {
		t.Errorf("Codec = %v; want CodecVorbis", f.Codec)
	}
}

func TestOggEncFallthroughRejectsWrongExtension(t *testing.T) {
	data := make([]byte, 16)
	copy(data[0:], "hca#")
	sf := streamfile.NewMemFile("x.logg", data, nil)

	// The "hca#" variant is registered for extension "ogg" only.
	if _, err := NewOggEnc("logg").TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}

func TestOggEncRejectsUnknownMagic(t *testing.T) {
	data := make([]byte, 16)
	copy(data[0:], "NOPE")
	sf := streamfile.NewMemFile("x.ogg", data, nil)

	if _, err := NewOggEnc("ogg").TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
