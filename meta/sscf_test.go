package meta

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// sscfKeystreamByte reproduces streamfile.Xorshift2048's keystream
// generation so the test can encrypt a plaintext "RIFF" the same way the
// real container does, independent of the production code under test.
func sscfKeystreamByte(seed uint32, rotateBy uint, pos int64) byte {
	rotl := func(x uint32, n uint) uint32 {
		n &= 31
		return x<<n | x>>(32-n)
	}
	const klen = 0x800
	var stream [klen]byte
	key := rotl(seed, rotateBy)
	for i := 0; i+3 < klen; i += 4 {
		stream[i] = byte(key)
		stream[i+1] = byte(key >> 8)
		stream[i+2] = byte(key >> 16)
		stream[i+3] = byte(key >> 24)
		prev := key
		key = rotl(key, 3) + prev
	}
	return stream[pos%klen]
}

func buildSSCFFile(seed uint32) []byte {
	h := make([]byte, sscfDataStart+4)
	copy(h[0:], "SSCF")
	binary.LittleEndian.PutUint32(h[0x14:], seed)
	plain := []byte("RIFF")
	for i, b := range plain {
		pos := int64(sscfDataStart + i)
		h[sscfDataStart+i] = b ^ sscfKeystreamByte(seed, 11, pos)
	}
	return h
}

func TestSSCFDecryptsRIFFMagic(t *testing.T) {
	data := buildSSCFFile(0xDEADBEEF)
	sf := streamfile.NewMemFile("x.sscf", data, nil)

	f, err := NewSSCF().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.Codec != vgmformat.CodecXMA {
		t.Errorf("Codec = %v; want CodecXMA", f.Codec)
	}
	if f.Channels != 2 {
		t.Errorf("Channels = %d; want 2", f.Channels)
	}

	buf := make([]byte, 4)
	n, err := f.StreamFile.ReadAt(buf, sscfDataStart)
	if err != nil || n != 4 {
		t.Fatalf("ReadAt: n=%d err=%v", n, err)
	}
	if string(buf) != "RIFF" {
		t.Errorf("decrypted magic = %q; want RIFF", buf)
	}
}

func TestSSCFRejectsBadMagic(t *testing.T) {
	data := buildSSCFFile(0x1234)
	copy(data[0:4], "NOPE")
	sf := streamfile.NewMemFile("x.sscf", data, nil)

	if _, err := NewSSCF().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}

func TestSSCFRejectsWrongSeedProducingGarbage(t *testing.T) {
	data := buildSSCFFile(0xDEADBEEF)
	// Corrupt the seed field after encryption so decryption no longer
	// reconstructs the RIFF magic.
	binary.LittleEndian.PutUint32(data[0x14:], 0x00000001)
	sf := streamfile.NewMemFile("x.sscf", data, nil)

	if _, err := NewSSCF().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
