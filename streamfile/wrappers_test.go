package streamfile

import (
	"bytes"
	"testing"
)

func TestClampRestrictsRange(t *testing.T) {
	data := []byte("0123456789ABCDEF")
	mf := NewMemFile("x.bin", data, nil)
	c := NewClamp(mf, 4, 6) // "456789"

	buf := make([]byte, 6)
	n, err := c.ReadAt(buf, 0)
	if err != nil || n != 6 {
		t.Fatalf("ReadAt = %d, %v", n, err)
	}
	if !bytes.Equal(buf, []byte("456789")) {
		t.Errorf("ReadAt = %q; want %q", buf, "456789")
	}
	if c.Size() != 6 {
		t.Errorf("Size = %d; want 6", c.Size())
	}

	// Reading past clamp's logical end truncates, not overruns into the
	// underlying source.
	n, err = c.ReadAt(make([]byte, 20), 2)
	if err != nil {
		t.Fatalf("ReadAt past end: %v", err)
	}
	if n != 4 {
		t.Errorf("ReadAt past end n = %d; want 4", n)
	}
}

func TestFakeNameOverridesNameOnly(t *testing.T) {
	mf := NewMemFile("real.fsb", []byte("data"), nil)
	fn := NewFakeName(mf, "fake.adx")

	if fn.Name() != "fake.adx" {
		t.Errorf("Name() = %q; want fake.adx", fn.Name())
	}
	if fn.Size() != mf.Size() {
		t.Errorf("Size() = %d; want %d", fn.Size(), mf.Size())
	}
}

func TestSubfileComposesClampAndFakeName(t *testing.T) {
	data := []byte("HEADERxxADXDATAxx")
	mf := NewMemFile("container.cpk", data, nil)
	sub := NewSubfile(mf, 8, 7, "inner.adx")

	if sub.Name() != "inner.adx" {
		t.Errorf("Name() = %q; want inner.adx", sub.Name())
	}
	buf := make([]byte, 7)
	n, err := sub.ReadAt(buf, 0)
	if err != nil || n != 7 {
		t.Fatalf("ReadAt = %d, %v", n, err)
	}
	if string(buf) != "ADXDATA" {
		t.Errorf("ReadAt = %q; want ADXDATA", buf)
	}
}

func TestWrapIsIndependentClose(t *testing.T) {
	mf := NewMemFile("x.bin", []byte("data"), nil)
	w1 := NewWrap(mf)
	w2 := NewWrap(mf)

	if err := w1.Close(); err != nil {
		t.Fatalf("w1.Close: %v", err)
	}
	// w1.Close does not close the inner MemFile, so w2 still reads fine.
	buf := make([]byte, 4)
	if _, err := w2.ReadAt(buf, 0); err != nil {
		t.Errorf("w2.ReadAt after w1.Close: %v", err)
	}
}

func TestDeblockMapsLogicalToPhysical(t *testing.T) {
	// 3 interleaved chunks of 2 bytes each: "AA" "BB" "CC" "AA" "BB" "CC"
	data := []byte("AABBCCAABBCC")
	mf := NewMemFile("x.bin", data, nil)
	// We want only the "BB" chunks visible: streamStart=2, chunkSize=2, numChunks=3.
	d := NewDeblock(mf, 2, 2, 3, 4)

	buf := make([]byte, 4)
	n, err := d.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 4 {
		t.Fatalf("ReadAt n = %d; want 4", n)
	}
	if string(buf) != "BBBB" {
		t.Errorf("ReadAt = %q; want BBBB", buf)
	}
}

func TestDeblockCrossChunkRead(t *testing.T) {
	data := []byte("AABBCCAABBCC")
	mf := NewMemFile("x.bin", data, nil)
	d := NewDeblock(mf, 2, 2, 3, 4)

	// One 2-byte read spanning the chunk boundary: logical 1 is physical 3,
	// logical 2 is physical 8.
	buf := make([]byte, 2)
	n, err := d.ReadAt(buf, 1)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d; want 2", n)
	}
	if string(buf) != "BB" {
		t.Errorf("ReadAt = %q; want BB", buf)
	}
}

// xorTransform is a trivial pure ReadTransform used to test the I/O stability
// law from spec.md §8.1: read(W,off,n)||read(W,off+n,m) == read(W,off,n+m).
type xorTransform struct{ key byte }

func (x xorTransform) Transform(dst []byte, offset int64, inner File) (int, error) {
	n, err := inner.ReadAt(dst, offset)
	for i := 0; i < n; i++ {
		dst[i] ^= x.key
	}
	return n, err
}

func TestIOWrapperStableUnderComposition(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	mf := NewMemFile("x.bin", data, nil)
	w := NewIO(mf, xorTransform{key: 0x42}, nil)

	whole := make([]byte, 20)
	if _, err := w.ReadAt(whole, 5); err != nil {
		t.Fatalf("ReadAt whole: %v", err)
	}

	part1 := make([]byte, 8)
	part2 := make([]byte, 12)
	if _, err := w.ReadAt(part1, 5); err != nil {
		t.Fatalf("ReadAt part1: %v", err)
	}
	if _, err := w.ReadAt(part2, 13); err != nil {
		t.Fatalf("ReadAt part2: %v", err)
	}

	if !bytes.Equal(whole, append(append([]byte{}, part1...), part2...)) {
		t.Error("split reads disagree with one combined read")
	}
}
