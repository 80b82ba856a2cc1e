package io16

import (
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
)

func TestReaderIntegers(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	sf := streamfile.NewMemFile("test.bin", data, nil)
	r := New(sf)

	if v, err := r.U16LE(0); err != nil || v != 0x0201 {
		t.Errorf("U16LE = %#x, %v; want 0x0201", v, err)
	}
	if v, err := r.U16BE(0); err != nil || v != 0x0102 {
		t.Errorf("U16BE = %#x, %v; want 0x0102", v, err)
	}
	if v, err := r.U32LE(0); err != nil || v != 0x04030201 {
		t.Errorf("U32LE = %#x, %v; want 0x04030201", v, err)
	}
	if v, err := r.U32BE(0); err != nil || v != 0x01020304 {
		t.Errorf("U32BE = %#x, %v; want 0x01020304", v, err)
	}
	if v, err := r.U24LE(0); err != nil || v != 0x030201 {
		t.Errorf("U24LE = %#x, %v; want 0x030201", v, err)
	}
}

func TestReaderSigned(t *testing.T) {
	data := []byte{0xFF, 0xFF}
	sf := streamfile.NewMemFile("test.bin", data, nil)
	r := New(sf)

	if v, err := r.S16LE(0); err != nil || v != -1 {
		t.Errorf("S16LE = %d, %v; want -1", v, err)
	}
}

func TestReaderStringFixed(t *testing.T) {
	data := []byte("BGMStream\x00\x00\x00")
	sf := streamfile.NewMemFile("test.bin", data, nil)
	r := New(sf)

	s, err := r.StringFixed(0, 12)
	if err != nil {
		t.Fatalf("StringFixed: %v", err)
	}
	if s != "BGMStream" {
		t.Errorf("StringFixed = %q; want %q", s, "BGMStream")
	}
}

func TestReaderStringNullTerm(t *testing.T) {
	data := []byte("hello\x00garbage")
	sf := streamfile.NewMemFile("test.bin", data, nil)
	r := New(sf)

	s, err := r.StringNullTerm(0, 256)
	if err != nil {
		t.Fatalf("StringNullTerm: %v", err)
	}
	if s != "hello" {
		t.Errorf("StringNullTerm = %q; want %q", s, "hello")
	}
}

func TestReaderShortReadErrors(t *testing.T) {
	data := []byte{0x01, 0x02}
	sf := streamfile.NewMemFile("test.bin", data, nil)
	r := New(sf)

	if _, err := r.U32LE(0); err == nil {
		t.Error("U32LE past EOF should error")
	}
}

func TestReaderFloat(t *testing.T) {
	// 1.0f in IEEE754 LE bytes.
	data := []byte{0x00, 0x00, 0x80, 0x3F}
	sf := streamfile.NewMemFile("test.bin", data, nil)
	r := New(sf)

	v, err := r.F32LE(0)
	if err != nil {
		t.Fatalf("F32LE: %v", err)
	}
	if v != 1.0 {
		t.Errorf("F32LE = %v; want 1.0", v)
	}
}
