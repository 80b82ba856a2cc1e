package io16

import (
	"bytes"
	"testing"
)

func TestBitReaderMSB(t *testing.T) {
	// 0b10110010 0b01010101
	data := []byte{0xB2, 0x55}
	br := NewBitReader(bytes.NewReader(data), true)

	v, err := br.ReadMSB(4)
	if err != nil {
		t.Fatalf("ReadMSB(4): %v", err)
	}
	if v != 0b1011 {
		t.Errorf("ReadMSB(4) = %b; want 1011", v)
	}

	v, err = br.ReadMSB(4)
	if err != nil {
		t.Fatalf("ReadMSB(4) #2: %v", err)
	}
	if v != 0b0010 {
		t.Errorf("ReadMSB(4) #2 = %b; want 0010", v)
	}

	v, err = br.ReadMSB(8)
	if err != nil {
		t.Fatalf("ReadMSB(8): %v", err)
	}
	if v != 0x55 {
		t.Errorf("ReadMSB(8) = %#x; want 0x55", v)
	}
}

func TestBitReaderLSB(t *testing.T) {
	// LSB-first: bit 0 of first byte is the first bit read.
	data := []byte{0b00000001}
	br := NewBitReader(bytes.NewReader(data), false)

	v, err := br.ReadLSB(1)
	if err != nil {
		t.Fatalf("ReadLSB(1): %v", err)
	}
	if v != 1 {
		t.Errorf("ReadLSB(1) = %d; want 1", v)
	}

	v, err = br.ReadLSB(7)
	if err != nil {
		t.Fatalf("ReadLSB(7): %v", err)
	}
	if v != 0 {
		t.Errorf("ReadLSB(7) = %d; want 0", v)
	}
}

func TestBitReaderAlignedByteRead(t *testing.T) {
	data := []byte{0xAB, 0xCD}
	br := NewBitReader(bytes.NewReader(data), true)

	b, err := br.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if b != 0xAB {
		t.Errorf("ReadByte = %#x; want 0xAB", b)
	}
	if !br.IsAligned() {
		t.Error("expected reader aligned after whole-byte read")
	}
}

func TestBitReaderEOF(t *testing.T) {
	data := []byte{0xFF}
	br := NewBitReader(bytes.NewReader(data), true)

	if _, err := br.ReadMSB(8); err != nil {
		t.Fatalf("first ReadMSB(8): %v", err)
	}
	if _, err := br.ReadMSB(8); err == nil {
		t.Error("expected error reading past EOF")
	}
}
