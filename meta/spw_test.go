package meta

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

func buildSPWHeader(samplesField, loopStart1b, startOffset uint32, channels byte) []byte {
	h := make([]byte, 0x2B)
	copy(h[0:], "SeWave\x00\x00")
	binary.LittleEndian.PutUint32(h[0x14:], samplesField)
	binary.LittleEndian.PutUint32(h[0x18:], loopStart1b)
	binary.LittleEndian.PutUint32(h[0x24:], startOffset)
	h[0x2A] = channels
	return h
}

func TestSPWLoopedScenario(t *testing.T) {
	h := buildSPWHeader(200, 5, 0x30, 2)
	sf := streamfile.NewMemFile("x.spw", h, nil)

	f, err := NewSPW().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.Codec != vgmformat.CodecVAGADPCM {
		t.Errorf("Codec = %v; want CodecVAGADPCM", f.Codec)
	}
	if f.SampleRate != 44100 {
		t.Errorf("SampleRate = %d; want 44100", f.SampleRate)
	}
	if f.NumSamples != 200*16 {
		t.Errorf("NumSamples = %d; want %d", f.NumSamples, 200*16)
	}
	if !f.LoopFlag {
		t.Fatal("LoopFlag = false; want true")
	}
	if f.LoopStartSample != (5-1)*16 {
		t.Errorf("LoopStartSample = %d; want %d", f.LoopStartSample, (5-1)*16)
	}
	if f.ChannelStartOffsets[1].Offset != 0x30+9 {
		t.Errorf("channel1 offset = %#x; want %#x", f.ChannelStartOffsets[1].Offset, 0x30+9)
	}
}

func TestSPWNoLoopWhenFieldZero(t *testing.T) {
	h := buildSPWHeader(10, 0, 0x30, 1)
	sf := streamfile.NewMemFile("x.spw", h, nil)

	f, err := NewSPW().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.LoopFlag {
		t.Error("LoopFlag = true; want false")
	}
	if f.LoopStartSample != 0 {
		t.Errorf("LoopStartSample = %d; want 0", f.LoopStartSample)
	}
}

func TestSPWRejectsBadMagic(t *testing.T) {
	h := buildSPWHeader(10, 0, 0x30, 1)
	copy(h[0:4], "NOPE")
	sf := streamfile.NewMemFile("x.spw", h, nil)

	if _, err := NewSPW().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
