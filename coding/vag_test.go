package coding

import (
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
)

// silentVAGFrame builds one 16-byte VAG frame with predictor 0, shift 0,
// flag, and all-zero nibbles, which always decodes to 28 silent samples.
func silentVAGFrame(flag byte) []byte {
	f := make([]byte, 16)
	f[1] = flag
	return f
}

func TestVAGDecodeSilentFrame(t *testing.T) {
	data := silentVAGFrame(0x00)
	sf := streamfile.NewMemFile("x.vag", data, nil)
	v := NewVAG()

	out := make([]int16, 28)
	if err := v.Decode(sf, 0, out, 28, 0); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, s := range out {
		if s != 0 {
			t.Errorf("out[%d] = %d; want 0", i, s)
		}
	}
}

func TestVAGLoopEndFlagSilencesRemainder(t *testing.T) {
	frame1 := silentVAGFrame(0x00)
	frame2 := silentVAGFrame(0x07) // end-of-loop marker
	data := append(append([]byte{}, frame1...), frame2...)
	sf := streamfile.NewMemFile("x.vag", data, nil)
	v := NewVAG()

	out := make([]int16, 56)
	if err := v.Decode(sf, 0, out, 56, 0); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, s := range out {
		if s != 0 {
			t.Errorf("out[%d] = %d; want 0 (post-loop-end silence)", i, s)
		}
	}
}

func TestVAGPerChannelStateIndependent(t *testing.T) {
	data := silentVAGFrame(0x00)
	sf := streamfile.NewMemFile("x.vag", data, nil)
	v := NewVAG()

	out0 := make([]int16, 28)
	out1 := make([]int16, 28)
	if err := v.Decode(sf, 0, out0, 28, 0); err != nil {
		t.Fatalf("channel 0 Decode: %v", err)
	}
	if err := v.Decode(sf, 0, out1, 28, 1); err != nil {
		t.Fatalf("channel 1 Decode: %v", err)
	}
	// Channel states are independent maps keyed by channel index; decoding
	// channel 1 must not disturb channel 0's history.
	if err := v.Decode(sf, 0, out0, 28, 0); err != nil {
		t.Fatalf("channel 0 Decode #2: %v", err)
	}
	if v.state(0) == v.state(1) {
		t.Error("channels 0 and 1 share one decoder state")
	}
}

func TestVAGResetClearsLoopedState(t *testing.T) {
	frame := silentVAGFrame(0x07)
	sf := streamfile.NewMemFile("x.vag", frame, nil)
	v := NewVAG()

	out := make([]int16, 28)
	if err := v.Decode(sf, 0, out, 28, 0); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := v.Reset(0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if v.state(0).looped {
		t.Error("Reset left channel 0 in the looped state")
	}
	// After Reset, decoding the same non-looped data should not immediately
	// flip back into the "looped" silent state from the stale flag.
	plain := silentVAGFrame(0x00)
	sf2 := streamfile.NewMemFile("x.vag", plain, nil)
	if err := v.Decode(sf2, 0, out, 28, 0); err != nil {
		t.Fatalf("Decode after reset: %v", err)
	}
}
