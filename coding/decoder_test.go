package coding

import (
	"testing"

	"github.com/farcloser/vgmgo/vgmformat"
)

func TestNewDispatchesPCM(t *testing.T) {
	d, err := New(vgmformat.CodecPCM16LE, nil, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := d.(*PCM); !ok {
		t.Errorf("New(CodecPCM16LE) = %T; want *PCM", d)
	}
}

func TestNewDispatchesVAG(t *testing.T) {
	d, err := New(vgmformat.CodecVAGADPCM, nil, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := d.(*VAG); !ok {
		t.Errorf("New(CodecVAGADPCM) = %T; want *VAG", d)
	}
}

func TestNewExternalCodecsRequireRegistration(t *testing.T) {
	for _, c := range []vgmformat.Codec{
		vgmformat.CodecATRAC9, vgmformat.CodecATRAC3Plus, vgmformat.CodecCELTFSB,
		vgmformat.CodecXMA, vgmformat.CodecEAXMA, vgmformat.CodecACM,
	} {
		d, err := New(c, nil, 2)
		if err != nil {
			t.Fatalf("New(%s): unexpected construction error %v", c, err)
		}
		if d == nil {
			t.Fatalf("New(%s) returned nil decoder", c)
		}
		if err := d.Decode(nil, 0, make([]int16, 4), 4, 0); err != ErrNoExternalDecoder {
			t.Errorf("New(%s).Decode without registration = %v; want ErrNoExternalDecoder", c, err)
		}
	}
}

func TestNewUnknownCodecErrors(t *testing.T) {
	if _, err := New(vgmformat.Codec(999), nil, 1); err == nil {
		t.Error("New with an unknown codec should error")
	}
}
