package layout

import (
	"encoding/binary"
	"testing"

	"github.com/farcloser/vgmgo/coding"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// fakeContext is the minimal layout.Context a test needs: a fixed format,
// a shared streamfile, and a shared coding.Decoder. ChannelOffset is
// unused by Interleave.Render, so it's a no-op pair.
type fakeContext struct {
	f  *vgmformat.Format
	sf streamfile.File
	c  coding.Decoder
}

func (c *fakeContext) Format() *vgmformat.Format          { return c.f }
func (c *fakeContext) StreamFile() streamfile.File        { return c.sf }
func (c *fakeContext) Coding() coding.Decoder             { return c.c }
func (c *fakeContext) ChannelOffset(int) int64            { return 0 }
func (c *fakeContext) SetChannelOffset(int, int64)        {}

func putSamples(buf []byte, offset int64, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[offset+int64(i)*2:], uint16(s))
	}
}

func TestInterleaveRendersAcrossBlockBoundary(t *testing.T) {
	data := make([]byte, 0x200)
	putSamples(data, 0, []int16{1, 2, 3, 4})    // channel 0, block 0
	putSamples(data, 8, []int16{5, 6, 7, 8})    // channel 0, block 1
	putSamples(data, 0x100, []int16{101, 102, 103, 104}) // channel 1, block 0
	putSamples(data, 0x108, []int16{105, 106, 107, 108}) // channel 1, block 1

	sf := streamfile.NewMemFile("x.pcm", data, nil)
	dec := coding.NewPCM(vgmformat.CodecPCM16LE)
	ctx := &fakeContext{
		f:  &vgmformat.Format{Codec: vgmformat.CodecPCM16LE, Channels: 2},
		sf: sf,
		c:  dec,
	}

	l := &Interleave{
		Channels:        2,
		BlockSize:       8,
		SamplesPerBlock: 4,
		StartOffset:     []int64{0, 0x100},
		TotalBlocks:     2,
	}

	out := make([]int16, 6*2)
	n, err := l.Render(ctx, out, 6)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != 6 {
		t.Fatalf("Render produced %d samples; want 6", n)
	}
	want := []int16{1, 101, 2, 102, 3, 103, 4, 104, 5, 105, 6, 106}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d; want %d", i, out[i], want[i])
		}
	}
	if l.CurrentSample != 6 {
		t.Errorf("CurrentSample = %d; want 6", l.CurrentSample)
	}
}

func TestInterleaveFirstAndLastBlockSizeOverride(t *testing.T) {
	l := &Interleave{
		BlockSize:      8,
		FirstBlockSize: 16,
		LastBlockSize:  4,
		TotalBlocks:    3,
	}
	if got := l.blockSizeFor(0); got != 16 {
		t.Errorf("blockSizeFor(0) = %d; want 16 (FirstBlockSize)", got)
	}
	if got := l.blockSizeFor(1); got != 8 {
		t.Errorf("blockSizeFor(1) = %d; want 8 (BlockSize)", got)
	}
	if got := l.blockSizeFor(2); got != 4 {
		t.Errorf("blockSizeFor(2) = %d; want 4 (LastBlockSize)", got)
	}
}
