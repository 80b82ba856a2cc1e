package meta

import (
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

func TestAAXTwoSegmentsWithLoop(t *testing.T) {
	cols := []utfFixtureCol{
		{name: "name", kind: 0x0B},
		{name: "data", kind: 0x0C},
		{name: "num_samples", kind: 0x05},
		{name: "is_loop_segment", kind: 0x05},
	}
	rows := [][]utfRowValue{
		{
			{str: "AAX\x00intro"},
			{data: make([]byte, 64)},
			{u32: 1000},
			{u32: 0},
		},
		{
			{str: "AAX\x00loop"},
			{data: make([]byte, 32)},
			{u32: 500},
			{u32: 1},
		},
	}
	data := buildUTFFixture("AAXHeader", cols, rows)
	sf := streamfile.NewMemFile("x.aax", data, nil)

	f, err := NewAAX().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.Layout != vgmformat.LayoutAAXSegmented {
		t.Errorf("Layout = %v; want LayoutAAXSegmented", f.Layout)
	}
	if len(f.Segments) != 2 {
		t.Fatalf("len(Segments) = %d; want 2", len(f.Segments))
	}
	if f.Segments[0].NumSamples != 1000 || f.Segments[1].NumSamples != 500 {
		t.Errorf("segment sample counts = %d, %d; want 1000, 500", f.Segments[0].NumSamples, f.Segments[1].NumSamples)
	}
	if f.NumSamples != 1500 {
		t.Errorf("NumSamples = %d; want 1500 (sum of segments)", f.NumSamples)
	}
	if f.LoopSegment != 1 {
		t.Errorf("LoopSegment = %d; want 1", f.LoopSegment)
	}
	if !f.LoopFlag {
		t.Error("LoopFlag = false; want true")
	}
}

func TestAAXNoLoopSegment(t *testing.T) {
	cols := []utfFixtureCol{
		{name: "name", kind: 0x0B},
		{name: "data", kind: 0x0C},
		{name: "num_samples", kind: 0x05},
	}
	rows := [][]utfRowValue{
		{{str: "AAX\x00only"}, {data: make([]byte, 16)}, {u32: 200}},
	}
	data := buildUTFFixture("AAXHeader", cols, rows)
	sf := streamfile.NewMemFile("x.aax", data, nil)

	f, err := NewAAX().TryOpen(sf, Options{})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.LoopSegment != -1 {
		t.Errorf("LoopSegment = %d; want -1", f.LoopSegment)
	}
	if f.LoopFlag {
		t.Error("LoopFlag = true; want false")
	}
}

func TestAAXRejectsNonAAXName(t *testing.T) {
	cols := []utfFixtureCol{
		{name: "name", kind: 0x0B},
		{name: "data", kind: 0x0C},
		{name: "num_samples", kind: 0x05},
	}
	rows := [][]utfRowValue{
		{{str: "NotAAX"}, {data: make([]byte, 16)}, {u32: 200}},
	}
	data := buildUTFFixture("Other", cols, rows)
	sf := streamfile.NewMemFile("x.aax", data, nil)

	if _, err := NewAAX().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
