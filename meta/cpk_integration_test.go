package meta

import (
	"testing"

	"github.com/farcloser/vgmgo/streamfile"
)

// buildCPKFile assembles a full CPK container: "CPK " magic, a header
// @UTF table at 0x10 (Tvers/ItocOffset/ContentOffset/Align), pointing at
// an Itoc @UTF table whose DataL/DataH data columns embed two more @UTF
// tables (CpkItocL/CpkItocH, indexed by ExtractSize), and finally the
// aligned subfile content (spec.md §6.3).
func buildCPKFile(itocLSizes []uint16, itocHSizes [][2]uint32, contentMagic string) []byte {
	itocLBytes := buildUTFFixture("CpkItocL", []utfFixtureCol{
		{name: "ExtractSize", kind: 0x03},
	}, func() [][]utfRowValue {
		rows := make([][]utfRowValue, len(itocLSizes))
		for i, s := range itocLSizes {
			rows[i] = []utfRowValue{{u16: s}}
		}
		return rows
	}())

	itocHBytes := buildUTFFixture("CpkItocH", []utfFixtureCol{
		{name: "ExtractSize", kind: 0x05},
		{name: "FileSize", kind: 0x05},
	}, func() [][]utfRowValue {
		rows := make([][]utfRowValue, len(itocHSizes))
		for i, s := range itocHSizes {
			rows[i] = []utfRowValue{{u32: s[0]}, {u32: s[1]}}
		}
		return rows
	}())

	itocBytes := buildUTFFixture("CpkItocInfo", []utfFixtureCol{
		{name: "DataL", kind: 0x0C},
		{name: "DataH", kind: 0x0C},
	}, [][]utfRowValue{
		{{data: itocLBytes}, {data: itocHBytes}},
	})

	const prefixLen = 0x10
	headerOffset := int64(prefixLen)
	itocOffset := headerOffset // placeholder, fixed up below after header is built

	// Header references itocOffset before we know the header's own
	// length, so build it twice: once to measure, once with the real
	// offset substituted.
	measureHeader := buildUTFFixture("CpkHeader", []utfFixtureCol{
		{name: "Tvers", kind: 0x0B},
		{name: "ItocOffset", kind: 0x05},
		{name: "ContentOffset", kind: 0x05},
		{name: "Align", kind: 0x03},
	}, [][]utfRowValue{
		{{str: "awb_1.00"}, {u32: 0}, {u32: 0}, {u16: 32}},
	})
	itocOffset = headerOffset + int64(len(measureHeader))
	contentOffsetRaw := itocOffset + int64(len(itocBytes))

	headerBytes := buildUTFFixture("CpkHeader", []utfFixtureCol{
		{name: "Tvers", kind: 0x0B},
		{name: "ItocOffset", kind: 0x05},
		{name: "ContentOffset", kind: 0x05},
		{name: "Align", kind: 0x03},
	}, [][]utfRowValue{
		{{str: "awb_1.00"}, {u32: uint32(itocOffset)}, {u32: uint32(contentOffsetRaw)}, {u16: 32}},
	})
	if len(headerBytes) != len(measureHeader) {
		panic("buildCPKFile: header size changed between passes")
	}

	contentAligned := alignUp(contentOffsetRaw, 32)

	out := make([]byte, contentAligned+int64(len(contentMagic))+16)
	copy(out[0:], "CPK ")
	copy(out[prefixLen:], headerBytes)
	copy(out[itocOffset:], itocBytes)
	copy(out[contentAligned:], contentMagic)
	return out
}

func TestCPKResolvesFirstSubsongViaItocL(t *testing.T) {
	data := buildCPKFile([]uint16{100, 200}, nil, "CWAV")
	sf := streamfile.NewMemFile("x.cpk", data, nil)

	f, err := NewCPK().TryOpen(sf, Options{Subsong: 1})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SubsongCount != 2 {
		t.Errorf("SubsongCount = %d; want 2", f.SubsongCount)
	}
	buf := make([]byte, 4)
	n, err := f.StreamFile.ReadAt(buf, f.ChannelStartOffsets[0].Offset)
	if err != nil || n != 4 || string(buf) != "CWAV" {
		t.Errorf("subfile content at data offset = %q, err=%v; want CWAV", buf, err)
	}
}

func TestCPKResolvesSubsongFromItocHWhenPastItocL(t *testing.T) {
	data := buildCPKFile([]uint16{100}, [][2]uint32{{5000, 6000}}, "CWAV")
	sf := streamfile.NewMemFile("x.cpk", data, nil)

	// Subsong 2 (idx=1) is past itocL's single row, resolved via itocH row 0.
	f, err := NewCPK().TryOpen(sf, Options{Subsong: 2})
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	if f.SubsongIndex != 2 {
		t.Errorf("SubsongIndex = %d; want 2", f.SubsongIndex)
	}
}

func TestCPKRejectsNonAWBTvers(t *testing.T) {
	itocLBytes := buildUTFFixture("CpkItocL", []utfFixtureCol{{name: "ExtractSize", kind: 0x03}}, nil)
	itocHBytes := buildUTFFixture("CpkItocH", []utfFixtureCol{{name: "ExtractSize", kind: 0x05}, {name: "FileSize", kind: 0x05}}, nil)
	itocBytes := buildUTFFixture("CpkItocInfo", []utfFixtureCol{{name: "DataL", kind: 0x0C}, {name: "DataH", kind: 0x0C}}, [][]utfRowValue{
		{{data: itocLBytes}, {data: itocHBytes}},
	})
	headerBytes := buildUTFFixture("CpkHeader", []utfFixtureCol{
		{name: "Tvers", kind: 0x0B}, {name: "ItocOffset", kind: 0x05}, {name: "ContentOffset", kind: 0x05}, {name: "Align", kind: 0x03},
	}, [][]utfRowValue{
		{{str: "not_awb"}, {u32: 0x10 + 1000}, {u32: 0}, {u16: 32}},
	})
	out := make([]byte, 0x10+len(headerBytes)+len(itocBytes))
	copy(out[0:], "CPK ")
	copy(out[0x10:], headerBytes)
	sf := streamfile.NewMemFile("x.cpk", out, nil)

	if _, err := NewCPK().TryOpen(sf, Options{}); err != ErrNotThisFormat {
		t.Errorf("TryOpen err = %v; want ErrNotThisFormat", err)
	}
}
