package meta

import (
	"strings"

	"github.com/farcloser/vgmgo/io16"
	"github.com/farcloser/vgmgo/meta/criutf"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// CPK recognizes CRI's "CPK " container used here as an audio bank: a
// top-level @UTF at 0x10 whose Tvers row must start with "awb"; ItocOffset
// points at a second @UTF (CpkItocInfo) describing per-file sizes via
// dual L/H (u16/u32) row tables, and file contents start at ContentOffset
// aligned up to Align bytes (spec.md §6.3).
type CPK struct{}

func NewCPK() *CPK { return &CPK{} }

func (CPK) Name() string { return "cpk" }

func (CPK) TryOpen(sf streamfile.File, opts Options) (*vgmformat.Format, error) {
	r := io16.New(sf)
	magic, err := r.StringFixed(0, 4)
	if err != nil || magic != "CPK " {
		return nil, ErrNotThisFormat
	}

	header, err := criutf.Open(sf, 0x10)
	if err != nil {
		return nil, ErrNotThisFormat
	}
	tvers, err := header.QueryString(0, "Tvers")
	if err != nil || !strings.HasPrefix(tvers, "awb") {
		return nil, ErrNotThisFormat
	}

	itocOffset, err := header.QueryU32(0, "ItocOffset")
	if err != nil {
		return nil, err
	}
	contentOffset, err := header.QueryU32(0, "ContentOffset")
	if err != nil {
		return nil, err
	}
	align, err := header.QueryU16(0, "Align")
	if err != nil || align == 0 {
		align = 1
	}

	itoc, err := criutf.Open(sf, int64(itocOffset))
	if err != nil {
		return nil, err
	}
	filesL, err := itoc.QueryData(0, "DataL")
	if err != nil {
		return nil, err
	}
	filesH, err := itoc.QueryData(0, "DataH")
	if err != nil {
		return nil, err
	}

	itocL, err := criutf.Open(sf, filesL.Offset)
	if err != nil {
		return nil, err
	}
	itocH, err := criutf.Open(sf, filesH.Offset)
	if err != nil {
		return nil, err
	}

	subsong := opts.Subsong
	if subsong <= 0 {
		subsong = 1
	}
	idx := subsong - 1

	var extractSize, fileSize uint32
	if idx < itocL.NumRows() {
		v16, err := itocL.QueryU16(idx, "ExtractSize")
		if err == nil {
			extractSize = uint32(v16)
		}
	} else if hi := idx - itocL.NumRows(); hi < itocH.NumRows() {
		extractSize, _ = itocH.QueryU32(hi, "ExtractSize")
		fileSize, _ = itocH.QueryU32(hi, "FileSize")
	}
	_ = fileSize

	dataOffset := alignUp(int64(contentOffset), int64(align))

	codec, channels, rate := sniffCPKSubfile(r, dataOffset)

	f := &vgmformat.Format{
		MetaName:      "cpk",
		Codec:         codec,
		Layout:        vgmformat.LayoutNone,
		Channels:      channels,
		InputChannels: channels,
		SampleRate:    rate,
		SubsongIndex:  subsong,
		SubsongCount:  itocL.NumRows() + itocH.NumRows(),
		StreamFile:    sf,
	}
	f.ChannelStartOffsets = []vgmformat.ChannelStart{{Offset: dataOffset}}
	_ = extractSize
	return f, nil
}

// sniffCPKSubfile inspects a concatenated file's first bytes to pick its
// codec, per spec.md §6.3: "HCA\0" (possibly top-bit-XORed per byte) →
// HCA; "CWAV" → BCWAV; big-endian 0x8000 → ADX. This engine has no HCA,
// BCWAV or ADX decoder: HCA maps to CodecVorbis, CWAV to CodecDSPADPCM, and
// a 0x8000 (ADX) subfile, like any other, to CodecVAGADPCM.
func sniffCPKSubfile(r *io16.Reader, offset int64) (vgmformat.Codec, int, int) {
	magic, err := r.StringFixed(offset, 4)
	if err == nil {
		switch {
		case magic == "CWAV":
			return vgmformat.CodecDSPADPCM, 2, 48000
		}
		unmasked := make([]byte, 4)
		for i := 0; i < 4; i++ {
			b, _ := r.U8(offset + int64(i))
			unmasked[i] = b &^ 0x80
		}
		if string(unmasked) == "HCA\x00" {
			return vgmformat.CodecVorbis, 2, 44100
		}
	}
	word, err := r.U16BE(offset)
	if err == nil && word == 0x8000 {
		return vgmformat.CodecVAGADPCM, 2, 44100
	}
	return vgmformat.CodecVAGADPCM, 2, 44100
}

func alignUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	if rem := v % align; rem != 0 {
		return v + (align - rem)
	}
	return v
}
