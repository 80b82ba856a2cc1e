// Package acb implements the ACB cue-to-waveform name resolution walk
// (spec.md §4.2.2): CueNameTable → CueTable → {Waveform, Synth, Sequence}
// dispatch by ReferenceType, bottoming out at a Waveform row whose AWB id
// and streaming mode match the container being opened.
package acb

import (
	"fmt"

	"github.com/farcloser/vgmgo/meta/criutf"
	"github.com/farcloser/vgmgo/streamfile"
)

// StreamingMode mirrors a Waveform row's Streaming column (spec.md
// §4.2.2): 0 memory-only, 1 stream-only, 2 memory-prefetch-plus-stream.
type StreamingMode int

const (
	StreamingMemoryOnly StreamingMode = 0
	StreamingStreamOnly StreamingMode = 1
	StreamingBoth        StreamingMode = 2
)

// ACB is an opened cue sheet, holding the tables needed for name
// resolution. AwbFile is the embedded-AWB data region (nil if the ACB
// references an externally streamed AWB, which this engine rejects for
// memory decode per spec.md §6.3).
type ACB struct {
	header     *criutf.Table
	cueName    *criutf.Table
	cue        *criutf.Table
	synth      *criutf.Table
	sequence   *criutf.Table
	track      *criutf.Table
	trackEvent *criutf.Table
	command    *criutf.Table
	waveform   *criutf.Table

	AwbFile *criutf.DataRef
}

// Open parses the ACB @UTF header at offset 0 and every referenced table
// it can locate by name; tables the cue sheet doesn't use are left nil.
func Open(sf streamfile.File) (*ACB, error) {
	header, err := criutf.Open(sf, 0)
	if err != nil {
		return nil, err
	}

	a := &ACB{header: header}

	if header.HasColumn("AwbFile") {
		ref, err := header.QueryData(0, "AwbFile")
		if err == nil && ref.Size > 0 {
			a.AwbFile = &ref
		}
	}

	open := func(col string) *criutf.Table {
		if !header.HasColumn(col) {
			return nil
		}
		ref, err := header.QueryData(0, col)
		if err != nil || ref.Size == 0 {
			return nil
		}
		t, err := criutf.Open(sf, ref.Offset)
		if err != nil {
			return nil
		}
		return t
	}

	a.cueName = open("CueNameTable")
	a.cue = open("CueTable")
	a.synth = open("SynthTable")
	a.sequence = open("SequenceTable")
	a.track = open("TrackTable")
	a.trackEvent = open("TrackEventTable")
	a.command = open("CommandTable")
	a.waveform = open("WaveformTable")

	return a, nil
}

// ResolveCueName walks CueNameTable → CueTable → reference dispatch to find
// the cue name whose resolved waveform matches awbID under the given
// streaming mode (spec.md §4.2.2).
func (a *ACB) ResolveCueName(awbID uint32, mode StreamingMode) (string, error) {
	if a.cueName == nil || a.cue == nil {
		return "", fmt.Errorf("acb: missing CueNameTable/CueTable")
	}

	for row := 0; row < a.cueName.NumRows(); row++ {
		cueIndex, err := a.cueName.QueryU16(row, "CueIndex")
		if err != nil {
			continue
		}
		cueName, err := a.cueName.QueryString(row, "CueName")
		if err != nil {
			continue
		}

		refType, err := a.cue.QueryU16(int(cueIndex), "ReferenceType")
		if err != nil {
			continue
		}
		refIndex, err := a.cue.QueryU16(int(cueIndex), "ReferenceIndex")
		if err != nil {
			continue
		}

		if a.referenceResolvesTo(int(refType), int(refIndex), awbID, mode) {
			return cueName, nil
		}
	}
	return "", fmt.Errorf("acb: no cue resolves to waveform %d", awbID)
}

func (a *ACB) referenceResolvesTo(refType, refIndex int, awbID uint32, mode StreamingMode) bool {
	switch refType {
	case 1:
		return a.waveformMatches(refIndex, awbID, mode)
	case 2:
		return a.synthMatches(refIndex, awbID, mode, 0)
	case 3:
		return a.sequenceMatches(refIndex, awbID, mode)
	case 8:
		// Unsupported random-Synth variant at the top level (spec.md
		// §4.2.2 documents this only inside SynthTable.ReferenceItems);
		// treated as unresolved here.
		return false
	}
	return false
}

func (a *ACB) waveformMatches(waveformIndex int, awbID uint32, mode StreamingMode) bool {
	if a.waveform == nil {
		return false
	}
	var id uint32
	var err error
	if a.waveform.HasColumn("Id") {
		id, err = a.waveform.QueryU32(waveformIndex, "Id")
	} else if mode == StreamingStreamOnly {
		id, err = a.waveform.QueryU32(waveformIndex, "StreamAwbId")
	} else {
		id, err = a.waveform.QueryU32(waveformIndex, "MemoryAwbId")
	}
	if err != nil || id != awbID {
		return false
	}
	streaming, err := a.waveform.QueryU16(waveformIndex, "Streaming")
	if err != nil {
		return true
	}
	return StreamingMode(streaming) == mode || StreamingMode(streaming) == StreamingBoth
}

func (a *ACB) synthMatches(synthIndex int, awbID uint32, mode StreamingMode, depth int) bool {
	if a.synth == nil || depth > 4 {
		return false
	}
	items, err := a.synth.QueryData(synthIndex, "ReferenceItems")
	if err != nil {
		return false
	}
	// ReferenceItems is an array of (type:u16, index:u16) pairs packed in
	// the data region.
	n := int(items.Size) / 4
	for i := 0; i < n; i++ {
		typ, idx, ok := readReferenceItem(a.synth, items.Offset, i)
		if !ok {
			continue
		}
		switch typ {
		case 1:
			if a.waveformMatches(idx, awbID, mode) {
				return true
			}
		case 2:
			if a.synthMatches(idx, awbID, mode, depth+1) {
				return true
			}
		case 3:
			// Unsupported random-Synth variant (spec.md §4.2.2).
		}
	}
	return false
}

func (a *ACB) sequenceMatches(sequenceIndex int, awbID uint32, mode StreamingMode) bool {
	if a.sequence == nil || a.track == nil {
		return false
	}
	trackIndices, err := a.sequence.QueryData(sequenceIndex, "TrackIndex")
	if err != nil {
		return false
	}
	n := int(trackIndices.Size) / 2
	for i := 0; i < n; i++ {
		trackIndex, ok := readU16At(a.sequence, trackIndices.Offset, i)
		if !ok {
			continue
		}
		eventIndex, err := a.track.QueryU16(int(trackIndex), "EventIndex")
		if err != nil {
			continue
		}
		if a.commandResolves(int(eventIndex), awbID, mode) {
			return true
		}
	}
	return false
}

// commandResolves parses a Command TLV stream (code:u16, size:u8, payload)
// from TrackEventTable (newer ACB) or CommandTable (older), looking for a
// 0x07D0 Synth-reference sub-command with subcode 2 (spec.md §4.2.2).
func (a *ACB) commandResolves(eventIndex int, awbID uint32, mode StreamingMode) bool {
	tbl := a.trackEvent
	col := "Command"
	if tbl == nil {
		tbl = a.command
	}
	if tbl == nil {
		return false
	}
	data, err := tbl.QueryData(eventIndex, col)
	if err != nil {
		return false
	}

	pos := data.Offset
	end := data.Offset + data.Size
	for pos+3 <= end {
		code, ok1 := readU16At(tbl, pos, 0)
		size, ok2 := readU8At(tbl, pos+2)
		if !ok1 || !ok2 {
			break
		}
		payloadStart := pos + 3
		if code == 0x07D0 && size >= 4 {
			subcode, ok := readU16At(tbl, payloadStart, 0)
			subindex, ok2 := readU16At(tbl, payloadStart, 1)
			if ok && ok2 && subcode == 2 {
				if a.synthMatches(int(subindex), awbID, mode, 0) {
					return true
				}
			}
		}
		pos = payloadStart + int64(size)
	}
	return false
}

// readReferenceItem reads the i'th (type:u16, index:u16) pair from a
// SynthTable ReferenceItems data region.
func readReferenceItem(t *criutf.Table, base int64, i int) (typ, index int, ok bool) {
	offset := base + int64(i)*4
	typV, ok1 := t.ReadU16BEAt(offset)
	idxV, ok2 := t.ReadU16BEAt(offset + 2)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return int(typV), int(idxV), true
}

// readU16At reads the i'th big-endian u16 from a packed array data region
// (e.g. a Sequence's TrackIndex array).
func readU16At(t *criutf.Table, base int64, i int) (uint16, bool) {
	return t.ReadU16BEAt(base + int64(i)*2)
}

// readU8At reads a single byte from a data region (used for the Command
// TLV stream's size field).
func readU8At(t *criutf.Table, offset int64) (uint8, bool) {
	return t.ReadU8At(offset)
}
