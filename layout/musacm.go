package layout

import "github.com/farcloser/vgmgo/coding"

// MusACM concatenates ACM sub-streams with loop-file bounds, delegating PCM
// production to the coding.External seam registered for CodecACM (spec.md
// §4.4 "mus_acm layout"; §4.3's ACM streaming interface open/read/seek_pcm
// is out of spec scope beyond this, per the Non-goals).
type MusACM struct {
	Channels   int
	Files      []ACMFile
	LoopFile   int // index into Files where looping re-enters, -1 if no loop

	current int
	intoFile int64
}

// ACMFile is one segment of the concatenated ACM stream.
type ACMFile struct {
	Decoder    coding.Decoder
	Offset     int64
	NumSamples int64
}

func (m *MusACM) Render(ctx Context, out []int16, nSamples int) (int, error) {
	produced := 0
	for produced < nSamples {
		if m.current >= len(m.Files) {
			break
		}
		f := &m.Files[m.current]
		remaining := f.NumSamples - m.intoFile
		if remaining <= 0 {
			m.current++
			m.intoFile = 0
			continue
		}

		todo := int(remaining)
		if want := nSamples - produced; todo > want {
			todo = want
		}

		for ch := 0; ch < m.Channels; ch++ {
			offset := f.Offset + m.intoFile*2
			scratch := make([]int16, todo)
			if err := f.Decoder.Decode(ctx.StreamFile(), offset, scratch, todo, ch); err != nil {
				return produced, err
			}
			for i := 0; i < todo; i++ {
				out[(produced+i)*m.Channels+ch] = scratch[i]
			}
		}

		produced += todo
		m.intoFile += int64(todo)
	}
	return produced, nil
}

func (m *MusACM) Loop() error {
	if m.LoopFile < 0 {
		return nil
	}
	m.current = m.LoopFile
	m.intoFile = 0
	return nil
}

// ResetToStart rewinds to the first file regardless of LoopFile.
func (m *MusACM) ResetToStart() error {
	m.current = 0
	m.intoFile = 0
	return nil
}
