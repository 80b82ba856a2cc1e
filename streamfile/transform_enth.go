package streamfile

// ENTHRotate implements the PS2 ENTH "LP" decryption: the stored stream is
// a PCM16 buffer where each 16-bit little-endian sample has been rotated
// left by 1 bit, additionally XORed against a per-offset keystream byte
// (spec.md §4.1). Because the rotation operates on 16-bit units, reads must
// be 2-byte aligned internally; a request starting or ending mid-sample
// pulls in the neighboring byte and discards it.
type ENTHRotate struct {
	Keystream func(offset int64) byte
}

func NewENTHRotate(inner File, keystream func(offset int64) byte) *IO {
	return NewIO(inner, &ENTHRotate{Keystream: keystream}, nil)
}

func (e *ENTHRotate) Transform(dst []byte, offset int64, inner File) (int, error) {
	// Read a sample-aligned window covering [offset, offset+len(dst)).
	alignedStart := offset &^ 1
	alignedEnd := (offset + int64(len(dst)) + 1) &^ 1
	raw := make([]byte, alignedEnd-alignedStart)
	n, err := inner.ReadAt(raw, alignedStart)
	if err != nil {
		return 0, err
	}
	raw = raw[:n]

	for i := 0; i+1 < len(raw); i += 2 {
		abs := alignedStart + int64(i)
		sample := uint16(raw[i]) | uint16(raw[i+1])<<8
		// Undo a left rotation by 1: rotate right by 1.
		sample = sample>>1 | sample<<15
		if e.Keystream != nil {
			sample ^= uint16(e.Keystream(abs))
		}
		raw[i] = byte(sample)
		raw[i+1] = byte(sample >> 8)
	}

	skip := int(offset - alignedStart)
	if skip >= len(raw) {
		return 0, nil
	}
	return copy(dst, raw[skip:]), nil
}
