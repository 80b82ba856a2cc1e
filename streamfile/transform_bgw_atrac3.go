package streamfile

// BGWATRAC3Key implements the Final Fantasy BGW codec-3 (encrypted ATRAC3)
// key derivation: a static 16-byte LUT XORs the first frame to produce the
// actual per-stream key, and every subsequent byte is XORed with
// key[offset%blockAlign] (spec.md §4.1). The first-frame key derivation
// means this wrapper must read block 0 once, up front, before it can
// service any other offset.
type BGWATRAC3Key struct {
	LUT        [16]byte
	BlockAlign int

	derivedKey []byte
	dataStart  int64
}

// NewBGWATRAC3Key wraps inner (the whole file, not clamped; dataStart is
// the absolute offset of the ATRAC3 data region) with the key-derivation
// transform.
func NewBGWATRAC3Key(inner File, lut [16]byte, blockAlign int, dataStart int64) *IO {
	return NewIO(inner, &BGWATRAC3Key{LUT: lut, BlockAlign: blockAlign, dataStart: dataStart}, nil)
}

func (k *BGWATRAC3Key) ensureKey(inner File) error {
	if k.derivedKey != nil {
		return nil
	}
	first := make([]byte, k.BlockAlign)
	n, err := ReadFull(inner, first, k.dataStart)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		first[i] ^= k.LUT[i%16]
	}
	k.derivedKey = first[:n]
	return nil
}

func (k *BGWATRAC3Key) Transform(dst []byte, offset int64, inner File) (int, error) {
	if err := k.ensureKey(inner); err != nil {
		return 0, err
	}

	n, err := inner.ReadAt(dst, offset)
	if err != nil {
		return n, err
	}

	relative := offset - k.dataStart
	for i := 0; i < n; i++ {
		pos := relative + int64(i)
		if pos < int64(k.BlockAlign) {
			// First block: the frame that produced the key is itself
			// decrypted by the fixed LUT, not the derived key.
			dst[i] ^= k.LUT[pos%16]
			continue
		}
		dst[i] ^= k.derivedKey[pos%int64(k.BlockAlign)]
	}
	return n, nil
}
