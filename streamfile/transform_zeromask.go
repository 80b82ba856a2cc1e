package streamfile

// ZeroMask serves zero bytes for any read falling within [0, Length) and
// delegates everything else to the inner file untouched. Used by formats
// whose fixed header occupies the start of the audio data region and must
// read as silence rather than a decoding click (spec.md §6.3, VSV: "nulling
// the first 0x10 bytes required before decode").
type ZeroMask struct {
	Length int64
}

// NewZeroMask wraps inner, zeroing the first length bytes.
func NewZeroMask(inner File, length int64) *IO {
	return NewIO(inner, &ZeroMask{Length: length}, nil)
}

func (z *ZeroMask) Transform(dst []byte, offset int64, inner File) (int, error) {
	n, err := inner.ReadAt(dst, offset)
	if err != nil && n == 0 {
		return n, err
	}
	for i := 0; i < n; i++ {
		pos := offset + int64(i)
		if pos < z.Length {
			dst[i] = 0
		}
	}
	return n, err
}
