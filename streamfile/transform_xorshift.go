package streamfile

// Xorshift2048 implements the SSCF container's 0x800-byte keystream: a
// 32-bit file ID, rotated by a fixed constant, seeds an xorshift-derived
// stream that is repeated (tiled) across the whole encrypted region
// (spec.md §4.1, §6.3). The keystream is generated once at construction
// since it is small and purely a function of the seed.
type Xorshift2048 struct {
	keystream [0x800]byte
}

// NewXorshift2048 builds the SSCF keystream wrapper. seed is the raw
// 32-bit xorkey read from the SSCF header at offset 0x14; rotateBy is the
// fixed rotation constant the format applies before expanding the stream.
func NewXorshift2048(inner File, seed uint32, rotateBy uint) *IO {
	x := &Xorshift2048{}
	x.generate(seed, rotateBy)
	return NewIO(inner, x, nil)
}

func (x *Xorshift2048) generate(seed uint32, rotateBy uint) {
	key := rotl32(seed, rotateBy)
	for i := 0; i+3 < len(x.keystream); i += 4 {
		x.keystream[i] = byte(key)
		x.keystream[i+1] = byte(key >> 8)
		x.keystream[i+2] = byte(key >> 16)
		x.keystream[i+3] = byte(key >> 24)
		prev := key
		key = rotl32(key, 3) + prev
	}
}

func rotl32(x uint32, n uint) uint32 {
	n &= 31
	return x<<n | x>>(32-n)
}

func (x *Xorshift2048) Transform(dst []byte, offset int64, inner File) (int, error) {
	n, err := inner.ReadAt(dst, offset)
	if err != nil {
		return n, err
	}
	klen := int64(len(x.keystream))
	for i := 0; i < n; i++ {
		abs := offset + int64(i)
		dst[i] ^= x.keystream[abs%klen]
	}
	return n, nil
}
