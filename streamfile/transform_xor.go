package streamfile

// XORKey implements the FSB-encrypted-style plain key-schedule XOR: each
// byte at absolute offset i is XORed with key[i%len(key)], optionally after
// a 4-byte header swap and/or a nibble swap of the byte (spec.md §4.1).
type XORKey struct {
	Key         []byte
	HeaderSwap  bool // swap the first 4 bytes pairwise (b0<->b1, b2<->b3) before XOR
	NibbleSwap  bool // swap the high/low nibble of each byte after XOR
	BitReverse  bool // reverse bit-order of each byte after XOR (alternate FSB mode)
}

func NewXORKey(inner File, key []byte, headerSwap, nibbleSwap, bitReverse bool) *IO {
	return NewIO(inner, &XORKey{Key: key, HeaderSwap: headerSwap, NibbleSwap: nibbleSwap, BitReverse: bitReverse}, nil)
}

func (x *XORKey) Transform(dst []byte, offset int64, inner File) (int, error) {
	n, err := inner.ReadAt(dst, offset)
	if err != nil {
		return n, err
	}
	if x.HeaderSwap {
		for i := 0; i < n && i < 4; i += 2 {
			if i+1 < n {
				dst[i], dst[i+1] = dst[i+1], dst[i]
			}
		}
	}
	klen := int64(len(x.Key))
	for i := 0; i < n; i++ {
		abs := offset + int64(i)
		b := dst[i]
		if klen > 0 {
			b ^= x.Key[abs%klen]
		}
		if x.BitReverse {
			b = reverseBits(b)
		}
		if x.NibbleSwap {
			b = b<<4 | b>>4
		}
		dst[i] = b
	}
	return n, nil
}

func reverseBits(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}
