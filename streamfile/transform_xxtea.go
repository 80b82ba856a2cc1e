package streamfile

import "encoding/binary"

// XXTEA decrypts a region [DataOffset, DataOffset+DataSize) in aligned
// blocks of BlockSize bytes using a 128-bit XXTEA key (spec.md §4.1, AWC
// container). Decrypted blocks are cached by block index so repeated reads
// inside one block don't re-run the cipher, and — critically for the
// idempotence law in spec.md §8.1 — every read of the same range returns
// identical bytes regardless of call order.
type XXTEA struct {
	Key        [4]uint32
	DataOffset int64
	DataSize   int64
	BlockSize  int64

	cache map[int64][]byte
}

func NewXXTEA(inner File, key [4]uint32, dataOffset, dataSize, blockSize int64) *IO {
	return NewIO(inner, &XXTEA{Key: key, DataOffset: dataOffset, DataSize: dataSize, BlockSize: blockSize, cache: make(map[int64][]byte)}, nil)
}

func (x *XXTEA) Transform(dst []byte, offset int64, inner File) (int, error) {
	total := 0
	for total < len(dst) {
		abs := offset + int64(total)
		if abs < x.DataOffset || abs >= x.DataOffset+x.DataSize {
			// Outside the encrypted region: pass through untouched.
			n, err := inner.ReadAt(dst[total:total+1], abs)
			total += n
			if err != nil || n == 0 {
				return total, err
			}
			continue
		}

		relative := abs - x.DataOffset
		blockIdx := relative / x.BlockSize
		within := relative % x.BlockSize

		block, ok := x.cache[blockIdx]
		if !ok {
			raw := make([]byte, x.BlockSize)
			blockStart := x.DataOffset + blockIdx*x.BlockSize
			n, err := ReadFull(inner, raw, blockStart)
			if err != nil {
				return total, err
			}
			raw = raw[:n]
			if len(raw) == int(x.BlockSize) {
				xxteaDecryptBlock(raw, x.Key)
			}
			if x.cache == nil {
				x.cache = make(map[int64][]byte)
			}
			x.cache[blockIdx] = raw
			block = raw
		}

		if within >= int64(len(block)) {
			return total, nil
		}
		n := copy(dst[total:], block[within:])
		total += n
	}
	return total, nil
}

// xxteaDecryptBlock decrypts data in place using the standard XXTEA
// algorithm, treating data as a sequence of little-endian uint32 words.
func xxteaDecryptBlock(data []byte, key [4]uint32) {
	n := len(data) / 4
	if n < 2 {
		return
	}
	v := make([]uint32, n)
	for i := 0; i < n; i++ {
		v[i] = binary.LittleEndian.Uint32(data[i*4:])
	}

	const delta = 0x9E3779B9
	rounds := 6 + 52/n
	sum := uint32(rounds) * delta

	mx := func(p int, y, z, s uint32) uint32 {
		return ((z>>5 ^ y<<2) + (y>>3 ^ z<<4)) ^ ((sum ^ y) + (key[(p&3)^int(s&3)] ^ z))
	}

	for ; rounds > 0; rounds-- {
		e := (sum >> 2) & 3
		for p := n - 1; p > 0; p-- {
			y := v[p-1]
			z := v[p]
			v[p] -= mx(p, y, z, e)
		}
		y := v[n-1]
		v[0] -= mx(0, y, v[0], e)
		sum -= delta
	}

	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(data[i*4:], v[i])
	}
}
