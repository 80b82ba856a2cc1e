package coding

import (
	"crypto/aes"

	"github.com/farcloser/vgmgo/streamfile"
)

// namcoNUSKey is meant to hold the fixed AES-192 key Namco NUS containers
// use to encrypt their PCM payload (spec.md §4.3, §6.5). The real key isn't
// available anywhere in this engine's source corpus (original_source's
// g7221_decoder_aes.c takes the key as an external parameter rather than
// embedding it), so this is a placeholder value, not the real extracted
// key; decoding an actual Namco NUS file needs the genuine key substituted
// in (see DESIGN.md).
var namcoNUSKey = [24]byte{
	0x41, 0x4E, 0x4D, 0x53, 0x2D, 0x4E, 0x55, 0x53,
	0x2D, 0x41, 0x45, 0x53, 0x2D, 0x31, 0x39, 0x32,
	0x2D, 0x4B, 0x45, 0x59, 0x2D, 0x30, 0x30, 0x31,
}

// AESNUS decrypts Namco NUS's AES-192-ECB-encrypted PCM16 payload, then
// hands the result straight through as PCM16LE (spec.md §4.3: "AES-192 ECB
// (Namco NUS)"). This is standard AES-192 in ECB mode (original_source's own
// comment on the matching decoder: "this can be swapped with another lib"),
// so it's decrypted via the standard library's crypto/aes rather than
// hand-rolling a key schedule/round-table implementation that would just be
// a worse copy of it (see DESIGN.md).
type AESNUS struct {
	block interface {
		Decrypt(dst, src []byte)
		BlockSize() int
	}
}

func NewAESNUS() *AESNUS {
	b, err := aes.NewCipher(namcoNUSKey[:])
	if err != nil {
		// aes.NewCipher only errors on invalid key length, which a fixed
		// 24-byte key never triggers.
		panic(err)
	}
	return &AESNUS{block: b}
}

func (a *AESNUS) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	bs := a.block.BlockSize()
	nBytes := nSamples * 2
	nBytes += (bs - nBytes%bs) % bs // round up to a full AES block

	cipherBuf := make([]byte, nBytes)
	n, err := streamfile.ReadFull(sf, cipherBuf, offset)
	if err != nil {
		return err
	}

	plain := make([]byte, n)
	for i := 0; i+bs <= n; i += bs {
		a.block.Decrypt(plain[i:i+bs], cipherBuf[i:i+bs])
	}

	got := n / 2
	for i := 0; i < got && i < nSamples; i++ {
		out[i] = int16(uint16(plain[i*2]) | uint16(plain[i*2+1])<<8)
	}
	for i := got; i < nSamples; i++ {
		out[i] = 0
	}
	return nil
}

func (a *AESNUS) Reset(channel int) error { return nil }

func (a *AESNUS) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	return nil
}
