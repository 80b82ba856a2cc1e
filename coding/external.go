package coding

import (
	"fmt"

	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// ExternalDecoder is the plugin seam for codecs whose bitstream-to-PCM
// transform we don't implement in-tree (ATRAC9, ATRAC3+, CELT-FSB, XMA,
// EA-XMA, ACM): a host process registers a concrete implementation with
// RegisterExternal, mirroring the "opaque handle returned by a third-party
// library" shape (spec.md §4.3, §1 Non-goals). Without a registration
// External.Decode returns ErrNoExternalDecoder before reading any bytes.
type ExternalDecoder interface {
	// Decode is handed the raw codec bytes for one call's worth of frames
	// (already extracted/deinterleaved by the engine) and must fill out
	// with nSamples of PCM16 for channel.
	Decode(codec vgmformat.Codec, cfg any, raw []byte, out []int16, nSamples, channel int) error
	Reset(codec vgmformat.Codec, channel int) error
}

var externalRegistry map[vgmformat.Codec]ExternalDecoder

// RegisterExternal installs impl as the handler for codec, replacing any
// previous registration. A host process calls this during setup for
// whichever Tier B codecs it has linked a real decoder library for.
func RegisterExternal(codec vgmformat.Codec, impl ExternalDecoder) {
	if externalRegistry == nil {
		externalRegistry = make(map[vgmformat.Codec]ExternalDecoder)
	}
	externalRegistry[codec] = impl
}

// ErrNoExternalDecoder is returned by External.Decode when no
// ExternalDecoder has been registered for the codec.
var ErrNoExternalDecoder = fmt.Errorf("coding: no external decoder registered")

// External is the frame-extraction shim around an ExternalDecoder: it owns
// raw-byte framing (codec frame size / block align from cfg) and delegates
// the actual transform.
type External struct {
	codec vgmformat.Codec
	cfg   any
	frameSize int
}

func NewExternal(codec vgmformat.Codec, cfg any) (*External, error) {
	fs := externalFrameSize(codec, cfg)
	return &External{codec: codec, cfg: cfg, frameSize: fs}, nil
}

func externalFrameSize(codec vgmformat.Codec, cfg any) int {
	switch codec {
	case vgmformat.CodecATRAC3Plus:
		if c, ok := cfg.(vgmformat.ATRAC3PlusConfig); ok && c.BlockAlign > 0 {
			return c.BlockAlign
		}
	case vgmformat.CodecXMA, vgmformat.CodecEAXMA:
		if c, ok := cfg.(vgmformat.XMAConfig); ok && c.BlockSize > 0 {
			return c.BlockSize
		}
		return 2048
	}
	return 0
}

func (e *External) Decode(sf streamfile.File, offset int64, out []int16, nSamples, channel int) error {
	impl, ok := externalRegistry[e.codec]
	if !ok {
		return ErrNoExternalDecoder
	}

	size := e.frameSize
	if size <= 0 {
		size = nSamples * 4
	}
	raw := make([]byte, size)
	n, err := streamfile.ReadFull(sf, raw, offset)
	if err != nil {
		return err
	}
	return impl.Decode(e.codec, e.cfg, raw[:n], out, nSamples, channel)
}

func (e *External) Reset(channel int) error {
	if impl, ok := externalRegistry[e.codec]; ok {
		return impl.Reset(e.codec, channel)
	}
	return nil
}

func (e *External) SeekDiscard(sf streamfile.File, offset int64, samples, channel int) error {
	scratch := make([]int16, samples)
	return e.Decode(sf, offset, scratch, samples, channel)
}
