// Package layout implements the traversal policies that drive how much
// encoded data a codec consumes per play call — flat, interleaved,
// blocked, and segmented (spec.md §4.4). A Layout never owns a
// vgmstream.Stream directly (that would cycle back into this package);
// instead it is handed a Context, the minimal view of per-stream state it
// needs, satisfied by the orchestrator.
package layout

import (
	"github.com/farcloser/vgmgo/coding"
	"github.com/farcloser/vgmgo/streamfile"
	"github.com/farcloser/vgmgo/vgmformat"
)

// Context is the subset of stream/decoder state a Layout needs: per-channel
// current offsets, the shared codec decoder, and the stream's format
// descriptor. vgmstream.Stream provides this through its contextAdapter.
type Context interface {
	Format() *vgmformat.Format
	StreamFile() streamfile.File
	Coding() coding.Decoder
	ChannelOffset(channel int) int64
	SetChannelOffset(channel int, offset int64)
}

// Layout renders up to nSamples interleaved PCM16 samples into out,
// returning the number of samples actually produced, and decodes through
// ctx's coding.Decoder. Interleave, Blocked and AAX each keep their own
// position state; Interleave computes read offsets from it and its
// StartOffset and does not move ctx's channel offsets.
type Layout interface {
	Render(ctx Context, out []int16, nSamples int) (int, error)
}

// Channel captures one channel's traversal cursor, used by vgmstream's loop
// snapshot to save and restore channel offsets at loop points (spec.md
// §3.1 StreamChannel).
type Channel struct {
	Offset      int64
	StartOffset int64
}

// Snapshot is a captured copy of every channel's cursor plus any
// layout-private state, taken lazily the first time play crosses
// loop_start_sample, and restored verbatim on every subsequent loop
// (spec.md §4.6).
type Snapshot struct {
	Channels []Channel
	Extra    any
}
