package vgmstream

import (
	"github.com/farcloser/vgmgo/layout"
	"github.com/farcloser/vgmgo/mixing"
)

// applyLoopConfig resolves Format.LoopFlag/LoopStartSample/LoopEndSample
// against cfg's force/ignore/really_force flags (spec.md §6.1) into the
// stream's effective loop window, then precomputes how many loop-backs are
// permitted; the fade window is computed by buildMixCommands. Called once
// from Open so Fill never re-derives it per sample.
func (s *Stream) applyLoopConfig() {
	f := s.Format
	eff := f.LoopFlag
	start := int64(f.LoopStartSample)
	end := int64(f.LoopEndSample)

	if s.cfg.ReallyForceLoop {
		eff, start, end = true, 0, int64(f.NumSamples)
	} else if s.cfg.ForceLoop && !eff {
		eff, start, end = true, 0, int64(f.NumSamples)
	}
	if s.cfg.IgnoreLoop {
		eff = false
	}
	if end <= start {
		eff = false
	}

	s.effLoopFlag = eff
	s.loopStartSample = start
	s.loopEndSample = end
	s.inFadeTail = false
	s.fadeConfigured = false

	if !eff {
		s.loopsRemaining = 0
		return
	}
	if s.cfg.PlayForever && s.cfg.AllowPlayForever {
		s.loopsRemaining = -1
		return
	}

	target := s.cfg.LoopCount
	if target < 1 {
		target = 1
	}
	whole := int(target)
	if whole < 1 {
		whole = 1
	}
	s.loopsRemaining = whole - 1
}

// buildMixCommands constructs the fade mix command that ends playback once
// the resolved loop count is exhausted (spec.md §4.6). Infinite looping
// (play_forever) and ignore_fade both skip it: there's nothing to fade
// into, or the caller asked not to.
func (s *Stream) buildMixCommands() []mixing.Command {
	if s.cfg.IgnoreFade || !s.effLoopFlag || s.loopsRemaining < 0 {
		return nil
	}
	loopLen := s.loopEndSample - s.loopStartSample
	if loopLen <= 0 {
		return nil
	}

	finalStop := s.loopEndSample + int64(s.loopsRemaining)*loopLen
	sampleRate := float64(s.Format.SampleRate)
	fadeDelaySamples := int64(s.cfg.FadeDelay * sampleRate)
	fadeTimeSamples := int64(s.cfg.FadeTime * sampleRate)
	if fadeTimeSamples <= 0 {
		return nil
	}

	s.fadeStartSample = finalStop + fadeDelaySamples
	s.fadeEndSample = s.fadeStartSample + fadeTimeSamples
	s.fadeConfigured = true

	return []mixing.Command{{
		Kind: mixing.CmdFade,
		FadeCmd: mixing.Fade{
			Channel:   -1,
			VolStart:  1.0,
			VolEnd:    0.0,
			Shape:     mixing.CurveLinear,
			TimePre:   -1,
			TimeStart: s.fadeStartSample,
			TimeEnd:   s.fadeEndSample,
			TimePost:  -1,
		},
	}}
}

// maybeSnapshotLoop captures channel offsets the first time playback
// crosses loop_start_sample, so performLoop can restore exactly that
// position on every subsequent loop (spec.md §4.6).
func (s *Stream) maybeSnapshotLoop() {
	if !s.effLoopFlag || s.loopSnapshotTaken || s.currentSample < s.loopStartSample {
		return
	}
	snap := &layout.Snapshot{Channels: make([]layout.Channel, len(s.channelOffsets))}
	for ch, off := range s.channelOffsets {
		snap.Channels[ch] = layout.Channel{Offset: off, StartOffset: off}
	}
	s.loopSnapshot = snap
	s.loopSnapshotTaken = true
}

// shouldKeepLooping reports whether a normal (non-fade-tail) loop-back is
// still owed: either looping forever, or the loop-back budget isn't spent.
func (s *Stream) shouldKeepLooping() bool {
	return s.effLoopFlag && (s.loopsRemaining < 0 || s.loopsRemaining > 0)
}

// performLoop restores the captured channel offsets, rewinds any
// segmented layout to its loop point, and bumps loopCount. It's used both
// for a normal loop-back and for the single extra pass entered to give the
// fade command material to ramp over.
func (s *Stream) performLoop() error {
	if s.loopsRemaining > 0 {
		s.loopsRemaining--
	}
	if s.loopSnapshot != nil {
		for ch, c := range s.loopSnapshot.Channels {
			if ch < len(s.channelOffsets) {
				s.channelOffsets[ch] = c.Offset
			}
		}
	}

	switch lay := s.lay.(type) {
	case *layout.AAX:
		if err := lay.Loop(); err != nil {
			return err
		}
	case *layout.MusACM:
		if err := lay.Loop(); err != nil {
			return err
		}
	default:
		for ch := range s.channelOffsets {
			if err := s.decoder.Reset(ch); err != nil {
				return err
			}
		}
	}

	s.currentSample = s.loopStartSample
	s.loopCount++
	return nil
}
