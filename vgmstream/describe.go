package vgmstream

import (
	"fmt"
	"path"
	"strings"
)

// Describe renders a human-readable multi-line description of the opened
// stream (spec.md §6.1's format_describe()), the same summary a host
// integration would print in a "file info" panel.
func (s *Stream) Describe() (string, error) {
	if s.Format == nil {
		return "", ErrStreamNotOpen
	}
	f := s.Format
	var b strings.Builder
	fmt.Fprintf(&b, "metadata from: %s\n", f.MetaName)
	fmt.Fprintf(&b, "codec: %s\n", f.Codec)
	fmt.Fprintf(&b, "channels: %d\n", f.Channels)
	fmt.Fprintf(&b, "sample rate: %d Hz\n", f.SampleRate)
	fmt.Fprintf(&b, "stream total samples: %d (%s)\n", f.NumSamples, durationOf(f.NumSamples, f.SampleRate))
	if f.LoopFlag {
		fmt.Fprintf(&b, "loop start: %d samples\n", f.LoopStartSample)
		fmt.Fprintf(&b, "loop end: %d samples\n", f.LoopEndSample)
	}
	if f.SubsongCount > 1 {
		fmt.Fprintf(&b, "stream index: %d / %d\n", f.SubsongIndex, f.SubsongCount)
	}
	if f.StreamName != "" {
		fmt.Fprintf(&b, "stream name: %s\n", f.StreamName)
	}
	return b.String(), nil
}

func durationOf(samples, rate int) string {
	if rate <= 0 {
		return "0:00"
	}
	totalSeconds := samples / rate
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// GetTitle builds the display title for the opened stream from its internal
// stream_name and filename, per cfg's flags (spec.md §6.1's get_title()).
func (s *Stream) GetTitle(cfg TitleConfig) (string, error) {
	if s.Format == nil {
		return "", ErrStreamNotOpen
	}
	f := s.Format

	if f.StreamName != "" && (cfg.ForceTitle || cfg.Filename == "") {
		return f.StreamName, nil
	}

	name := cfg.Filename
	if name == "" {
		if f.StreamFile != nil {
			name = f.StreamFile.Name()
		}
	}
	if cfg.RemoveArchive {
		name = path.Base(name)
	}
	if cfg.RemoveExtension {
		ext := path.Ext(name)
		name = strings.TrimSuffix(name, ext)
	}
	if cfg.SubsongRange && f.SubsongCount > 1 {
		name = fmt.Sprintf("%s#%d", name, f.SubsongIndex)
	}
	return name, nil
}
