// Package mixing implements the post-decode mix command list, loop/fade
// envelope application and channel-count operations (spec.md §4.5).
package mixing

// CommandKind tags which operation a Command performs.
type CommandKind int

const (
	CmdSwap CommandKind = iota
	CmdAdd
	CmdVolume
	CmdLimit
	CmdUpmix
	CmdDownmix
	CmdKillmix
	CmdFade
)

// Command is one entry of the ordered mix command list (spec.md §3.1).
// MaxCommands is the mixer state's declared capacity; NewMixer and Apply do
// not check the list length against it.
const MaxCommands = 512

type Command struct {
	Kind CommandKind

	// Swap
	ChannelA, ChannelB int

	// Add / Volume / Limit: Channel == -1 means "all channels" for Volume
	// and Limit.
	Channel int
	Gain    float64

	// Upmix / Downmix / Killmix
	FromChannel int

	FadeCmd Fade
}

// Mixer applies an ordered Command list to decoded PCM16 frames. It
// maintains current channel count (mutable by Upmix/Downmix/Killmix) and a
// reused float32 scratch buffer sized maxChannels*nsamples per call,
// matching spec.md §3.1's Mixer state.
type Mixer struct {
	MaxChannels int
	channels    int
	Commands    []Command

	scratch []float32
}

func NewMixer(maxChannels int, commands []Command) *Mixer {
	return &Mixer{MaxChannels: maxChannels, channels: maxChannels, Commands: commands}
}

// Channels returns the current (possibly up/down-mixed) channel count.
func (m *Mixer) Channels() int { return m.channels }

// Apply converts in (nSamples frames of m.channels() channels, PCM16
// interleaved) to float scratch, runs every command in order, and converts
// back to int16, saturating. startSample is the absolute sample position
// of the first frame in in, used to evaluate Fade commands.
func (m *Mixer) Apply(in []int16, nSamples int, startSample int64) []int16 {
	if len(m.Commands) == 0 {
		return in
	}

	m.channels = m.MaxChannels
	need := m.MaxChannels * nSamples
	if cap(m.scratch) < need {
		m.scratch = make([]float32, need)
	}
	scratch := m.scratch[:need]

	for frame := 0; frame < nSamples; frame++ {
		for ch := 0; ch < m.channels && ch < m.MaxChannels; ch++ {
			idx := frame*m.channels + ch
			if idx < len(in) {
				scratch[frame*m.MaxChannels+ch] = float32(in[idx])
			}
		}
	}

	for _, cmd := range m.Commands {
		m.applyOne(cmd, scratch, nSamples, startSample)
	}

	out := make([]int16, nSamples*m.channels)
	for frame := 0; frame < nSamples; frame++ {
		for ch := 0; ch < m.channels; ch++ {
			out[frame*m.channels+ch] = saturateInt16(scratch[frame*m.MaxChannels+ch])
		}
	}
	return out
}

func saturateInt16(v float32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func (m *Mixer) applyOne(cmd Command, scratch []float32, nSamples int, startSample int64) {
	switch cmd.Kind {
	case CmdSwap:
		for frame := 0; frame < nSamples; frame++ {
			base := frame * m.MaxChannels
			scratch[base+cmd.ChannelA], scratch[base+cmd.ChannelB] = scratch[base+cmd.ChannelB], scratch[base+cmd.ChannelA]
		}
	case CmdAdd:
		for frame := 0; frame < nSamples; frame++ {
			base := frame * m.MaxChannels
			scratch[base+cmd.Channel] += scratch[base+cmd.ChannelB] * float32(cmd.Gain)
		}
	case CmdVolume:
		gain := float32(cmd.Gain)
		for frame := 0; frame < nSamples; frame++ {
			base := frame * m.MaxChannels
			if cmd.Channel == -1 {
				for ch := 0; ch < m.channels; ch++ {
					scratch[base+ch] *= gain
				}
			} else {
				scratch[base+cmd.Channel] *= gain
			}
		}
	case CmdLimit:
		limit := float32(32767 * cmd.Gain)
		clampOne := func(v float32) float32 {
			if v > limit {
				return limit
			}
			if v < -limit {
				return -limit
			}
			return v
		}
		for frame := 0; frame < nSamples; frame++ {
			base := frame * m.MaxChannels
			if cmd.Channel == -1 {
				for ch := 0; ch < m.channels; ch++ {
					scratch[base+ch] = clampOne(scratch[base+ch])
				}
			} else {
				scratch[base+cmd.Channel] = clampOne(scratch[base+cmd.Channel])
			}
		}
	case CmdUpmix:
		if m.channels >= m.MaxChannels {
			return
		}
		for frame := 0; frame < nSamples; frame++ {
			base := frame * m.MaxChannels
			for ch := m.channels; ch > cmd.Channel; ch-- {
				scratch[base+ch] = scratch[base+ch-1]
			}
			scratch[base+cmd.Channel] = 0
		}
		m.channels++
	case CmdDownmix:
		if m.channels <= 1 {
			return
		}
		for frame := 0; frame < nSamples; frame++ {
			base := frame * m.MaxChannels
			for ch := cmd.Channel; ch < m.channels-1; ch++ {
				scratch[base+ch] = scratch[base+ch+1]
			}
		}
		m.channels--
	case CmdKillmix:
		m.channels = cmd.FromChannel
	case CmdFade:
		end := startSample + int64(nSamples)
		if !cmd.FadeCmd.Active(startSample, end) {
			return
		}
		for frame := 0; frame < nSamples; frame++ {
			vol := float32(cmd.FadeCmd.VolumeAt(startSample + int64(frame)))
			base := frame * m.MaxChannels
			if cmd.FadeCmd.Channel == -1 {
				for ch := 0; ch < m.channels; ch++ {
					scratch[base+ch] *= vol
				}
			} else {
				scratch[base+cmd.FadeCmd.Channel] *= vol
			}
		}
	}
}

// volumeFastPath is an optimized linear-scale-only path for the common
// "Volume, all channels" case over an already-interleaved int16 buffer,
// avoiding the float round-trip (spec.md §4.5 "a fast path multiplies the
// interleaved buffer linearly").
func volumeFastPath(buf []int16, gain float64) {
	for i, v := range buf {
		buf[i] = saturateInt16(float32(v) * float32(gain))
	}
}

// ApplyVolumeOnly is used by callers that know only a flat volume scale is
// configured (no swap/mix/fade), letting them skip the general Apply path.
func ApplyVolumeOnly(buf []int16, gain float64) {
	if gain == 1.0 {
		return
	}
	volumeFastPath(buf, gain)
}
