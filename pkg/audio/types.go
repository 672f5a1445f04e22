// ABOUTME: Core audio type definitions for the soundboard
// ABOUTME: Defines decoded clips, sink kinds and sample helpers
package audio

import "time"

const (
	// EngineRate is the fixed sample rate all mixing engines run at.
	// Devices running at other rates are converted by the backend.
	EngineRate = 48000

	// EngineChannels is the fixed channel count of the mix (stereo).
	EngineChannels = 2
)

// SinkKind identifies one of the two output signal paths.
type SinkKind int

const (
	// SinkVirtual is the virtual-cable output other applications
	// capture as a microphone.
	SinkVirtual SinkKind = iota

	// SinkSpeaker is the user's local output device.
	SinkSpeaker
)

// String returns a human-readable sink name
func (k SinkKind) String() string {
	switch k {
	case SinkVirtual:
		return "virtual"
	case SinkSpeaker:
		return "speaker"
	default:
		return "unknown"
	}
}

// Clip is a fully decoded audio file: interleaved float32 PCM
// normalized to [-1, 1]. Clips are immutable once decoded and may be
// shared read-only by any number of voices.
type Clip struct {
	SourcePath  string
	SampleRate  int
	Channels    int
	Samples     []float32 // interleaved
	TotalFrames int64
}

// Duration returns the clip length as wall-clock time
func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.TotalFrames) * time.Second / time.Duration(c.SampleRate)
}

// Seconds returns the clip length in seconds
func (c *Clip) Seconds() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(c.TotalFrames) / float64(c.SampleRate)
}

// FrameForSecond converts a position in seconds to a frame index,
// clamped to [0, TotalFrames)
func (c *Clip) FrameForSecond(sec float64) int64 {
	if sec < 0 {
		return 0
	}
	frame := int64(sec * float64(c.SampleRate))
	if frame >= c.TotalFrames {
		if c.TotalFrames == 0 {
			return 0
		}
		frame = c.TotalFrames - 1
	}
	return frame
}

// Clamp saturates a mixed sample to the valid [-1, 1] range. This is
// the hard limiter applied after summing voices: overlap of many loud
// clips saturates instead of wrapping.
func Clamp(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// ClampGain clamps a gain value to [0, 1]
func ClampGain(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
