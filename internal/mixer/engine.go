// ABOUTME: Per-sink mixing engine with an atomically swapped voice set
// ABOUTME: Accumulates voices and capture into one hard-limited buffer
package mixer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/soundbridge/soundbridge-go/internal/voice"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// scratchSamples is comfortably above any device period we configure
// (a 10ms period at 48kHz stereo is 960 samples).
const scratchSamples = 1 << 14

// Engine mixes the voices registered to one output sink. Mix runs on
// that sink's audio callback; membership changes happen on the control
// domain via copy-on-write snapshot swaps, so the callback takes no
// locks.
type Engine struct {
	label string

	voices atomic.Pointer[[]*voice.Voice]
	mu     sync.Mutex // guards membership writes only

	volumeBits atomic.Uint32

	capture         atomic.Pointer[Ring]
	captureGainBits atomic.Uint32

	scratch    []float32
	capScratch []float32
}

// NewEngine creates an engine for the named sink at device volume 1.0
func NewEngine(label string) *Engine {
	e := &Engine{
		label:      label,
		scratch:    make([]float32, scratchSamples),
		capScratch: make([]float32, scratchSamples),
	}
	empty := make([]*voice.Voice, 0)
	e.voices.Store(&empty)
	e.volumeBits.Store(math.Float32bits(1.0))
	e.captureGainBits.Store(math.Float32bits(1.0))
	return e
}

// Label returns the sink name the engine was created with
func (e *Engine) Label() string {
	return e.label
}

// Mix fills dst with one callback period of output: the hard-clipped
// sum of every non-stopped voice in the current snapshot plus the
// capture ring, each scaled by its gain times the sink volume.
// Audio callback thread only; must not allocate or lock.
func (e *Engine) Mix(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	if len(dst) > len(e.scratch) {
		// Periods beyond the preallocated scratch are mixed silent
		// rather than allocating on the callback.
		return
	}

	sinkVol := math.Float32frombits(e.volumeBits.Load())
	snapshot := *e.voices.Load()

	for _, v := range snapshot {
		if v.State() != voice.StatePlaying {
			continue
		}

		scratch := e.scratch[:len(dst)]
		v.PullFrames(scratch)

		// Gain zero contributes nothing at all: exact silence, but the
		// cursor above still advanced so the voice stays in time.
		g := v.Gain() * sinkVol
		if g == 0 {
			continue
		}
		for i, s := range scratch {
			dst[i] += s * g
		}
	}

	if ring := e.capture.Load(); ring != nil {
		g := math.Float32frombits(e.captureGainBits.Load()) * sinkVol
		if g != 0 {
			capBuf := e.capScratch[:len(dst)]
			ring.Read(capBuf)
			for i, s := range capBuf {
				dst[i] += s * g
			}
		}
	}

	for i := range dst {
		dst[i] = audio.Clamp(dst[i])
	}
}

// AddVoice registers a voice with this sink. Control domain.
func (e *Engine) AddVoice(v *voice.Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := *e.voices.Load()
	next := make([]*voice.Voice, 0, len(old)+1)
	next = append(next, old...)
	next = append(next, v)
	e.voices.Store(&next)
}

// RemoveVoice deregisters a voice. The swap is atomic: a callback sees
// the membership either before or after, never a torn list.
func (e *Engine) RemoveVoice(v *voice.Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := *e.voices.Load()
	next := make([]*voice.Voice, 0, len(old))
	for _, existing := range old {
		if existing != v {
			next = append(next, existing)
		}
	}
	e.voices.Store(&next)
}

// SweepFinished removes voices that stopped or finished and returns
// them. Runs on the control domain, never inside a callback.
func (e *Engine) SweepFinished() []*voice.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := *e.voices.Load()
	var swept []*voice.Voice
	next := make([]*voice.Voice, 0, len(old))
	for _, v := range old {
		if v.State() == voice.StatePlaying {
			next = append(next, v)
		} else {
			swept = append(swept, v)
		}
	}
	if len(swept) > 0 {
		e.voices.Store(&next)
	}
	return swept
}

// VoiceCount returns the number of registered voices
func (e *Engine) VoiceCount() int {
	return len(*e.voices.Load())
}

// Voices returns the current snapshot
func (e *Engine) Voices() []*voice.Voice {
	return *e.voices.Load()
}

// SetVolume sets the sink device volume, clamped to [0, 1]. Read
// atomically by the next callback; the step is not ramped.
func (e *Engine) SetVolume(v float32) {
	e.volumeBits.Store(math.Float32bits(audio.ClampGain(v)))
}

// Volume returns the sink device volume
func (e *Engine) Volume() float32 {
	return math.Float32frombits(e.volumeBits.Load())
}

// SetCapture attaches (or detaches, with nil) the microphone
// passthrough ring. Only the virtual sink's engine gets one.
func (e *Engine) SetCapture(r *Ring) {
	e.capture.Store(r)
}

// SetCaptureGain sets the passthrough gain, clamped to [0, 1]
func (e *Engine) SetCaptureGain(g float32) {
	e.captureGainBits.Store(math.Float32bits(audio.ClampGain(g)))
}

// CaptureGain returns the passthrough gain
func (e *Engine) CaptureGain() float32 {
	return math.Float32frombits(e.captureGainBits.Load())
}
