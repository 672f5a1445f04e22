// ABOUTME: Playback voice: one in-flight instance of a decoded clip
// ABOUTME: Real-time safe cursor, gain, seek and stop via atomics
package voice

import (
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// Route names the output sink a voice is mixed into. A voice's cursor
// has exactly one consumer, so each voice feeds exactly one sink;
// monitoring a sound means playing one voice per sink.
type Route uint8

const (
	// RouteVirtual sends the voice to the virtual-cable sink
	// (the normal play path: heard by other applications, not the user).
	RouteVirtual Route = iota

	// RouteSpeaker sends the voice to the speaker sink
	// (local-only play: heard by the user, invisible to the virtual mic).
	RouteSpeaker
)

// Sink returns the sink kind this route feeds
func (r Route) Sink() audio.SinkKind {
	if r == RouteSpeaker {
		return audio.SinkSpeaker
	}
	return audio.SinkVirtual
}

// State is the voice lifecycle state.
type State int32

const (
	StatePlaying State = iota
	StateStopped
	StateFinished
)

const noPendingSeek = int64(-1)

// Voice is one active playback of a clip. The control domain owns
// creation, Stop, Seek and SetGain; the audio domain exclusively owns
// the cursor through PullFrames. All shared fields are atomics so the
// audio callback never locks.
type Voice struct {
	ID    string
	Clip  *audio.Clip
	Route Route

	startFrame  int64
	cursor      atomic.Int64
	gainBits    atomic.Uint32
	pendingSeek atomic.Int64
	state       atomic.Int32
}

// New creates a playing voice positioned at startSeconds into clip.
// Out-of-range start positions and gains are clamped, not rejected.
func New(clip *audio.Clip, startSeconds float64, gain float32, route Route) *Voice {
	v := &Voice{
		ID:    uuid.New().String(),
		Clip:  clip,
		Route: route,
	}
	v.startFrame = clip.FrameForSecond(startSeconds)
	v.cursor.Store(v.startFrame)
	v.pendingSeek.Store(noPendingSeek)
	v.SetGain(gain)
	return v
}

// PullFrames fills dst with the next interleaved samples and advances
// the cursor. Runs on the audio callback thread: no allocation, no
// locks, no blocking. Past end of clip dst is zero padded and the
// state transitions to Finished exactly once. Returns the number of
// frames copied from the clip.
func (v *Voice) PullFrames(dst []float32) int {
	if State(v.state.Load()) != StatePlaying {
		zero(dst)
		return 0
	}

	// Consume a pending seek atomically: the callback sees either the
	// pre-seek or post-seek cursor, never a torn value.
	if target := v.pendingSeek.Swap(noPendingSeek); target != noPendingSeek {
		v.cursor.Store(target)
	}

	channels := v.Clip.Channels
	frames := int64(len(dst) / channels)
	cursor := v.cursor.Load()

	avail := v.Clip.TotalFrames - cursor
	if avail < 0 {
		avail = 0
	}
	copyFrames := frames
	if copyFrames > avail {
		copyFrames = avail
	}

	copy(dst[:copyFrames*int64(channels)], v.Clip.Samples[cursor*int64(channels):])
	zero(dst[copyFrames*int64(channels):])

	cursor += copyFrames
	v.cursor.Store(cursor)

	if cursor >= v.Clip.TotalFrames {
		v.state.CompareAndSwap(int32(StatePlaying), int32(StateFinished))
	}

	return int(copyFrames)
}

// Seek requests a cursor move to positionSeconds, clamped to the clip
// bounds. Applied by the audio thread at the top of its next pull.
func (v *Voice) Seek(positionSeconds float64) {
	v.pendingSeek.Store(v.Clip.FrameForSecond(positionSeconds))
}

// SetGain sets the per-voice gain, clamped to [0, 1]
func (v *Voice) SetGain(gain float32) {
	v.gainBits.Store(math.Float32bits(audio.ClampGain(gain)))
}

// Gain returns the current per-voice gain
func (v *Voice) Gain() float32 {
	return math.Float32frombits(v.gainBits.Load())
}

// Stop marks the voice for removal. The next mix pass skips it; the
// sweep removes it from registries. Idempotent, and a no-op on a
// voice that already finished.
func (v *Voice) Stop() {
	v.state.CompareAndSwap(int32(StatePlaying), int32(StateStopped))
}

// State returns the current lifecycle state
func (v *Voice) State() State {
	return State(v.state.Load())
}

// Position returns the current playback position in seconds
func (v *Voice) Position() float64 {
	if v.Clip.SampleRate == 0 {
		return 0
	}
	return float64(v.cursor.Load()) / float64(v.Clip.SampleRate)
}

// zero clears a sample buffer
func zero(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
}
