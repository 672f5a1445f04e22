// ABOUTME: Transport control facade: the public play/stop/seek surface
// ABOUTME: Bridges sound IDs to voices and keeps the now-playing view fresh
package board

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/soundbridge/soundbridge-go/internal/clipcache"
	"github.com/soundbridge/soundbridge-go/internal/library"
	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/internal/voice"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// ErrNotFound is returned for unknown sound IDs
var ErrNotFound = library.ErrNotFound

// sweepPeriod bounds how stale the now-playing view can get after a
// clip finishes naturally. Well inside the 500ms contract.
const sweepPeriod = 250 * time.Millisecond

// Sinks resolves a sink kind to its mixing engine. Implemented by the
// device manager; tests supply bare engines.
type Sinks interface {
	Engine(kind audio.SinkKind) *mixer.Engine
}

// PlayOptions controls routing and concurrency of one play request
type PlayOptions struct {
	// LocalOnly routes to the speaker sink instead of the virtual
	// sink: audible to the user, invisible to the virtual mic.
	LocalOnly bool

	// Monitor plays to both sinks so the user hears what the virtual
	// mic carries. Ignored when LocalOnly is set.
	Monitor bool

	// ConcurrentAllowed lets the sound overlap others. When false,
	// everything else playing is stopped first.
	ConcurrentAllowed bool

	// StartSeconds overrides the record's start position for this play
	// when non-nil.
	StartSeconds *float64

	// Gain overrides the record's volume for this play when non-nil.
	Gain *float32
}

// EventType classifies board events
type EventType string

const (
	EventStarted  EventType = "started"
	EventStopped  EventType = "stopped"
	EventFinished EventType = "finished"
)

// Event is a now-playing state change pushed to subscribers
type Event struct {
	Type    EventType
	SoundID string
}

// Board is the transport control facade. The UI, hotkey dispatcher
// and control server all drive playback through it; it owns the
// mapping from sound IDs to live voices. A monitored sound holds one
// voice per sink, so every voice cursor has a single consumer.
type Board struct {
	store library.Store
	cache *clipcache.Cache
	sinks Sinks

	mu     sync.Mutex
	voices map[string][]*voice.Voice
	subs   []func(Event)

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a board and starts its background sweep
func New(store library.Store, cache *clipcache.Cache, sinks Sinks) *Board {
	b := &Board{
		store:  store,
		cache:  cache,
		sinks:  sinks,
		voices: make(map[string][]*voice.Voice),
		done:   make(chan struct{}),
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(sweepPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.sweepOnce()
			case <-b.done:
				return
			}
		}
	}()

	return b
}

// Close stops the sweep and every playing voice
func (b *Board) Close() {
	close(b.done)
	b.wg.Wait()
	b.StopAll()
}

// Play starts (or restarts) a sound. The record's file is decoded on
// this thread if not cached, then one voice per routed sink is
// registered with that sink's engine. Replaying an ID stops its old
// voices first.
func (b *Board) Play(soundID string, opts PlayOptions) error {
	rec, err := b.store.Get(soundID)
	if err != nil {
		return fmt.Errorf("play %s: %w", soundID, err)
	}

	clip, err := b.cache.GetOrDecode(rec.FilePath)
	if err != nil {
		return fmt.Errorf("play %s: %w", soundID, err)
	}

	// An explicit record volume of 0 is a muted sound and stays muted;
	// the store defaults unset volumes to 1.0 at load time.
	gain := rec.Volume
	if opts.Gain != nil {
		gain = *opts.Gain
	}
	start := rec.StartPosition
	if opts.StartSeconds != nil {
		start = *opts.StartSeconds
	}

	routes := []voice.Route{voice.RouteVirtual}
	switch {
	case opts.LocalOnly:
		routes = []voice.Route{voice.RouteSpeaker}
	case opts.Monitor:
		routes = []voice.Route{voice.RouteVirtual, voice.RouteSpeaker}
	}

	var events []Event

	b.mu.Lock()
	if !opts.ConcurrentAllowed {
		for id, vs := range b.voices {
			if id == soundID {
				continue
			}
			b.removeVoicesLocked(id, vs)
			events = append(events, Event{Type: EventStopped, SoundID: id})
		}
	}
	if old, ok := b.voices[soundID]; ok {
		b.removeVoicesLocked(soundID, old)
		events = append(events, Event{Type: EventStopped, SoundID: soundID})
	}

	vs := make([]*voice.Voice, 0, len(routes))
	for _, route := range routes {
		v := voice.New(clip, start, gain, route)
		b.sinks.Engine(route.Sink()).AddVoice(v)
		vs = append(vs, v)
	}
	b.voices[soundID] = vs
	b.mu.Unlock()

	events = append(events, Event{Type: EventStarted, SoundID: soundID})
	b.emit(events)

	log.Printf("Playing %s (local_only=%v, monitor=%v, concurrent=%v, start=%.2fs)",
		soundID, opts.LocalOnly, opts.Monitor, opts.ConcurrentAllowed, start)
	return nil
}

// Stop stops a sound. Stopping a sound that is not playing is a no-op.
func (b *Board) Stop(soundID string) {
	b.mu.Lock()
	vs, ok := b.voices[soundID]
	if ok {
		b.removeVoicesLocked(soundID, vs)
	}
	b.mu.Unlock()

	if ok {
		b.emit([]Event{{Type: EventStopped, SoundID: soundID}})
	}
}

// StopAll stops every playing sound. Idempotent.
func (b *Board) StopAll() {
	var events []Event

	b.mu.Lock()
	for id, vs := range b.voices {
		b.removeVoicesLocked(id, vs)
		events = append(events, Event{Type: EventStopped, SoundID: id})
	}
	b.mu.Unlock()

	b.emit(events)
}

// Seek moves a playing sound to positionSeconds. A monitored sound's
// voices land on the same frame. No-op when the sound is not playing;
// out-of-range positions clamp.
func (b *Board) Seek(soundID string, positionSeconds float64) {
	// Per-voice calls are atomics, so iterating under b.mu is cheap and
	// keeps the slice stable against the sweep's compaction.
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, v := range b.voices[soundID] {
		if v.State() == voice.StatePlaying {
			v.Seek(positionSeconds)
		}
	}
}

// SetSoundGain adjusts a playing sound's gain live. No-op when the
// sound is not playing; values clamp to [0, 1].
func (b *Board) SetSoundGain(soundID string, gain float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, v := range b.voices[soundID] {
		v.SetGain(gain)
	}
}

// Position returns the playback position in seconds, or false when
// the sound is not currently playing.
func (b *Board) Position(soundID string) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, v := range b.voices[soundID] {
		if v.State() == voice.StatePlaying {
			return v.Position(), true
		}
	}
	return 0, false
}

// ListPlaying returns the sound IDs currently playing. Naturally
// finished clips disappear within one sweep period.
func (b *Board) ListPlaying() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.voices))
	for id, vs := range b.voices {
		if anyPlaying(vs) {
			out = append(out, id)
		}
	}
	return out
}

// IsPlaying reports whether a sound is currently playing
func (b *Board) IsPlaying(soundID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return anyPlaying(b.voices[soundID])
}

// Subscribe registers a callback for now-playing events. Callbacks
// run on control goroutines and must not block.
func (b *Board) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// removeVoicesLocked stops a sound's voices and drops them from every
// registry. The stop flags land first, so the sinks' callbacks skip
// the voices even before the membership swaps are observed. Must hold
// b.mu.
func (b *Board) removeVoicesLocked(soundID string, vs []*voice.Voice) {
	for _, v := range vs {
		v.Stop()
		b.sinks.Engine(v.Route.Sink()).RemoveVoice(v)
	}
	delete(b.voices, soundID)
}

// sweepOnce reaps voices that finished naturally and publishes the
// departure of sounds whose voices have all drained. Runs on the sweep
// goroutine, never on an audio callback.
func (b *Board) sweepOnce() {
	finished := make(map[*voice.Voice]bool)
	for _, kind := range []audio.SinkKind{audio.SinkVirtual, audio.SinkSpeaker} {
		for _, v := range b.sinks.Engine(kind).SweepFinished() {
			if v.State() == voice.StateFinished {
				finished[v] = true
			}
		}
	}
	if len(finished) == 0 {
		return
	}

	var events []Event
	b.mu.Lock()
	for id, vs := range b.voices {
		remaining := make([]*voice.Voice, 0, len(vs))
		for _, v := range vs {
			if !finished[v] {
				remaining = append(remaining, v)
			}
		}
		if len(remaining) == len(vs) {
			continue
		}
		if len(remaining) == 0 {
			delete(b.voices, id)
			events = append(events, Event{Type: EventFinished, SoundID: id})
		} else {
			b.voices[id] = remaining
		}
	}
	b.mu.Unlock()

	b.emit(events)
}

// emit delivers events to subscribers outside the board lock
func (b *Board) emit(events []Event) {
	if len(events) == 0 {
		return
	}

	b.mu.Lock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

// Sounds returns the full catalog from the store
func (b *Board) Sounds() []library.Sound {
	return b.store.List()
}

// Sound returns one catalog record
func (b *Board) Sound(soundID string) (library.Sound, error) {
	return b.store.Get(soundID)
}

// IsNotFound reports whether err is the unknown-sound error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// anyPlaying reports whether any voice in vs is still playing
func anyPlaying(vs []*voice.Voice) bool {
	for _, v := range vs {
		if v.State() == voice.StatePlaying {
			return true
		}
	}
	return false
}
