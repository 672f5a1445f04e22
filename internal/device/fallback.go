// ABOUTME: Degraded backend for hosts where miniaudio cannot start
// ABOUTME: Speaker sink through oto, virtual sink pumped silently, no capture
package device

import (
	"fmt"
	"log"
	"time"

	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// Fallback drives the speaker sink through oto's default output.
// Device selection, the virtual device and mic capture are
// unavailable. The virtual sink still runs: a wall-clock pump consumes
// its mix so virtual-routed voices advance, finish and drop out of the
// now-playing view on time, they are just inaudible.
type Fallback struct {
	engines map[audio.SinkKind]*mixer.Engine
	sink    *OtoSink
	pump    *silentPump
}

// NewFallback creates engines for both sinks and binds the speaker
// engine to oto's default output.
func NewFallback(sampleRate int) (*Fallback, error) {
	if sampleRate <= 0 {
		sampleRate = audio.EngineRate
	}

	f := &Fallback{engines: map[audio.SinkKind]*mixer.Engine{
		audio.SinkVirtual: mixer.NewEngine(audio.SinkVirtual.String()),
		audio.SinkSpeaker: mixer.NewEngine(audio.SinkSpeaker.String()),
	}}

	sink, err := NewOtoSink(f.engines[audio.SinkSpeaker], sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback output: %w", err)
	}
	f.sink = sink
	f.pump = newSilentPump(f.engines[audio.SinkVirtual], sampleRate, 10*time.Millisecond)

	log.Printf("Running in fallback mode: virtual device and capture unavailable")
	return f, nil
}

// Engine returns the mixing engine for a sink
func (f *Fallback) Engine(kind audio.SinkKind) *mixer.Engine {
	return f.engines[kind]
}

// ListDevices reports only the implicit default output
func (f *Fallback) ListDevices() ([]Info, error) {
	return []Info{{Name: "Default Output", IsDefault: true, Kind: KindOutput}}, nil
}

// SelectOutputDevice is unavailable in fallback mode
func (f *Fallback) SelectOutputDevice(kind audio.SinkKind, deviceName string) error {
	return fmt.Errorf("%w: device selection requires the miniaudio backend", ErrUnavailable)
}

// SelectInputDevice is unavailable in fallback mode
func (f *Fallback) SelectInputDevice(deviceName string) error {
	return fmt.Errorf("%w: capture requires the miniaudio backend", ErrUnavailable)
}

// OutputDeviceName names the implicit default output
func (f *Fallback) OutputDeviceName(kind audio.SinkKind) string {
	if kind == audio.SinkSpeaker {
		return "system default"
	}
	return ""
}

// SetSinkVolume updates a sink's volume
func (f *Fallback) SetSinkVolume(kind audio.SinkKind, volume float32) {
	f.engines[kind].SetVolume(volume)
}

// SinkVolume returns a sink's volume
func (f *Fallback) SinkVolume(kind audio.SinkKind) float32 {
	return f.engines[kind].Volume()
}

// SetCaptureEnabled is unavailable in fallback mode
func (f *Fallback) SetCaptureEnabled(enabled bool) error {
	if !enabled {
		return nil
	}
	return fmt.Errorf("%w: capture requires the miniaudio backend", ErrUnavailable)
}

// SetCaptureGain is a no-op in fallback mode
func (f *Fallback) SetCaptureGain(gain float32) {}

// CaptureGain returns zero; there is no capture session
func (f *Fallback) CaptureGain() float32 { return 0 }

// CaptureEnabled reports false; there is no capture session
func (f *Fallback) CaptureEnabled() bool { return false }

// Close stops the virtual-sink pump and the oto player
func (f *Fallback) Close() error {
	if f.pump != nil {
		f.pump.stop()
	}
	if f.sink != nil {
		return f.sink.Close()
	}
	return nil
}
