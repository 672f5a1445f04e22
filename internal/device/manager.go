// ABOUTME: Device session manager built on malgo/miniaudio
// ABOUTME: Owns output streams, capture passthrough and sink volumes
package device

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// ErrUnavailable is returned when a device cannot be opened or found.
// The affected sink keeps its previous state; the mixing loop never
// crashes on a device failure.
var ErrUnavailable = errors.New("device unavailable")

// DeviceKind classifies an enumerated device
type DeviceKind int

const (
	KindVirtual DeviceKind = iota
	KindOutput
	KindInput
)

// String returns a human-readable kind name
func (k DeviceKind) String() string {
	switch k {
	case KindVirtual:
		return "virtual"
	case KindOutput:
		return "output"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// Info describes one enumerated audio device
type Info struct {
	Name      string
	IsDefault bool
	Kind      DeviceKind
}

// Config holds manager configuration
type Config struct {
	// SampleRate of the mixing engines (default audio.EngineRate).
	// miniaudio converts to each device's native rate.
	SampleRate int

	// Classifier tells virtual cables from physical outputs
	// (default: DefaultClassifier)
	Classifier Classifier

	// CaptureRingMs sizes the mic passthrough ring (default 500ms)
	CaptureRingMs int
}

// Manager owns the malgo context, one mixing engine per sink, the
// hardware streams backing them, and the microphone capture session.
// All methods run on the control domain.
type Manager struct {
	ctx        *malgo.AllocatedContext
	classifier Classifier
	sampleRate int

	mu      sync.Mutex
	engines map[audio.SinkKind]*mixer.Engine
	outputs map[audio.SinkKind]*outputStream

	capture        *captureStream
	captureRing    *mixer.Ring
	inputName      string
	captureEnabled bool
}

// NewManager initializes the audio backend and creates the engines
// for both sinks. No hardware streams are opened yet.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.EngineRate
	}
	if cfg.Classifier == nil {
		cfg.Classifier = DefaultClassifier()
	}
	if cfg.CaptureRingMs <= 0 {
		cfg.CaptureRingMs = 500
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	ringSamples := cfg.SampleRate * audio.EngineChannels * cfg.CaptureRingMs / 1000

	m := &Manager{
		ctx:         ctx,
		classifier:  cfg.Classifier,
		sampleRate:  cfg.SampleRate,
		engines:     make(map[audio.SinkKind]*mixer.Engine),
		outputs:     make(map[audio.SinkKind]*outputStream),
		captureRing: mixer.NewRing(ringSamples),
	}
	m.engines[audio.SinkVirtual] = mixer.NewEngine(audio.SinkVirtual.String())
	m.engines[audio.SinkSpeaker] = mixer.NewEngine(audio.SinkSpeaker.String())

	return m, nil
}

// Engine returns the mixing engine for a sink. Voices registered to
// it survive device switches: the engine outlives hardware streams.
func (m *Manager) Engine(kind audio.SinkKind) *mixer.Engine {
	return m.engines[kind]
}

// ListDevices enumerates playback and capture devices. Playback
// devices are classified as virtual or physical by the classifier.
func (m *Manager) ListDevices() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Info

	playback, err := m.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	for _, info := range playback {
		kind := KindOutput
		if m.classifier.IsVirtual(info.Name()) {
			kind = KindVirtual
		}
		out = append(out, Info{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
			Kind:      kind,
		})
	}

	capture, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	for _, info := range capture {
		out = append(out, Info{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
			Kind:      KindInput,
		})
	}

	return out, nil
}

// AutoSelect wires the sinks to sensible defaults: the first device
// the classifier calls virtual backs the virtual sink, the system
// default output backs the speaker sink. Missing devices are logged
// and left unopened rather than failing startup.
func (m *Manager) AutoSelect() {
	devices, err := m.ListDevices()
	if err != nil {
		log.Printf("Device enumeration failed: %v", err)
		return
	}

	virtualName := ""
	for _, d := range devices {
		if d.Kind == KindVirtual {
			virtualName = d.Name
			break
		}
	}
	if virtualName != "" {
		if err := m.SelectOutputDevice(audio.SinkVirtual, virtualName); err != nil {
			log.Printf("Failed to open virtual device %q: %v", virtualName, err)
		}
	} else {
		log.Printf("No virtual cable device found; virtual sink stays silent")
	}

	// Empty name opens the system default output
	if err := m.SelectOutputDevice(audio.SinkSpeaker, ""); err != nil {
		log.Printf("Failed to open default output device: %v", err)
	}
}

// SelectOutputDevice rebinds a sink to the named device (empty name =
// system default). The old stream is stopped and drained before the
// new one starts; a brief audible gap is expected. Voices registered
// to the sink's engine are untouched and continue from their cursors.
func (m *Manager) SelectOutputDevice(kind audio.SinkKind, deviceName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.findDeviceID(malgo.Playback, deviceName)
	if err != nil {
		return err
	}

	old := m.outputs[kind]
	if old != nil {
		// Stop drains the in-flight callback before returning, so no
		// callback runs concurrently with teardown.
		old.close()
		delete(m.outputs, kind)
	}

	stream, err := openOutputStream(m.ctx, id, m.sampleRate, m.engines[kind])
	if err != nil {
		if old != nil {
			if reopened, rerr := openOutputStream(m.ctx, old.id, m.sampleRate, m.engines[kind]); rerr == nil {
				m.outputs[kind] = reopened
				log.Printf("Device %q failed, restored previous device %q", deviceName, old.name)
			} else {
				log.Printf("Device %q failed and previous device %q could not be restored; %s sink is silent", deviceName, old.name, kind)
			}
		}
		return fmt.Errorf("%w: open %q: %v", ErrUnavailable, deviceName, err)
	}
	stream.name = deviceName

	m.outputs[kind] = stream
	log.Printf("Sink %s bound to device %q at %dHz", kind, displayName(deviceName), m.sampleRate)
	return nil
}

// OutputDeviceName returns the device currently backing a sink
func (m *Manager) OutputDeviceName(kind audio.SinkKind) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.outputs[kind]; ok {
		return displayName(s.name)
	}
	return ""
}

// SetSinkVolume updates a sink's device volume. The mixing callback
// reads it atomically on its next pass; the step is not ramped.
func (m *Manager) SetSinkVolume(kind audio.SinkKind, volume float32) {
	m.engines[kind].SetVolume(volume)
}

// SinkVolume returns a sink's device volume
func (m *Manager) SinkVolume(kind audio.SinkKind) float32 {
	return m.engines[kind].Volume()
}

// SelectInputDevice picks the microphone used for capture passthrough.
// If capture is enabled the session restarts on the new device.
func (m *Manager) SelectInputDevice(deviceName string) error {
	m.mu.Lock()
	enabled := m.captureEnabled
	m.inputName = deviceName
	m.mu.Unlock()

	if enabled {
		if err := m.SetCaptureEnabled(false); err != nil {
			return err
		}
		return m.SetCaptureEnabled(true)
	}
	return nil
}

// SetCaptureEnabled starts or stops the microphone-to-virtual-sink
// passthrough session.
func (m *Manager) SetCaptureEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if enabled == m.captureEnabled {
		return nil
	}

	if !enabled {
		if m.capture != nil {
			m.capture.close()
			m.capture = nil
		}
		m.engines[audio.SinkVirtual].SetCapture(nil)
		m.captureEnabled = false
		log.Printf("Capture passthrough stopped")
		return nil
	}

	id, err := m.findDeviceID(malgo.Capture, m.inputName)
	if err != nil {
		return err
	}

	stream, err := openCaptureStream(m.ctx, id, m.sampleRate, m.captureRing)
	if err != nil {
		return fmt.Errorf("%w: open capture %q: %v", ErrUnavailable, m.inputName, err)
	}

	m.capture = stream
	m.engines[audio.SinkVirtual].SetCapture(m.captureRing)
	m.captureEnabled = true
	log.Printf("Capture passthrough started on %q", displayName(m.inputName))
	return nil
}

// SetCaptureGain sets the passthrough gain, clamped to [0, 1]
func (m *Manager) SetCaptureGain(gain float32) {
	m.engines[audio.SinkVirtual].SetCaptureGain(gain)
}

// CaptureGain returns the passthrough gain
func (m *Manager) CaptureGain() float32 {
	return m.engines[audio.SinkVirtual].CaptureGain()
}

// CaptureEnabled reports whether passthrough is running
func (m *Manager) CaptureEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureEnabled
}

// Close stops all streams and releases the audio context
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capture != nil {
		m.capture.close()
		m.capture = nil
	}
	for kind, stream := range m.outputs {
		stream.close()
		delete(m.outputs, kind)
	}

	if m.ctx != nil {
		if err := m.ctx.Uninit(); err != nil {
			log.Printf("Warning: audio context uninit error: %v", err)
		}
		m.ctx.Free()
		m.ctx = nil
	}
	return nil
}

// findDeviceID resolves a device name to its backend ID. Empty name
// selects the backend default (nil ID). Must hold m.mu.
func (m *Manager) findDeviceID(deviceType malgo.DeviceType, name string) (*malgo.DeviceID, error) {
	if name == "" {
		return nil, nil
	}

	infos, err := m.ctx.Devices(deviceType)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate: %v", ErrUnavailable, err)
	}
	for i := range infos {
		if infos[i].Name() == name {
			id := infos[i].ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("%w: no device named %q", ErrUnavailable, name)
}

// displayName renders the default-device case readably
func displayName(name string) string {
	if name == "" {
		return "system default"
	}
	return name
}
