// ABOUTME: Hardware stream wrappers around malgo devices
// ABOUTME: Output streams pull from an engine, capture feeds the mic ring
package device

import (
	"github.com/gen2brain/malgo"
	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// streamBufSamples bounds one callback period; matches the mixer's
// preallocated scratch so the callback never allocates.
const streamBufSamples = 1 << 14

// outputStream is one running playback device bound to an engine
type outputStream struct {
	device *malgo.Device
	id     *malgo.DeviceID
	name   string
	buf    []float32
	bytes  []byte
}

// openOutputStream initializes and starts a playback device whose data
// callback pulls mixed frames from engine.
func openOutputStream(ctx *malgo.AllocatedContext, id *malgo.DeviceID, sampleRate int, engine *mixer.Engine) (*outputStream, error) {
	s := &outputStream{
		id:    id,
		buf:   make([]float32, streamBufSamples),
		bytes: make([]byte, streamBufSamples*4),
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = audio.EngineChannels
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1
	if id != nil {
		cfg.Playback.DeviceID = id.Pointer()
	}

	onSamples := func(pOutput, _ []byte, frameCount uint32) {
		n := int(frameCount) * audio.EngineChannels
		if n > len(s.buf) {
			n = len(s.buf)
		}
		buf := s.buf[:n]
		engine.Mix(buf)
		encodeF32LE(pOutput[:n*4], buf)
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, err
	}

	s.device = device
	return s, nil
}

// close stops the device, draining any in-flight callback, and
// releases it.
func (s *outputStream) close() {
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
}

// captureStream is one running capture device feeding the mic ring
type captureStream struct {
	device *malgo.Device
	buf    []float32
}

// openCaptureStream initializes and starts a capture device whose
// frames land in the passthrough ring. Overflow is dropped: a stalled
// consumer must not block the capture callback.
func openCaptureStream(ctx *malgo.AllocatedContext, id *malgo.DeviceID, sampleRate int, ring *mixer.Ring) (*captureStream, error) {
	s := &captureStream{
		buf: make([]float32, streamBufSamples),
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = audio.EngineChannels
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1
	if id != nil {
		cfg.Capture.DeviceID = id.Pointer()
	}

	onRecv := func(_, pInput []byte, frameCount uint32) {
		n := int(frameCount) * audio.EngineChannels
		if n > len(s.buf) {
			n = len(s.buf)
		}
		decodeF32LE(s.buf[:n], pInput[:n*4])
		ring.Write(s.buf[:n])
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: onRecv})
	if err != nil {
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, err
	}

	s.device = device
	return s, nil
}

// close stops and releases the capture device
func (s *captureStream) close() {
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
}
