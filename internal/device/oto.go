// ABOUTME: Fallback output backend using the oto library
// ABOUTME: Drives a mixing engine through oto's io.Reader pull model
package device

import (
	"fmt"
	"io"
	"log"

	"github.com/ebitengine/oto/v3"
	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// OtoSink plays one engine's mix through oto. It only reaches the
// system default output and cannot select devices or capture, so it
// is the fallback for hosts where the miniaudio backend fails; the
// virtual sink stays unavailable in that mode.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
}

// NewOtoSink opens the default output via oto and starts pulling from
// engine.
func NewOtoSink(engine *mixer.Engine, sampleRate int) (*OtoSink, error) {
	if sampleRate <= 0 {
		sampleRate = audio.EngineRate
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: audio.EngineChannels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	player := ctx.NewPlayer(&engineReader{engine: engine})
	player.Play()

	log.Printf("Fallback output initialized via oto: %dHz, %d channels", sampleRate, audio.EngineChannels)

	return &OtoSink{ctx: ctx, player: player}, nil
}

// Close stops playback and releases the player
func (s *OtoSink) Close() error {
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return err
		}
		s.player = nil
	}
	if s.ctx != nil {
		s.ctx.Suspend()
		s.ctx = nil
	}
	return nil
}

// engineReader adapts an engine's Mix to oto's pull model
type engineReader struct {
	engine *mixer.Engine
	buf    []float32
}

// Read fills p with mixed little-endian float32 frames
func (r *engineReader) Read(p []byte) (int, error) {
	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}
	if samples > streamBufSamples {
		samples = streamBufSamples
	}
	// Keep whole frames
	samples -= samples % audio.EngineChannels

	if len(r.buf) < samples {
		r.buf = make([]float32, samples)
	}
	buf := r.buf[:samples]
	r.engine.Mix(buf)
	encodeF32LE(p[:samples*4], buf)
	return samples * 4, nil
}

var _ io.Reader = (*engineReader)(nil)
