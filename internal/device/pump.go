// ABOUTME: Wall-clock consumer for an engine with no hardware stream
// ABOUTME: Keeps virtual-routed playback advancing in fallback mode
package device

import (
	"sync"
	"time"

	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

// silentPump pulls an engine's mix at wall-clock rate and discards it.
// Without a consumer a sink's voices never advance, never finish and
// never leave the now-playing view; the pump stands in for the device
// callback so virtual-routed playback keeps real-time semantics even
// when no virtual device exists.
type silentPump struct {
	engine *mixer.Engine
	period time.Duration
	buf    []float32

	done chan struct{}
	wg   sync.WaitGroup
}

// newSilentPump starts consuming engine at sampleRate, one period of
// frames per tick
func newSilentPump(engine *mixer.Engine, sampleRate int, period time.Duration) *silentPump {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	frames := int(float64(sampleRate) * period.Seconds())
	if frames < 1 {
		frames = 1
	}

	p := &silentPump{
		engine: engine,
		period: period,
		buf:    make([]float32, frames*audio.EngineChannels),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *silentPump) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.engine.Mix(p.buf)
		case <-p.done:
			return
		}
	}
}

// stop halts the pump and waits for its goroutine
func (p *silentPump) stop() {
	close(p.done)
	p.wg.Wait()
}
