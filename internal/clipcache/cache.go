// ABOUTME: Decoded clip cache keyed by canonical file path
// ABOUTME: Decodes once, normalizes to the engine format, shares read-only
package clipcache

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/soundbridge/soundbridge-go/pkg/audio"
	"github.com/soundbridge/soundbridge-go/pkg/audio/decode"
	"github.com/soundbridge/soundbridge-go/pkg/audio/resample"
)

// Cache holds decoded clips for the process lifetime. Retention is
// unbounded; Bytes exposes the footprint so a caller can decide to
// Invalidate entries under memory pressure.
type Cache struct {
	targetRate int

	mu    sync.RWMutex
	clips map[string]*audio.Clip
	bytes int64
}

// New creates a clip cache that normalizes clips to targetRate
func New(targetRate int) *Cache {
	if targetRate <= 0 {
		targetRate = audio.EngineRate
	}
	return &Cache{
		targetRate: targetRate,
		clips:      make(map[string]*audio.Clip),
	}
}

// GetOrDecode returns the cached clip for path, decoding it on first
// use. Must be called from the control domain: decoding blocks and
// allocates. The returned clip is immutable and safe for concurrent
// readers.
func (c *Cache) GetOrDecode(path string) (*audio.Clip, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	c.mu.RLock()
	clip, ok := c.clips[key]
	c.mu.RUnlock()
	if ok {
		return clip, nil
	}

	res, err := decode.File(path)
	if err != nil {
		return nil, err
	}

	samples := toStereo(res.Samples, res.Channels)
	samples = resample.All(samples, res.SampleRate, c.targetRate, audio.EngineChannels)

	clip = &audio.Clip{
		SourcePath:  key,
		SampleRate:  c.targetRate,
		Channels:    audio.EngineChannels,
		Samples:     samples,
		TotalFrames: int64(len(samples) / audio.EngineChannels),
	}

	c.mu.Lock()
	// Another control-thread caller may have decoded the same file
	// concurrently; keep the first entry so voices share one buffer.
	if existing, ok := c.clips[key]; ok {
		clip = existing
	} else {
		c.clips[key] = clip
		c.bytes += int64(len(clip.Samples)) * 4
	}
	c.mu.Unlock()

	log.Printf("Decoded clip %s: %.2fs, %d frames", path, clip.Seconds(), clip.TotalFrames)
	return clip, nil
}

// Invalidate drops the cache entry for path, forcing a re-decode on
// next play. Used when a file is re-imported at the same path.
// Voices already holding the old clip keep playing it unaffected.
func (c *Cache) Invalidate(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	c.mu.Lock()
	if clip, ok := c.clips[key]; ok {
		c.bytes -= int64(len(clip.Samples)) * 4
		delete(c.clips, key)
	}
	c.mu.Unlock()
}

// Len returns the number of cached clips
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}

// Bytes returns the approximate memory held by cached samples
func (c *Cache) Bytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytes
}

// toStereo converts interleaved PCM of any channel count to stereo.
// Mono is duplicated; more than two channels keep the first pair.
func toStereo(samples []float32, channels int) []float32 {
	switch channels {
	case audio.EngineChannels:
		return samples
	case 1:
		out := make([]float32, len(samples)*2)
		for i, s := range samples {
			out[i*2] = s
			out[i*2+1] = s
		}
		return out
	default:
		frames := len(samples) / channels
		out := make([]float32, frames*2)
		for i := 0; i < frames; i++ {
			out[i*2] = samples[i*channels]
			out[i*2+1] = samples[i*channels+1]
		}
		return out
	}
}
