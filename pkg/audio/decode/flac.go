// ABOUTME: FLAC file decoder
// ABOUTME: Decodes FLAC audio to normalized float32 samples
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// decodeFLAC decodes a FLAC file to normalized float32 PCM
func decodeFLAC(r io.Reader) (*Result, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}
	defer stream.Close()

	sampleRate := int(stream.Info.SampleRate)
	channels := int(stream.Info.NChannels)
	if channels == 0 {
		return nil, fmt.Errorf("flac stream has no channels")
	}

	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	var samples []float32
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("flac frame decode error: %w", err)
		}

		frames := len(frame.Subframes[0].Samples)
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	return &Result{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}
