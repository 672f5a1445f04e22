// ABOUTME: WAV file decoder
// ABOUTME: Decodes RIFF/WAVE PCM to normalized float32 samples
package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// decodeWAV decodes a WAV file to normalized float32 PCM
func decodeWAV(r io.ReadSeeker) (*Result, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth == 0 {
		bitDepth = 16
	}

	// Normalize by the full scale of the source bit depth
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return &Result{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}
