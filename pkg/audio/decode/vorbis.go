// ABOUTME: Ogg Vorbis file decoder
// ABOUTME: Decodes Vorbis audio to normalized float32 samples
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// decodeVorbis decodes an Ogg Vorbis file to normalized float32 PCM.
// oggvorbis already produces float32 in [-1, 1].
func decodeVorbis(r io.Reader) (*Result, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis decode error: %w", err)
	}

	return &Result{
		Samples:    samples,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}, nil
}
