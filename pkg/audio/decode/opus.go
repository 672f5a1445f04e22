// ABOUTME: Ogg Opus file decoder
// ABOUTME: Decodes Opus audio to normalized float32 samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	opus "gopkg.in/hraban/opus.v2"
)

// opusHeadMagic opens the identification header in the first Ogg page
var opusHeadMagic = []byte("OpusHead")

// opusHeadChannels extracts the channel count from an OpusHead
// identification header. The count sits one byte past the magic and
// version byte. libopusfile decodes at the stream's channel count but
// never reports it, so the header is the only source.
func opusHeadChannels(head []byte) (int, error) {
	i := bytes.Index(head, opusHeadMagic)
	if i < 0 || len(head) < i+len(opusHeadMagic)+2 {
		return 0, errors.New("missing OpusHead header")
	}
	ch := int(head[i+len(opusHeadMagic)+1])
	if ch < 1 {
		return 0, fmt.Errorf("opus header reports %d channels", ch)
	}
	return ch, nil
}

// decodeOpus decodes an Ogg Opus file to normalized float32 PCM.
// libopus always decodes at 48kHz; the channel count comes from the
// OpusHead header, so mono voice clips interleave correctly.
func decodeOpus(r io.ReadSeeker) (*Result, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read opus header: %w", err)
	}
	channels, err := opusHeadChannels(head[:n])
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind opus stream: %w", err)
	}

	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	pcm := make([]float32, 5760*channels) // max opus frame at 48kHz

	var samples []float32
	for {
		// ReadFloat32 reports frames per channel
		n, err := stream.ReadFloat32(pcm)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("opus decode error: %w", err)
		}
		if n == 0 {
			break
		}
		samples = append(samples, pcm[:n*channels]...)
	}

	return &Result{
		Samples:    samples,
		SampleRate: 48000,
		Channels:   channels,
	}, nil
}
