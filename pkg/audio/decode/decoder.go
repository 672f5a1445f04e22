// ABOUTME: File decoding entry point and error types
// ABOUTME: Routes audio files to the right codec decoder by extension and content
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file types no decoder handles
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// sniffBytes is how much of the file head the format sniffers read.
// Enough to cover the first Ogg page and its identification header.
const sniffBytes = 512

// Error wraps a decode failure with the file it came from
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is a fully decoded file: interleaved float32 PCM normalized
// to [-1, 1] at the file's native sample rate and channel count.
type Result struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// File decodes an audio file to normalized PCM. Supported formats:
// WAV, MP3, FLAC, Ogg Vorbis and Ogg Opus. Routing goes by extension
// with content sniffing where the extension is ambiguous: .ogg holds
// either Vorbis or Opus, and files with an unknown extension are
// checked for WAV and Ogg signatures. Decoding is synchronous and
// must only run on the control domain, never on an audio callback.
func File(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	defer f.Close()

	var res *Result
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		res, err = decodeWAV(f)
	case ".mp3":
		res, err = decodeMP3(f)
	case ".flac":
		res, err = decodeFLAC(f)
	case ".ogg", ".oga":
		res, err = decodeOgg(f)
	case ".opus":
		res, err = decodeOpus(f)
	default:
		res, err = decodeByContent(f)
	}

	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if res.SampleRate <= 0 || res.Channels <= 0 {
		return nil, &Error{Path: path, Err: fmt.Errorf("invalid stream parameters: %dHz/%dch", res.SampleRate, res.Channels)}
	}
	return res, nil
}

// sniffHead reads the first sniffBytes of r and rewinds it
func sniffHead(r io.ReadSeeker) ([]byte, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return head[:n], nil
}

// decodeOgg routes an Ogg container to the right codec. The extension
// does not distinguish them: Ogg Opus files commonly ship as .ogg.
func decodeOgg(f io.ReadSeeker) (*Result, error) {
	head, err := sniffHead(f)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(head, opusHeadMagic) {
		return decodeOpus(f)
	}
	return decodeVorbis(f)
}

// decodeByContent handles files whose extension no decoder claims by
// checking the head for WAV and Ogg signatures.
func decodeByContent(f io.ReadSeeker) (*Result, error) {
	head, err := sniffHead(f)
	if err != nil {
		return nil, err
	}
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return decodeWAV(f)
	case len(head) >= 4 && bytes.Equal(head[:4], []byte("OggS")):
		return decodeOgg(f)
	}
	return nil, ErrUnsupportedFormat
}
