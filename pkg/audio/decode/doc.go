// ABOUTME: Package documentation for decode
// ABOUTME: File-to-PCM decoding for all supported soundboard formats

// Package decode turns audio files into normalized float32 PCM.
// It delegates codec work to external libraries (go-mp3, mewkiz/flac,
// go-audio/wav, oggvorbis, opus) and implements no codecs itself.
package decode
