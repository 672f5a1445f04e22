// ABOUTME: Byte-level float32 PCM conversion for device callbacks
// ABOUTME: Encodes and decodes little-endian f32 frames without allocating
package device

import (
	"encoding/binary"
	"math"
)

// encodeF32LE writes samples as little-endian float32 bytes.
// dst must hold len(src)*4 bytes. Audio callback safe.
func encodeF32LE(dst []byte, src []float32) {
	for i, s := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}

// decodeF32LE reads little-endian float32 bytes into samples.
// dst must hold len(src)/4 samples. Audio callback safe.
func decodeF32LE(dst []float32, src []byte) {
	n := len(src) / 4
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
