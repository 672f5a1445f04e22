// ABOUTME: Tests for the linear resampler
// ABOUTME: Verifies rate conversion ratios and interpolation output
package resample

import (
	"math"
	"testing"
)

func TestResampleIdentity(t *testing.T) {
	input := []float32{0.0, 0.1, 0.2, 0.3, 0.4, 0.5}
	out := All(input, 48000, 48000, 2)

	if len(out) != len(input) {
		t.Fatalf("identity resample changed length: %d -> %d", len(input), len(out))
	}
	for i := range input {
		if out[i] != input[i] {
			t.Errorf("sample %d changed: %v -> %v", i, input[i], out[i])
		}
	}
}

func TestResampleUpsampleLength(t *testing.T) {
	// 1000 mono frames at 24kHz should give roughly 2000 at 48kHz
	input := make([]float32, 1000)
	out := All(input, 24000, 48000, 1)

	if len(out) < 1900 || len(out) > 2000 {
		t.Errorf("upsample produced %d samples, want ~2000", len(out))
	}
}

func TestResampleDownsampleLength(t *testing.T) {
	input := make([]float32, 2000)
	out := All(input, 48000, 24000, 1)

	if len(out) < 900 || len(out) > 1000 {
		t.Errorf("downsample produced %d samples, want ~1000", len(out))
	}
}

func TestResampleInterpolatesBetweenSamples(t *testing.T) {
	// Upsampling a ramp should keep it monotonic with intermediate values
	input := []float32{0.0, 1.0}
	r := New(24000, 48000, 1)
	output := make([]float32, 4)
	n := r.Resample(input, output)

	if n < 2 {
		t.Fatalf("expected at least 2 output samples, got %d", n)
	}
	if output[0] != 0.0 {
		t.Errorf("first sample = %v, want 0.0", output[0])
	}
	if n >= 2 && math.Abs(float64(output[1])-0.5) > 1e-6 {
		t.Errorf("interpolated sample = %v, want 0.5", output[1])
	}
}

func TestResampleEmptyInput(t *testing.T) {
	r := New(44100, 48000, 2)
	output := make([]float32, 16)
	if n := r.Resample(nil, output); n != 0 {
		t.Errorf("Resample(nil) = %d, want 0", n)
	}
}

func TestResampleStereoKeepsChannels(t *testing.T) {
	// Left channel is a ramp, right channel constant; both must survive
	input := make([]float32, 200)
	for i := 0; i < 100; i++ {
		input[i*2] = float32(i) / 100.0
		input[i*2+1] = 0.75
	}

	out := All(input, 44100, 48000, 2)
	frames := len(out) / 2
	if frames == 0 {
		t.Fatal("no output frames")
	}
	for i := 0; i < frames; i++ {
		if math.Abs(float64(out[i*2+1])-0.75) > 1e-5 {
			t.Fatalf("right channel frame %d = %v, want 0.75", i, out[i*2+1])
		}
	}
}
