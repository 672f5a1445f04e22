// ABOUTME: Package documentation for resample
// ABOUTME: Linear interpolation resampling between arbitrary rates

// Package resample converts interleaved float32 PCM between sample
// rates using linear interpolation. Quality is adequate for short
// soundboard clips; it is not a mastering-grade resampler.
package resample
