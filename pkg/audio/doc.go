// ABOUTME: Package documentation for audio types
// ABOUTME: Shared vocabulary used by the decode, mix and device layers

// Package audio defines the shared audio vocabulary of the soundboard:
// decoded clips, sink kinds, and the normalized float32 sample format
// used throughout the mixing core.
package audio
