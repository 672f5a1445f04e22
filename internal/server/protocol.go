// ABOUTME: Wire types for the soundboard control socket
// ABOUTME: JSON messages with a type tag and a command-specific payload
package server

import "encoding/json"

// Message is the envelope for every control message in both directions
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PlayRequest starts a sound. Start and Gain override the record's
// start position and volume for this play when present.
type PlayRequest struct {
	SoundID    string   `json:"sound_id"`
	LocalOnly  bool     `json:"local_only,omitempty"`
	Monitor    bool     `json:"monitor,omitempty"`
	Concurrent bool     `json:"concurrent,omitempty"`
	Start      *float64 `json:"start,omitempty"`
	Gain       *float32 `json:"gain,omitempty"`
}

// StopRequest stops one sound
type StopRequest struct {
	SoundID string `json:"sound_id"`
}

// SeekRequest moves a playing sound
type SeekRequest struct {
	SoundID  string  `json:"sound_id"`
	Position float64 `json:"position"`
}

// GainRequest adjusts a playing sound's gain
type GainRequest struct {
	SoundID string  `json:"sound_id"`
	Gain    float32 `json:"gain"`
}

// SinkVolumeRequest adjusts one sink's device volume
type SinkVolumeRequest struct {
	Sink   string  `json:"sink"`
	Volume float32 `json:"volume"`
}

// SelectOutputRequest rebinds a sink to a device
type SelectOutputRequest struct {
	Sink   string `json:"sink"`
	Device string `json:"device"`
}

// SelectInputRequest picks the capture microphone
type SelectInputRequest struct {
	Device string `json:"device"`
}

// CaptureRequest controls the mic passthrough session
type CaptureRequest struct {
	Enabled bool    `json:"enabled"`
	Gain    float32 `json:"gain"`
}

// PlayingEntry is one row of the now-playing view
type PlayingEntry struct {
	SoundID  string  `json:"sound_id"`
	Position float64 `json:"position"`
}

// DeviceEntry is one enumerated device
type DeviceEntry struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	IsDefault bool   `json:"is_default"`
}

// EventPayload is a pushed now-playing state change
type EventPayload struct {
	Event   string `json:"event"`
	SoundID string `json:"sound_id"`
}

// ErrorPayload reports a failed command
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
