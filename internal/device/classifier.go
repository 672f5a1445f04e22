// ABOUTME: Device classification by name heuristics
// ABOUTME: Tells virtual-cable outputs apart from physical devices
package device

import "strings"

// Classifier decides whether an output device is a virtual cable.
// Name matching is inherently fragile, so the strategy is pluggable;
// the mixing core never looks at device names itself.
type Classifier interface {
	IsVirtual(deviceName string) bool
}

// NameClassifier is the default classifier: case-insensitive substring
// match against known virtual-cable product names. Best effort only.
type NameClassifier struct {
	Markers []string
}

// DefaultClassifier matches the common virtual-cable products
// (VB-Cable on Windows, BlackHole on macOS, PipeWire/PulseAudio
// virtual sinks on Linux).
func DefaultClassifier() *NameClassifier {
	return &NameClassifier{
		Markers: []string{"cable", "vb-audio", "vb-cable", "virtual", "blackhole", "null sink"},
	}
}

// IsVirtual reports whether the device name looks like a virtual cable
func (c *NameClassifier) IsVirtual(deviceName string) bool {
	name := strings.ToLower(deviceName)
	for _, marker := range c.Markers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
