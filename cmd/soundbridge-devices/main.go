// ABOUTME: Device listing utility for the soundboard
// ABOUTME: Enumerates outputs and inputs and flags detected virtual cables
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/soundbridge/soundbridge-go/internal/device"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

var markers = flag.String("markers", "", "Extra virtual-cable name markers, comma separated")

func main() {
	flag.Parse()

	classifier := device.DefaultClassifier()
	for _, m := range strings.Split(*markers, ",") {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			classifier.Markers = append(classifier.Markers, m)
		}
	}

	manager, err := device.NewManager(device.Config{
		SampleRate: audio.EngineRate,
		Classifier: classifier,
	})
	if err != nil {
		log.Fatalf("Failed to initialize audio backend: %v", err)
	}
	defer manager.Close()

	devices, err := manager.ListDevices()
	if err != nil {
		log.Fatalf("Failed to enumerate devices: %v", err)
	}

	fmt.Println("Outputs:")
	for _, d := range devices {
		if d.Kind == device.KindInput {
			continue
		}
		printDevice(d)
	}

	fmt.Println("\nInputs:")
	for _, d := range devices {
		if d.Kind != device.KindInput {
			continue
		}
		printDevice(d)
	}
}

func printDevice(d device.Info) {
	tags := ""
	if d.Kind == device.KindVirtual {
		tags += " [virtual cable]"
	}
	if d.IsDefault {
		tags += " [default]"
	}
	fmt.Printf("  %s%s\n", d.Name, tags)
}
