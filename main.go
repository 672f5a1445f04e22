// ABOUTME: Entry point for the soundbridge soundboard
// ABOUTME: Parses CLI flags, wires the audio backend and starts the UI
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundbridge/soundbridge-go/internal/board"
	"github.com/soundbridge/soundbridge-go/internal/clipcache"
	"github.com/soundbridge/soundbridge-go/internal/device"
	"github.com/soundbridge/soundbridge-go/internal/library"
	"github.com/soundbridge/soundbridge-go/internal/mixer"
	"github.com/soundbridge/soundbridge-go/internal/server"
	"github.com/soundbridge/soundbridge-go/internal/ui"
	"github.com/soundbridge/soundbridge-go/pkg/audio"
)

var (
	port          = flag.Int("port", 8930, "Control socket port")
	name          = flag.String("name", "", "Instance name for mDNS (default: hostname-soundbridge)")
	libraryPath   = flag.String("library", "soundbridge-library.json", "Sound library file")
	logFile       = flag.String("log-file", "soundbridge.log", "Log file path")
	noTUI         = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	noMDNS        = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noServer      = flag.Bool("no-server", false, "Disable the control socket")
	virtualDevice = flag.String("virtual-device", "", "Output device for the virtual sink (default: auto-detect)")
	speakerDevice = flag.String("speaker-device", "", "Output device for the speaker sink (default: system default)")
	inputDevice   = flag.String("input-device", "", "Capture device for mic passthrough (default: system default)")
	capture       = flag.Bool("capture", false, "Start with mic passthrough enabled")
	captureGain   = flag.Float64("capture-gain", 1.0, "Mic passthrough gain [0, 1]")
)

// backend is the surface both audio backends share
type backend interface {
	server.Devices
	Engine(kind audio.SinkKind) *mixer.Engine
	Close() error
}

func main() {
	flag.Parse()

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	instanceName := *name
	if instanceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		instanceName = fmt.Sprintf("%s-soundbridge", hostname)
	}

	log.Printf("Starting Soundbridge: %s", instanceName)

	store, err := library.OpenJSONStore(*libraryPath)
	if err != nil {
		log.Fatalf("Failed to open sound library: %v", err)
	}
	log.Printf("Loaded %d sounds from %s", len(store.List()), *libraryPath)

	audioBackend := openBackend()
	defer audioBackend.Close()

	b := board.New(store, clipcache.New(audio.EngineRate), audioBackend)
	defer b.Close()

	if *capture {
		if err := audioBackend.SetCaptureEnabled(true); err != nil {
			log.Printf("Mic passthrough failed: %v", err)
		}
		audioBackend.SetCaptureGain(float32(*captureGain))
	}

	var srv *server.Server
	if !*noServer {
		srv = server.New(server.Config{
			Port:       *port,
			Name:       instanceName,
			EnableMDNS: !*noMDNS,
		}, b, audioBackend)

		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("Control server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if useTUI {
		if err := ui.Run(b, &backendVolumes{backend: audioBackend}); err != nil {
			log.Printf("TUI error: %v", err)
		}
		log.Printf("TUI closed, shutting down")
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	if srv != nil {
		srv.Stop()
	}
	log.Printf("Soundbridge stopped")
}

// openBackend initializes the miniaudio backend, falling back to oto's
// default output when the context cannot start.
func openBackend() backend {
	manager, err := device.NewManager(device.Config{SampleRate: audio.EngineRate})
	if err == nil {
		bindDevices(manager)
		return manager
	}
	log.Printf("Audio backend failed (%v), trying fallback output", err)

	fallback, ferr := device.NewFallback(audio.EngineRate)
	if ferr != nil {
		log.Fatalf("No audio backend available: %v", ferr)
	}
	return fallback
}

// bindDevices wires the sinks to devices from flags, auto-detecting
// anything left unset.
func bindDevices(manager *device.Manager) {
	if *virtualDevice == "" && *speakerDevice == "" {
		manager.AutoSelect()
	} else {
		if *virtualDevice != "" {
			if err := manager.SelectOutputDevice(audio.SinkVirtual, *virtualDevice); err != nil {
				log.Printf("Failed to open virtual device %q: %v", *virtualDevice, err)
			}
		} else {
			manager.AutoSelect()
		}
		if err := manager.SelectOutputDevice(audio.SinkSpeaker, *speakerDevice); err != nil {
			log.Printf("Failed to open speaker device %q: %v", *speakerDevice, err)
		}
	}

	if *inputDevice != "" {
		if err := manager.SelectInputDevice(*inputDevice); err != nil {
			log.Printf("Failed to select input device %q: %v", *inputDevice, err)
		}
	}
}

// backendVolumes adapts the backend to the TUI's volume surface
type backendVolumes struct {
	backend backend
}

func (v *backendVolumes) SetVirtualVolume(vol float32) {
	v.backend.SetSinkVolume(audio.SinkVirtual, vol)
}

func (v *backendVolumes) VirtualVolume() float32 {
	return v.backend.SinkVolume(audio.SinkVirtual)
}

func (v *backendVolumes) SetCaptureEnabled(enabled bool) error {
	return v.backend.SetCaptureEnabled(enabled)
}

func (v *backendVolumes) CaptureEnabled() bool {
	return v.backend.CaptureEnabled()
}
