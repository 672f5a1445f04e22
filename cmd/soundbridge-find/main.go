// ABOUTME: LAN discovery utility for the soundboard
// ABOUTME: Browses mDNS for running instances and prints their control sockets
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/soundbridge/soundbridge-go/internal/discovery"
)

var wait = flag.Duration("wait", 5*time.Second, "How long to listen for instances")

func main() {
	flag.Parse()

	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	if err := mgr.Browse(); err != nil {
		log.Fatalf("Failed to start browsing: %v", err)
	}

	fmt.Printf("Browsing for soundboards (%s)...\n", *wait)

	seen := make(map[string]bool)
	deadline := time.After(*wait)
	for {
		select {
		case info := <-mgr.Servers():
			addr := fmt.Sprintf("%s:%d", info.Host, info.Port)
			if seen[addr] {
				continue
			}
			seen[addr] = true
			fmt.Printf("  %s at ws://%s/control\n", info.Name, addr)
		case <-deadline:
			if len(seen) == 0 {
				fmt.Println("  none found")
			}
			return
		}
	}
}
