package main

import (
	"fmt"
	"time"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/internal/observability"
	"github.com/rs/zerolog/log"

	_ "github.com/mlsorensen/gosocket/pkg/sockets/all"
)

func main() {
	observability.InitLogger("scanner", "info")
	log.Info().Msg("--- GoSocket Scanner Test ---")

	scanDuration := 15 * time.Second
	log.Info().Dur("duration", scanDuration).Msg("starting BLE scan, turn on your socket now")

	// Scan blocks for the specified duration. Find any device whose name starts
	// with "Voltcraft", for example.
	devices, err := gosocket.Scan(scanDuration, "Voltcraft")
	if err != nil {
		log.Fatal().Err(err).Msg("scan failed")
	}

	// --- Print the results ---
	if len(devices) == 0 {
		log.Info().Msg("scan complete, no supported devices found")
		log.Info().Msg("tip: make sure your socket is plugged in and not connected to the phone app")
	} else {
		fmt.Println("\n--- Found Supported Devices ---")
		for i, device := range devices {
			fmt.Printf("%d: Name: %s\n", i+1, device.Name)
			fmt.Printf("   ID:   %s\n", device.ID)
			fmt.Printf("   RSSI: %d\n\n", device.RSSI)
		}
		fmt.Println("-----------------------------")
	}
}
