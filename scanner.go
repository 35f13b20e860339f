package gosocket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"
)

// FoundDevice is a socket seen during a scan, or named explicitly by its address.
type FoundDevice struct {
	Name    string
	ID      string
	RSSI    int
	Address bluetooth.Address
}

// ErrNoDeviceFound is returned by ScanForOne when the scan ends without a match.
var ErrNoDeviceFound = errors.New("no matching device found")

// BTAdapter is the adapter every driver connects through.
var BTAdapter = bluetooth.DefaultAdapter

var (
	enableOnce sync.Once
	enableErr  error
)

// TryEnableAdapter enables the default adapter. It is safe to call repeatedly; only
// the first call touches the hardware.
func TryEnableAdapter() error {
	enableOnce.Do(func() {
		log.Debug().Msg("enabling bluetooth adapter")
		enableErr = BTAdapter.Enable()
	})
	return enableErr
}

// DeviceFromAddress builds a FoundDevice for a socket whose address is already known,
// skipping the scan. The address uses the platform's notation (a MAC on Linux).
func DeviceFromAddress(name, id string) (*FoundDevice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("device address is empty")
	}
	addr, err := parseAddress(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("parse device address %q: %w", id, err)
	}
	return &FoundDevice{Name: name, ID: id, Address: addr}, nil
}

// ScanStream returns a channel that streams FoundDevice as they are discovered
// and stops scanning when the context is canceled.
func ScanStream(ctx context.Context, customPrefixes ...string) (<-chan FoundDevice, error) {
	prefixesToScan := getPrefixes(customPrefixes...)
	if len(prefixesToScan) == 0 {
		return nil, errors.New("scan: no implementations registered and no custom prefixes provided")
	}
	if err := TryEnableAdapter(); err != nil {
		return nil, err
	}

	deviceChan := make(chan FoundDevice)

	go func() {
		defer close(deviceChan)

		log.Info().Strs("prefixes", prefixesToScan).Msg("starting BLE scan")

		handler := func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			name := result.LocalName()
			if name == "" {
				return // Ignore packets without a name.
			}
			if !matchesPrefix(name, prefixesToScan) {
				return
			}
			select {
			case deviceChan <- FoundDevice{
				Name:    name,
				ID:      result.Address.String(),
				RSSI:    int(result.RSSI),
				Address: result.Address,
			}:
			case <-ctx.Done():
			}
		}

		scanDone := make(chan error, 1)
		go func() {
			scanDone <- BTAdapter.Scan(handler)
		}()

		select {
		case err := <-scanDone:
			if err != nil {
				log.Error().Err(err).Msg("scan failed")
			}
			return
		case <-ctx.Done():
		}

		if err := BTAdapter.StopScan(); err != nil {
			log.Warn().Err(err).Msg("failed to stop scan cleanly")
		}
		<-scanDone
	}()

	return deviceChan, nil
}

// Scan finds any bluetooth devices with given string prefixes in their name, blocks for duration
func Scan(duration time.Duration, customPrefixes ...string) ([]FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	foundDevices := make(map[string]FoundDevice)
	order := make([]string, 0)
	for device := range stream {
		if _, seen := foundDevices[device.ID]; !seen {
			log.Info().Str("device", device.Name).Str("id", device.ID).Msg("found a match")
			order = append(order, device.ID)
		}
		foundDevices[device.ID] = device
	}

	results := make([]FoundDevice, 0, len(order))
	for _, id := range order {
		results = append(results, foundDevices[id])
	}

	log.Info().Int("count", len(results)).Msg("scan finished")
	return results, nil
}

// ScanForOne blocks until the first matching device is seen or duration elapses.
func ScanForOne(duration time.Duration, customPrefixes ...string) (*FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	device, ok := <-stream
	cancel()
	for range stream {
		// drain until the scanner goroutine exits
	}
	if !ok {
		return nil, ErrNoDeviceFound
	}
	return &device, nil
}

func matchesPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// getPrefixes helper function, provide prefixes in addition to registered socket prefixes
func getPrefixes(customPrefixes ...string) []string {
	if len(customPrefixes) > 0 {
		return customPrefixes
	}
	return RegisteredPrefixes()
}
