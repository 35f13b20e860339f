package gosocket

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Reading is a single status snapshot from a socket.
type Reading struct {
	PoweredOn      bool    `yaml:"powered_on"`
	PowerWatts     float64 `yaml:"power_watts"`
	Voltage        uint8   `yaml:"voltage"`
	CurrentAmperes float64 `yaml:"current_amperes"`
	FrequencyHz    uint8   `yaml:"frequency_hz"`
	PowerFactor    float64 `yaml:"power_factor"`
}

// DeviceInfo holds the firmware and hardware versions reported by a socket.
type DeviceInfo struct {
	Firmware string `yaml:"firmware"`
	Hardware string `yaml:"hardware"`
}

// Socket is the generic interface for a Bluetooth smart socket.
// Implementations of this interface will handle communication with a specific model.
type Socket interface {
	// Connect establishes a connection to the socket. Commands may be issued once
	// it returns without error.
	Connect(ctx context.Context) error

	// Disconnect terminates the connection.
	Disconnect() error

	IsConnected() bool
	DeviceName() string
	DisplayName() string

	// Authenticate presents the PIN. Most sockets ignore other commands until this succeeds.
	Authenticate(ctx context.Context, pin [4]byte) error

	// SetPower switches the relay on or off.
	SetPower(ctx context.Context, on bool) error

	// ReadStatus returns the relay state and the current power measurements.
	ReadStatus(ctx context.Context) (Reading, error)

	// DeviceInfo returns firmware and hardware versions.
	DeviceInfo(ctx context.Context) (DeviceInfo, error)
}

// --- Implementation Registry ---

// Factory is a function that creates a new instance of a Socket.
type Factory func(*FoundDevice) Socket

var (
	registry = make(map[string]Factory)
	regLock  = sync.RWMutex{}
)

// Register makes a socket implementation available by its device name prefix.
// This function should be called from the init() function of the implementation's package.
// For example, an implementation for a "Voltcraft" socket would register with the prefix "Voltcraft".
func Register(namePrefix string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := registry[namePrefix]; found {
		log.Warn().Str("prefix", namePrefix).Msg("socket implementation is being overwritten")
	}
	registry[namePrefix] = factory
}

// RegisteredPrefixes returns the device name prefixes with a registered implementation, sorted.
func RegisteredPrefixes() []string {
	regLock.RLock()
	defer regLock.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewSocketForDevice finds a registered factory for the given device name and
// creates a new Socket instance. It matches based on the prefix; when several
// prefixes match, the longest wins.
// Example: A device named "Voltcraft SEM-3600BT" would match a registered "Voltcraft" prefix.
func NewSocketForDevice(device *FoundDevice) (Socket, error) {
	regLock.RLock()
	defer regLock.RUnlock()

	var (
		best    string
		factory Factory
	)
	for prefix, f := range registry {
		if strings.HasPrefix(device.Name, prefix) && len(prefix) > len(best) {
			best, factory = prefix, f
		}
	}
	if factory == nil {
		return nil, fmt.Errorf("no implementation found for device '%s'", device.Name)
	}
	return factory(device), nil
}
