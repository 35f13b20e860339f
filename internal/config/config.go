// Package config loads socketctl settings from a TOML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
)

// Config is the resolved controller configuration.
type Config struct {
	// DeviceName selects the driver by prefix; it is also the scan filter when Address is empty.
	DeviceName string
	// Address connects directly, skipping the scan.
	Address       string
	PIN           [4]byte
	Timeout       time.Duration
	ScanDuration  time.Duration
	WatchInterval time.Duration
	LogLevel      string
	MetricsListen string
}

func Default() Config {
	return Config{
		DeviceName:    "Voltcraft",
		PIN:           comms.DefaultPIN,
		Timeout:       10 * time.Second,
		ScanDuration:  15 * time.Second,
		WatchInterval: 5 * time.Second,
		LogLevel:      "info",
	}
}

type fileConfig struct {
	Device struct {
		Name    string `toml:"name"`
		Address string `toml:"address"`
		PIN     string `toml:"pin"`
		Timeout string `toml:"timeout"`
		Scan    string `toml:"scan"`
	} `toml:"device"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Metrics struct {
		Listen string `toml:"listen"`
	} `toml:"metrics"`
	Watch struct {
		Interval string `toml:"interval"`
	} `toml:"watch"`
}

// Load reads path and overlays the keys it defines onto Default().
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return resolve(raw, meta)
}

// Parse is Load for configuration already in memory.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return resolve(raw, meta)
}

func resolve(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("device", "name") {
		if name := strings.TrimSpace(raw.Device.Name); name != "" {
			cfg.DeviceName = name
		}
	}
	if meta.IsDefined("device", "address") {
		cfg.Address = strings.TrimSpace(raw.Device.Address)
	}
	if meta.IsDefined("device", "pin") {
		pin, err := comms.ParsePIN(strings.TrimSpace(raw.Device.PIN))
		if err != nil {
			return Config{}, fmt.Errorf("parse device.pin: %w", err)
		}
		cfg.PIN = pin
	}

	var err error
	if cfg.Timeout, err = durationKey(meta, raw.Device.Timeout, cfg.Timeout, "device", "timeout"); err != nil {
		return Config{}, err
	}
	if cfg.ScanDuration, err = durationKey(meta, raw.Device.Scan, cfg.ScanDuration, "device", "scan"); err != nil {
		return Config{}, err
	}
	if cfg.WatchInterval, err = durationKey(meta, raw.Watch.Interval, cfg.WatchInterval, "watch", "interval"); err != nil {
		return Config{}, err
	}
	if cfg.WatchInterval <= 0 {
		return Config{}, fmt.Errorf("watch.interval must be positive")
	}

	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("metrics", "listen") {
		cfg.MetricsListen = strings.TrimSpace(raw.Metrics.Listen)
	}
	return cfg, nil
}

func durationKey(meta toml.MetaData, raw string, fallback time.Duration, key ...string) (time.Duration, error) {
	if !meta.IsDefined(key...) {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", strings.Join(key, "."), err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", strings.Join(key, "."))
	}
	return d, nil
}
