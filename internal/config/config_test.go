package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse(`
[device]
name = "Voltcraft SEM-3600"
address = "94:A9:A8:1B:54:02"
pin = "1234"
timeout = "3s"
scan = "20s"

[log]
level = "debug"

[metrics]
listen = ":9102"

[watch]
interval = "1m"
`)
	require.NoError(t, err)

	assert.Equal(t, "Voltcraft SEM-3600", cfg.DeviceName)
	assert.Equal(t, "94:A9:A8:1B:54:02", cfg.Address)
	assert.Equal(t, [4]byte{1, 2, 3, 4}, cfg.PIN)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 20*time.Second, cfg.ScanDuration)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9102", cfg.MetricsListen)
	assert.Equal(t, time.Minute, cfg.WatchInterval)
}

func TestParseZeroTimeoutDisablesIt(t *testing.T) {
	cfg, err := Parse("[device]\ntimeout = \"0s\"\n")
	require.NoError(t, err)
	assert.Zero(t, cfg.Timeout)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"bad pin":          "[device]\npin = \"12\"\n",
		"bad timeout":      "[device]\ntimeout = \"soon\"\n",
		"negative timeout": "[device]\ntimeout = \"-1s\"\n",
		"zero interval":    "[watch]\ninterval = \"0s\"\n",
		"unknown key":      "[device]\nmac = \"x\"\n",
		"not toml":         "[device\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socket.toml")
	require.NoError(t, os.WriteFile(path, []byte("[device]\nname = \"MOCK\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MOCK", cfg.DeviceName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
