package gosocket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSocket struct {
	name  string
	model string
}

func (s *stubSocket) Connect(ctx context.Context) error                   { return nil }
func (s *stubSocket) Disconnect() error                                   { return nil }
func (s *stubSocket) IsConnected() bool                                   { return false }
func (s *stubSocket) DeviceName() string                                  { return s.name }
func (s *stubSocket) DisplayName() string                                 { return s.model }
func (s *stubSocket) Authenticate(ctx context.Context, pin [4]byte) error { return nil }
func (s *stubSocket) SetPower(ctx context.Context, on bool) error         { return nil }
func (s *stubSocket) ReadStatus(ctx context.Context) (Reading, error)     { return Reading{}, nil }
func (s *stubSocket) DeviceInfo(ctx context.Context) (DeviceInfo, error)  { return DeviceInfo{}, nil }

func stubFactory(model string) Factory {
	return func(d *FoundDevice) Socket {
		return &stubSocket{name: d.Name, model: model}
	}
}

func TestNewSocketForDevice(t *testing.T) {
	Register("STUB", stubFactory("generic"))
	Register("STUB-PRO", stubFactory("pro"))

	socket, err := NewSocketForDevice(&FoundDevice{Name: "STUB-PRO-42"})
	require.NoError(t, err)
	assert.Equal(t, "pro", socket.DisplayName())
	assert.Equal(t, "STUB-PRO-42", socket.DeviceName())

	socket, err = NewSocketForDevice(&FoundDevice{Name: "STUB-7"})
	require.NoError(t, err)
	assert.Equal(t, "generic", socket.DisplayName())

	_, err = NewSocketForDevice(&FoundDevice{Name: "Unknown Plug"})
	assert.Error(t, err)

	prefixes := RegisteredPrefixes()
	assert.Contains(t, prefixes, "STUB")
	assert.Contains(t, prefixes, "STUB-PRO")
	assert.IsIncreasing(t, prefixes)
}

func TestGetPrefixes(t *testing.T) {
	assert.Equal(t, []string{"Voltcraft"}, getPrefixes("Voltcraft"))
	Register("STUB", stubFactory("generic"))
	assert.Contains(t, getPrefixes(), "STUB")
}

func TestMatchesPrefix(t *testing.T) {
	assert.True(t, matchesPrefix("Voltcraft SEM", []string{"MOCK", "Voltcraft"}))
	assert.False(t, matchesPrefix("LUNAR-1", []string{"MOCK", "Voltcraft"}))
}

func TestDeviceFromAddressEmpty(t *testing.T) {
	_, err := DeviceFromAddress("Voltcraft", "  ")
	assert.Error(t, err)
}
