package voltcraft

import (
	"context"
	"errors"
	"testing"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	*fakeTransport
	info    []byte
	infoErr error
	closed  bool
}

func (l *fakeLink) ReadDeviceInfo() ([]byte, error) {
	return l.info, l.infoErr
}

func (l *fakeLink) Close() error {
	l.closed = true
	return nil
}

func newFakeSocket(t *testing.T, link *fakeLink) *VoltcraftSocket {
	t.Helper()
	socket := NewWithDialer("Voltcraft SEM-3600BT", func(ctx context.Context) (Link, error) {
		return link, nil
	})
	require.NoError(t, socket.Connect(context.Background()))
	return socket
}

func TestSocketRegistered(t *testing.T) {
	assert.Contains(t, gosocket.RegisteredPrefixes(), "Voltcraft")
}

func TestSocketReadStatus(t *testing.T) {
	ft := &fakeTransport{}
	ft.setRespond(deviceResponder(t))
	socket := newFakeSocket(t, &fakeLink{fakeTransport: ft})

	reading, err := socket.ReadStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, reading.PoweredOn)
	assert.InDelta(t, 0.1, reading.PowerWatts, 1e-9)
	assert.Equal(t, uint8(230), reading.Voltage)
	assert.InDelta(t, 0.05, reading.CurrentAmperes, 1e-9)
	assert.Equal(t, uint8(50), reading.FrequencyHz)
	assert.InDelta(t, 0.0087, reading.PowerFactor, 1e-4)
}

func TestSocketDeviceInfo(t *testing.T) {
	info := make([]byte, 20)
	info[11], info[12], info[13], info[14] = 3, 2, 1, 0

	link := &fakeLink{fakeTransport: &fakeTransport{}, info: info}
	socket := newFakeSocket(t, link)

	got, err := socket.DeviceInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gosocket.DeviceInfo{Firmware: "3.2", Hardware: "1.0"}, got)

	link.infoErr = errors.New("read failed")
	_, err = socket.DeviceInfo(context.Background())
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestSocketDialFailure(t *testing.T) {
	cause := errors.New("device out of range")
	socket := NewWithDialer("Voltcraft", func(ctx context.Context) (Link, error) {
		return nil, cause
	})

	err := socket.Connect(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.False(t, socket.IsConnected())
	assert.Nil(t, socket.Session())
}

func TestSocketDisconnect(t *testing.T) {
	ft := &fakeTransport{}
	ft.setRespond(deviceResponder(t))
	link := &fakeLink{fakeTransport: ft}
	socket := newFakeSocket(t, link)

	session := socket.Session()
	require.NotNil(t, session)
	require.NoError(t, socket.SetPower(context.Background(), true))

	require.NoError(t, socket.Disconnect())
	assert.True(t, link.closed)
	assert.False(t, socket.IsConnected())
	assert.ErrorIs(t, socket.SetPower(context.Background(), false), ErrNotConnected)
	assert.ErrorIs(t, session.Send(context.Background(), comms.NewGetStatus()), ErrSessionClosed)

	// disconnecting twice is harmless
	assert.NoError(t, socket.Disconnect())
}
