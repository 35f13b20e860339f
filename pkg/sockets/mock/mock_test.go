package mock

import (
	"context"
	"testing"
	"time"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedSocket(t *testing.T, dev *Device, opts ...voltcraft.SessionOption) *voltcraft.VoltcraftSocket {
	t.Helper()
	socket := voltcraft.NewWithDialer("MOCK-test", func(ctx context.Context) (voltcraft.Link, error) {
		return dev, nil
	}, opts...)
	require.NoError(t, socket.Connect(context.Background()))
	t.Cleanup(func() { _ = socket.Disconnect() })
	return socket
}

func TestRegistryCreatesMockSocket(t *testing.T) {
	socket, err := gosocket.NewSocketForDevice(&gosocket.FoundDevice{Name: "MOCK-Development-Socket"})
	require.NoError(t, err)
	assert.Equal(t, "Mock Socket", socket.DisplayName())
	assert.Equal(t, "MOCK-Development-Socket", socket.DeviceName())

	ctx := context.Background()
	require.NoError(t, socket.Connect(ctx))
	assert.True(t, socket.IsConnected())
	assert.ErrorIs(t, socket.Connect(ctx), voltcraft.ErrAlreadyConnected)

	require.NoError(t, socket.Authenticate(ctx, comms.DefaultPIN))
	require.NoError(t, socket.SetPower(ctx, true))

	reading, err := socket.ReadStatus(ctx)
	require.NoError(t, err)
	assert.True(t, reading.PoweredOn)
	assert.InDelta(t, 60, reading.PowerWatts, 1)
	assert.Equal(t, uint8(230), reading.Voltage)
	assert.Equal(t, uint8(50), reading.FrequencyHz)
	assert.InDelta(t, 0.92, reading.PowerFactor, 0.01)

	info, err := socket.DeviceInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, gosocket.DeviceInfo{Firmware: "1.8", Hardware: "2.1"}, info)

	require.NoError(t, socket.Disconnect())
	assert.False(t, socket.IsConnected())
	assert.ErrorIs(t, socket.SetPower(ctx, false), voltcraft.ErrNotConnected)
}

func TestPowerCycle(t *testing.T) {
	dev := NewDevice()
	socket := connectedSocket(t, dev)
	ctx := context.Background()

	require.NoError(t, socket.SetPower(ctx, true))
	assert.True(t, dev.PoweredOn())

	require.NoError(t, socket.SetPower(ctx, false))
	assert.False(t, dev.PoweredOn())

	reading, err := socket.ReadStatus(ctx)
	require.NoError(t, err)
	assert.False(t, reading.PoweredOn)
	assert.Zero(t, reading.PowerWatts)
	assert.Zero(t, reading.CurrentAmperes)
	assert.Zero(t, reading.PowerFactor)

	assert.Equal(t, 1, dev.SubscribeCalls())
	assert.Len(t, dev.Writes(), 3)
}

func TestWrongPIN(t *testing.T) {
	dev := NewDevice()
	dev.SetPIN([4]byte{1, 2, 3, 4})
	socket := connectedSocket(t, dev)
	ctx := context.Background()

	err := socket.Authenticate(ctx, comms.DefaultPIN)
	assert.ErrorIs(t, err, comms.ErrAuthenticationFailed)
	assert.False(t, dev.Authenticated())

	require.NoError(t, socket.Authenticate(ctx, [4]byte{1, 2, 3, 4}))
	assert.True(t, dev.Authenticated())
}

func TestSilentDeviceTimesOut(t *testing.T) {
	dev := NewDevice()
	dev.SetSilent(true)
	socket := connectedSocket(t, dev, voltcraft.WithTimeout(40*time.Millisecond))
	ctx := context.Background()

	_, err := socket.ReadStatus(ctx)
	assert.ErrorIs(t, err, voltcraft.ErrTimeout)
	assert.Equal(t, voltcraft.StateSubscribed, socket.Session().State())

	dev.SetSilent(false)
	_, err = socket.ReadStatus(ctx)
	assert.NoError(t, err)
}

func TestLateReplyIsNotMisattributed(t *testing.T) {
	dev := NewDevice()
	dev.SetLatency(80 * time.Millisecond)
	socket := connectedSocket(t, dev, voltcraft.WithTimeout(20*time.Millisecond))
	ctx := context.Background()

	_, err := socket.ReadStatus(ctx)
	require.ErrorIs(t, err, voltcraft.ErrTimeout)

	// let the abandoned status reply arrive while nothing is waiting
	time.Sleep(100 * time.Millisecond)

	dev.SetLatency(time.Millisecond)
	assert.NoError(t, socket.SetPower(ctx, true))
}

func TestInjectedCorruptReply(t *testing.T) {
	dev := NewDevice()
	socket := connectedSocket(t, dev)
	ctx := context.Background()

	dev.InjectReply([]byte{0x0E, 0x04, 0x03, 0x00, 0x00, 0x04, 0xFF, 0xFF})
	err := socket.SetPower(ctx, true)
	var fe *comms.FramingError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, comms.BadStart, fe.Reason)

	dev.InjectReply([]byte{0x0F, 0x04, 0x03, 0x00, 0x01, 0x05, 0xFF, 0xFF})
	assert.ErrorIs(t, socket.SetPower(ctx, true), comms.ErrUnexpectedResponse)

	assert.NoError(t, socket.SetPower(ctx, true))
}

func TestStatusReplyLacksTerminator(t *testing.T) {
	dev := NewDevice()
	received := make(chan []byte, 1)
	require.NoError(t, dev.Subscribe(func(buf []byte) { received <- buf }))

	frame, err := comms.Encode(comms.NewGetStatus().Body())
	require.NoError(t, err)
	require.NoError(t, dev.Write(frame))

	select {
	case raw := <-received:
		_, err := comms.Decode(raw)
		var fe *comms.FramingError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, comms.BadTerminator, fe.Reason)

		body, err := comms.DecodeReply(raw)
		require.NoError(t, err)
		assert.Len(t, body, 16)
	case <-time.After(time.Second):
		t.Fatal("no status reply")
	}
}

func TestClosedDevice(t *testing.T) {
	dev := NewDevice()
	require.NoError(t, dev.Close())
	assert.ErrorIs(t, dev.Write([]byte{0x0F}), ErrClosed)
	assert.ErrorIs(t, dev.Subscribe(func([]byte) {}), ErrClosed)
	_, err := dev.ReadDeviceInfo()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoadOutsideWireRange(t *testing.T) {
	dev := NewDevice()
	socket := connectedSocket(t, dev)
	ctx := context.Background()
	require.NoError(t, socket.SetPower(ctx, true))

	dev.SetLoad(60, 0)
	reading, err := socket.ReadStatus(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, reading.PowerFactor, 0.01)
	assert.InDelta(t, 0.26, reading.CurrentAmperes, 0.01)

	dev.SetLoad(20000, 0.5)
	reading, err = socket.ReadStatus(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 16777.215, reading.PowerWatts, 0.001)
	assert.InDelta(t, 65.535, reading.CurrentAmperes, 0.001)
}
