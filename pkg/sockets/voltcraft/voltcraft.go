// Package voltcraft drives Voltcraft SEM-series Bluetooth smart sockets.
package voltcraft

import (
	"context"
	"fmt"
	"sync"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/rs/zerolog/log"
)

func init() {
	gosocket.Register("Voltcraft", New)
}

// This line is the compile-time check. It will fail to compile if
// *VoltcraftSocket ever stops satisfying the gosocket.Socket interface.
var _ gosocket.Socket = (*VoltcraftSocket)(nil)

type VoltcraftSocket struct {
	name        string
	displayName string
	dial        Dialer
	sessionOpts []SessionOption

	mu        sync.Mutex
	connected bool
	link      Link
	session   *Session
}

// New creates a socket driver for a device found by a scan or built with
// gosocket.DeviceFromAddress.
func New(device *gosocket.FoundDevice) gosocket.Socket {
	return NewWithDialer(device.Name, DialBLE(device.Address))
}

// NewWithDialer creates a socket driver that opens its link through dial. The session
// options apply to every session created by Connect.
func NewWithDialer(name string, dial Dialer, opts ...SessionOption) *VoltcraftSocket {
	return &VoltcraftSocket{
		name:        name,
		displayName: "Voltcraft smart socket",
		dial:        dial,
		sessionOpts: opts,
	}
}

// SetDisplayName overrides the human readable model name.
func (v *VoltcraftSocket) SetDisplayName(name string) {
	v.displayName = name
}

// SetSessionOptions replaces the options used for sessions created by later Connect calls.
func (v *VoltcraftSocket) SetSessionOptions(opts ...SessionOption) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sessionOpts = opts
}

func (v *VoltcraftSocket) Connect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.connected {
		return ErrAlreadyConnected
	}

	log.Info().Str("device", v.name).Msg("connecting")
	link, err := v.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", v.name, err)
	}

	opts := append([]SessionOption{WithLogger(log.With().Str("device", v.name).Logger())}, v.sessionOpts...)
	v.link = link
	v.session = NewSession(link, opts...)
	v.connected = true
	log.Info().Str("device", v.name).Str("session", v.session.ID()).Msg("connected")
	return nil
}

func (v *VoltcraftSocket) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.connected {
		return nil
	}
	v.session.Close(nil)
	err := v.link.Close()
	v.connected = false
	v.link = nil
	v.session = nil
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", v.name, err)
	}
	log.Info().Str("device", v.name).Msg("disconnected")
	return nil
}

func (v *VoltcraftSocket) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

func (v *VoltcraftSocket) DeviceName() string {
	return v.name
}

func (v *VoltcraftSocket) DisplayName() string {
	return v.displayName
}

// Session returns the command session of the current connection, or nil when disconnected.
func (v *VoltcraftSocket) Session() *Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// Send issues an arbitrary catalog command on the current session.
func (v *VoltcraftSocket) Send(ctx context.Context, cmd comms.Command) error {
	session := v.Session()
	if session == nil {
		return ErrNotConnected
	}
	return session.Send(ctx, cmd)
}

func (v *VoltcraftSocket) Authenticate(ctx context.Context, pin [4]byte) error {
	return v.Send(ctx, comms.NewAuthenticate(pin))
}

func (v *VoltcraftSocket) SetPower(ctx context.Context, on bool) error {
	return v.Send(ctx, comms.NewPowerOnOff(on))
}

func (v *VoltcraftSocket) ReadStatus(ctx context.Context) (gosocket.Reading, error) {
	cmd := comms.NewGetStatus()
	if err := v.Send(ctx, cmd); err != nil {
		return gosocket.Reading{}, err
	}
	return gosocket.Reading{
		PoweredOn:      cmd.PoweredOn,
		PowerWatts:     cmd.PowerWatts,
		Voltage:        cmd.Voltage,
		CurrentAmperes: cmd.CurrentAmperes,
		FrequencyHz:    cmd.FrequencyHz,
		PowerFactor:    cmd.PowerFactor,
	}, nil
}

func (v *VoltcraftSocket) DeviceInfo(ctx context.Context) (gosocket.DeviceInfo, error) {
	v.mu.Lock()
	link := v.link
	v.mu.Unlock()
	if link == nil {
		return gosocket.DeviceInfo{}, ErrNotConnected
	}

	type result struct {
		raw []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := link.ReadDeviceInfo()
		done <- result{raw: raw, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		return gosocket.DeviceInfo{}, ctx.Err()
	}
	if r.err != nil {
		return gosocket.DeviceInfo{}, &TransportError{Op: "read device info", Cause: r.err}
	}

	info, err := comms.DecodeDeviceInfo(r.raw)
	if err != nil {
		return gosocket.DeviceInfo{}, err
	}
	return gosocket.DeviceInfo{Firmware: info.Firmware(), Hardware: info.Hardware()}, nil
}
