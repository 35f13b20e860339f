// Package mock provides a simulated Voltcraft socket. The simulation sits below the
// protocol: it decodes the frames written to it and answers with notifications the
// way the firmware does, so the real driver and session run against it unchanged.
// It is intended for development and testing purposes when a physical socket is not available.
package mock

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/rs/zerolog/log"
)

// This init function registers the mock socket with the central registry.
// To use it, you must explicitly import this package.
func init() {
	// Register with a distinct name, "MOCK", so it can be requested specifically.
	gosocket.Register("MOCK", New)
}

// ErrClosed is returned by writes to a device whose link was closed.
var ErrClosed = errors.New("mock device link closed")

// This line is the compile-time check. It will fail to compile if
// *Device ever stops satisfying the voltcraft.Link interface.
var _ voltcraft.Link = (*Device)(nil)

// New creates a Voltcraft driver connected to a fresh simulated device.
func New(device *gosocket.FoundDevice) gosocket.Socket {
	socket := voltcraft.NewWithDialer(device.Name, func(ctx context.Context) (voltcraft.Link, error) {
		return NewDevice(), nil
	})
	socket.SetDisplayName("Mock Socket")
	return socket
}

// Device is the simulated socket firmware.
type Device struct {
	mu sync.Mutex

	pin           [4]byte
	authenticated bool
	poweredOn     bool
	voltage       uint8
	frequency     uint8
	loadWatts     float64
	powerFactor   float64
	latency       time.Duration
	info          []byte

	onNotify       func([]byte)
	subscribeCalls int
	closed         bool

	// fault injection
	silent   bool
	injected [][]byte
	writes   [][]byte
}

// NewDevice returns a device with the factory PIN, relay off, and a 60 W load that is
// drawn once the relay is switched on.
func NewDevice() *Device {
	info := make([]byte, 16)
	info[11], info[12], info[13], info[14] = 1, 8, 2, 1
	return &Device{
		pin:         comms.DefaultPIN,
		voltage:     230,
		frequency:   50,
		loadWatts:   60,
		powerFactor: 0.92,
		latency:     10 * time.Millisecond,
		info:        info,
	}
}

func (d *Device) SetPIN(pin [4]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pin = pin
}

// SetLoad sets the nominal power drawn while the relay is on. A power factor outside
// (0, 1] is treated as a purely resistive load.
func (d *Device) SetLoad(watts, powerFactor float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if powerFactor <= 0 || powerFactor > 1 {
		powerFactor = 1
	}
	d.loadWatts = math.Max(watts, 0)
	d.powerFactor = powerFactor
}

func (d *Device) SetLatency(latency time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latency = latency
}

// SetSilent makes the device swallow writes without replying.
func (d *Device) SetSilent(silent bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent = silent
}

// InjectReply queues raw to be sent instead of the computed reply to the next write.
func (d *Device) InjectReply(raw []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.injected = append(d.injected, append([]byte(nil), raw...))
}

func (d *Device) PoweredOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poweredOn
}

func (d *Device) Authenticated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authenticated
}

func (d *Device) SubscribeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subscribeCalls
}

// Writes returns every frame written so far.
func (d *Device) Writes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.writes))
	copy(out, d.writes)
	return out
}

func (d *Device) Subscribe(onNotify func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.subscribeCalls++
	d.onNotify = onNotify
	return nil
}

func (d *Device) Write(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.writes = append(d.writes, append([]byte(nil), frame...))

	var reply []byte
	switch {
	case len(d.injected) > 0:
		reply = d.injected[0]
		d.injected = d.injected[1:]
	case d.silent:
		return nil
	default:
		reply = d.handleFrame(frame)
	}
	if reply == nil || d.onNotify == nil {
		return nil
	}

	notify := d.onNotify
	time.AfterFunc(d.latency, func() {
		d.mu.Lock()
		closed := d.closed
		d.mu.Unlock()
		if !closed {
			notify(reply)
		}
	})
	return nil
}

func (d *Device) ReadDeviceInfo() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	return append([]byte(nil), d.info...), nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	log.Debug().Msg("MOCK: link closed")
	return nil
}

// handleFrame plays the firmware. Malformed frames are ignored, like the real device does.
func (d *Device) handleFrame(frame []byte) []byte {
	body, err := comms.Decode(frame)
	if err != nil || len(body) == 0 {
		log.Debug().Err(err).Hex("frame", frame).Msg("MOCK: ignoring frame")
		return nil
	}

	switch body[0] {
	case 0x03:
		if len(body) != 5 {
			return nil
		}
		d.poweredOn = body[2] == 0x01
		log.Debug().Bool("on", d.poweredOn).Msg("MOCK: relay switched")
		return encode([]byte{0x03, 0x00, 0x00})

	case 0x17:
		if len(body) != 11 {
			return nil
		}
		var pin [4]byte
		copy(pin[:], body[3:7])
		d.authenticated = pin == d.pin
		if !d.authenticated {
			return encode([]byte{0x17, 0x00, 0x01, 0x00, 0x00})
		}
		return encode([]byte{0x17, 0x00, 0x00, 0x00, 0x00})

	case 0x04:
		reply := encode(d.statusBody())
		// the firmware drops the terminator on this reply
		return reply[:len(reply)-2]
	}
	return nil
}

// statusBody reports the simulated load with a little drift, a little up, a little down.
func (d *Device) statusBody() []byte {
	var watts, amps float64
	if d.poweredOn && d.loadWatts > 0 && d.voltage > 0 {
		watts = d.loadWatts * (1 + (rand.Float64()-0.5)*0.02)
		amps = watts / (float64(d.voltage) * d.powerFactor)
	}
	// fields saturate at their wire width
	milliwatts := uint32(math.Min(watts*1000, 0xFFFFFF))
	milliamps := uint16(math.Min(amps*1000, 0xFFFF))

	body := make([]byte, 16)
	body[0], body[1] = 0x04, 0x00
	if d.poweredOn {
		body[2] = 0x01
	}
	body[3] = byte(milliwatts >> 16)
	body[4] = byte(milliwatts >> 8)
	body[5] = byte(milliwatts)
	body[6] = d.voltage
	body[7] = byte(milliamps >> 8)
	body[8] = byte(milliamps)
	body[9] = d.frequency
	return body
}

func encode(body []byte) []byte {
	frame, err := comms.Encode(body)
	if err != nil {
		// bodies built here are a few bytes long
		panic(err)
	}
	return frame
}
