package comms

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Command is one request/response exchange with the socket. A command is sent once;
// Interpret consumes the validated reply body and records the result on the command.
type Command interface {
	// Name identifies the command in logs and errors.
	Name() string

	// Body returns the request payload without framing.
	Body() []byte

	// Interpret checks the reply body and populates the command's result fields.
	Interpret(body []byte) error

	// Claim reserves the command for a single write. Only the first call succeeds;
	// later calls fail with ErrCommandReused.
	Claim() error

	// Done reports whether the command has already consumed a reply.
	Done() bool
}

// exchange tracks the single use allowed per command.
type exchange struct {
	sent atomic.Bool
	done atomic.Bool
}

func (e *exchange) Claim() error {
	if !e.sent.CompareAndSwap(false, true) {
		return ErrCommandReused
	}
	return nil
}

func (e *exchange) Done() bool {
	return e.done.Load()
}

func (e *exchange) begin() error {
	if !e.done.CompareAndSwap(false, true) {
		return ErrCommandReused
	}
	return nil
}

// --- Power on/off ---

var powerReply = []byte{0x03, 0x00, 0x00}

// PowerOnOff switches the socket relay.
type PowerOnOff struct {
	exchange
	On bool
}

func NewPowerOnOff(on bool) *PowerOnOff {
	return &PowerOnOff{On: on}
}

func (c *PowerOnOff) Name() string {
	if c.On {
		return "power_on"
	}
	return "power_off"
}

func (c *PowerOnOff) Body() []byte {
	var state byte
	if c.On {
		state = 0x01
	}
	return []byte{0x03, 0x00, state, 0x00, 0x00}
}

func (c *PowerOnOff) Interpret(body []byte) error {
	if err := c.begin(); err != nil {
		return err
	}
	if !bytes.Equal(body, powerReply) {
		return newResponseError(c.Name(), body)
	}
	return nil
}

// --- Authenticate ---

// DefaultPIN is the factory PIN of the socket.
var DefaultPIN = [4]byte{0x00, 0x00, 0x00, 0x00}

var authReply = []byte{0x17, 0x00, 0x00, 0x00, 0x00}

// Authenticate presents the PIN to the socket. It must succeed before the socket
// accepts other commands.
type Authenticate struct {
	exchange
	PIN [4]byte
}

func NewAuthenticate(pin [4]byte) *Authenticate {
	return &Authenticate{PIN: pin}
}

func NewDefaultAuthenticate() *Authenticate {
	return NewAuthenticate(DefaultPIN)
}

func (c *Authenticate) Name() string {
	return "authenticate"
}

func (c *Authenticate) Body() []byte {
	body := make([]byte, 0, 11)
	body = append(body, 0x17, 0x00, 0x00)
	body = append(body, c.PIN[:]...)
	return append(body, 0x00, 0x00, 0x00, 0x00)
}

func (c *Authenticate) Interpret(body []byte) error {
	if err := c.begin(); err != nil {
		return err
	}
	if len(body) != len(authReply) {
		return newResponseError(c.Name(), body)
	}
	if body[2] == 0x01 {
		return fmt.Errorf("%w: % X", ErrAuthenticationFailed, body)
	}
	if !bytes.Equal(body, authReply) {
		return newResponseError(c.Name(), body)
	}
	return nil
}

// --- Get status ---

const statusReplyLen = 16

// GetStatus reads the relay state and the power measurements. The fields are
// populated by a successful exchange.
type GetStatus struct {
	exchange

	PoweredOn      bool
	PowerWatts     float64
	Voltage        uint8
	CurrentAmperes float64
	FrequencyHz    uint8
	PowerFactor    float64
}

func NewGetStatus() *GetStatus {
	return &GetStatus{}
}

func (c *GetStatus) Name() string {
	return "get_status"
}

func (c *GetStatus) Body() []byte {
	return []byte{statusCode[0], statusCode[1], 0x00}
}

// Interpret decodes the 16 byte status reply. Layout (big-endian):
//
//	0-1   0x04 0x00
//	2     relay state, 1 = on
//	3-5   active power, mW
//	6     voltage, V
//	7-8   current, mA
//	9     frequency, Hz
//	10-15 zero
func (c *GetStatus) Interpret(body []byte) error {
	if err := c.begin(); err != nil {
		return err
	}
	if len(body) != statusReplyLen {
		return newResponseError(c.Name(), body)
	}
	if body[0] != statusCode[0] || body[1] != statusCode[1] {
		return newResponseError(c.Name(), body)
	}
	for _, b := range body[10:] {
		if b != 0 {
			return newResponseError(c.Name(), body)
		}
	}

	milliwatts := uint32(body[3])<<16 | uint32(body[4])<<8 | uint32(body[5])
	milliamps := binary.BigEndian.Uint16(body[7:9])

	c.PoweredOn = body[2] == 0x01
	c.PowerWatts = float64(milliwatts) / 1000
	c.Voltage = body[6]
	c.CurrentAmperes = float64(milliamps) / 1000
	c.FrequencyHz = body[9]
	c.PowerFactor = PowerFactor(c.PowerWatts, c.Voltage, c.CurrentAmperes)
	return nil
}

// PowerFactor returns watts / (volts * amperes), or 0 when no current flows.
func PowerFactor(watts float64, volts uint8, amperes float64) float64 {
	if amperes <= 0 || volts == 0 {
		return 0
	}
	return watts / (float64(volts) * amperes)
}
