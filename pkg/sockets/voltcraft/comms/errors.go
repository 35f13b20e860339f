package comms

import (
	"errors"
	"fmt"
)

var (
	// ErrFraming is the parent of every *FramingError.
	ErrFraming = errors.New("invalid frame")

	// ErrUnexpectedResponse indicates a well-formed frame whose body does not fit the
	// command that was sent.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrAuthenticationFailed indicates the socket rejected the PIN.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrBodyTooLong indicates a body that cannot be described by the one-byte length field.
	ErrBodyTooLong = errors.New("body too long")

	// ErrCommandReused indicates a command that already completed an exchange.
	ErrCommandReused = errors.New("command already used")

	// ErrDeviceInfoTooShort indicates the device information characteristic returned too few bytes.
	ErrDeviceInfoTooShort = errors.New("device info too short")
)

// FramingReason says which structural check a frame failed.
type FramingReason int

const (
	TooShort FramingReason = iota + 1
	BadStart
	BadTerminator
	LengthMismatch
	ChecksumMismatch
)

func (r FramingReason) String() string {
	switch r {
	case TooShort:
		return "too short"
	case BadStart:
		return "bad start marker"
	case BadTerminator:
		return "bad terminator"
	case LengthMismatch:
		return "length mismatch"
	case ChecksumMismatch:
		return "checksum mismatch"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// FramingError reports a raw buffer that is not a valid frame.
type FramingError struct {
	Reason FramingReason
	Frame  []byte
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("invalid frame: %s: % X", e.Reason, e.Frame)
}

// Unwrap lets callers test for any framing failure with errors.Is(err, ErrFraming).
func (e *FramingError) Unwrap() error {
	return ErrFraming
}

// Is matches another *FramingError carrying the same reason.
func (e *FramingError) Is(target error) bool {
	t, ok := target.(*FramingError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

func newFramingError(reason FramingReason, raw []byte) error {
	frame := make([]byte, len(raw))
	copy(frame, raw)
	return &FramingError{Reason: reason, Frame: frame}
}

// ResponseError reports a reply body that does not match the issued command.
type ResponseError struct {
	Command string
	Body    []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected response to %s: % X", e.Command, e.Body)
}

func (e *ResponseError) Unwrap() error {
	return ErrUnexpectedResponse
}

func newResponseError(command string, body []byte) error {
	b := make([]byte, len(body))
	copy(b, body)
	return &ResponseError{Command: command, Body: b}
}
