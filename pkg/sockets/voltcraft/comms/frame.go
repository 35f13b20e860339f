package comms

const (
	StartMarker byte = 0x0F
	EndMarker   byte = 0xFF

	// MinFrameLen is start, length, checksum and the two terminator bytes around an empty body.
	MinFrameLen = 5

	// MaxBodyLen is the largest body whose length (plus the checksum byte) fits the length field.
	MaxBodyLen = 254
)

// statusCode is the leading pair of bytes of a GetStatus request and its reply.
var statusCode = [2]byte{0x04, 0x00}

// Checksum returns (1 + sum(body)) mod 256.
func Checksum(body []byte) byte {
	sum := byte(0x01)
	for _, b := range body {
		sum += b
	}
	return sum
}

// Encode wraps body into a complete frame:
//
//	[0x0F][len(body)+1][body...][checksum][0xFF][0xFF]
func Encode(body []byte) ([]byte, error) {
	if len(body) > MaxBodyLen {
		return nil, ErrBodyTooLong
	}

	frame := make([]byte, 0, len(body)+MinFrameLen)
	frame = append(frame, StartMarker, byte(len(body)+1))
	frame = append(frame, body...)
	frame = append(frame, Checksum(body), EndMarker, EndMarker)
	return frame, nil
}

// Decode validates raw as a frame and returns its body. Checks run in a fixed order
// and the first one to fail determines the FramingReason. The returned body aliases raw.
func Decode(raw []byte) ([]byte, error) {
	if len(raw) < MinFrameLen {
		return nil, newFramingError(TooShort, raw)
	}
	if raw[0] != StartMarker {
		return nil, newFramingError(BadStart, raw)
	}
	if raw[len(raw)-2] != EndMarker || raw[len(raw)-1] != EndMarker {
		return nil, newFramingError(BadTerminator, raw)
	}
	if int(raw[1]) != len(raw)-4 {
		return nil, newFramingError(LengthMismatch, raw)
	}

	body := raw[2 : len(raw)-3]
	if raw[len(raw)-3] != Checksum(body) {
		return nil, newFramingError(ChecksumMismatch, raw)
	}
	return body, nil
}

// DecodeReply decodes a notification received from the socket. The firmware sends the
// GetStatus reply without its 0xFF 0xFF terminator; when the content starts with the
// status code and the buffer is exactly two bytes short of its declared length, the
// terminator is restored before decoding. Replies to other commands are decoded as is.
func DecodeReply(raw []byte) ([]byte, error) {
	if len(raw) < MinFrameLen {
		return nil, newFramingError(TooShort, raw)
	}
	if isTruncatedStatusReply(raw) {
		repaired := make([]byte, len(raw), len(raw)+2)
		copy(repaired, raw)
		raw = append(repaired, EndMarker, EndMarker)
	}
	return Decode(raw)
}

func isTruncatedStatusReply(raw []byte) bool {
	if len(raw) < 4 {
		return false
	}
	if raw[2] != statusCode[0] || raw[3] != statusCode[1] {
		return false
	}
	// start + length + declared (body + checksum), no terminator
	return len(raw) == int(raw[1])+2
}
