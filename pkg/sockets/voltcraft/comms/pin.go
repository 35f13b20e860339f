package comms

import "fmt"

// ParsePIN converts a four digit string such as "1234" into the PIN bytes sent by
// Authenticate. Each digit becomes one byte holding its numeric value.
func ParsePIN(s string) ([4]byte, error) {
	var pin [4]byte
	if len(s) != len(pin) {
		return pin, fmt.Errorf("pin must be %d digits, got %q", len(pin), s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return [4]byte{}, fmt.Errorf("pin must be %d digits, got %q", len(pin), s)
		}
		pin[i] = s[i] - '0'
	}
	return pin, nil
}
