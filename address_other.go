//go:build !linux && !darwin

package gosocket

import (
	"errors"

	"tinygo.org/x/bluetooth"
)

func parseAddress(id string) (bluetooth.Address, error) {
	return bluetooth.Address{}, errors.New("connecting by address is not supported on this platform, scan instead")
}
