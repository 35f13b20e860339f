package gosocket

import "tinygo.org/x/bluetooth"

// CoreBluetooth hides MAC addresses; devices are identified by a per-host UUID.
func parseAddress(id string) (bluetooth.Address, error) {
	uuid, err := bluetooth.ParseUUID(id)
	if err != nil {
		return bluetooth.Address{}, err
	}
	return bluetooth.Address{UUID: uuid}, nil
}
