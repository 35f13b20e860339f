package gosocket

import "tinygo.org/x/bluetooth"

func parseAddress(id string) (bluetooth.Address, error) {
	mac, err := bluetooth.ParseMAC(id)
	if err != nil {
		return bluetooth.Address{}, err
	}
	return bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, nil
}
