// Package comms provides the wire protocol for Voltcraft smart sockets: frame
// encoding and validation, the command catalog, and the GATT identifiers used to
// reach the device.
package comms

import "tinygo.org/x/bluetooth"

var (
	VoltcraftServiceUUID    = bluetooth.New16BitUUID(0xFFF0)
	VoltcraftDeviceInfoUUID = bluetooth.New16BitUUID(0xFFF1)
	VoltcraftCommandUUID    = bluetooth.New16BitUUID(0xFFF3)
	VoltcraftNotifyUUID     = bluetooth.New16BitUUID(0xFFF4)
)
