package comms

import "fmt"

// DeviceInfo is the version block read from the device information characteristic.
type DeviceInfo struct {
	FirmwareMajor uint8
	FirmwareMinor uint8
	HardwareMajor uint8
	HardwareMinor uint8
}

func (d DeviceInfo) Firmware() string {
	return fmt.Sprintf("%d.%d", d.FirmwareMajor, d.FirmwareMinor)
}

func (d DeviceInfo) Hardware() string {
	return fmt.Sprintf("%d.%d", d.HardwareMajor, d.HardwareMinor)
}

// DecodeDeviceInfo decodes the raw device information characteristic. Versions live
// at bytes 11-14; the leading bytes are not interpreted.
func DecodeDeviceInfo(raw []byte) (DeviceInfo, error) {
	if len(raw) < 15 {
		return DeviceInfo{}, fmt.Errorf("%w: got %d bytes", ErrDeviceInfoTooShort, len(raw))
	}
	return DeviceInfo{
		FirmwareMajor: raw[11],
		FirmwareMinor: raw[12],
		HardwareMajor: raw[13],
		HardwareMinor: raw[14],
	}, nil
}
