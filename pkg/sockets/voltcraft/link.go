package voltcraft

import (
	"context"
	"errors"
	"fmt"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"
)

// Link is a connected socket: the command transport plus the device information
// characteristic and the connection itself.
type Link interface {
	Transport

	// ReadDeviceInfo returns the raw device information characteristic.
	ReadDeviceInfo() ([]byte, error)

	Close() error
}

// Dialer opens a Link to one socket.
type Dialer func(ctx context.Context) (Link, error)

// bleLink is a Link over a GATT connection.
type bleLink struct {
	btDevice   bluetooth.Device
	infoChar   bluetooth.DeviceCharacteristic
	writeChar  bluetooth.DeviceCharacteristic
	notifyChar bluetooth.DeviceCharacteristic
}

var _ Link = (*bleLink)(nil)

// DialBLE returns a Dialer that connects to address through gosocket.BTAdapter.
func DialBLE(address bluetooth.Address) Dialer {
	return func(ctx context.Context) (Link, error) {
		if err := gosocket.TryEnableAdapter(); err != nil {
			return nil, fmt.Errorf("enable adapter: %w", err)
		}

		type result struct {
			device bluetooth.Device
			err    error
		}
		done := make(chan result, 1)
		go func() {
			device, err := gosocket.BTAdapter.Connect(address, bluetooth.ConnectionParams{})
			done <- result{device: device, err: err}
		}()

		var device bluetooth.Device
		select {
		case r := <-done:
			if r.err != nil {
				return nil, r.err
			}
			device = r.device
		case <-ctx.Done():
			// the connect attempt cannot be aborted, drop the link once it lands
			go func() {
				if r := <-done; r.err == nil {
					_ = r.device.Disconnect()
				}
			}()
			return nil, ctx.Err()
		}

		link := &bleLink{btDevice: device}
		if err := link.setupCharacteristics(); err != nil {
			_ = device.Disconnect()
			return nil, err
		}
		return link, nil
	}
}

func (l *bleLink) setupCharacteristics() error {
	log.Debug().Msg("discovering services")
	services, err := l.btDevice.DiscoverServices([]bluetooth.UUID{comms.VoltcraftServiceUUID})
	if err != nil {
		return fmt.Errorf("could not discover services: %w", err)
	}

	if len(services) == 0 {
		return errors.New("could not find the Voltcraft BT service")
	}

	wanted := []bluetooth.UUID{
		comms.VoltcraftDeviceInfoUUID,
		comms.VoltcraftCommandUUID,
		comms.VoltcraftNotifyUUID,
	}
	for _, service := range services {
		log.Debug().Str("service", service.UUID().String()).Msg("scanning for characteristics")
		chars, err := service.DiscoverCharacteristics(wanted)
		if err != nil {
			return fmt.Errorf("could not discover characteristics: %w", err)
		}
		if len(chars) != len(wanted) {
			return fmt.Errorf("could not discover characteristics: found %d of %d", len(chars), len(wanted))
		}

		for _, char := range chars {
			switch char.UUID() {
			case comms.VoltcraftDeviceInfoUUID:
				l.infoChar = char
			case comms.VoltcraftCommandUUID:
				l.writeChar = char
			case comms.VoltcraftNotifyUUID:
				l.notifyChar = char
			}
		}
	}

	log.Debug().Msg("successfully set up characteristics")
	return nil
}

func (l *bleLink) Write(frame []byte) error {
	_, err := l.writeChar.WriteWithoutResponse(frame)
	return err
}

func (l *bleLink) Subscribe(onNotify func(buf []byte)) error {
	if err := l.notifyChar.EnableNotifications(onNotify); err != nil {
		return fmt.Errorf("failed to enable notifications: %w", err)
	}
	return nil
}

func (l *bleLink) ReadDeviceInfo() ([]byte, error) {
	buf := make([]byte, 64)
	n, err := l.infoChar.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (l *bleLink) Close() error {
	return l.btDevice.Disconnect()
}
