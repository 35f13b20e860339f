package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/internal/config"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/rs/zerolog/log"
)

var errUnknownCommand = errors.New("unknown command")

type controller struct {
	socket  gosocket.Socket
	printer *printer
	cfg     config.Config
}

func (c *controller) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "on":
		return c.socket.SetPower(ctx, true)
	case "off":
		return c.socket.SetPower(ctx, false)
	case "status":
		reading, err := c.socket.ReadStatus(ctx)
		if err != nil {
			return err
		}
		return c.printer.Reading(reading)
	case "info":
		info, err := c.socket.DeviceInfo(ctx)
		if err != nil {
			return err
		}
		return c.printer.DeviceInfo(info)
	case "auth":
		if len(args) != 1 {
			return fmt.Errorf("auth needs a four digit pin")
		}
		pin, err := comms.ParsePIN(args[0])
		if err != nil {
			return err
		}
		return c.socket.Authenticate(ctx, pin)
	case "watch":
		return c.watch(ctx)
	default:
		return fmt.Errorf("%w: %q", errUnknownCommand, command)
	}
}

// watch polls the status until ctx ends. A failed poll is logged and retried on the
// next tick.
func (c *controller) watch(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.WatchInterval)
	defer ticker.Stop()

	for {
		reading, err := c.socket.ReadStatus(ctx)
		switch {
		case err == nil:
			if err := c.printer.Reading(reading); err != nil {
				return err
			}
		case ctx.Err() != nil:
			return nil
		default:
			log.Warn().Err(err).Msg("status poll failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
