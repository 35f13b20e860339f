package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/internal/observability"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/rs/zerolog/log"

	// This tells the Go compiler to include the package, which runs its init()
	// function. The init() function, in turn, calls gosocket.Register(). You can
	// specify specific sockets individually or just "all"
	_ "github.com/mlsorensen/gosocket/pkg/sockets/all"
)

func main() {
	observability.InitLogger("mocksocket", "debug")
	log.Info().Msg("GoSocket mock application starting")

	// To use the mock, we need to request a device name that matches the prefix
	// it was registered with ("MOCK"). In a real program, we would scan for bluetooth
	// sockets and then use the found device to create a new Socket
	device := &gosocket.FoundDevice{Name: "MOCK-Development-Socket"}

	socket, err := gosocket.NewSocketForDevice(device)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create socket instance")
	}
	log.Info().Str("socket", socket.DisplayName()).Msg("created socket instance")

	// --- Set up graceful shutdown ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := socket.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not connect to socket")
	}
	defer func() {
		if err := socket.Disconnect(); err != nil {
			log.Error().Err(err).Msg("disconnect failed")
		}
	}()

	// The firmware ignores the relay until the PIN has been accepted.
	if err := socket.Authenticate(ctx, comms.DefaultPIN); err != nil {
		log.Error().Err(err).Msg("authentication failed")
		return
	}

	info, err := socket.DeviceInfo(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reading device info failed")
	} else {
		log.Info().Str("firmware", info.Firmware).Str("hardware", info.Hardware).Msg("device info")
	}

	// --- Main application loop ---
	// Toggle the relay and report the load until interrupted.
	on := true
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		log.Info().Bool("on", on).Msg("--> switching relay")
		if err := socket.SetPower(ctx, on); err != nil {
			log.Error().Err(err).Msg("switching relay failed")
		}

		reading, err := socket.ReadStatus(ctx)
		if err != nil {
			log.Error().Err(err).Msg("reading status failed")
		} else {
			log.Info().
				Bool("powered_on", reading.PoweredOn).
				Float64("watts", reading.PowerWatts).
				Uint8("volts", reading.Voltage).
				Float64("amperes", reading.CurrentAmperes).
				Float64("power_factor", reading.PowerFactor).
				Msg("status")
		}
		on = !on

		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, disconnecting")
			return
		case <-ticker.C:
		}
	}
}
