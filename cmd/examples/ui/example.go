package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	// This tells the Go compiler to include the package, which runs its init()
	// function. The init() function, in turn, calls gosocket.Register(). You can
	// specify specific sockets individually or just "all"
	_ "github.com/mlsorensen/gosocket/pkg/sockets/all"
)

func main() {
	a := app.New()
	w := a.NewWindow("Socket App")

	prefixes := []string{"Voltcraft"}
	if len(os.Args) > 1 {
		prefixes = os.Args[1:]
	}

	var dev *gosocket.FoundDevice
	if len(prefixes) == 1 && prefixes[0] == "MOCK" {
		dev = &gosocket.FoundDevice{Name: "MOCK-UI"}
	} else {
		var err error
		dev, err = gosocket.ScanForOne(10*time.Second, prefixes...)
		if err != nil {
			log.Fatal().Err(err).Msg("no socket found")
		}
	}
	mySocket, err := gosocket.NewSocketForDevice(dev)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create socket instance")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mySocket.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not connect to socket")
	}
	if err := mySocket.Authenticate(ctx, comms.DefaultPIN); err != nil {
		log.Fatal().Err(err).Msg("authentication failed")
	}

	displayNameLabel := widget.NewLabel(mySocket.DisplayName())
	statusLabel := widget.NewLabel("")
	powerCheck := widget.NewCheck("Power", func(on bool) {
		log.Info().Bool("on", on).Msg("switching relay")
		if err := mySocket.SetPower(ctx, on); err != nil {
			log.Error().Err(err).Msg("switching relay failed")
		}
	})

	var wg sync.WaitGroup
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
			a.Quit()
		case <-ctx.Done():
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			reading, err := mySocket.ReadStatus(ctx)
			if err == nil {
				fyne.Do(func() {
					statusLabel.SetText(fmt.Sprintf("%.1f W  %d V  %.3f A  %d Hz",
						reading.PowerWatts, reading.Voltage, reading.CurrentAmperes, reading.FrequencyHz))
					if powerCheck.Checked != reading.PoweredOn {
						powerCheck.Checked = reading.PoweredOn
						powerCheck.Refresh()
					}
				})
			} else if ctx.Err() == nil {
				log.Error().Err(err).Msg("reading status failed")
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	w.SetContent(container.NewVBox(
		displayNameLabel,
		statusLabel,
		powerCheck,
	))
	w.ShowAndRun()

	cancel()
	wg.Wait()
	if err := mySocket.Disconnect(); err != nil {
		log.Error().Err(err).Msg("error disconnecting from socket")
	}
}
