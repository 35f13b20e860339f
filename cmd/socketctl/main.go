package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mlsorensen/gosocket"
	"github.com/mlsorensen/gosocket/internal/config"
	"github.com/mlsorensen/gosocket/internal/observability"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	_ "github.com/mlsorensen/gosocket/pkg/sockets/all"
)

const usage = `usage: socketctl [flags] <command>

commands:
  scan      list nearby sockets
  on        switch the relay on
  off       switch the relay off
  status    print power measurements
  info      print firmware and hardware versions
  watch     print status every watch.interval until interrupted
  shell     interactive session

flags:
`

type options struct {
	configPath  string
	mock        bool
	output      string
	metricsAddr string
	logLevel    string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	flag.BoolVar(&opts.mock, "mock", false, "Use the simulated socket instead of Bluetooth")
	flag.StringVar(&opts.output, "o", "text", "Output format: text, yaml")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts, flag.Arg(0)); err != nil {
		log.Error().Err(err).Msg("socketctl failed")
		os.Exit(1)
	}
}

func run(opts options, command string) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.MetricsListen = opts.metricsAddr
	}
	if opts.mock {
		cfg.DeviceName = "MOCK-socketctl"
		cfg.Address = ""
	}

	observability.InitLogger("socketctl", cfg.LogLevel)

	printer, err := newPrinter(os.Stdout, opts.output)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsListen != "" {
		serveMetrics(cfg.MetricsListen)
	}

	if command == "scan" {
		devices, err := gosocket.Scan(cfg.ScanDuration)
		if err != nil {
			return err
		}
		return printer.Devices(devices)
	}

	socket, err := openSocket(ctx, cfg, opts.mock)
	if err != nil {
		return err
	}
	defer func() {
		if err := socket.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("disconnect failed")
		}
	}()

	if err := socket.Authenticate(ctx, cfg.PIN); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	c := &controller{socket: socket, printer: printer, cfg: cfg}
	if command == "shell" {
		return c.shell(ctx)
	}
	return c.run(ctx, command, nil)
}

// openSocket resolves the device from the configuration and connects to it.
func openSocket(ctx context.Context, cfg config.Config, mock bool) (gosocket.Socket, error) {
	var (
		device *gosocket.FoundDevice
		err    error
	)
	switch {
	case mock:
		device = &gosocket.FoundDevice{Name: cfg.DeviceName}
	case cfg.Address != "":
		device, err = gosocket.DeviceFromAddress(cfg.DeviceName, cfg.Address)
	default:
		log.Info().Str("prefix", cfg.DeviceName).Dur("duration", cfg.ScanDuration).Msg("scanning")
		device, err = gosocket.ScanForOne(cfg.ScanDuration, cfg.DeviceName)
	}
	if err != nil {
		return nil, err
	}

	socket, err := gosocket.NewSocketForDevice(device)
	if err != nil {
		return nil, err
	}
	if vs, ok := socket.(*voltcraft.VoltcraftSocket); ok {
		vs.SetSessionOptions(voltcraft.WithTimeout(cfg.Timeout))
	}

	if err := socket.Connect(ctx); err != nil {
		return nil, err
	}
	return socket, nil
}

func serveMetrics(addr string) {
	observability.RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}
