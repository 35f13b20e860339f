package main

import (
	"fmt"
	"io"

	"github.com/mlsorensen/gosocket"
	"gopkg.in/yaml.v3"
)

type printer struct {
	w    io.Writer
	yaml bool
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "", "text":
		return &printer{w: w}, nil
	case "yaml":
		return &printer{w: w, yaml: true}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func (p *printer) Reading(r gosocket.Reading) error {
	if p.yaml {
		return p.encode(r)
	}
	state := "off"
	if r.PoweredOn {
		state = "on"
	}
	_, err := fmt.Fprintf(p.w, "power %s: %.3f W, %d V, %.3f A, %d Hz, power factor %.2f\n",
		state, r.PowerWatts, r.Voltage, r.CurrentAmperes, r.FrequencyHz, r.PowerFactor)
	return err
}

func (p *printer) DeviceInfo(info gosocket.DeviceInfo) error {
	if p.yaml {
		return p.encode(info)
	}
	_, err := fmt.Fprintf(p.w, "firmware v%s, hardware v%s\n", info.Firmware, info.Hardware)
	return err
}

type deviceEntry struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
	RSSI int    `yaml:"rssi"`
}

func (p *printer) Devices(devices []gosocket.FoundDevice) error {
	if p.yaml {
		entries := make([]deviceEntry, 0, len(devices))
		for _, d := range devices {
			entries = append(entries, deviceEntry{Name: d.Name, ID: d.ID, RSSI: d.RSSI})
		}
		return p.encode(entries)
	}
	if len(devices) == 0 {
		_, err := fmt.Fprintln(p.w, "no supported devices found")
		return err
	}
	for i, d := range devices {
		if _, err := fmt.Fprintf(p.w, "%d: %s  %s  RSSI %d\n", i+1, d.Name, d.ID, d.RSSI); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) encode(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
