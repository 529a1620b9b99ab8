package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bnema/waycomp/internal/backend/drm"
	"github.com/bnema/waycomp/internal/backend/evdev"
	"github.com/bnema/waycomp/internal/config"
	"github.com/bnema/waycomp/internal/ui"
	"github.com/spf13/cobra"
)

// DevicesInfo is the --json output of the devices command
type DevicesInfo struct {
	Inputs  []InputInfo  `json:"inputs"`
	Outputs []OutputInfo `json:"outputs"`
	Errors  []string     `json:"errors,omitempty"`
}

// InputInfo describes an event node
type InputInfo struct {
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Type    string `json:"type,omitempty"`
	Vendor  uint16 `json:"vendor,omitempty"`
	Product uint16 `json:"product,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OutputInfo describes a DRM connector
type OutputInfo struct {
	Card      int      `json:"card"`
	Name      string   `json:"name"`
	Connected bool     `json:"connected"`
	Make      string   `json:"make,omitempty"`
	Model     string   `json:"model,omitempty"`
	WidthMM   int32    `json:"width_mm,omitempty"`
	HeightMM  int32    `json:"height_mm,omitempty"`
	Modes     []string `json:"modes,omitempty"`
}

var devicesJSON bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List input devices and display connectors",
	Long: `Probe the event nodes and DRM connectors the compositor backends would
use and show how they are classified.`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(devicesCmd)
}

func collectDevices(cfg config.BackendConfig) DevicesInfo {
	var info DevicesInfo

	probes, err := evdev.Probe(cfg.InputDir)
	if err != nil {
		info.Errors = append(info.Errors, err.Error())
	}
	for _, p := range probes {
		in := InputInfo{Path: p.Path, Name: p.Name, Vendor: p.Vendor, Product: p.Product}
		switch {
		case p.Err != nil:
			in.Error = p.Err.Error()
		case p.Usable:
			in.Type = p.Type.String()
		default:
			in.Type = "unsupported"
		}
		info.Inputs = append(info.Inputs, in)
	}

	connectors, err := drm.Probe(cfg.DRMDir)
	if err != nil {
		info.Errors = append(info.Errors, err.Error())
	}
	for _, c := range connectors {
		out := OutputInfo{
			Card:      c.Card,
			Name:      c.Name,
			Connected: c.Connected,
			Make:      c.Make,
			Model:     c.Model,
			WidthMM:   c.WidthMM,
			HeightMM:  c.HeightMM,
		}
		for _, m := range c.Modes {
			out.Modes = append(out.Modes, m.String())
		}
		info.Outputs = append(info.Outputs, out)
	}
	return info
}

func runDevices(cmd *cobra.Command, args []string) error {
	info := collectDevices(config.Get().Backend)
	w := cmd.OutOrStdout()

	if devicesJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintln(w, ui.FormatHeader("Input devices", config.Get().Backend.InputDir))
	if len(info.Inputs) == 0 {
		fmt.Fprintln(w, ui.SubtleStyle.Render("No event devices found"))
	} else {
		rows := make([][]string, 0, len(info.Inputs))
		for _, in := range info.Inputs {
			typ := in.Type
			if in.Error != "" {
				typ = ui.ErrorStyle.Render(in.Error)
			}
			rows = append(rows, []string{in.Path, in.Name, typ, fmt.Sprintf("%04x:%04x", in.Vendor, in.Product)})
		}
		fmt.Fprintln(w, ui.Table([]string{"PATH", "NAME", "TYPE", "ID"}, rows))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.FormatHeader("Display connectors", config.Get().Backend.DRMDir))
	if len(info.Outputs) == 0 {
		fmt.Fprintln(w, ui.SubtleStyle.Render("No connectors found"))
	} else {
		rows := make([][]string, 0, len(info.Outputs))
		for _, out := range info.Outputs {
			status := ui.FormatStatus(out.Connected, "disconnected")
			monitor, size, modes := "-", "-", "-"
			if out.Connected {
				status = ui.FormatStatus(true, "connected")
				if out.Make != "" {
					monitor = out.Make + " " + out.Model
					size = fmt.Sprintf("%dx%d mm", out.WidthMM, out.HeightMM)
				}
				if len(out.Modes) > 0 {
					modes = strings.Join(out.Modes, ", ")
				}
			}
			rows = append(rows, []string{fmt.Sprintf("card%d-%s", out.Card, out.Name), status, monitor, size, modes})
		}
		fmt.Fprintln(w, ui.Table([]string{"CONNECTOR", "STATUS", "MONITOR", "SIZE", "MODES"}, rows))
	}

	for _, e := range info.Errors {
		fmt.Fprintln(w, ui.WarningStyle.Render("! "+e))
	}
	return nil
}
