// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/driver/vk"
)

// devices lists the available devices and how they score
// for headless ray tracing.
func devices(ctx *cli.Context) error {
	devs, err := vk.Devices()
	if err != nil {
		return err
	}
	fmt.Print(deviceTable(devs, vk.Required(false)))
	return nil
}

// deviceTable renders a table describing devs.
// The selected device, if any, is marked with an asterisk.
func deviceTable(devs []driver.DeviceInfo, required []string) string {
	sel, _, err := driver.SelectDevice(devs, required)
	if err != nil {
		sel = -1
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Device", "Type", "API", "Local memory", "Missing extensions", "Score"})
	for i := range devs {
		d := &devs[i]
		idx := fmt.Sprintf("%d", i)
		if i == sel {
			idx += "*"
		}
		miss := strings.Join(d.Missing(required), "\n")
		if d.Queue < 0 {
			if miss != "" {
				miss += "\n"
			}
			miss += "(no graphics+compute queue)"
		}
		if miss == "" {
			miss = "-"
		}
		table.Append([]string{
			idx,
			d.Name,
			d.Type.String(),
			fmt.Sprintf("%d.%d.%d", d.Version[0], d.Version[1], d.Version[2]),
			fmt.Sprintf("%.1f GiB", float64(d.LocalMemory)/(1<<30)),
			miss,
			fmt.Sprintf("%d", driver.ScoreDevice(d, required)),
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "DEVICES", fmt.Sprintf("%d", len(devs))})
	table.Render()
	return buf.String()
}
