// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Command raytrace renders a static scene using hardware
// ray tracing.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	_ "github.com/gviegas/raytrace/driver/vk"
)

func main() {
	app := cli.NewApp()
	app.Name = "raytrace"
	app.Usage = "render a static scene using hardware ray tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set the log level (debug, info, notice, warning, error)",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from a TOML file",
		},
	}
	app.Before = setupLogging
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "render interactively in a window",
			Description: `
Open a window and render the demo scene in real time.

Controls:
  W/A/S/D  move forward/left/backward/right
  Q/E      move down/up
  mouse    look around
  1        toggle soft shadows
  2        toggle reflections
  3        toggle refraction
  4        toggle subsurface scattering
  Esc      quit`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Usage: "initial window width (overrides config)",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "initial window height (overrides config)",
				},
				cli.BoolFlag{
					Name:  "cube",
					Usage: "render a single cube instead of the demo scene",
				},
			},
			Action: run,
		},
		{
			Name:  "frame",
			Usage: "render a single frame offscreen and save it as PNG",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "frame width (overrides config)",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "frame height (overrides config)",
				},
				cli.BoolFlag{
					Name:  "cube",
					Usage: "render a single cube instead of the demo scene",
				},
			},
			Action: frame,
		},
		{
			Name:   "devices",
			Usage:  "list available devices and their suitability",
			Action: devices,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "raytrace:", err)
		if h := hint(err); h != "" {
			fmt.Fprintln(os.Stderr, h)
		}
		os.Exit(1)
	}
}
