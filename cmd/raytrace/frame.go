// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"image/png"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/gviegas/raytrace/engine"
)

// frame renders a single frame offscreen and writes it
// to a PNG file.
func frame(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	drv, gpu, err := engine.Open(cfg.Driver, nil)
	if err != nil {
		return err
	}
	defer drv.Close()

	start := time.Now()
	r, err := engine.NewOffscreen(gpu, loadScene(ctx), cfg)
	if err != nil {
		return err
	}
	defer r.Close()
	logger.Infof("setup took %v", time.Since(start))

	start = time.Now()
	if err := r.Render(); err != nil {
		return err
	}
	img, err := r.Snapshot()
	if err != nil {
		return err
	}
	logger.Infof("frame took %v", time.Since(start))

	out := ctx.String("out")
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", out)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	logger.Noticef("frame written to %s (%dx%d)", out, cfg.Width, cfg.Height)
	return nil
}
