package main

import (
	"errors"
	"flag"
	"fmt"

	"genfill/core"
	"genfill/imagegen"

	"github.com/fatih/color"
)

func newFlagSet(a *app, name, positional string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(a.errOut, "Usage: genfill %s [flags] %s\n\nFlags:\n", name, positional)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags returns ok=false with the exit code to use when parsing stops the command.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return core.ExitCodeSuccess, false
		}
		return core.ExitCodeUsage, false
	}
	return core.ExitCodeSuccess, true
}

// usageError prints msg and the command usage, and returns the usage exit code.
func usageError(a *app, fs *flag.FlagSet, msg string) int {
	color.New(color.FgRed).Fprintf(a.errOut, "%s\n\n", msg)
	fs.Usage()
	return core.ExitCodeUsage
}

// bindSettings registers the generation settings flags. Zero values leave the
// per-mode defaults to the task normalizer.
func bindSettings(fs *flag.FlagSet) *imagegen.SettingsInput {
	s := &imagegen.SettingsInput{}
	fs.StringVar(&s.Size, "size", string(core.ImageSizeAuto), "output size: Auto, 1K, 2K or 4K")
	fs.Float64Var(&s.Count, "count", 0, "number of images to request, 1-5 (default 1)")
	fs.Float64Var(&s.TimeoutSeconds, "timeout", 0, "per-request timeout in seconds (default depends on the mode)")
	fs.Float64Var(&s.AntiTruncationMode, "anti", 0, "anti-truncation mode: 0 off, 1 hue rotation, 2 hue rotation and flip")
	fs.StringVar(&s.LayerType, "layer", string(core.LayerRasterized), "placed layer type: rasterized or smartObject")
	fs.Float64Var(&s.MaxResolution, "max-res", 0, "longest side of the captured input, 512-4096 (default 1536)")
	return s
}
