// Package main provides the fpn command: it builds a feature pyramid
// network from a YAML configuration, loads weights and runs forward passes
// on random input.
//
// Usage:
//
//	fpn [flags]
//	fpn version
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/born-ml/fpn/internal/config"
)

const version = "v0.1.0"

// options holds the command-line flags.
type options struct {
	configPath   string
	checkpoint   string
	backboneOnly bool
	backend      string
	iters        int
	size         int
	batch        int
	export       string
	seed         int64
	verbose      bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("fpn %s\n", version)
		return
	}

	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fpn: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("fpn", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file (default: ResNet-50-FPN)")
	fs.StringVar(&o.checkpoint, "checkpoint", "", "checkpoint to load, overrides weights.checkpoint")
	fs.BoolVar(&o.backboneOnly, "backbone-only", false, "load the checkpoint into the backbone only")
	fs.StringVar(&o.backend, "backend", "cpu", "compute backend: cpu or webgpu")
	fs.IntVar(&o.iters, "iters", 3, "number of forward passes")
	fs.IntVar(&o.size, "size", 224, "input height and width, rounded up to the size divisibility")
	fs.IntVar(&o.batch, "batch", 1, "batch size")
	fs.StringVar(&o.export, "export", "", "write the model parameters to this checkpoint after loading")
	fs.Int64Var(&o.seed, "seed", 0, "seed for weight init and input (0: random)")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.iters < 0 || o.size <= 0 || o.batch <= 0 {
		return o, fmt.Errorf("iters must be >= 0, size and batch > 0 (got %d, %d, %d)", o.iters, o.size, o.batch)
	}
	return o, nil
}

// loadConfig reads the configuration and overlays the flags on it.
func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.checkpoint != "" {
		cfg.Weights.Checkpoint = o.checkpoint
	}
	if o.backboneOnly {
		cfg.Weights.BackboneOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With("run_id", uuid.NewString())
}

func run(args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	log := newLogger(stderr, o.verbose)

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	log.Info("configuration",
		"depth", cfg.Backbone.Depth,
		"in_features", cfg.FPN.InFeatures,
		"out_channels", cfg.FPN.OutChannels,
		"fuse_type", cfg.FPN.FuseType,
		"top_block", cfg.FPN.TopBlock)

	return runOnBackend(o, cfg, log)
}
