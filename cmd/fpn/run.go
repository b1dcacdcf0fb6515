package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/born-ml/fpn/internal/config"
	"github.com/born-ml/fpn/internal/fpn"
	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/internal/tensor"
)

// runModel builds the network on backend, loads weights, optionally
// exports them and times the forward passes.
func runModel[B tensor.Backend](o options, cfg *config.Config, backend B, log *slog.Logger) error {
	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	nn.SeedInit(seed)
	log = log.With("backend", backend.Name())

	start := time.Now()
	model, err := fpn.BuildFromConfig(cfg, backend)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	log.Info("built model",
		"parameters", len(model.Parameters()),
		"size_divisibility", model.SizeDivisibility(),
		"elapsed", time.Since(start))
	log.Debug("topology", "model", model.String())

	if err := loadWeights(cfg, model, log); err != nil {
		return err
	}

	if o.export != "" {
		if err := fpn.SaveCheckpoint[B](o.export, model, fpn.BackbonePrefix); err != nil {
			return err
		}
		log.Info("exported checkpoint", "path", o.export)
	}

	size := roundUp(o.size, model.SizeDivisibility())
	if size != o.size {
		log.Warn("input size rounded up", "requested", o.size, "size", size)
	}
	//nolint:gosec // Random input for smoke runs, not security-critical
	rng := rand.New(rand.NewSource(seed))
	x := tensor.RandnFrom(rng, tensor.Shape{o.batch, cfg.Backbone.InChannels, size, size}, backend)

	var total time.Duration
	for i := range o.iters {
		start := time.Now()
		out := model.Forward(x)
		elapsed := time.Since(start)
		total += elapsed

		log.Info("forward", "iter", i, "elapsed", elapsed)
		if i == 0 {
			for _, name := range out.Names() {
				log.Info("output", "feature", name, "shape", out.MustGet(name).Shape())
			}
		}
	}
	if o.iters > 0 {
		log.Info("done", "iters", o.iters, "mean", total/time.Duration(o.iters))
	}
	return nil
}

func loadWeights[B tensor.Backend](cfg *config.Config, model *fpn.FPN[B], log *slog.Logger) error {
	path := cfg.Weights.Checkpoint
	if path == "" {
		log.Info("no checkpoint configured, using initial weights")
		return nil
	}

	var (
		report *fpn.LoadReport
		err    error
	)
	if cfg.Weights.BackboneOnly {
		report, err = fpn.LoadBackboneCheckpoint(path, model.BottomUp())
	} else {
		report, err = fpn.LoadCheckpoint(path, model)
	}
	if err != nil {
		return err
	}

	attrs := []any{
		"path", report.Path,
		"status", report.Status,
		"matched", len(report.Matched),
		"missing", len(report.Missing),
		"unexpected", len(report.Unexpected),
		"shape_mismatched", len(report.ShapeMismatched),
	}
	switch {
	case report.Status == fpn.LoadSkipped:
		log.Warn("checkpoint not found, using initial weights", "path", path)
	case report.Success():
		log.Info("loaded checkpoint", attrs...)
	default:
		log.Warn("loaded checkpoint with mismatches", attrs...)
		for _, name := range report.ShapeMismatched {
			log.Debug("shape mismatch", "name", name)
		}
		for _, name := range report.Missing {
			log.Debug("missing", "name", name)
		}
		for _, name := range report.Unexpected {
			log.Debug("unexpected", "name", name)
		}
	}
	return nil
}

func roundUp(n, multiple int) int {
	return (n + multiple - 1) / multiple * multiple
}
