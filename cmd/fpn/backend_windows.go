//go:build windows

package main

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/fpn/internal/backend/cpu"
	"github.com/born-ml/fpn/internal/backend/webgpu"
	"github.com/born-ml/fpn/internal/config"
)

func runOnBackend(o options, cfg *config.Config, log *slog.Logger) error {
	switch o.backend {
	case "cpu":
		return runModel(o, cfg, cpu.New(), log)
	case "webgpu":
		backend, err := webgpu.New()
		if err != nil {
			return fmt.Errorf("webgpu: %w", err)
		}
		defer backend.Release()
		return runModel(o, cfg, backend, log)
	default:
		return fmt.Errorf("unknown backend %q (want cpu or webgpu)", o.backend)
	}
}
