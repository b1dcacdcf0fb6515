//go:build !windows

package main

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/fpn/internal/backend/cpu"
	"github.com/born-ml/fpn/internal/config"
)

func runOnBackend(o options, cfg *config.Config, log *slog.Logger) error {
	switch o.backend {
	case "cpu":
		return runModel(o, cfg, cpu.New(), log)
	case "webgpu":
		return fmt.Errorf("backend %q is only available on windows", o.backend)
	default:
		return fmt.Errorf("unknown backend %q (want cpu or webgpu)", o.backend)
	}
}
