// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/fpn/internal/backend/cpu"
	"github.com/born-ml/fpn/internal/parallel"
	"github.com/born-ml/fpn/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend that uses every core.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{1, 3, 64, 64}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend limited to workers goroutines per
// kernel. workers <= 1 runs every kernel sequentially.
func NewWithWorkers(workers int) *Backend {
	cfg := parallel.Default()
	cfg.Workers = workers
	return internalcpu.NewWithConfig(cfg)
}
