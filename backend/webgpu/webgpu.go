//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated feature
// pyramids.
//
// Convolution, pooling, upsampling and element-wise ops run as WGSL compute
// shaders; normalization runs on the host.
//
// Example:
//
//	import (
//	    "github.com/born-ml/fpn/backend/cpu"
//	    "github.com/born-ml/fpn/backend/webgpu"
//	    "github.com/born-ml/fpn/fpn"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    model, err := fpn.BuildFromConfig(fpn.DefaultConfig(), gpu)
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/fpn/internal/backend/webgpu"
	"github.com/born-ml/fpn/tensor"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// Call Release() when done to free GPU resources. Returns an error if
// WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// Example:
//
//	if webgpu.IsAvailable() {
//	    gpu, _ := webgpu.New()
//	    model, _ = fpn.BuildFromConfig(cfg, gpu)
//	} else {
//	    model, _ = fpn.BuildFromConfig(cfg, cpu.New())
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
