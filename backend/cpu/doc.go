// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Im2col convolutions with the GEMM on gonum BLAS
//   - Padded max pooling and nearest-neighbour upsampling
//   - Per-channel affine and group normalization kernels
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fpn/backend/cpu"
//	    "github.com/born-ml/fpn/fpn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model, err := fpn.BuildFromConfig(fpn.DefaultConfig(), backend)
//	    ...
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Kernels split their batch and
// channel loops across goroutines and share no mutable state between calls.
package cpu
