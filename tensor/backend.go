// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/fpn/internal/tensor"
)

// Backend is the compute interface tensors delegate to.
//
// Implementations:
//   - backend/cpu: pure Go, im2col convolution on gonum BLAS
//   - backend/webgpu: WGSL compute shaders (Windows builds)
type Backend = tensor.Backend
