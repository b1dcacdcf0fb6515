// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the float32 NCHW tensors feature pyramids are
// built from.
//
// # Overview
//
// A Tensor[B] pairs a RawTensor (shape plus float32 data) with the Backend
// that computes on it. All feature maps and parameters are float32; other
// checkpoint dtypes are converted when a checkpoint is read.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fpn/backend/cpu"
//	    "github.com/born-ml/fpn/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros(tensor.Shape{1, 3, 224, 224}, backend)
//	    y := tensor.Ones(tensor.Shape{1, 3, 224, 224}, backend)
//	    z := x.Add(y).ReLU()
//	}
//
// # Layout
//
// Image tensors are NCHW: batch, channels, height, width. Convolution
// kernels are [C_out, C_in, K_h, K_w].
package tensor
