// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package fpn provides Feature Pyramid Networks over convolutional
// backbones.
//
// # Overview
//
// An FPN takes the multi-scale outputs of a bottom-up backbone (such as
// ResNet's res2..res5, strides 4..32) and produces a pyramid p2..p5 with the
// same channel count at every level:
//
//   - a 1x1 lateral convolution projects each input level
//   - a top-down path upsamples the coarser result by 2 and fuses it with
//     the lateral map (sum or average)
//   - a 3x3 output convolution smooths each fused map
//   - an optional top block adds coarser levels (p6, or p6 and p7)
//
// The raw res2 backbone feature is passed through next to the pyramid.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fpn/backend/cpu"
//	    "github.com/born-ml/fpn/fpn"
//	    "github.com/born-ml/fpn/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model, err := fpn.BuildFromConfig(fpn.DefaultConfig(), backend)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    report, err := fpn.LoadCheckpoint("model_final.safetensors", model)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Println(report)
//
//	    x := tensor.Randn(tensor.Shape{1, 3, 800, 1216}, backend)
//	    features := model.Forward(x) // p2..p6 plus res2
//	}
//
// # Input Size
//
// Input height and width must be multiples of SizeDivisibility() (the
// stride of the coarsest input level). Otherwise the top-down fusion
// panics on a shape mismatch.
//
// # Checkpoints
//
// Checkpoints are SafeTensors files whose tensors are named
// "model.<dotted key>". Full detection-model keys carry a "backbone."
// prefix, which LoadCheckpoint strips. Mismatched names and shapes are
// reported in a LoadReport, never as errors.
package fpn
