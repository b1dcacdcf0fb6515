// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers feature pyramids and their backbones are
// built from.
//
// # Overview
//
// This package contains:
//   - Layers: Conv2D (with an optional attached norm), MaxPool2D
//   - Normalization: FrozenBatchNorm2D, GroupNorm
//   - Utilities: Module, Layer, Parameter, StateDict, LoadStateDict
//   - Initialization: C2XavierFill, MSRAFill, SeedInit
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fpn/backend/cpu"
//	    "github.com/born-ml/fpn/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    norm, _ := nn.NewNorm(nn.NormGN, 64, backend)
//	    conv := nn.NewConv2D(3, 64, 3, 3, 1, 1, false, backend).WithNorm(norm)
//	    y := conv.Forward(x)
//	}
//
// # Parameter Names
//
// Parameters carry dotted names ("weight", "norm.running_var"). Composite
// modules prefix the names of their children, so StateDict keys match the
// keys of detectron2-style checkpoints.
package nn
