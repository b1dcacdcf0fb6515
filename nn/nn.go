// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/tensor"
)

// Module is anything that owns parameters.
type Module[B tensor.Backend] = nn.Module[B]

// Layer is a Module with a single-tensor forward pass.
type Layer[B tensor.Backend] = nn.Layer[B]

// Layers

// Conv2D represents a 2D convolutional layer.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a new 2D convolutional layer with MSRA-initialized
// weights.
//
// Example:
//
//	backend := cpu.New()
//	conv := nn.NewConv2D(256, 256, 3, 3, 1, 1, true, backend)  // in=256, out=256, kernel=3x3, stride=1, padding=1, useBias=true
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, useBias, backend)
}

// MaxPool2D represents a 2D max pooling layer.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a new 2D max pooling layer.
//
// Example:
//
//	pool := nn.NewMaxPool2D(3, 2, 1, backend)  // kernel=3, stride=2, padding=1
func NewMaxPool2D[B tensor.Backend](kernelSize, stride, padding int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, padding, backend)
}

// Normalization

// ErrInvalidNorm is returned for an unknown normalization kind or an
// unsupported channel count.
var ErrInvalidNorm = nn.ErrInvalidNorm

// Normalization kinds.
const (
	NormNone     = nn.NormNone
	NormBN       = nn.NormBN
	NormFrozenBN = nn.NormFrozenBN
	NormGN       = nn.NormGN
)

// FrozenBatchNorm2D is batch normalization with fixed statistics.
type FrozenBatchNorm2D[B tensor.Backend] = nn.FrozenBatchNorm2D[B]

// NewFrozenBatchNorm2D creates an identity FrozenBatchNorm2D.
func NewFrozenBatchNorm2D[B tensor.Backend](channels int, backend B) *FrozenBatchNorm2D[B] {
	return nn.NewFrozenBatchNorm2D(channels, backend)
}

// GroupNorm normalizes groups of channels.
type GroupNorm[B tensor.Backend] = nn.GroupNorm[B]

// NewGroupNorm creates a GroupNorm with unit weight and zero bias.
func NewGroupNorm[B tensor.Backend](groups, channels int, backend B) *GroupNorm[B] {
	return nn.NewGroupNorm(groups, channels, backend)
}

// NewNorm creates the normalization named by kind, or nil for NormNone.
// "BN" creates a FrozenBatchNorm2D.
func NewNorm[B tensor.Backend](kind string, channels int, backend B) (Layer[B], error) {
	return nn.NewNorm(kind, channels, backend)
}

// Initialization

// C2XavierFill returns a tensor drawn from U(-sqrt(3/fanIn), sqrt(3/fanIn)).
func C2XavierFill[B tensor.Backend](fanIn int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return nn.C2XavierFill(fanIn, shape, backend)
}

// MSRAFill returns a tensor drawn from N(0, 2/fanOut).
func MSRAFill[B tensor.Backend](fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return nn.MSRAFill(fanOut, shape, backend)
}

// SeedInit reseeds weight initialization.
func SeedInit(seed int64) {
	nn.SeedInit(seed)
}

// State dicts

// LoadResult describes how a state dict matched a module.
type LoadResult = nn.LoadResult

// StateDict returns the parameters of m by dotted name. Tensors are shared.
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	return nn.StateDict(m)
}

// LoadStateDict copies matching entries of sd into m.
func LoadStateDict[B tensor.Backend](m Module[B], sd map[string]*tensor.RawTensor) LoadResult {
	return nn.LoadStateDict(m, sd)
}
