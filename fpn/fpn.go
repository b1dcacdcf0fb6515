// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fpn

import (
	"github.com/born-ml/fpn/internal/backbone"
	internalfpn "github.com/born-ml/fpn/internal/fpn"
	"github.com/born-ml/fpn/tensor"
)

// FPN is a Feature Pyramid Network over a bottom-up backbone.
type FPN[B tensor.Backend] = internalfpn.FPN[B]

// Config configures an FPN built with New.
type Config = internalfpn.Config

// RawFeatureName is the backbone feature passed through unfused.
const RawFeatureName = internalfpn.RawFeatureName

// Fusion modes.
const (
	FuseSum = internalfpn.FuseSum
	FuseAvg = internalfpn.FuseAvg
)

// Construction errors. Check with errors.Is.
var (
	ErrNonContiguousStrides = internalfpn.ErrNonContiguousStrides
	ErrInvalidFuseType      = internalfpn.ErrInvalidFuseType
	ErrInvalidNorm          = internalfpn.ErrInvalidNorm
	ErrUnknownFeature       = internalfpn.ErrUnknownFeature
	ErrInvalidConfig        = internalfpn.ErrInvalidConfig
)

// New builds an FPN on bottomUp. topBlock may be nil.
//
// Example:
//
//	resnet, _ := fpn.NewResNet(fpn.DefaultResNetConfig(50), backend)
//	model, err := fpn.New[*cpu.Backend](resnet, fpn.Config{
//	    InFeatures:  []string{"res2", "res3", "res4", "res5"},
//	    OutChannels: 256,
//	    FuseType:    fpn.FuseSum,
//	}, fpn.NewLastLevelMaxPool("", backend), backend)
func New[B tensor.Backend](bottomUp Backbone[B], cfg Config, topBlock TopBlock[B], backend B) (*FPN[B], error) {
	return internalfpn.New[B](bottomUp, cfg, topBlock, backend)
}

// Top blocks

// TopBlock extends the pyramid past the coarsest input level.
type TopBlock[B tensor.Backend] = internalfpn.TopBlock[B]

// LastLevelMaxPool adds p6 by subsampling p5.
type LastLevelMaxPool[B tensor.Backend] = internalfpn.LastLevelMaxPool[B]

// NewLastLevelMaxPool creates a LastLevelMaxPool reading inFeature
// ("" for the last pyramid output).
func NewLastLevelMaxPool[B tensor.Backend](inFeature string, backend B) *LastLevelMaxPool[B] {
	return internalfpn.NewLastLevelMaxPool(inFeature, backend)
}

// LastLevelStridedConv adds one level with a 3x3 stride-2 convolution.
type LastLevelStridedConv[B tensor.Backend] = internalfpn.LastLevelStridedConv[B]

// NewLastLevelStridedConv creates a LastLevelStridedConv.
func NewLastLevelStridedConv[B tensor.Backend](channels int, inFeature string, backend B) *LastLevelStridedConv[B] {
	return internalfpn.NewLastLevelStridedConv(channels, inFeature, backend)
}

// LastLevelP6P7 adds the RetinaNet p6 and p7 levels.
type LastLevelP6P7[B tensor.Backend] = internalfpn.LastLevelP6P7[B]

// NewLastLevelP6P7 creates a LastLevelP6P7.
//
// Example:
//
//	top := fpn.NewLastLevelP6P7(2048, 256, "res5", backend)
func NewLastLevelP6P7[B tensor.Backend](inChannels, outChannels int, inFeature string, backend B) *LastLevelP6P7[B] {
	return internalfpn.NewLastLevelP6P7(inChannels, outChannels, inFeature, backend)
}

// Backbones

// Backbone is a bottom-up network producing named multi-scale features.
type Backbone[B tensor.Backend] = backbone.Backbone[B]

// ShapeSpec describes a feature map: channels and stride.
type ShapeSpec = backbone.ShapeSpec

// FeatureMaps is an ordered set of named feature maps.
type FeatureMaps[B tensor.Backend] = backbone.FeatureMaps[B]

// ResNet is a ResNet backbone.
type ResNet[B tensor.Backend] = backbone.ResNet[B]

// ResNetConfig configures a ResNet backbone.
type ResNetConfig = backbone.ResNetConfig

// ErrInvalidDepth is returned for an unsupported ResNet depth.
var ErrInvalidDepth = backbone.ErrInvalidDepth

// DefaultResNetConfig returns the standard configuration for depth.
func DefaultResNetConfig(depth int) ResNetConfig {
	return backbone.DefaultResNetConfig(depth)
}

// NewResNet builds a ResNet backbone.
func NewResNet[B tensor.Backend](cfg ResNetConfig, backend B) (*ResNet[B], error) {
	return backbone.NewResNet(cfg, backend)
}
