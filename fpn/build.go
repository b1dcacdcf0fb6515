// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fpn

import (
	"github.com/born-ml/fpn/internal/config"
	internalfpn "github.com/born-ml/fpn/internal/fpn"
	"github.com/born-ml/fpn/tensor"
)

// BuildConfig is the YAML-backed configuration of a ResNet-FPN.
type BuildConfig = config.Config

// ErrInvalidBuildConfig is wrapped by BuildConfig validation errors.
var ErrInvalidBuildConfig = config.ErrInvalid

// Top block kinds for BuildConfig.FPN.TopBlock.
const (
	TopBlockMaxPool     = config.TopBlockMaxPool
	TopBlockStridedConv = config.TopBlockStridedConv
	TopBlockP6P7        = config.TopBlockP6P7
	TopBlockNone        = config.TopBlockNone
)

// DefaultConfig returns the ResNet-50-FPN configuration.
func DefaultConfig() *BuildConfig {
	return config.Default()
}

// LoadConfig reads a YAML configuration over DefaultConfig.
func LoadConfig(path string) (*BuildConfig, error) {
	return config.Load(path)
}

// ResNet18FPNConfig returns the ResNet-18-FPN preset (128 channels, BN,
// strided-conv top block).
func ResNet18FPNConfig() *BuildConfig {
	return config.ResNet18FPN()
}

// ResNet34FPNConfig returns the ResNet-34-FPN preset (64 channels, BN,
// strided-conv top block).
func ResNet34FPNConfig() *BuildConfig {
	return config.ResNet34FPN()
}

// BuildResNet18FPN builds the ResNet-18-FPN preset.
func BuildResNet18FPN[B tensor.Backend](backend B) (*FPN[B], error) {
	return internalfpn.BuildResNet18FPN(backend)
}

// BuildResNet34FPN builds the ResNet-34-FPN preset.
func BuildResNet34FPN[B tensor.Backend](backend B) (*FPN[B], error) {
	return internalfpn.BuildResNet34FPN(backend)
}

// BuildResNetFPN builds ResNet + FPN with LastLevelMaxPool.
func BuildResNetFPN[B tensor.Backend](cfg *BuildConfig, backend B) (*FPN[B], error) {
	return internalfpn.BuildResNetFPN(cfg, backend)
}

// BuildRetinaNetResNetFPN builds ResNet + FPN with LastLevelP6P7 on res5.
func BuildRetinaNetResNetFPN[B tensor.Backend](cfg *BuildConfig, backend B) (*FPN[B], error) {
	return internalfpn.BuildRetinaNetResNetFPN(cfg, backend)
}

// BuildFromConfig builds the network cfg.FPN.TopBlock selects.
func BuildFromConfig[B tensor.Backend](cfg *BuildConfig, backend B) (*FPN[B], error) {
	return internalfpn.BuildFromConfig(cfg, backend)
}
