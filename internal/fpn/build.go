package fpn

import (
	"fmt"

	"github.com/born-ml/fpn/internal/backbone"
	"github.com/born-ml/fpn/internal/config"
	"github.com/born-ml/fpn/internal/tensor"
)

// RetinaNetTopBlockIn is the feature LastLevelP6P7 reads by default.
const RetinaNetTopBlockIn = "res5"

// BuildResNetFPN builds a ResNet backbone and an FPN with LastLevelMaxPool,
// the Mask/Faster R-CNN setup. cfg.FPN.TopBlock is ignored.
func BuildResNetFPN[B tensor.Backend](cfg *config.Config, backend B) (*FPN[B], error) {
	bottomUp, err := buildResNet(cfg, backend)
	if err != nil {
		return nil, err
	}
	return New[B](bottomUp, fpnConfig(cfg), NewLastLevelMaxPool(cfg.FPN.TopBlockIn, backend), backend)
}

// BuildRetinaNetResNetFPN builds a ResNet backbone and an FPN with
// LastLevelP6P7 reading res5 (or cfg.FPN.TopBlockIn when set).
// cfg.FPN.TopBlock is ignored.
func BuildRetinaNetResNetFPN[B tensor.Backend](cfg *config.Config, backend B) (*FPN[B], error) {
	bottomUp, err := buildResNet(cfg, backend)
	if err != nil {
		return nil, err
	}
	return New[B](bottomUp, fpnConfig(cfg), newP6P7(cfg, bottomUp, backend), backend)
}

// BuildFromConfig validates cfg and builds the network its top block
// kind selects.
func BuildFromConfig[B tensor.Backend](cfg *config.Config, backend B) (*FPN[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.FPN.TopBlock {
	case config.TopBlockMaxPool:
		return BuildResNetFPN(cfg, backend)
	case config.TopBlockP6P7:
		return BuildRetinaNetResNetFPN(cfg, backend)
	}

	bottomUp, err := buildResNet(cfg, backend)
	if err != nil {
		return nil, err
	}
	var top TopBlock[B]
	if cfg.FPN.TopBlock == config.TopBlockStridedConv {
		top = NewLastLevelStridedConv(cfg.FPN.OutChannels, cfg.FPN.TopBlockIn, backend)
	}
	return New[B](bottomUp, fpnConfig(cfg), top, backend)
}

// BuildResNet18FPN builds the config.ResNet18FPN preset.
func BuildResNet18FPN[B tensor.Backend](backend B) (*FPN[B], error) {
	return BuildFromConfig(config.ResNet18FPN(), backend)
}

// BuildResNet34FPN builds the config.ResNet34FPN preset.
func BuildResNet34FPN[B tensor.Backend](backend B) (*FPN[B], error) {
	return BuildFromConfig(config.ResNet34FPN(), backend)
}

func buildResNet[B tensor.Backend](cfg *config.Config, backend B) (*backbone.ResNet[B], error) {
	b := cfg.Backbone
	r, err := backbone.NewResNet(backbone.ResNetConfig{
		Depth:             b.Depth,
		InChannels:        b.InChannels,
		StemOutChannels:   b.StemOutChannels,
		Res2OutChannels:   b.Res2OutChannels,
		Norm:              b.Norm,
		OutFeatures:       b.OutFeatures,
		StrideInStride1x1: b.StrideInStride1x1,
	}, backend)
	if err != nil {
		return nil, fmt.Errorf("build backbone: %w", err)
	}
	return r, nil
}

func fpnConfig(cfg *config.Config) Config {
	return Config{
		InFeatures:  cfg.FPN.InFeatures,
		OutChannels: cfg.FPN.OutChannels,
		Norm:        cfg.FPN.Norm,
		FuseType:    cfg.FPN.FuseType,
	}
}

// newP6P7 sizes LastLevelP6P7 from its input: a backbone feature keeps its
// own channel count, a pyramid output has the FPN width.
func newP6P7[B tensor.Backend](cfg *config.Config, bottomUp backbone.Backbone[B], backend B) *LastLevelP6P7[B] {
	in := cfg.FPN.TopBlockIn
	if in == "" {
		in = RetinaNetTopBlockIn
	}
	inChannels := cfg.FPN.OutChannels
	if spec, ok := bottomUp.OutputShape()[in]; ok {
		inChannels = spec.Channels
	}
	return NewLastLevelP6P7(inChannels, cfg.FPN.OutChannels, in, backend)
}
