package backbone

import (
	"fmt"
	"strings"

	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/internal/tensor"
)

// StemName is the feature name of the stem output.
const StemName = "stem"

// stageNames lists the residual stages, high to low resolution.
var stageNames = []string{"res2", "res3", "res4", "res5"}

// blocksPerStage maps a supported depth to its block counts for res2..res5.
var blocksPerStage = map[int][4]int{
	18:  {2, 2, 2, 2},
	34:  {3, 4, 6, 3},
	50:  {3, 4, 6, 3},
	101: {3, 4, 23, 3},
	152: {3, 8, 36, 3},
}

// ResNetConfig configures a ResNet backbone.
type ResNetConfig struct {
	// Depth selects the block type and counts: 18, 34, 50, 101 or 152.
	Depth int
	// InChannels is the number of image channels.
	InChannels int
	// StemOutChannels is the width of the 7x7 stem convolution.
	StemOutChannels int
	// Res2OutChannels is the output width of res2; later stages double it.
	Res2OutChannels int
	// Norm is the normalization of every convolution ("", "BN", "FrozenBN", "GN").
	Norm string
	// OutFeatures lists the returned features out of "stem", "res2".."res5".
	OutFeatures []string
	// StrideInStride1x1 places bottleneck strides on the first 1x1 convolution.
	StrideInStride1x1 bool
}

// DefaultResNetConfig returns the standard configuration for depth:
// 3 input channels, 64-wide stem, FrozenBN, res2..res5 outputs, and a res2
// width of 64 (basic blocks) or 256 (bottleneck blocks).
func DefaultResNetConfig(depth int) ResNetConfig {
	res2 := 256
	if depth < 50 {
		res2 = 64
	}
	return ResNetConfig{
		Depth:             depth,
		InChannels:        3,
		StemOutChannels:   64,
		Res2OutChannels:   res2,
		Norm:              nn.NormFrozenBN,
		OutFeatures:       []string{"res2", "res3", "res4", "res5"},
		StrideInStride1x1: true,
	}
}

// stage is a named sequence of residual blocks.
type stage[B tensor.Backend] struct {
	name   string
	blocks []nn.Layer[B]
}

// ResNet is a residual network backbone with detectron2-style parameter
// names: "stem.conv1.*", "res<k>.<i>.conv<j>.*", "res<k>.<i>.shortcut.*".
//
// Stages beyond the last requested output feature are not built.
type ResNet[B tensor.Backend] struct {
	cfg         ResNetConfig
	stemConv    *nn.Conv2D[B]
	stemPool    *nn.MaxPool2D[B]
	stages      []stage[B]
	outFeatures []string
	shapes      map[string]ShapeSpec
}

// NewResNet builds a ResNet from cfg.
func NewResNet[B tensor.Backend](cfg ResNetConfig, backend B) (*ResNet[B], error) {
	counts, ok := blocksPerStage[cfg.Depth]
	if !ok {
		return nil, fmt.Errorf("%w: %d (want 18, 34, 50, 101 or 152)", ErrInvalidDepth, cfg.Depth)
	}
	if err := validateResNetConfig(cfg); err != nil {
		return nil, err
	}

	stemConv, err := newConvNorm(cfg.InChannels, cfg.StemOutChannels, 7, 2, 3, cfg.Norm, backend)
	if err != nil {
		return nil, fmt.Errorf("stem: %w", err)
	}

	r := &ResNet[B]{
		cfg:         cfg,
		stemConv:    stemConv,
		stemPool:    nn.NewMaxPool2D(3, 2, 1, backend),
		outFeatures: append([]string(nil), cfg.OutFeatures...),
		shapes:      map[string]ShapeSpec{StemName: {Channels: cfg.StemOutChannels, Stride: 4}},
	}

	last := lastStage(cfg.OutFeatures)
	inChannels := cfg.StemOutChannels
	outChannels := cfg.Res2OutChannels
	stride := 4
	for i := 0; i <= last; i++ {
		firstStride := 2
		if i == 0 {
			firstStride = 1
		}
		stride *= firstStride

		blocks := make([]nn.Layer[B], counts[i])
		for j := range blocks {
			s := 1
			if j == 0 {
				s = firstStride
			}
			blocks[j], err = r.newBlock(inChannels, outChannels, s, backend)
			if err != nil {
				return nil, fmt.Errorf("%s.%d: %w", stageNames[i], j, err)
			}
			inChannels = outChannels
		}

		r.stages = append(r.stages, stage[B]{name: stageNames[i], blocks: blocks})
		r.shapes[stageNames[i]] = ShapeSpec{Channels: outChannels, Stride: stride}
		outChannels *= 2
	}

	for name := range r.shapes {
		if !contains(r.outFeatures, name) {
			delete(r.shapes, name)
		}
	}

	return r, nil
}

func (r *ResNet[B]) newBlock(in, out, stride int, backend B) (nn.Layer[B], error) {
	if r.cfg.Depth < 50 {
		return NewBasicBlock(in, out, stride, r.cfg.Norm, backend)
	}
	return NewBottleneckBlock(in, out/4, out, stride, r.cfg.StrideInStride1x1, r.cfg.Norm, backend)
}

func validateResNetConfig(cfg ResNetConfig) error {
	if cfg.InChannels <= 0 || cfg.StemOutChannels <= 0 || cfg.Res2OutChannels <= 0 {
		return fmt.Errorf("%w: channels must be positive (in=%d, stem=%d, res2=%d)",
			ErrInvalidConfig, cfg.InChannels, cfg.StemOutChannels, cfg.Res2OutChannels)
	}
	if cfg.Depth >= 50 && cfg.Res2OutChannels%4 != 0 {
		return fmt.Errorf("%w: bottleneck res2 width %d must be divisible by 4", ErrInvalidConfig, cfg.Res2OutChannels)
	}
	if len(cfg.OutFeatures) == 0 {
		return fmt.Errorf("%w: no output features", ErrInvalidConfig)
	}

	prev := -2
	for _, name := range cfg.OutFeatures {
		idx := featureIndex(name)
		if idx == -2 {
			return fmt.Errorf("%w: unknown feature %q (want stem, %s)", ErrInvalidConfig, name, strings.Join(stageNames, ", "))
		}
		if idx <= prev {
			return fmt.Errorf("%w: output features %v must be unique and ordered high to low resolution", ErrInvalidConfig, cfg.OutFeatures)
		}
		prev = idx
	}
	return nil
}

// featureIndex returns -1 for the stem, the stage index for res2..res5 and
// -2 for an unknown name.
func featureIndex(name string) int {
	if name == StemName {
		return -1
	}
	for i, s := range stageNames {
		if s == name {
			return i
		}
	}
	return -2
}

func lastStage(features []string) int {
	last := -1
	for _, name := range features {
		last = max(last, featureIndex(name))
	}
	return last
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Forward runs the stem and the built stages.
func (r *ResNet[B]) Forward(x *tensor.Tensor[B]) *FeatureMaps[B] {
	_, c, _, _ := x.Shape().NCHW("resnet")
	if c != r.cfg.InChannels {
		panic(fmt.Sprintf("resnet: input channels %d != expected %d", c, r.cfg.InChannels))
	}

	outputs := NewFeatureMaps[B]()

	x = r.stemConv.Forward(x).ReLU()
	x = r.stemPool.Forward(x)
	if contains(r.outFeatures, StemName) {
		outputs.Set(StemName, x)
	}

	for _, s := range r.stages {
		for _, block := range s.blocks {
			x = block.Forward(x)
		}
		if contains(r.outFeatures, s.name) {
			outputs.Set(s.name, x)
		}
	}

	return outputs
}

// Parameters returns stem and stage parameters in network order.
func (r *ResNet[B]) Parameters() []*nn.Parameter[B] {
	params := nn.Prefixed("stem.conv1", r.stemConv.Parameters())
	for _, s := range r.stages {
		for i, block := range s.blocks {
			params = append(params, nn.Prefixed(fmt.Sprintf("%s.%d", s.name, i), block.Parameters())...)
		}
	}
	return params
}

// OutputShape returns the ShapeSpec of every output feature.
func (r *ResNet[B]) OutputShape() map[string]ShapeSpec {
	shapes := make(map[string]ShapeSpec, len(r.shapes))
	for k, v := range r.shapes {
		shapes[k] = v
	}
	return shapes
}

// OutFeatures returns the output feature names, high to low resolution.
func (r *ResNet[B]) OutFeatures() []string {
	return append([]string(nil), r.outFeatures...)
}

// Depth returns the configured depth.
func (r *ResNet[B]) Depth() int {
	return r.cfg.Depth
}

// String returns a one-line summary.
func (r *ResNet[B]) String() string {
	return fmt.Sprintf("ResNet-%d(norm=%q, out_features=%v)", r.cfg.Depth, r.cfg.Norm, r.outFeatures)
}
