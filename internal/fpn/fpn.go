// Package fpn implements the Feature Pyramid Network: lateral and output
// convolutions over a bottom-up backbone, top-down fusion, optional extra
// levels, builders and checkpoint loading.
package fpn

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/born-ml/fpn/internal/backbone"
	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/internal/tensor"
)

// RawFeatureName is the bottom-up feature copied unfused into every output.
//
// This is a fixed convention for heads that want the original
// highest-resolution backbone map next to the pyramid. It does not extend
// to the other input levels.
const RawFeatureName = "res2"

// Fusion modes.
const (
	FuseSum = "sum"
	FuseAvg = "avg"
)

// Config configures an FPN.
type Config struct {
	// InFeatures names the backbone outputs to use, high to low resolution.
	InFeatures []string
	// OutChannels is the channel count of every pyramid level.
	OutChannels int
	// Norm normalizes lateral and output convolutions ("", "BN", "FrozenBN", "GN").
	Norm string
	// FuseType combines the lateral and top-down maps: "sum" or "avg".
	FuseType string
}

// level is one pyramid level: its stage, its input and its two convolutions.
type level[B tensor.Backend] struct {
	stage     int // stride = 1 << stage
	inFeature string
	lateral   *nn.Conv2D[B]
	output    *nn.Conv2D[B]
}

// FPN is a Feature Pyramid Network over a bottom-up backbone.
//
// Parameter names: "bottom_up.*", "lateral<s>.*", "output<s>.*",
// "top_block.*", where s = log2(stride) of the level.
type FPN[B tensor.Backend] struct {
	bottomUp   backbone.Backbone[B]
	inFeatures []string
	levels     []level[B] // top-down: lowest resolution first
	topBlock   TopBlock[B]
	topBlockIn string
	fuseType   string
	norm       string

	outChannels      int
	outFeatures      []string
	outShapes        map[string]backbone.ShapeSpec
	sizeDivisibility int
}

// New builds an FPN on bottomUp. topBlock may be nil.
//
// Configuration is validated before any convolution is created; errors
// wrap ErrInvalidConfig, ErrUnknownFeature, ErrNonContiguousStrides,
// ErrInvalidFuseType or ErrInvalidNorm.
func New[B tensor.Backend](bottomUp backbone.Backbone[B], cfg Config, topBlock TopBlock[B], backend B) (*FPN[B], error) {
	if bottomUp == nil {
		return nil, fmt.Errorf("%w: nil bottom-up network", ErrInvalidConfig)
	}
	if len(cfg.InFeatures) == 0 {
		return nil, fmt.Errorf("%w: no input features", ErrInvalidConfig)
	}
	if cfg.OutChannels <= 0 {
		return nil, fmt.Errorf("%w: out channels must be positive, got %d", ErrInvalidConfig, cfg.OutChannels)
	}
	if cfg.FuseType != FuseSum && cfg.FuseType != FuseAvg {
		return nil, fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidFuseType, cfg.FuseType, FuseSum, FuseAvg)
	}
	if err := nn.ValidateNorm(cfg.Norm, cfg.OutChannels); err != nil {
		return nil, err
	}

	inputShapes := bottomUp.OutputShape()
	stages, err := inputStages(cfg.InFeatures, inputShapes)
	if err != nil {
		return nil, err
	}

	f := &FPN[B]{
		bottomUp:    bottomUp,
		inFeatures:  append([]string(nil), cfg.InFeatures...),
		topBlock:    topBlock,
		fuseType:    cfg.FuseType,
		norm:        cfg.Norm,
		outChannels: cfg.OutChannels,
		outShapes:   make(map[string]backbone.ShapeSpec),
	}

	lastStage := stages[len(stages)-1]
	f.sizeDivisibility = 1 << lastStage
	for _, s := range stages {
		f.addOutput(s)
	}

	if topBlock != nil {
		if topBlock.NumLevels() <= 0 {
			return nil, fmt.Errorf("%w: top block emits %d levels", ErrInvalidConfig, topBlock.NumLevels())
		}
		f.topBlockIn = topBlock.InFeature()
		if f.topBlockIn == "" {
			f.topBlockIn = f.outFeatures[len(f.outFeatures)-1]
		}
		_, inBottomUp := inputShapes[f.topBlockIn]
		if _, inPyramid := f.outShapes[f.topBlockIn]; !inBottomUp && !inPyramid {
			return nil, fmt.Errorf("%w: top block input %q is neither a backbone nor a pyramid output", ErrUnknownFeature, f.topBlockIn)
		}
		for s := lastStage + 1; s <= lastStage+topBlock.NumLevels(); s++ {
			f.addOutput(s)
		}
	}

	// Top-down order: lowest resolution first.
	for i := len(stages) - 1; i >= 0; i-- {
		name := cfg.InFeatures[i]
		lateral, err := newPyramidConv(inputShapes[name].Channels, cfg.OutChannels, 1, 0, cfg.Norm, backend)
		if err != nil {
			return nil, fmt.Errorf("lateral%d: %w", stages[i], err)
		}
		output, err := newPyramidConv(cfg.OutChannels, cfg.OutChannels, 3, 1, cfg.Norm, backend)
		if err != nil {
			return nil, fmt.Errorf("output%d: %w", stages[i], err)
		}
		f.levels = append(f.levels, level[B]{
			stage:     stages[i],
			inFeature: name,
			lateral:   lateral,
			output:    output,
		})
	}

	return f, nil
}

// inputStages checks that every feature exists and that strides double
// from one feature to the next, and returns log2 of each stride.
func inputStages(features []string, shapes map[string]backbone.ShapeSpec) ([]int, error) {
	stages := make([]int, len(features))
	for i, name := range features {
		spec, ok := shapes[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a backbone output", ErrUnknownFeature, name)
		}
		if spec.Stride <= 0 || spec.Stride&(spec.Stride-1) != 0 {
			return nil, fmt.Errorf("%w: %s stride %d is not a power of two", ErrNonContiguousStrides, name, spec.Stride)
		}
		if i > 0 && spec.Stride != 2*shapes[features[i-1]].Stride {
			return nil, fmt.Errorf("%w: %s stride %d follows %s stride %d",
				ErrNonContiguousStrides, name, spec.Stride, features[i-1], shapes[features[i-1]].Stride)
		}
		stages[i] = bits.TrailingZeros(uint(spec.Stride))
	}
	return stages, nil
}

// newPyramidConv creates a c2-Xavier initialized convolution; the bias is
// dropped when a norm follows.
func newPyramidConv[B tensor.Backend](in, out, kernel, padding int, norm string, backend B) (*nn.Conv2D[B], error) {
	normLayer, err := nn.NewNorm(norm, out, backend)
	if err != nil {
		return nil, err
	}
	conv := nn.NewConv2D(in, out, kernel, kernel, 1, padding, norm == nn.NormNone, backend).WithNorm(normLayer)
	conv.C2XavierFill()
	return conv, nil
}

func (f *FPN[B]) addOutput(stage int) {
	name := fmt.Sprintf("p%d", stage)
	f.outFeatures = append(f.outFeatures, name)
	f.outShapes[name] = backbone.ShapeSpec{Channels: f.outChannels, Stride: 1 << stage}
}

// Forward runs the bottom-up network on x and builds the pyramid.
//
// The result holds OutFeatures in order, followed by RawFeatureName when
// the bottom-up network produced it.
func (f *FPN[B]) Forward(x *tensor.Tensor[B]) *backbone.FeatureMaps[B] {
	return f.ForwardFeatures(f.bottomUp.Forward(x))
}

// ForwardFeatures builds the pyramid from precomputed bottom-up outputs.
//
// Panics if an upsampled map does not match its lateral map, which means
// the image size was not a multiple of SizeDivisibility.
func (f *FPN[B]) ForwardFeatures(bottomUp *backbone.FeatureMaps[B]) *backbone.FeatureMaps[B] {
	results := make([]*tensor.Tensor[B], len(f.levels), len(f.outFeatures))

	var prev *tensor.Tensor[B]
	for i, lvl := range f.levels {
		lateral := lvl.lateral.Forward(bottomUp.MustGet(lvl.inFeature))
		if i == 0 {
			prev = lateral
		} else {
			topDown := prev.UpsampleNearest(2)
			if !topDown.Shape().Equal(lateral.Shape()) {
				panic(fmt.Sprintf("fpn: upsampled p%d %v does not match lateral%d %v",
					f.levels[i-1].stage, topDown.Shape(), lvl.stage, lateral.Shape()))
			}
			prev = f.fuse(lateral, topDown)
		}
		// Fill from the back so results end up high to low resolution.
		results[len(f.levels)-1-i] = lvl.output.Forward(prev)
	}

	if f.topBlock != nil {
		x, ok := bottomUp.Get(f.topBlockIn)
		if !ok {
			x = results[indexOf(f.outFeatures, f.topBlockIn)]
		}
		results = append(results, f.topBlock.Forward(x)...)
	}

	if len(results) != len(f.outFeatures) {
		panic(fmt.Sprintf("fpn: produced %d maps for %d output features", len(results), len(f.outFeatures)))
	}

	out := backbone.NewFeatureMaps[B]()
	for i, name := range f.outFeatures {
		out.Set(name, results[i])
	}
	if raw, ok := bottomUp.Get(RawFeatureName); ok {
		out.Set(RawFeatureName, raw)
	}
	return out
}

func (f *FPN[B]) fuse(lateral, topDown *tensor.Tensor[B]) *tensor.Tensor[B] {
	sum := lateral.Add(topDown)
	if f.fuseType == FuseAvg {
		return sum.MulScalar(0.5)
	}
	return sum
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	panic(fmt.Sprintf("fpn: no output feature %q", name))
}

// Parameters returns bottom-up, per-level and top block parameters.
func (f *FPN[B]) Parameters() []*nn.Parameter[B] {
	params := nn.Prefixed("bottom_up", f.bottomUp.Parameters())
	for i := len(f.levels) - 1; i >= 0; i-- {
		lvl := f.levels[i]
		params = append(params, nn.Prefixed(fmt.Sprintf("lateral%d", lvl.stage), lvl.lateral.Parameters())...)
		params = append(params, nn.Prefixed(fmt.Sprintf("output%d", lvl.stage), lvl.output.Parameters())...)
	}
	if f.topBlock != nil {
		params = append(params, nn.Prefixed("top_block", f.topBlock.Parameters())...)
	}
	return params
}

// StateDict returns every parameter by dotted name.
func (f *FPN[B]) StateDict() map[string]*tensor.RawTensor {
	return nn.StateDict[B](f)
}

// BottomUp returns the wrapped backbone.
func (f *FPN[B]) BottomUp() backbone.Backbone[B] {
	return f.bottomUp
}

// InFeatures returns the input feature names, high to low resolution.
func (f *FPN[B]) InFeatures() []string {
	return append([]string(nil), f.inFeatures...)
}

// OutFeatures returns the pyramid output names, high to low resolution.
func (f *FPN[B]) OutFeatures() []string {
	return append([]string(nil), f.outFeatures...)
}

// OutputShape returns the ShapeSpec of every pyramid output. The raw
// bottom-up feature is not included.
func (f *FPN[B]) OutputShape() map[string]backbone.ShapeSpec {
	shapes := make(map[string]backbone.ShapeSpec, len(f.outShapes))
	for k, v := range f.outShapes {
		shapes[k] = v
	}
	return shapes
}

// SizeDivisibility returns the stride of the lowest-resolution input level.
// Input height and width must be multiples of it.
func (f *FPN[B]) SizeDivisibility() int {
	return f.sizeDivisibility
}

// String renders the topology.
func (f *FPN[B]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FPN(in_features=%v, out_channels=%d, norm=%q, fuse_type=%s)\n",
		f.inFeatures, f.outChannels, f.norm, f.fuseType)
	fmt.Fprintf(&sb, "  bottom_up: %v\n", f.bottomUp)
	for i := len(f.levels) - 1; i >= 0; i-- {
		lvl := f.levels[i]
		fmt.Fprintf(&sb, "  lateral%d: %v\n", lvl.stage, lvl.lateral)
		fmt.Fprintf(&sb, "  output%d: %v\n", lvl.stage, lvl.output)
	}
	if f.topBlock != nil {
		fmt.Fprintf(&sb, "  top_block: %v\n", f.topBlock)
	}
	outs := make([]string, len(f.outFeatures))
	for i, name := range f.outFeatures {
		outs[i] = fmt.Sprintf("%s(stride=%d)", name, f.outShapes[name].Stride)
	}
	fmt.Fprintf(&sb, "  outputs: %s", strings.Join(outs, " "))
	return sb.String()
}
