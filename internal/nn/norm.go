package nn

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/fpn/internal/tensor"
)

// ErrInvalidNorm is returned for an unknown normalization kind or a channel
// count the normalization cannot split.
var ErrInvalidNorm = errors.New("invalid normalization")

// Normalization kinds accepted by NewNorm.
const (
	NormNone     = ""
	NormBN       = "BN"
	NormFrozenBN = "FrozenBN"
	NormGN       = "GN"
)

// GroupNormGroups is the number of groups a "GN" norm splits channels into.
const GroupNormGroups = 32

// normEps is the variance epsilon shared by the normalization layers.
const normEps = 1e-5

// ValidateNorm reports whether kind can normalize the given channel count.
func ValidateNorm(kind string, channels int) error {
	switch kind {
	case NormNone, NormBN, NormFrozenBN:
		return nil
	case NormGN:
		if channels%GroupNormGroups != 0 {
			return fmt.Errorf("%w: GN needs channels divisible by %d, got %d", ErrInvalidNorm, GroupNormGroups, channels)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q (want \"\", BN, FrozenBN or GN)", ErrInvalidNorm, kind)
	}
}

// NewNorm creates the normalization layer named by kind for channels.
//
// "BN" maps to FrozenBatchNorm2D: there is no training mode, so batch
// statistics never update. Returns (nil, nil) for NormNone.
func NewNorm[B tensor.Backend](kind string, channels int, backend B) (Layer[B], error) {
	if err := ValidateNorm(kind, channels); err != nil {
		return nil, err
	}
	switch kind {
	case NormBN, NormFrozenBN:
		return NewFrozenBatchNorm2D(channels, backend), nil
	case NormGN:
		return NewGroupNorm(GroupNormGroups, channels, backend), nil
	default:
		return nil, nil
	}
}

// FrozenBatchNorm2D is batch normalization with fixed statistics and affine
// parameters.
//
// Computes: y = (x - running_mean) / sqrt(running_var + eps) * weight + bias
// per channel, folded into a single per-channel scale and shift.
//
// Parameter names: "weight", "bias", "running_mean", "running_var".
// Initialized to the identity transform.
type FrozenBatchNorm2D[B tensor.Backend] struct {
	channels int
	eps      float32

	weight      *Parameter[B]
	bias        *Parameter[B]
	runningMean *Parameter[B]
	runningVar  *Parameter[B]

	backend B
}

// NewFrozenBatchNorm2D creates an identity FrozenBatchNorm2D over channels.
func NewFrozenBatchNorm2D[B tensor.Backend](channels int, backend B) *FrozenBatchNorm2D[B] {
	if channels <= 0 {
		panic(fmt.Sprintf("frozen_bn: invalid channels %d", channels))
	}

	shape := tensor.Shape{channels}
	return &FrozenBatchNorm2D[B]{
		channels:    channels,
		eps:         normEps,
		weight:      NewParameter("weight", tensor.Ones(shape, backend)),
		bias:        NewParameter("bias", tensor.Zeros(shape, backend)),
		runningMean: NewParameter("running_mean", tensor.Zeros(shape, backend)),
		runningVar:  NewParameter("running_var", tensor.Full(shape, 1-normEps, backend)),
		backend:     backend,
	}
}

// Forward applies the frozen affine transform.
func (bn *FrozenBatchNorm2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	_, c, _, _ := input.Shape().NCHW("frozen_bn")
	if c != bn.channels {
		panic(fmt.Sprintf("frozen_bn: input channels %d != expected %d", c, bn.channels))
	}

	scale := tensor.MustRaw(tensor.Shape{c}, input.Device(), "frozen_bn")
	shift := tensor.MustRaw(tensor.Shape{c}, input.Device(), "frozen_bn")

	w, b := bn.weight.Tensor().Data(), bn.bias.Tensor().Data()
	mean, variance := bn.runningMean.Tensor().Data(), bn.runningVar.Tensor().Data()
	for i := 0; i < c; i++ {
		s := w[i] / float32(math.Sqrt(float64(variance[i]+bn.eps)))
		scale.Data()[i] = s
		shift.Data()[i] = b[i] - mean[i]*s
	}

	return tensor.New(bn.backend.ChannelAffine(input.Raw(), scale, shift), bn.backend)
}

// Parameters returns weight, bias, running_mean and running_var.
func (bn *FrozenBatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.weight, bn.bias, bn.runningMean, bn.runningVar}
}

// String returns a string representation of the layer.
func (bn *FrozenBatchNorm2D[B]) String() string {
	return fmt.Sprintf("FrozenBatchNorm2d(num_features=%d, eps=%g)", bn.channels, bn.eps)
}

// GroupNorm normalizes groups of channels with per-sample statistics and
// applies a per-channel affine transform.
//
// Parameter names: "weight", "bias".
type GroupNorm[B tensor.Backend] struct {
	groups   int
	channels int
	eps      float32

	weight *Parameter[B]
	bias   *Parameter[B]

	backend B
}

// NewGroupNorm creates a GroupNorm with identity affine parameters.
// Panics if channels is not divisible by groups.
func NewGroupNorm[B tensor.Backend](groups, channels int, backend B) *GroupNorm[B] {
	if groups <= 0 || channels <= 0 || channels%groups != 0 {
		panic(fmt.Sprintf("group_norm: %d channels cannot be split into %d groups", channels, groups))
	}

	shape := tensor.Shape{channels}
	return &GroupNorm[B]{
		groups:   groups,
		channels: channels,
		eps:      normEps,
		weight:   NewParameter("weight", tensor.Ones(shape, backend)),
		bias:     NewParameter("bias", tensor.Zeros(shape, backend)),
		backend:  backend,
	}
}

// Forward normalizes the input and applies the affine transform.
func (gn *GroupNorm[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	_, c, _, _ := input.Shape().NCHW("group_norm")
	if c != gn.channels {
		panic(fmt.Sprintf("group_norm: input channels %d != expected %d", c, gn.channels))
	}

	normalized := gn.backend.GroupNorm(input.Raw(), gn.groups, gn.eps)
	return tensor.New(gn.backend.ChannelAffine(normalized, gn.weight.Tensor().Raw(), gn.bias.Tensor().Raw()), gn.backend)
}

// Parameters returns weight and bias.
func (gn *GroupNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{gn.weight, gn.bias}
}

// String returns a string representation of the layer.
func (gn *GroupNorm[B]) String() string {
	return fmt.Sprintf("GroupNorm(%d, %d, eps=%g)", gn.groups, gn.channels, gn.eps)
}
