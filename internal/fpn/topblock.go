package fpn

import (
	"fmt"

	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/internal/tensor"
)

// TopBlock extends the pyramid past the lowest-resolution input level.
//
// Each emitted level doubles the stride of the previous one; the FPN names
// them by continuing the p<stage> numbering.
type TopBlock[B tensor.Backend] interface {
	nn.Module[B]

	// NumLevels returns how many levels Forward emits.
	NumLevels() int

	// InFeature names the map fed to Forward. It is looked up among the
	// bottom-up outputs first, then among the pyramid outputs. An empty
	// name selects the last (lowest-resolution) pyramid output.
	InFeature() string

	// Forward returns NumLevels feature maps, high to low resolution.
	Forward(x *tensor.Tensor[B]) []*tensor.Tensor[B]
}

// LastLevelMaxPool emits one extra level by subsampling with a 1x1 max
// pool of stride 2. Used by Mask/Faster R-CNN to produce P6 from P5.
type LastLevelMaxPool[B tensor.Backend] struct {
	inFeature string
	pool      *nn.MaxPool2D[B]
}

// NewLastLevelMaxPool creates a LastLevelMaxPool reading inFeature
// ("" for the last pyramid output).
func NewLastLevelMaxPool[B tensor.Backend](inFeature string, backend B) *LastLevelMaxPool[B] {
	return &LastLevelMaxPool[B]{
		inFeature: inFeature,
		pool:      nn.NewMaxPool2D(1, 2, 0, backend),
	}
}

// NumLevels returns 1.
func (b *LastLevelMaxPool[B]) NumLevels() int { return 1 }

// InFeature returns the input feature name.
func (b *LastLevelMaxPool[B]) InFeature() string { return b.inFeature }

// Forward subsamples x by 2.
func (b *LastLevelMaxPool[B]) Forward(x *tensor.Tensor[B]) []*tensor.Tensor[B] {
	return []*tensor.Tensor[B]{b.pool.Forward(x)}
}

// Parameters returns an empty slice.
func (b *LastLevelMaxPool[B]) Parameters() []*nn.Parameter[B] {
	return []*nn.Parameter[B]{}
}

// String returns a string representation of the block.
func (b *LastLevelMaxPool[B]) String() string {
	return fmt.Sprintf("LastLevelMaxPool(in_feature=%q, %v)", b.inFeature, b.pool)
}

// LastLevelStridedConv emits one extra level with a channel-preserving 3x3
// stride-2 convolution.
//
// Parameter names: "p5.weight", "p5.bias".
type LastLevelStridedConv[B tensor.Backend] struct {
	inFeature string
	conv      *nn.Conv2D[B]
}

// NewLastLevelStridedConv creates a LastLevelStridedConv over channels
// reading inFeature ("" for the last pyramid output).
func NewLastLevelStridedConv[B tensor.Backend](channels int, inFeature string, backend B) *LastLevelStridedConv[B] {
	conv := nn.NewConv2D(channels, channels, 3, 3, 2, 1, true, backend)
	conv.C2XavierFill()
	return &LastLevelStridedConv[B]{inFeature: inFeature, conv: conv}
}

// NumLevels returns 1.
func (b *LastLevelStridedConv[B]) NumLevels() int { return 1 }

// InFeature returns the input feature name.
func (b *LastLevelStridedConv[B]) InFeature() string { return b.inFeature }

// Forward applies the strided convolution.
func (b *LastLevelStridedConv[B]) Forward(x *tensor.Tensor[B]) []*tensor.Tensor[B] {
	return []*tensor.Tensor[B]{b.conv.Forward(x)}
}

// Parameters returns the convolution parameters under "p5".
func (b *LastLevelStridedConv[B]) Parameters() []*nn.Parameter[B] {
	return nn.Prefixed("p5", b.conv.Parameters())
}

// String returns a string representation of the block.
func (b *LastLevelStridedConv[B]) String() string {
	return fmt.Sprintf("LastLevelStridedConv(in_feature=%q, conv=%v)", b.inFeature, b.conv)
}

// LastLevelP6P7 emits P6 and P7 as in RetinaNet:
//
//	p6 = conv6(x)
//	p7 = conv7(relu(p6))
//
// Both are 3x3 stride-2 convolutions. The input is normally the raw res5
// backbone feature, so channels may change between x and p6.
//
// Parameter names: "p6.weight", "p6.bias", "p7.weight", "p7.bias".
type LastLevelP6P7[B tensor.Backend] struct {
	inFeature string
	p6        *nn.Conv2D[B]
	p7        *nn.Conv2D[B]
}

// NewLastLevelP6P7 creates a LastLevelP6P7 mapping inChannels to
// outChannels and reading inFeature.
func NewLastLevelP6P7[B tensor.Backend](inChannels, outChannels int, inFeature string, backend B) *LastLevelP6P7[B] {
	p6 := nn.NewConv2D(inChannels, outChannels, 3, 3, 2, 1, true, backend)
	p7 := nn.NewConv2D(outChannels, outChannels, 3, 3, 2, 1, true, backend)
	p6.C2XavierFill()
	p7.C2XavierFill()
	return &LastLevelP6P7[B]{inFeature: inFeature, p6: p6, p7: p7}
}

// NumLevels returns 2.
func (b *LastLevelP6P7[B]) NumLevels() int { return 2 }

// InFeature returns the input feature name.
func (b *LastLevelP6P7[B]) InFeature() string { return b.inFeature }

// Forward computes p6 and p7.
func (b *LastLevelP6P7[B]) Forward(x *tensor.Tensor[B]) []*tensor.Tensor[B] {
	p6 := b.p6.Forward(x)
	p7 := b.p7.Forward(p6.ReLU())
	return []*tensor.Tensor[B]{p6, p7}
}

// Parameters returns the p6 and p7 convolution parameters.
func (b *LastLevelP6P7[B]) Parameters() []*nn.Parameter[B] {
	return append(nn.Prefixed("p6", b.p6.Parameters()), nn.Prefixed("p7", b.p7.Parameters())...)
}

// String returns a string representation of the block.
func (b *LastLevelP6P7[B]) String() string {
	return fmt.Sprintf("LastLevelP6P7(in_feature=%q, p6=%v, p7=%v)", b.inFeature, b.p6, b.p7)
}
