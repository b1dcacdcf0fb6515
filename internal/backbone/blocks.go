package backbone

import (
	"fmt"

	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/internal/tensor"
)

// newConvNorm creates a bias-free convolution followed by norm.
// Convolutions feeding a norm never carry a bias; without a norm they keep
// one so the layer stays affine.
func newConvNorm[B tensor.Backend](in, out, kernel, stride, padding int, norm string, backend B) (*nn.Conv2D[B], error) {
	normLayer, err := nn.NewNorm(norm, out, backend)
	if err != nil {
		return nil, err
	}
	conv := nn.NewConv2D(in, out, kernel, kernel, stride, padding, normLayer == nil, backend)
	return conv.WithNorm(normLayer), nil
}

// BasicBlock is the two 3x3 convolution residual block of ResNet-18/34.
//
// Parameter names: "conv1.*", "conv2.*", "shortcut.*" (when projecting).
type BasicBlock[B tensor.Backend] struct {
	conv1    *nn.Conv2D[B]
	conv2    *nn.Conv2D[B]
	shortcut *nn.Conv2D[B] // nil for identity
}

// NewBasicBlock creates a BasicBlock. The first convolution carries the stride.
func NewBasicBlock[B tensor.Backend](in, out, stride int, norm string, backend B) (*BasicBlock[B], error) {
	conv1, err := newConvNorm(in, out, 3, stride, 1, norm, backend)
	if err != nil {
		return nil, err
	}
	conv2, err := newConvNorm(out, out, 3, 1, 1, norm, backend)
	if err != nil {
		return nil, err
	}
	shortcut, err := newShortcut(in, out, stride, norm, backend)
	if err != nil {
		return nil, err
	}

	return &BasicBlock[B]{conv1: conv1, conv2: conv2, shortcut: shortcut}, nil
}

// Forward computes relu(conv2(relu(conv1(x))) + shortcut(x)).
func (b *BasicBlock[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	out := b.conv1.Forward(x).ReLU()
	out = b.conv2.Forward(out)
	return out.Add(residual(b.shortcut, x)).ReLU()
}

// Parameters returns conv1, conv2 and shortcut parameters.
func (b *BasicBlock[B]) Parameters() []*nn.Parameter[B] {
	params := nn.Prefixed("conv1", b.conv1.Parameters())
	params = append(params, nn.Prefixed("conv2", b.conv2.Parameters())...)
	if b.shortcut != nil {
		params = append(params, nn.Prefixed("shortcut", b.shortcut.Parameters())...)
	}
	return params
}

// BottleneckBlock is the 1x1-3x3-1x1 residual block of ResNet-50 and deeper.
//
// Parameter names: "conv1.*", "conv2.*", "conv3.*", "shortcut.*" (when projecting).
type BottleneckBlock[B tensor.Backend] struct {
	conv1    *nn.Conv2D[B]
	conv2    *nn.Conv2D[B]
	conv3    *nn.Conv2D[B]
	shortcut *nn.Conv2D[B]
}

// NewBottleneckBlock creates a BottleneckBlock.
//
// With strideInStride1x1 the stride sits on the first 1x1 convolution
// (MSRA weights); otherwise on the 3x3 convolution (torchvision weights).
func NewBottleneckBlock[B tensor.Backend](
	in, bottleneck, out, stride int,
	strideInStride1x1 bool,
	norm string,
	backend B,
) (*BottleneckBlock[B], error) {
	stride1x1, stride3x3 := 1, stride
	if strideInStride1x1 {
		stride1x1, stride3x3 = stride, 1
	}

	conv1, err := newConvNorm(in, bottleneck, 1, stride1x1, 0, norm, backend)
	if err != nil {
		return nil, err
	}
	conv2, err := newConvNorm(bottleneck, bottleneck, 3, stride3x3, 1, norm, backend)
	if err != nil {
		return nil, err
	}
	conv3, err := newConvNorm(bottleneck, out, 1, 1, 0, norm, backend)
	if err != nil {
		return nil, err
	}
	shortcut, err := newShortcut(in, out, stride, norm, backend)
	if err != nil {
		return nil, err
	}

	return &BottleneckBlock[B]{conv1: conv1, conv2: conv2, conv3: conv3, shortcut: shortcut}, nil
}

// Forward computes relu(conv3(relu(conv2(relu(conv1(x))))) + shortcut(x)).
func (b *BottleneckBlock[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	out := b.conv1.Forward(x).ReLU()
	out = b.conv2.Forward(out).ReLU()
	out = b.conv3.Forward(out)
	return out.Add(residual(b.shortcut, x)).ReLU()
}

// Parameters returns conv1, conv2, conv3 and shortcut parameters.
func (b *BottleneckBlock[B]) Parameters() []*nn.Parameter[B] {
	params := nn.Prefixed("conv1", b.conv1.Parameters())
	params = append(params, nn.Prefixed("conv2", b.conv2.Parameters())...)
	params = append(params, nn.Prefixed("conv3", b.conv3.Parameters())...)
	if b.shortcut != nil {
		params = append(params, nn.Prefixed("shortcut", b.shortcut.Parameters())...)
	}
	return params
}

// newShortcut returns a 1x1 projection when the block changes channels or
// resolution, and nil for an identity shortcut.
func newShortcut[B tensor.Backend](in, out, stride int, norm string, backend B) (*nn.Conv2D[B], error) {
	if in == out && stride == 1 {
		return nil, nil
	}
	conv, err := newConvNorm(in, out, 1, stride, 0, norm, backend)
	if err != nil {
		return nil, fmt.Errorf("shortcut: %w", err)
	}
	return conv, nil
}

func residual[B tensor.Backend](shortcut *nn.Conv2D[B], x *tensor.Tensor[B]) *tensor.Tensor[B] {
	if shortcut == nil {
		return x
	}
	return shortcut.Forward(x)
}
