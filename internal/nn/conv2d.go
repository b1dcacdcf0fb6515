package nn

import (
	"fmt"

	"github.com/born-ml/fpn/internal/tensor"
)

// Conv2D is a 2D convolutional layer with an optional normalization layer.
//
// Performs: output = norm(Conv2D(input, weight) + bias)
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// Parameter names: "weight", "bias" (if present), "norm.*" (if present).
//
// Example:
//
//	// 3x3 output convolution of a pyramid level
//	conv := nn.NewConv2D(256, 256, 3, 3, 1, 1, true, backend)
//	conv.C2XavierFill()
//	output := conv.Forward(input) // same spatial size as input
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      int
	padding     int
	useBias     bool

	weight *Parameter[B] // [out_channels, in_channels, kernel_h, kernel_w]
	bias   *Parameter[B] // [out_channels] or nil
	norm   Layer[B]      // nil if no normalization

	backend B
}

// NewConv2D creates a new 2D convolutional layer.
//
// Parameters:
//   - inChannels: Number of input channels
//   - outChannels: Number of output channels (number of filters)
//   - kernelH, kernelW: Kernel dimensions
//   - stride: Stride for convolution (commonly 1 or 2)
//   - padding: Zero padding to apply to input (commonly 0, 1, 3)
//   - useBias: Whether to include bias term
//   - backend: Backend for computation
//
// Initialization:
//   - Weights: MSRA fill (fan_out mode)
//   - Bias: Zeros
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size h=%d, w=%d", kernelH, kernelW))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	weightShape := tensor.Shape{outChannels, inChannels, kernelH, kernelW}
	weight := MSRAFill(outChannels*kernelH*kernelW, weightShape, backend)

	var biasParam *Parameter[B]
	if useBias {
		biasParam = NewParameter("bias", tensor.Zeros(tensor.Shape{outChannels}, backend))
	}

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  [2]int{kernelH, kernelW},
		stride:      stride,
		padding:     padding,
		useBias:     useBias,
		weight:      NewParameter("weight", weight),
		bias:        biasParam,
		backend:     backend,
	}
}

// WithNorm attaches a normalization layer applied after the convolution.
// A nil norm leaves the layer unnormalized. Returns c for chaining.
func (c *Conv2D[B]) WithNorm(norm Layer[B]) *Conv2D[B] {
	c.norm = norm
	return c
}

// C2XavierFill re-initializes the weight with Caffe2 Xavier fill and zeroes
// the bias.
func (c *Conv2D[B]) C2XavierFill() {
	fanIn := c.inChannels * c.kernelSize[0] * c.kernelSize[1]
	weightShape := tensor.Shape{c.outChannels, c.inChannels, c.kernelSize[0], c.kernelSize[1]}
	copy(c.weight.Tensor().Data(), C2XavierFill(fanIn, weightShape, c.backend).Data())

	if c.bias != nil {
		clear(c.bias.Tensor().Data())
	}
}

// Forward performs the forward pass.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	var bias *tensor.RawTensor
	if c.bias != nil {
		bias = c.bias.Tensor().Raw()
	}

	outputRaw := c.backend.Conv2D(input.Raw(), c.weight.Tensor().Raw(), bias, c.stride, c.padding)
	output := tensor.New(outputRaw, c.backend)

	if c.norm != nil {
		output = c.norm.Forward(output)
	}
	return output
}

// Parameters returns the weight, the bias and the norm parameters, in that order.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{c.weight}
	if c.bias != nil {
		params = append(params, c.bias)
	}
	if c.norm != nil {
		params = append(params, Prefixed("norm", c.norm.Parameters())...)
	}
	return params
}

// String returns a string representation of the layer.
func (c *Conv2D[B]) String() string {
	s := fmt.Sprintf("Conv2D(in_channels=%d, out_channels=%d, kernel_size=(%d, %d), stride=%d, padding=%d, bias=%v",
		c.inChannels, c.outChannels,
		c.kernelSize[0], c.kernelSize[1],
		c.stride, c.padding, c.useBias)
	if c.norm != nil {
		s += fmt.Sprintf(", norm=%v", c.norm)
	}
	return s + ")"
}

// Weight returns the weight parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter, or nil if the layer has none.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// Norm returns the normalization layer, or nil.
func (c *Conv2D[B]) Norm() Layer[B] {
	return c.norm
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// InChannels returns the number of input channels.
func (c *Conv2D[B]) InChannels() int {
	return c.inChannels
}

// KernelSize returns the kernel size [height, width].
func (c *Conv2D[B]) KernelSize() [2]int {
	return c.kernelSize
}

// Stride returns the stride.
func (c *Conv2D[B]) Stride() int {
	return c.stride
}

// Padding returns the padding.
func (c *Conv2D[B]) Padding() int {
	return c.padding
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (c *Conv2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH+2*c.padding-c.kernelSize[0])/c.stride + 1
	outW := (inputW+2*c.padding-c.kernelSize[1])/c.stride + 1
	return [2]int{outH, outW}
}
