//go:build windows

package webgpu

import (
	"fmt"
	"math"

	"github.com/born-ml/fpn/internal/tensor"
)

// mustRun executes a kernel and panics on GPU failure, matching the
// panic-on-misuse contract of the Backend interface.
func (b *Backend) mustRun(op string, call kernelCall) *tensor.RawTensor {
	out, err := b.run(call)
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", op, err))
	}
	return out
}

// u32 narrows a validated, non-negative dimension for shader params.
func u32(v int) uint32 {
	//nolint:gosec // G115: callers pass validated tensor dimensions
	return uint32(v)
}

// Add performs element-wise addition on GPU.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	if !a.Shape().Equal(other.Shape()) {
		panic(fmt.Sprintf("add: shape mismatch %v vs %v", a.Shape(), other.Shape()))
	}
	n := a.NumElements()
	return b.mustRun("add", kernelCall{
		name:       "add",
		code:       addShader,
		inputs:     []*tensor.RawTensor{a, other},
		outShape:   a.Shape().Clone(),
		params:     []uint32{u32(n)},
		workgroups: flatGroups(n),
	})
}

// MulScalar multiplies every element by scalar on GPU.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	n := x.NumElements()
	return b.mustRun("mul_scalar", kernelCall{
		name:       "mulScalar",
		code:       scalarMulShader,
		inputs:     []*tensor.RawTensor{x},
		outShape:   x.Shape().Clone(),
		params:     []uint32{u32(n), math.Float32bits(scalar)},
		workgroups: flatGroups(n),
	})
}

// ReLU applies max(0, x) on GPU.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	n := x.NumElements()
	return b.mustRun("relu", kernelCall{
		name:       "relu",
		code:       reluShader,
		inputs:     []*tensor.RawTensor{x},
		outShape:   x.Shape().Clone(),
		params:     []uint32{u32(n)},
		workgroups: flatGroups(n),
	})
}

// Conv2D performs 2D convolution on GPU.
//
// Input:  [N, C_in, H, W]
// Kernel: [C_out, C_in, KH, KW]
// Bias:   [C_out] or nil
// Output: [N, C_out, H_out, W_out].
func (b *Backend) Conv2D(input, kernel, bias *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	N, C, H, W := input.Shape().NCHW("conv2d")
	ks := kernel.Shape()
	if len(ks) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out, C_in, KH, KW], got %dD", len(ks)))
	}
	COut, KH, KW := ks[0], ks[2], ks[3]
	if ks[1] != C {
		panic(fmt.Sprintf("conv2d: channel mismatch: input has %d channels, kernel expects %d", C, ks[1]))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d or padding %d", stride, padding))
	}
	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: kernel %dx%d larger than padded input %dx%d", KH, KW, H+2*padding, W+2*padding))
	}

	if bias == nil {
		bias = tensor.MustRaw(tensor.Shape{COut}, tensor.WebGPU, "conv2d")
	} else if bias.NumElements() != COut {
		panic(fmt.Sprintf("conv2d: bias has %d elements, want %d", bias.NumElements(), COut))
	}

	return b.mustRun("conv2d", kernelCall{
		name:     "conv2d",
		code:     conv2dShader,
		inputs:   []*tensor.RawTensor{input, kernel, bias},
		outShape: tensor.Shape{N, COut, HOut, WOut},
		params: []uint32{
			u32(C), u32(H), u32(W),
			u32(COut), u32(HOut), u32(WOut),
			u32(KH), u32(KW), u32(stride), u32(padding),
		},
		workgroups: planeGroups(N*COut, HOut, WOut),
	})
}

// MaxPool2D performs 2D max pooling on GPU.
func (b *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	N, C, H, W := input.Shape().NCHW("maxpool2d")
	if kernelSize <= 0 || stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d or stride %d", kernelSize, stride))
	}
	if padding < 0 || 2*padding > kernelSize {
		panic(fmt.Sprintf("maxpool2d: padding %d must be in [0, kernel/2]", padding))
	}
	if kernelSize > H+2*padding || kernelSize > W+2*padding {
		panic(fmt.Sprintf("maxpool2d: kernel %d larger than padded input %dx%d", kernelSize, H+2*padding, W+2*padding))
	}
	HOut := (H+2*padding-kernelSize)/stride + 1
	WOut := (W+2*padding-kernelSize)/stride + 1

	return b.mustRun("maxpool2d", kernelCall{
		name:     "maxPool2d",
		code:     maxPool2dShader,
		inputs:   []*tensor.RawTensor{input},
		outShape: tensor.Shape{N, C, HOut, WOut},
		params: []uint32{
			u32(N * C), u32(H), u32(W), u32(HOut), u32(WOut),
			u32(kernelSize), u32(stride), u32(padding),
		},
		workgroups: planeGroups(N*C, HOut, WOut),
	})
}

// UpsampleNearest2D repeats each pixel scale times along H and W on GPU.
func (b *Backend) UpsampleNearest2D(input *tensor.RawTensor, scale int) *tensor.RawTensor {
	N, C, H, W := input.Shape().NCHW("upsample")
	if scale <= 0 {
		panic(fmt.Sprintf("upsample: scale must be positive, got %d", scale))
	}

	return b.mustRun("upsample", kernelCall{
		name:       "upsampleNearest",
		code:       upsampleNearestShader,
		inputs:     []*tensor.RawTensor{input},
		outShape:   tensor.Shape{N, C, H * scale, W * scale},
		params:     []uint32{u32(N * C), u32(H), u32(W), u32(scale)},
		workgroups: planeGroups(N*C, H*scale, W*scale),
	})
}

// ChannelAffine computes x*scale[c] + shift[c] on the host.
func (b *Backend) ChannelAffine(x, scale, shift *tensor.RawTensor) *tensor.RawTensor {
	return b.host.ChannelAffine(x, scale, shift)
}

// GroupNorm normalizes each group of channels on the host.
func (b *Backend) GroupNorm(x *tensor.RawTensor, groups int, eps float32) *tensor.RawTensor {
	return b.host.GroupNorm(x, groups, eps)
}
