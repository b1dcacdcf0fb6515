package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - CPU: Pure Go, im2col convolution on gonum BLAS
//   - WebGPU: WGSL compute shaders (Windows builds)
//
// All operations take NCHW float32 tensors and return freshly allocated
// results; inputs are never modified.
type Backend interface {
	// Element-wise operations. Add requires equal shapes.
	Add(a, b *RawTensor) *RawTensor
	MulScalar(x *RawTensor, scalar float32) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Conv2D convolves input [N,C_in,H,W] with kernel [C_out,C_in,K_h,K_w].
	// bias [C_out] may be nil.
	Conv2D(input, kernel, bias *RawTensor, stride, padding int) *RawTensor

	// MaxPool2D pools square windows. Padded positions never win the max.
	MaxPool2D(input *RawTensor, kernelSize, stride, padding int) *RawTensor

	// UpsampleNearest2D repeats every pixel scale times along H and W.
	UpsampleNearest2D(input *RawTensor, scale int) *RawTensor

	// ChannelAffine computes y[n,c,h,w] = x[n,c,h,w]*scale[c] + shift[c].
	ChannelAffine(x, scale, shift *RawTensor) *RawTensor

	// GroupNorm normalizes each group of channels to zero mean and unit
	// variance, without the affine step.
	GroupNorm(x *RawTensor, groups int, eps float32) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
