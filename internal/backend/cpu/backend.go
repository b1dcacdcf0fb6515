// Package cpu implements the CPU backend: pure Go kernels with gonum BLAS
// for the convolution GEMM.
package cpu

import (
	"fmt"

	"github.com/born-ml/fpn/internal/parallel"
	"github.com/born-ml/fpn/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend that spreads plane loops over all cores.
func New() *CPUBackend {
	return NewWithConfig(parallel.Default())
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition of two equally shaped tensors.
//
// Feature pyramid fusion relies on shapes lining up exactly after
// upsampling, so no broadcasting is attempted: a mismatch panics.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("add: shape mismatch: %v vs %v", a.Shape(), b.Shape()))
	}

	result := tensor.MustRaw(a.Shape(), cpu.device, "add")
	out, x, y := result.Data(), a.Data(), b.Data()
	for i := range out {
		out[i] = x[i] + y[i]
	}
	return result
}

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	result := tensor.MustRaw(x.Shape(), cpu.device, "mul_scalar")
	out, in := result.Data(), x.Data()
	for i := range out {
		out[i] = in[i] * scalar
	}
	return result
}

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := tensor.MustRaw(x.Shape(), cpu.device, "relu")
	out, in := result.Data(), x.Data()
	for i, v := range in {
		if v > 0 {
			out[i] = v
		}
	}
	return result
}
