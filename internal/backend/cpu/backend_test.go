package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/fpn/internal/tensor"
)

func TestBackendMetadata(t *testing.T) {
	backend := New()
	if backend.Name() != "CPU" {
		t.Errorf("Name() = %q", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v", backend.Device())
	}
}

func TestAdd(t *testing.T) {
	backend := New()
	a := rawFrom(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := rawFrom(t, tensor.Shape{2, 2}, []float32{10, 20, 30, 40})

	assertClose(t, []float32{11, 22, 33, 44}, backend.Add(a, b).Data(), 0)
	// Inputs untouched.
	assertClose(t, []float32{1, 2, 3, 4}, a.Data(), 0)
}

func TestAdd_ShapeMismatchPanics(t *testing.T) {
	backend := New()
	a := rawFrom(t, tensor.Shape{1, 1, 2, 2}, make([]float32, 4))
	b := rawFrom(t, tensor.Shape{1, 1, 2, 3}, make([]float32, 6))

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for shape mismatch")
		}
	}()
	backend.Add(a, b)
}

func TestMulScalar(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{3}, []float32{1, -2, 4})
	assertClose(t, []float32{0.5, -1, 2}, backend.MulScalar(x, 0.5).Data(), 0)
}

func TestReLU(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{4}, []float32{-1, 0, 2, -0.5})
	assertClose(t, []float32{0, 0, 2, 0}, backend.ReLU(x).Data(), 0)
}

func TestUpsampleNearest2D(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})

	out := backend.UpsampleNearest2D(x, 2)

	if !out.Shape().Equal(tensor.Shape{1, 1, 4, 4}) {
		t.Fatalf("Expected shape [1 1 4 4], got %v", out.Shape())
	}
	assertClose(t, []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}, out.Data(), 0)
}

func TestUpsampleNearest2D_NonSquare(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{1, 2, 1, 3}, []float32{1, 2, 3, 4, 5, 6})

	out := backend.UpsampleNearest2D(x, 2)

	if !out.Shape().Equal(tensor.Shape{1, 2, 2, 6}) {
		t.Fatalf("Expected shape [1 2 2 6], got %v", out.Shape())
	}
	assertClose(t, []float32{
		1, 1, 2, 2, 3, 3,
		1, 1, 2, 2, 3, 3,
		4, 4, 5, 5, 6, 6,
		4, 4, 5, 5, 6, 6,
	}, out.Data(), 0)
}

func TestChannelAffine(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{1, 2, 1, 2}, []float32{1, 2, 3, 4})
	scale := rawFrom(t, tensor.Shape{2}, []float32{2, -1})
	shift := rawFrom(t, tensor.Shape{2}, []float32{0.5, 1})

	assertClose(t, []float32{2.5, 4.5, -2, -3}, backend.ChannelAffine(x, scale, shift).Data(), 0)
}

func TestGroupNorm(t *testing.T) {
	backend := New()
	// Two groups of one channel each; each channel is normalized on its own.
	x := rawFrom(t, tensor.Shape{1, 2, 1, 4}, []float32{1, 2, 3, 4, 10, 10, 10, 10})

	out := backend.GroupNorm(x, 2, 1e-5).Data()

	std := float32(math.Sqrt(1.25 + 1e-5))
	want := []float32{-1.5 / std, -0.5 / std, 0.5 / std, 1.5 / std, 0, 0, 0, 0}
	assertClose(t, want, out, 1e-5)
}

func TestGroupNorm_SharedStatistics(t *testing.T) {
	backend := New()
	// One group spanning both channels: the statistics are shared.
	x := rawFrom(t, tensor.Shape{1, 2, 1, 1}, []float32{-3, 3})

	out := backend.GroupNorm(x, 1, 0).Data()
	assertClose(t, []float32{-1, 1}, out, 1e-6)
}

func TestGroupNorm_IndivisiblePanics(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{1, 3, 1, 1}, make([]float32, 3))

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for indivisible groups")
		}
	}()
	backend.GroupNorm(x, 2, 1e-5)
}
