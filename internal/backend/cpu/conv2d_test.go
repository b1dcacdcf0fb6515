package cpu

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/fpn/internal/parallel"
	"github.com/born-ml/fpn/internal/tensor"
)

func rawFrom(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	copy(r.Data(), data)
	return r
}

func randRaw(t *testing.T, rng *rand.Rand, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	for i := range r.Data() {
		r.Data()[i] = float32(rng.NormFloat64())
	}
	return r
}

// naiveConv2D is the direct six-loop convolution used as a reference.
func naiveConv2D(input, kernel, bias *tensor.RawTensor, stride, padding int) []float32 {
	N, C, H, W := input.Shape().NCHW("naive")
	ks := kernel.Shape()
	COut, KH, KW := ks[0], ks[2], ks[3]
	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1

	in, k := input.Data(), kernel.Data()
	out := make([]float32, N*COut*HOut*WOut)
	for n := 0; n < N; n++ {
		for oc := 0; oc < COut; oc++ {
			for oh := 0; oh < HOut; oh++ {
				for ow := 0; ow < WOut; ow++ {
					var sum float64
					for c := 0; c < C; c++ {
						for kh := 0; kh < KH; kh++ {
							for kw := 0; kw < KW; kw++ {
								h := oh*stride - padding + kh
								w := ow*stride - padding + kw
								if h < 0 || h >= H || w < 0 || w >= W {
									continue
								}
								sum += float64(in[((n*C+c)*H+h)*W+w]) * float64(k[((oc*C+c)*KH+kh)*KW+kw])
							}
						}
					}
					if bias != nil {
						sum += float64(bias.Data()[oc])
					}
					out[((n*COut+oc)*HOut+oh)*WOut+ow] = float32(sum)
				}
			}
		}
	}
	return out
}

func assertClose(t *testing.T, want, got []float32, tol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("length mismatch: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(float64(want[i]-got[i])) > tol {
			t.Fatalf("index %d: want %.5f, got %.5f", i, want[i], got[i])
		}
	}
}

// TestConv2D_BasicForward tests a 2x2 diagonal kernel over a 3x3 image.
func TestConv2D_BasicForward(t *testing.T) {
	backend := New()

	// 1 2 3
	// 4 5 6
	// 7 8 9
	input := rawFrom(t, tensor.Shape{1, 1, 3, 3}, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	kernel := rawFrom(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 0, 0, 1})

	output := backend.Conv2D(input, kernel, nil, 1, 0)

	if !output.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("Expected shape [1 1 2 2], got %v", output.Shape())
	}
	assertClose(t, []float32{6, 8, 12, 14}, output.Data(), 0)
}

// TestConv2D_WithPadding tests zero padding with a 3x3 sum kernel.
func TestConv2D_WithPadding(t *testing.T) {
	backend := New()

	input := rawFrom(t, tensor.Shape{1, 1, 3, 3}, []float32{1, 1, 1, 1, 1, 1, 1, 1, 1})
	kernel := rawFrom(t, tensor.Shape{1, 1, 3, 3}, []float32{1, 1, 1, 1, 1, 1, 1, 1, 1})

	output := backend.Conv2D(input, kernel, nil, 1, 1)

	// Corners see 4 inputs, edges 6, the center 9.
	assertClose(t, []float32{4, 6, 4, 6, 9, 6, 4, 6, 4}, output.Data(), 0)
}

// TestConv2D_Stride tests a pointwise kernel with stride 2.
func TestConv2D_Stride(t *testing.T) {
	backend := New()

	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i + 1)
	}
	input := rawFrom(t, tensor.Shape{1, 1, 4, 4}, data)
	kernel := rawFrom(t, tensor.Shape{1, 1, 1, 1}, []float32{2})

	output := backend.Conv2D(input, kernel, nil, 2, 0)

	if !output.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("Expected shape [1 1 2 2], got %v", output.Shape())
	}
	assertClose(t, []float32{2, 6, 18, 22}, output.Data(), 0)
}

// TestConv2D_MatchesNaive compares im2col+GEMM with the direct loop across
// the configurations a feature pyramid uses.
func TestConv2D_MatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name            string
		n, c, h, w      int
		cOut, k         int
		stride, padding int
		bias            bool
	}{
		{"lateral 1x1", 2, 5, 6, 7, 4, 1, 1, 0, true},
		{"output 3x3", 2, 4, 6, 6, 4, 3, 1, 1, true},
		{"strided 3x3", 1, 3, 7, 7, 6, 3, 2, 1, false},
		{"stem 7x7", 1, 3, 16, 16, 8, 7, 2, 3, false},
		{"shortcut 1x1 s2", 2, 4, 8, 8, 8, 1, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := randRaw(t, rng, tensor.Shape{tt.n, tt.c, tt.h, tt.w})
			kernel := randRaw(t, rng, tensor.Shape{tt.cOut, tt.c, tt.k, tt.k})
			var bias *tensor.RawTensor
			if tt.bias {
				bias = randRaw(t, rng, tensor.Shape{tt.cOut})
			}

			want := naiveConv2D(input, kernel, bias, tt.stride, tt.padding)
			for _, backend := range []*CPUBackend{New(), NewWithConfig(parallel.Sequential())} {
				got := backend.Conv2D(input, kernel, bias, tt.stride, tt.padding)
				assertClose(t, want, got.Data(), 1e-4)
			}
		})
	}
}

// TestConv2D_ChannelMismatch tests that mismatched channels panic.
func TestConv2D_ChannelMismatch(t *testing.T) {
	backend := New()
	input := rawFrom(t, tensor.Shape{1, 2, 3, 3}, make([]float32, 18))
	kernel := rawFrom(t, tensor.Shape{1, 3, 1, 1}, make([]float32, 3))

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for channel mismatch")
		}
	}()
	backend.Conv2D(input, kernel, nil, 1, 0)
}

// TestConv2D_DoesNotMutateInput guards the pointwise fast path, which
// hands the input plane straight to GEMM.
func TestConv2D_DoesNotMutateInput(t *testing.T) {
	backend := New()
	input := rawFrom(t, tensor.Shape{1, 2, 2, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	kernel := rawFrom(t, tensor.Shape{3, 2, 1, 1}, []float32{1, 1, 2, 2, 3, 3})
	bias := rawFrom(t, tensor.Shape{3}, []float32{1, 2, 3})

	output := backend.Conv2D(input, kernel, bias, 1, 0)

	assertClose(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, input.Data(), 0)
	assertClose(t, []float32{
		7, 9, 11, 13,
		14, 18, 22, 26,
		21, 27, 33, 39,
	}, output.Data(), 1e-5)
}
