package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fpn/internal/backend/cpu"
	"github.com/born-ml/fpn/internal/tensor"
)

func paramNames[B tensor.Backend](params []*Parameter[B]) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}
	return names
}

// TestConv2D_Creation tests Conv2D layer creation.
func TestConv2D_Creation(t *testing.T) {
	backend := cpu.New()

	conv := NewConv2D(3, 8, 3, 3, 1, 1, true, backend)

	assert.Equal(t, 3, conv.InChannels())
	assert.Equal(t, 8, conv.OutChannels())
	assert.Equal(t, [2]int{3, 3}, conv.KernelSize())
	assert.True(t, conv.Weight().Tensor().Shape().Equal(tensor.Shape{8, 3, 3, 3}))
	assert.True(t, conv.Bias().Tensor().Shape().Equal(tensor.Shape{8}))
	assert.Equal(t, []string{"weight", "bias"}, paramNames(conv.Parameters()))
}

// TestConv2D_NoBias tests that useBias=false drops the bias parameter.
func TestConv2D_NoBias(t *testing.T) {
	conv := NewConv2D(3, 8, 1, 1, 1, 0, false, cpu.New())

	assert.Nil(t, conv.Bias())
	assert.Equal(t, []string{"weight"}, paramNames(conv.Parameters()))
}

// TestConv2D_ForwardShape tests output spatial sizes for stride and padding.
func TestConv2D_ForwardShape(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name            string
		k               int
		stride, padding int
		want            tensor.Shape
	}{
		{"same 3x3", 3, 1, 1, tensor.Shape{2, 4, 9, 7}},
		{"lateral 1x1", 1, 1, 0, tensor.Shape{2, 4, 9, 7}},
		{"strided 3x3", 3, 2, 1, tensor.Shape{2, 4, 5, 4}},
		{"stem 7x7", 7, 2, 3, tensor.Shape{2, 4, 5, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConv2D(3, 4, tt.k, tt.k, tt.stride, tt.padding, true, backend)
			output := conv.Forward(tensor.Zeros(tensor.Shape{2, 3, 9, 7}, backend))

			assert.True(t, output.Shape().Equal(tt.want), "got %v, want %v", output.Shape(), tt.want)
			hw := conv.ComputeOutputSize(9, 7)
			assert.Equal(t, [2]int{tt.want[2], tt.want[3]}, hw)
		})
	}
}

// TestConv2D_ForwardValues tests forward pass with known weights and bias.
func TestConv2D_ForwardValues(t *testing.T) {
	backend := cpu.New()

	conv := NewConv2D(1, 1, 2, 2, 1, 0, true, backend)
	copy(conv.Weight().Tensor().Data(), []float32{1, 0, 0, 1})
	conv.Bias().Tensor().Data()[0] = 0.5

	input, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 1, 3, 3}, backend)
	require.NoError(t, err)

	output := conv.Forward(input)

	assert.Equal(t, []float32{6.5, 8.5, 12.5, 14.5}, output.Data())
}

// TestConv2D_WithNorm tests that the norm runs after the convolution and that
// its parameters are nested under "norm.".
func TestConv2D_WithNorm(t *testing.T) {
	backend := cpu.New()

	norm, err := NewNorm(NormFrozenBN, 2, backend)
	require.NoError(t, err)
	conv := NewConv2D(1, 2, 1, 1, 1, 0, false, backend).WithNorm(norm)
	copy(conv.Weight().Tensor().Data(), []float32{1, 2})

	bn := norm.(*FrozenBatchNorm2D[*cpu.CPUBackend])
	copy(bn.weight.Tensor().Data(), []float32{3, 1})
	copy(bn.bias.Tensor().Data(), []float32{0, -1})

	assert.Equal(t, []string{
		"weight",
		"norm.weight", "norm.bias", "norm.running_mean", "norm.running_var",
	}, paramNames(conv.Parameters()))

	input, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 1, 1, 2}, backend)
	require.NoError(t, err)

	output := conv.Forward(input).Data()
	// Channel 0: x*1*3, channel 1: x*2*1 - 1.
	assert.InDeltaSlice(t, []float32{3, 6, 1, 3}, output, 1e-4)
}

// TestConv2D_C2XavierFill tests the fill bound and the zeroed bias.
func TestConv2D_C2XavierFill(t *testing.T) {
	backend := cpu.New()

	conv := NewConv2D(16, 8, 3, 3, 1, 1, true, backend)
	conv.Bias().Tensor().Data()[0] = 1
	conv.C2XavierFill()

	bound := float32(math.Sqrt(3.0 / float64(16*3*3)))
	nonZero := 0
	for _, v := range conv.Weight().Tensor().Data() {
		require.LessOrEqual(t, v, bound)
		require.GreaterOrEqual(t, v, -bound)
		if v != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero)
	assert.Equal(t, make([]float32, 8), conv.Bias().Tensor().Data())
}

// TestConv2D_InvalidArgs tests that invalid hyperparameters panic.
func TestConv2D_InvalidArgs(t *testing.T) {
	backend := cpu.New()

	assert.Panics(t, func() { NewConv2D(0, 4, 3, 3, 1, 1, true, backend) })
	assert.Panics(t, func() { NewConv2D(4, 4, 0, 3, 1, 1, true, backend) })
	assert.Panics(t, func() { NewConv2D(4, 4, 3, 3, 0, 1, true, backend) })
	assert.Panics(t, func() { NewConv2D(4, 4, 3, 3, 1, -1, true, backend) })
}

// TestConv2D_WrongInputChannels tests that a channel mismatch panics.
func TestConv2D_WrongInputChannels(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(4, 4, 3, 3, 1, 1, true, backend)

	assert.PanicsWithValue(t, "conv2d: input channels 3 != expected 4", func() {
		conv.Forward(tensor.Zeros(tensor.Shape{1, 3, 5, 5}, backend))
	})
}

func TestMSRAFill_Statistics(t *testing.T) {
	backend := cpu.New()
	fanOut := 64 * 3 * 3
	w := MSRAFill(fanOut, tensor.Shape{64, 32, 3, 3}, backend).Data()

	var sum, sumSq float64
	for _, v := range w {
		sum += float64(v)
		sumSq += float64(v) * float64(v)
	}
	n := float64(len(w))
	mean := sum / n
	variance := sumSq/n - mean*mean

	assert.InDelta(t, 0, mean, 0.01)
	assert.InDelta(t, 2.0/float64(fanOut), variance, 0.2*2.0/float64(fanOut))
}

func TestSeedInit(t *testing.T) {
	backend := cpu.New()

	SeedInit(7)
	a := NewConv2D(3, 4, 3, 3, 1, 1, true, backend)
	a.C2XavierFill()
	SeedInit(7)
	b := NewConv2D(3, 4, 3, 3, 1, 1, true, backend)
	b.C2XavierFill()

	assert.Equal(t, a.Weight().Tensor().Data(), b.Weight().Tensor().Data())
}
