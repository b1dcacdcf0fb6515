package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fpn/internal/backend/cpu"
	"github.com/born-ml/fpn/internal/tensor"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// TestMaxPool2D_Stem tests the 3x3 stride 2 padding 1 configuration.
func TestMaxPool2D_Stem(t *testing.T) {
	backend := cpu.New()
	pool := NewMaxPool2D(3, 2, 1, backend)

	output := pool.Forward(tensor.RandnFrom(newRand(), tensor.Shape{2, 3, 16, 15}, backend))

	assert.True(t, output.Shape().Equal(tensor.Shape{2, 3, 8, 8}), "got %v", output.Shape())
	assert.Equal(t, [2]int{8, 8}, pool.ComputeOutputSize(16, 15))
	assert.Empty(t, pool.Parameters())
}

// TestMaxPool2D_Subsample tests kernel 1 stride 2: every other pixel.
func TestMaxPool2D_Subsample(t *testing.T) {
	backend := cpu.New()
	pool := NewMaxPool2D(1, 2, 0, backend)

	data := make([]float32, 25)
	for i := range data {
		data[i] = float32(i)
	}
	input, err := tensor.FromSlice(data, tensor.Shape{1, 1, 5, 5}, backend)
	require.NoError(t, err)

	output := pool.Forward(input)

	assert.True(t, output.Shape().Equal(tensor.Shape{1, 1, 3, 3}))
	assert.Equal(t, []float32{0, 2, 4, 10, 12, 14, 20, 22, 24}, output.Data())
}

func TestMaxPool2D_InvalidArgs(t *testing.T) {
	backend := cpu.New()

	assert.Panics(t, func() { NewMaxPool2D(0, 2, 0, backend) })
	assert.Panics(t, func() { NewMaxPool2D(2, 0, 0, backend) })
	assert.Panics(t, func() { NewMaxPool2D(2, 2, 2, backend) })
	assert.Equal(t, "MaxPool2D(kernel_size=3, stride=2, padding=1)", NewMaxPool2D(3, 2, 1, backend).String())
}
