package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/fpn/internal/backend/cpu"
	"github.com/born-ml/fpn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(1, 2))
	assert.Equal(t, tensor.CPU, x.Device())

	_, err = tensor.FromSlice([]float32{1, 2}, tensor.Shape{2, 3}, backend)
	assert.Error(t, err)
}

func TestAtSetBounds(t *testing.T) {
	x := tensor.Zeros(tensor.Shape{2, 2}, cpu.New())
	x.Set(3, 1, 0)
	assert.Equal(t, []float32{0, 0, 3, 0}, x.Data())

	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}

func TestFullAndOnes(t *testing.T) {
	backend := cpu.New()
	for _, v := range tensor.Full(tensor.Shape{3}, 2.5, backend).Data() {
		assert.Equal(t, float32(2.5), v)
	}
	for _, v := range tensor.Ones(tensor.Shape{2, 2}, backend).Data() {
		assert.Equal(t, float32(1), v)
	}
}

func TestRandnFromIsReproducible(t *testing.T) {
	backend := cpu.New()
	a := tensor.RandnFrom(rand.New(rand.NewSource(7)), tensor.Shape{4, 4}, backend)
	b := tensor.RandnFrom(rand.New(rand.NewSource(7)), tensor.Shape{4, 4}, backend)
	assert.Equal(t, a.Data(), b.Data())
}

func TestTensorOpsDoNotMutateInputs(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{-1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	y := x.ReLU().Add(x).MulScalar(2)

	assert.Equal(t, []float32{-1, 2}, x.Data())
	assert.Equal(t, []float32{-2, 8}, y.Data())
}

func TestCloneIsIndependent(t *testing.T) {
	x := tensor.Ones(tensor.Shape{2}, cpu.New())
	c := x.Clone()
	c.Set(5, 0)
	assert.Equal(t, float32(1), x.At(0))
}
