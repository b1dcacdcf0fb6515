package nn

import (
	"math"
	"math/rand"
	"sync"

	"github.com/born-ml/fpn/internal/tensor"
)

var (
	initMu  sync.Mutex
	initRng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // weight init is not security-critical
)

// SeedInit reseeds the source used by the fill functions, making layer
// construction reproducible.
func SeedInit(seed int64) {
	initMu.Lock()
	defer initMu.Unlock()
	initRng = rand.New(rand.NewSource(seed)) //nolint:gosec // weight init is not security-critical
}

// C2XavierFill returns a tensor initialized the way Caffe2's XavierFill does.
//
// Values are drawn from U(-sqrt(3/fan_in), sqrt(3/fan_in)). Unlike the
// Glorot variant, fan_out does not enter the bound. This is the
// initialization used for pyramid lateral and output convolutions.
//
// Parameters:
//   - fanIn: in_channels * kernel_h * kernel_w
//   - shape: Shape of the weight tensor
//   - backend: Backend to use for tensor creation
func C2XavierFill[B tensor.Backend](fanIn int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	bound := math.Sqrt(3.0 / float64(fanIn))

	t := tensor.Zeros(shape, backend)
	data := t.Data()
	initMu.Lock()
	for i := range data {
		data[i] = float32((initRng.Float64()*2.0 - 1.0) * bound)
	}
	initMu.Unlock()

	return t
}

// MSRAFill returns a tensor drawn from N(0, 2/fan_out).
//
// This is He initialization in fan_out mode, used for backbone convolutions
// followed by ReLU.
//
// Parameters:
//   - fanOut: out_channels * kernel_h * kernel_w
//   - shape: Shape of the weight tensor
//   - backend: Backend to use for tensor creation
func MSRAFill[B tensor.Backend](fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	std := math.Sqrt(2.0 / float64(fanOut))

	t := tensor.Zeros(shape, backend)
	data := t.Data()
	initMu.Lock()
	for i := range data {
		data[i] = float32(initRng.NormFloat64() * std)
	}
	initMu.Unlock()

	return t
}
