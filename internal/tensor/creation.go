package tensor

import (
	"fmt"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return Full(shape, 0, b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(fmt.Sprintf("full: %v", err))
	}
	if value != 0 {
		data := raw.Data()
		for i := range data {
			data[i] = value
		}
	}
	return New(raw, b)
}

// Randn creates a tensor with values drawn from N(0, 1).
func Randn[B Backend](shape Shape, b B) *Tensor[B] {
	//nolint:gosec // Using math/rand for random inputs (not security-critical)
	return RandnFrom(rand.New(rand.NewSource(rand.Int63())), shape, b)
}

// RandnFrom is like Randn but draws from rng, for reproducible inputs.
func RandnFrom[B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[B] {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(fmt.Sprintf("randn: %v", err))
	}
	data := raw.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return New(raw, b)
}
