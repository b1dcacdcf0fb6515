// Package nn implements the neural network layers feature pyramids are
// assembled from.
//
// This package provides:
//   - Module / Layer interfaces: parameter ownership and single-tensor forward
//   - Parameter: named weight tensors with dotted-path prefixes
//   - Conv2D with an optional normalization layer
//   - FrozenBatchNorm2D and GroupNorm
//   - MaxPool2D
//   - Weight initialization (c2 Xavier, MSRA)
//   - State dicts: flatten parameters by name and load them back
//
// There is no gradient tracking; layers are inference-only.
package nn

import (
	"github.com/born-ml/fpn/internal/tensor"
)

// Module is the base interface for every component that owns parameters.
//
// Composite modules return the parameters of their children with the
// child's attribute name prepended, so the names form dotted paths such as
// "res2.0.conv1.norm.weight".
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Parameters returns all parameters of this module, including those of
	// nested modules. Returns an empty slice for parameter-free modules.
	Parameters() []*Parameter[B]
}

// Layer is a Module mapping one tensor to one tensor.
//
// Example:
//
//	conv := nn.NewConv2D(3, 64, 7, 7, 2, 3, false, backend)
//	y := conv.Forward(x) // [N, 64, H/2, W/2]
type Layer[B tensor.Backend] interface {
	Module[B]

	// Forward computes the output of the layer given an input tensor.
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]
}

// Prefixed returns params renamed under prefix ("prefix.name").
// The returned parameters share tensors with the originals.
func Prefixed[B tensor.Backend](prefix string, params []*Parameter[B]) []*Parameter[B] {
	out := make([]*Parameter[B], len(params))
	for i, p := range params {
		out[i] = p.WithPrefix(prefix)
	}
	return out
}
