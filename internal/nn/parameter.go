package nn

import (
	"github.com/born-ml/fpn/internal/tensor"
)

// Parameter is a named weight tensor of a layer.
//
// Names are relative to the owning module ("weight", "norm.running_var");
// parents extend them with WithPrefix while walking the module tree.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	full := weight.WithPrefix("lateral2") // "lateral2.weight"
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[B]
}

// NewParameter creates a new parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] {
	return p.tensor
}

// WithPrefix returns a parameter named "prefix.name" sharing the same tensor.
// An empty prefix returns p unchanged.
func (p *Parameter[B]) WithPrefix(prefix string) *Parameter[B] {
	if prefix == "" {
		return p
	}
	return &Parameter[B]{
		name:   prefix + "." + p.name,
		tensor: p.tensor,
	}
}
