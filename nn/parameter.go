// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/tensor"
)

// Parameter is a named tensor owned by a layer.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
//	scoped := weight.WithPrefix("lateral2") // "lateral2.weight"
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Prefixed returns params renamed to "<prefix>.<name>".
func Prefixed[B tensor.Backend](prefix string, params []*Parameter[B]) []*Parameter[B] {
	return nn.Prefixed(prefix, params)
}
