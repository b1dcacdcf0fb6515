// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/fpn/internal/tensor"
)

// RawTensor is the low-level tensor representation: a shape and a
// contiguous float32 buffer.
//
// Most users should use the high-level Tensor[B] type instead.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.CPU)
//	data := raw.Data()   // shared, not copied
//	clone := raw.Clone() // independent copy
type RawTensor = tensor.RawTensor

// NewRaw creates a zeroed raw tensor.
func NewRaw(shape Shape, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, device)
}
