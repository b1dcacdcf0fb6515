// Package backbone defines the bottom-up feature extractors a pyramid is
// built on, and provides the ResNet family.
package backbone

import (
	"errors"
	"fmt"

	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/internal/tensor"
)

// Configuration errors.
var (
	ErrInvalidDepth  = errors.New("invalid resnet depth")
	ErrInvalidConfig = errors.New("invalid backbone config")
)

// ShapeSpec declares the channel count and stride of a named output, so
// heads can size their parameters without running a forward pass.
type ShapeSpec struct {
	Channels int
	Stride   int
}

// String returns "ShapeSpec(channels=C, stride=S)".
func (s ShapeSpec) String() string {
	return fmt.Sprintf("ShapeSpec(channels=%d, stride=%d)", s.Channels, s.Stride)
}

// Backbone is a bottom-up network producing named feature maps.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Backbone[B tensor.Backend] interface {
	nn.Module[B]

	// Forward runs the network on an image batch [N, C, H, W] and returns
	// the OutFeatures maps in order of decreasing resolution.
	Forward(x *tensor.Tensor[B]) *FeatureMaps[B]

	// OutputShape returns the ShapeSpec of every output feature.
	OutputShape() map[string]ShapeSpec

	// OutFeatures returns the output feature names, high to low resolution.
	OutFeatures() []string
}
