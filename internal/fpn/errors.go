package fpn

import (
	"errors"

	"github.com/born-ml/fpn/internal/nn"
)

// Construction errors. Check with errors.Is.
var (
	ErrNonContiguousStrides = errors.New("input feature strides are not log2-contiguous")
	ErrInvalidFuseType      = errors.New("invalid fuse type")
	ErrUnknownFeature       = errors.New("unknown feature")
	ErrInvalidConfig        = errors.New("invalid fpn config")

	// ErrInvalidNorm is shared with the layer package so that norm errors
	// from any depth of construction match.
	ErrInvalidNorm = nn.ErrInvalidNorm
)
