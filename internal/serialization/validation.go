package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// tensorSpan is the byte range a tensor occupies in the data section.
type tensorSpan struct {
	name  string
	start int64
	end   int64
}

// validateTensorOffsets checks for negative, overlapping and out-of-bounds
// tensor ranges. Malformed files could otherwise read past the data section
// or alias one tensor's bytes into another.
func validateTensorOffsets(spans []tensorSpan, dataSize int64) error {
	if len(spans) > MaxTensorCount {
		return &ValidationError{
			Err:     ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(spans), MaxTensorCount),
		}
	}

	sorted := make([]tensorSpan, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	for i, t := range sorted {
		if t.start < 0 || t.end < t.start {
			return &ValidationError{
				Err:     ErrNegativeOffset,
				Tensor:  t.name,
				Details: fmt.Sprintf("data_offsets [%d, %d]", t.start, t.end),
			}
		}

		if t.end > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  t.name,
				Details: fmt.Sprintf("end %d > data_size %d", t.end, dataSize),
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.end > next.start {
				return &ValidationError{
					Err:     ErrOffsetOverlap,
					Tensor:  t.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", t.start, t.end, next.start, next.end),
				}
			}
		}
	}

	return nil
}

// ValidateTensorName checks tensor names for path traversal and malicious patterns.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Err: ErrInvalidTensorName, Details: "empty name"}
	}

	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Err:     ErrTensorNameTooLong,
			Tensor:  name[:64] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}

	if strings.Contains(name, "..") {
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name,
			Details: "contains '..'",
		}
	}

	if strings.ContainsAny(name, "/\\\x00") {
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name,
			Details: "contains a path separator or null byte",
		}
	}

	return nil
}

// validateHeader checks every tensor entry against the data section size.
func validateHeader(h *Header, dataSize int64) error {
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Err:     ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	spans := make([]tensorSpan, 0, len(h.Tensors))
	for name, info := range h.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}

		size := info.DType.Size()
		if size == 0 {
			return &ValidationError{
				Err:     ErrUnsupportedDType,
				Tensor:  name,
				Details: fmt.Sprintf("dtype %q (want F16, BF16, F32 or F64)", info.DType),
			}
		}

		elements := int64(1)
		for _, dim := range info.Shape {
			if dim <= 0 {
				return &ValidationError{
					Err:     ErrInvalidShape,
					Tensor:  name,
					Details: fmt.Sprintf("shape %v", info.Shape),
				}
			}
			elements *= int64(dim)
		}

		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if end-start != elements*int64(size) {
			return &ValidationError{
				Err:     ErrSizeMismatch,
				Tensor:  name,
				Details: fmt.Sprintf("%s%v needs %d bytes, data_offsets span %d", info.DType, info.Shape, elements*int64(size), end-start),
			}
		}

		spans = append(spans, tensorSpan{name: name, start: start, end: end})
	}

	return validateTensorOffsets(spans, dataSize)
}
