package backbone

import (
	"fmt"
	"strings"

	"github.com/born-ml/fpn/internal/tensor"
)

// FeatureMaps is an ordered mapping from level name to feature map.
// Iteration order is insertion order.
type FeatureMaps[B tensor.Backend] struct {
	names  []string
	values map[string]*tensor.Tensor[B]
}

// NewFeatureMaps creates an empty FeatureMaps.
func NewFeatureMaps[B tensor.Backend]() *FeatureMaps[B] {
	return &FeatureMaps[B]{
		values: make(map[string]*tensor.Tensor[B]),
	}
}

// Set stores t under name. A new name is appended to the order; an
// existing name keeps its position.
func (f *FeatureMaps[B]) Set(name string, t *tensor.Tensor[B]) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = t
}

// Get returns the feature map stored under name.
func (f *FeatureMaps[B]) Get(name string) (*tensor.Tensor[B], bool) {
	t, ok := f.values[name]
	return t, ok
}

// MustGet is like Get but panics if name is absent.
func (f *FeatureMaps[B]) MustGet(name string) *tensor.Tensor[B] {
	t, ok := f.values[name]
	if !ok {
		panic(fmt.Sprintf("feature maps: no feature %q (have %v)", name, f.names))
	}
	return t
}

// Names returns the names in insertion order.
func (f *FeatureMaps[B]) Names() []string {
	return append([]string(nil), f.names...)
}

// Len returns the number of feature maps.
func (f *FeatureMaps[B]) Len() int {
	return len(f.names)
}

// String lists each name with its shape.
func (f *FeatureMaps[B]) String() string {
	parts := make([]string, len(f.names))
	for i, name := range f.names {
		parts[i] = fmt.Sprintf("%s:%v", name, f.values[name].Shape())
	}
	return "FeatureMaps{" + strings.Join(parts, ", ") + "}"
}
