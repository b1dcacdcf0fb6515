package nn

import (
	"fmt"
	"sort"

	"github.com/born-ml/fpn/internal/tensor"
)

// StateDict flattens a module's parameters into a name -> tensor map.
// The tensors are shared with the module, not copied.
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	params := m.Parameters()
	sd := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		sd[p.Name()] = p.Tensor().Raw()
	}
	return sd
}

// LoadResult describes how a state dict matched a module.
// All name lists are sorted.
type LoadResult struct {
	// Matched parameters were found with the right shape and overwritten.
	Matched []string
	// Missing parameters exist in the module but not in the state dict.
	Missing []string
	// Unexpected entries exist in the state dict but not in the module.
	Unexpected []string
	// ShapeMismatched names exist on both sides with different shapes.
	// They are left untouched.
	ShapeMismatched []string
}

// Complete reports whether every parameter matched and nothing was left over.
func (r LoadResult) Complete() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0 && len(r.ShapeMismatched) == 0
}

// LoadStateDict copies values from sd into the module's parameters by exact
// name. Mismatches are reported in the result, never as an error; the
// module keeps its current values for anything not matched.
func LoadStateDict[B tensor.Backend](m Module[B], sd map[string]*tensor.RawTensor) LoadResult {
	var result LoadResult
	seen := make(map[string]bool, len(sd))

	for _, p := range m.Parameters() {
		name := p.Name()
		src, ok := sd[name]
		if !ok {
			result.Missing = append(result.Missing, name)
			continue
		}
		seen[name] = true

		if err := p.Tensor().Raw().CopyFrom(src); err != nil {
			result.ShapeMismatched = append(result.ShapeMismatched, name)
			continue
		}
		result.Matched = append(result.Matched, name)
	}

	for name := range sd {
		if !seen[name] {
			result.Unexpected = append(result.Unexpected, name)
		}
	}

	sort.Strings(result.Matched)
	sort.Strings(result.Missing)
	sort.Strings(result.Unexpected)
	sort.Strings(result.ShapeMismatched)
	return result
}

// String summarizes the result counts.
func (r LoadResult) String() string {
	return fmt.Sprintf("matched=%d missing=%d unexpected=%d shape_mismatched=%d",
		len(r.Matched), len(r.Missing), len(r.Unexpected), len(r.ShapeMismatched))
}
