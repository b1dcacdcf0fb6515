package fpn

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/born-ml/fpn/internal/backbone"
	"github.com/born-ml/fpn/internal/nn"
	"github.com/born-ml/fpn/internal/serialization"
	"github.com/born-ml/fpn/internal/tensor"
)

// BackbonePrefix prefixes FPN keys in a full detection model checkpoint.
const BackbonePrefix = "backbone."

// LoadStatus is the outcome of a checkpoint load.
type LoadStatus int

// Load outcomes.
const (
	// LoadComplete means every parameter matched and nothing was left over.
	LoadComplete LoadStatus = iota
	// LoadPartial means at least one name was missing, unexpected or had
	// a different shape.
	LoadPartial
	// LoadSkipped means the file did not exist and nothing was loaded.
	LoadSkipped
)

// String returns the status name.
func (s LoadStatus) String() string {
	switch s {
	case LoadComplete:
		return "complete"
	case LoadPartial:
		return "partial"
	case LoadSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// LoadReport describes a checkpoint load. Name lists are sorted.
type LoadReport struct {
	Path   string
	Status LoadStatus

	// Matched parameters were overwritten from the checkpoint.
	Matched []string
	// Missing parameters exist in the model only.
	Missing []string
	// Unexpected keys exist in the checkpoint only.
	Unexpected []string
	// ShapeMismatched names exist on both sides with different shapes and
	// were not applied.
	ShapeMismatched []string
}

// Success reports whether nothing was missing, unexpected or mismatched.
func (r *LoadReport) Success() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0 && len(r.ShapeMismatched) == 0
}

// String summarizes the report.
func (r *LoadReport) String() string {
	return fmt.Sprintf("%s: %s (matched=%d missing=%d unexpected=%d shape_mismatched=%d)",
		r.Path, r.Status, len(r.Matched), len(r.Missing), len(r.Unexpected), len(r.ShapeMismatched))
}

func newLoadReport(path string, result nn.LoadResult) *LoadReport {
	status := LoadComplete
	if !result.Complete() {
		status = LoadPartial
	}
	return &LoadReport{
		Path:            path,
		Status:          status,
		Matched:         result.Matched,
		Missing:         result.Missing,
		Unexpected:      result.Unexpected,
		ShapeMismatched: result.ShapeMismatched,
	}
}

// LoadCheckpoint loads a full detection model checkpoint into f.
//
// Only keys under "backbone." are kept, with the prefix stripped; head
// keys such as "roi_heads.*" are ignored. A file in which no key carries
// the prefix is a bare FPN state dict and is used unmodified. A missing
// file is not an error: the report has Status LoadSkipped and f is left
// untouched. Mismatches are reported, never returned as errors.
func LoadCheckpoint[B tensor.Backend](path string, f *FPN[B]) (*LoadReport, error) {
	ckpt, err := serialization.LoadCheckpoint(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadReport{Path: path, Status: LoadSkipped}, nil
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	return newLoadReport(path, nn.LoadStateDict[B](f, backboneKeys(ckpt.Model))), nil
}

// backboneKeys returns the entries of model under BackbonePrefix with the
// prefix removed, or model itself when no key has the prefix.
func backboneKeys(model map[string]*tensor.RawTensor) map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor, len(model))
	for key, raw := range model {
		if name, ok := strings.CutPrefix(key, BackbonePrefix); ok {
			sd[name] = raw
		}
	}
	if len(sd) == 0 {
		return model
	}
	return sd
}

// LoadBackboneCheckpoint loads a backbone-only checkpoint into bb with
// keys used unmodified. A missing file is an error wrapping fs.ErrNotExist.
func LoadBackboneCheckpoint[B tensor.Backend](path string, bb backbone.Backbone[B]) (*LoadReport, error) {
	ckpt, err := serialization.LoadCheckpoint(path)
	if err != nil {
		return nil, fmt.Errorf("load backbone checkpoint: %w", err)
	}
	return newLoadReport(path, nn.LoadStateDict[B](bb, ckpt.Model)), nil
}

// SaveCheckpoint writes the parameters of m to path, each key prefixed by
// prefix. Saving an FPN with BackbonePrefix produces a file LoadCheckpoint
// reads back completely.
func SaveCheckpoint[B tensor.Backend](path string, m nn.Module[B], prefix string) error {
	sd := nn.StateDict[B](m)
	model := make(map[string]*tensor.RawTensor, len(sd))
	for name, raw := range sd {
		model[prefix+name] = raw
	}
	if err := serialization.SaveCheckpoint(path, model, nil); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
