// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fpn

import (
	internalfpn "github.com/born-ml/fpn/internal/fpn"
	"github.com/born-ml/fpn/nn"
	"github.com/born-ml/fpn/tensor"
)

// BackbonePrefix prefixes FPN keys in full detection-model checkpoints.
const BackbonePrefix = internalfpn.BackbonePrefix

// LoadStatus is the outcome of a checkpoint load.
type LoadStatus = internalfpn.LoadStatus

// Load outcomes.
const (
	LoadComplete = internalfpn.LoadComplete
	LoadPartial  = internalfpn.LoadPartial
	LoadSkipped  = internalfpn.LoadSkipped
)

// LoadReport describes a checkpoint load.
type LoadReport = internalfpn.LoadReport

// LoadCheckpoint loads a full-model checkpoint into f. A missing file
// yields a LoadSkipped report and a nil error.
func LoadCheckpoint[B tensor.Backend](path string, f *FPN[B]) (*LoadReport, error) {
	return internalfpn.LoadCheckpoint(path, f)
}

// LoadBackboneCheckpoint loads a backbone-only checkpoint into bb.
func LoadBackboneCheckpoint[B tensor.Backend](path string, bb Backbone[B]) (*LoadReport, error) {
	return internalfpn.LoadBackboneCheckpoint[B](path, bb)
}

// SaveCheckpoint writes the parameters of m to path with every key
// prefixed by prefix.
//
// Example:
//
//	err := fpn.SaveCheckpoint[*cpu.Backend]("fpn.safetensors", model, fpn.BackbonePrefix)
func SaveCheckpoint[B tensor.Backend](path string, m nn.Module[B], prefix string) error {
	return internalfpn.SaveCheckpoint[B](path, m, prefix)
}
