package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyConfig = `
backbone:
  depth: 18
  stem_out_channels: 8
  res2_out_channels: 8
fpn:
  out_channels: 8
  top_block: p6p7
`

func writeTinyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tinyConfig), 0o600))
	return path
}

func TestRun_ExportAndReload(t *testing.T) {
	cfgPath := writeTinyConfig(t)
	ckpt := filepath.Join(t.TempDir(), "tiny.safetensors")

	var first bytes.Buffer
	err := run([]string{"-config", cfgPath, "-iters", "1", "-size", "60", "-export", ckpt, "-seed", "3"}, &first)
	require.NoError(t, err, first.String())
	assert.Contains(t, first.String(), "exported checkpoint")
	assert.Contains(t, first.String(), "input size rounded up")
	assert.Contains(t, first.String(), "feature=p7")
	assert.Contains(t, first.String(), "run_id=")
	assert.FileExists(t, ckpt)

	var second bytes.Buffer
	err = run([]string{"-config", cfgPath, "-iters", "0", "-checkpoint", ckpt}, &second)
	require.NoError(t, err, second.String())
	assert.Contains(t, second.String(), "status=complete")
}

func TestRun_MissingCheckpoint(t *testing.T) {
	cfgPath := writeTinyConfig(t)
	missing := filepath.Join(t.TempDir(), "nope.safetensors")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-config", cfgPath, "-iters", "0", "-checkpoint", missing}, &out))
	assert.Contains(t, out.String(), "checkpoint not found")

	// A backbone-only load has no skip status.
	out.Reset()
	require.Error(t, run([]string{"-config", cfgPath, "-iters", "0", "-checkpoint", missing, "-backbone-only"}, &out))
}

func TestRun_Errors(t *testing.T) {
	cfgPath := writeTinyConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope"}},
		{"extra args", []string{"foo"}},
		{"bad batch", []string{"-batch", "0"}},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"backbone only without checkpoint", []string{"-config", cfgPath, "-backbone-only"}},
		{"unknown backend", []string{"-config", cfgPath, "-backend", "tpu"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, &out))
		})
	}
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, 224, roundUp(224, 32))
	assert.Equal(t, 256, roundUp(225, 32))
	assert.Equal(t, 32, roundUp(1, 32))
}
