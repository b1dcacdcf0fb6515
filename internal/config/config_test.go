package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 50, cfg.Backbone.Depth)
	assert.Equal(t, []string{"res2", "res3", "res4", "res5"}, cfg.FPN.InFeatures)
	assert.Equal(t, 256, cfg.FPN.OutChannels)
	assert.Equal(t, "sum", cfg.FPN.FuseType)
	assert.Equal(t, TopBlockMaxPool, cfg.FPN.TopBlock)
	assert.Empty(t, cfg.Weights.Checkpoint)
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		depth    int
		channels int
	}{
		{"resnet18", ResNet18FPN(), 18, 128},
		{"resnet34", ResNet34FPN(), 34, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cfg.Validate())
			assert.Equal(t, tt.depth, tt.cfg.Backbone.Depth)
			assert.Equal(t, 64, tt.cfg.Backbone.Res2OutChannels)
			assert.Equal(t, tt.channels, tt.cfg.FPN.OutChannels)
			assert.Equal(t, "BN", tt.cfg.FPN.Norm)
			assert.Equal(t, TopBlockStridedConv, tt.cfg.FPN.TopBlock)
			assert.Equal(t, []string{"res2", "res3", "res4", "res5"}, tt.cfg.FPN.InFeatures)
		})
	}

	// Presets are independent copies.
	a, b := ResNet18FPN(), ResNet18FPN()
	a.FPN.InFeatures[0] = "res3"
	assert.Equal(t, "res2", b.FPN.InFeatures[0])
}

func TestLoad_Partial(t *testing.T) {
	path := writeConfig(t, "retinanet.yaml", `
backbone:
  depth: 101
fpn:
  in_features: [res3, res4, res5]
  top_block: p6p7
  fuse_type: avg
weights:
  checkpoint: weights/model.safetensors
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Backbone.Depth = 101
	want.FPN.InFeatures = []string{"res3", "res4", "res5"}
	want.FPN.TopBlock = TopBlockP6P7
	want.FPN.FuseType = "avg"
	want.Weights.Checkpoint = "weights/model.safetensors"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"extension", "config.json", "{}", nil},
		{"syntax", "bad.yaml", "fpn: [", nil},
		{"unknown key", "bad.yaml", "fpn:\n  channels: 3\n", nil},
		{"fuse type", "bad.yaml", "fpn:\n  fuse_type: max\n", ErrInvalid},
		{"top block", "bad.yaml", "fpn:\n  top_block: p6\n", ErrInvalid},
		{"depth", "bad.yaml", "backbone:\n  depth: 42\n", ErrInvalid},
		{"norm", "bad.yaml", "backbone:\n  norm: LN\n", ErrInvalid},
		{"in feature", "bad.yaml", "backbone:\n  out_features: [res2, res3]\n", ErrInvalid},
		{"channels", "bad.yaml", "fpn:\n  out_channels: 0\n", ErrInvalid},
		{"backbone only", "bad.yaml", "weights:\n  backbone_only: true\n", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.FPN.Norm = "GN"
	cfg.FPN.TopBlock = TopBlockStridedConv

	data, err := cfg.Marshal()
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
