package fpn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fpn/internal/backbone"
	"github.com/born-ml/fpn/internal/backend/cpu"
	"github.com/born-ml/fpn/internal/config"
	"github.com/born-ml/fpn/internal/tensor"
)

// tinyConfig is a narrow ResNet-18-FPN.
func tinyConfig() *config.Config {
	cfg := config.Default()
	cfg.Backbone.Depth = 18
	cfg.Backbone.StemOutChannels = 8
	cfg.Backbone.Res2OutChannels = 8
	cfg.FPN.OutChannels = 8
	return cfg
}

func TestBuildFromConfig(t *testing.T) {
	tests := []struct {
		topBlock string
		want     []string
		params   []string
	}{
		{config.TopBlockMaxPool, []string{"p2", "p3", "p4", "p5", "p6"}, nil},
		{config.TopBlockStridedConv, []string{"p2", "p3", "p4", "p5", "p6"}, []string{"top_block.p5.weight", "top_block.p5.bias"}},
		{config.TopBlockP6P7, []string{"p2", "p3", "p4", "p5", "p6", "p7"}, []string{"top_block.p6.weight", "top_block.p7.weight"}},
		{config.TopBlockNone, []string{"p2", "p3", "p4", "p5"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.topBlock, func(t *testing.T) {
			backend := cpu.New()
			cfg := tinyConfig()
			cfg.FPN.TopBlock = tt.topBlock

			f, err := BuildFromConfig(cfg, backend)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.OutFeatures())
			assert.Equal(t, 32, f.SizeDivisibility())

			sd := f.StateDict()
			assert.Contains(t, sd, "bottom_up.stem.conv1.weight")
			assert.Contains(t, sd, "bottom_up.res5.1.conv2.weight")
			for _, name := range tt.params {
				assert.Contains(t, sd, name)
			}

			out := f.Forward(tensor.Randn(tensor.Shape{1, 3, 64, 64}, backend))
			for _, name := range tt.want {
				spec := f.OutputShape()[name]
				want := tensor.Shape{1, 8, max(64/spec.Stride, 1), max(64/spec.Stride, 1)}
				assert.True(t, out.MustGet(name).Shape().Equal(want), "%s: got %v, want %v", name, out.MustGet(name).Shape(), want)
			}
			assert.True(t, out.MustGet(RawFeatureName).Shape().Equal(tensor.Shape{1, 8, 16, 16}))
		})
	}
}

func TestBuildResNetPresets(t *testing.T) {
	tests := []struct {
		name     string
		build    func(*cpu.CPUBackend) (*FPN[*cpu.CPUBackend], error)
		channels int
	}{
		{"resnet18", BuildResNet18FPN[*cpu.CPUBackend], 128},
		{"resnet34", BuildResNet34FPN[*cpu.CPUBackend], 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := cpu.New()
			f, err := tt.build(backend)
			require.NoError(t, err)

			assert.Equal(t, []string{"p2", "p3", "p4", "p5", "p6"}, f.OutFeatures())
			assert.Equal(t, backbone.ShapeSpec{Channels: tt.channels, Stride: 64}, f.OutputShape()["p6"])

			sd := f.StateDict()
			c := tt.channels
			assert.True(t, sd["lateral5.weight"].Shape().Equal(tensor.Shape{c, 512, 1, 1}))
			assert.True(t, sd["top_block.p5.weight"].Shape().Equal(tensor.Shape{c, c, 3, 3}))
			assert.Contains(t, sd, "top_block.p5.bias")
			// Normed pyramid convs carry no bias.
			assert.NotContains(t, sd, "lateral2.bias")
			assert.Contains(t, sd, "output2.norm.weight")
		})
	}
}

func TestBuildRetinaNetResNetFPN(t *testing.T) {
	backend := cpu.New()
	f, err := BuildRetinaNetResNetFPN(tinyConfig(), backend)
	require.NoError(t, err)

	// p6 reads res5 (64 channels), not p5.
	assert.True(t, f.StateDict()["top_block.p6.weight"].Shape().Equal(tensor.Shape{8, 64, 3, 3}))
	assert.Equal(t, backbone.ShapeSpec{Channels: 8, Stride: 128}, f.OutputShape()["p7"])
}

func TestBuildRetinaNetResNetFPN_FromP5(t *testing.T) {
	backend := cpu.New()
	cfg := tinyConfig()
	cfg.FPN.TopBlockIn = "p5"

	f, err := BuildRetinaNetResNetFPN(cfg, backend)
	require.NoError(t, err)
	assert.True(t, f.StateDict()["top_block.p6.weight"].Shape().Equal(tensor.Shape{8, 8, 3, 3}))
}

func TestBuildResNetFPN_SubsetOfStages(t *testing.T) {
	backend := cpu.New()
	cfg := tinyConfig()
	cfg.FPN.InFeatures = []string{"res3", "res4", "res5"}

	f, err := BuildResNetFPN(cfg, backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p4", "p5", "p6"}, f.OutFeatures())
	assert.NotContains(t, f.StateDict(), "lateral2.weight")
}

func TestBuildFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"fuse type", func(c *config.Config) { c.FPN.FuseType = "max" }, config.ErrInvalid},
		{"top block", func(c *config.Config) { c.FPN.TopBlock = "p6" }, config.ErrInvalid},
		{"gn width", func(c *config.Config) { c.FPN.Norm = "GN" }, ErrInvalidNorm},
		{"skipped stage", func(c *config.Config) { c.FPN.InFeatures = []string{"res2", "res4"} }, ErrNonContiguousStrides},
		{"bad top block input", func(c *config.Config) { c.FPN.TopBlockIn = "p9" }, ErrUnknownFeature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tinyConfig()
			tt.mutate(cfg)
			_, err := BuildFromConfig(cfg, cpu.New())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
