// Package config loads the YAML run configuration of the fpn command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Top block kinds.
const (
	TopBlockMaxPool     = "maxpool"
	TopBlockStridedConv = "strided_conv"
	TopBlockP6P7        = "p6p7"
	TopBlockNone        = "none"
)

const maxFileSize = 1 << 20

// Config is the root configuration.
type Config struct {
	Backbone BackboneConfig `yaml:"backbone"`
	FPN      FPNConfig      `yaml:"fpn"`
	Weights  WeightsConfig  `yaml:"weights"`
}

// BackboneConfig configures the ResNet bottom-up network.
type BackboneConfig struct {
	Depth             int      `yaml:"depth"`
	InChannels        int      `yaml:"in_channels"`
	StemOutChannels   int      `yaml:"stem_out_channels"`
	Res2OutChannels   int      `yaml:"res2_out_channels"`
	Norm              string   `yaml:"norm"`
	OutFeatures       []string `yaml:"out_features"`
	StrideInStride1x1 bool     `yaml:"stride_in_1x1"`
}

// FPNConfig configures the pyramid.
type FPNConfig struct {
	InFeatures  []string `yaml:"in_features"`
	OutChannels int      `yaml:"out_channels"`
	Norm        string   `yaml:"norm"`
	FuseType    string   `yaml:"fuse_type"`
	// TopBlock is one of maxpool, strided_conv, p6p7, none.
	TopBlock string `yaml:"top_block"`
	// TopBlockIn is the top block input feature; empty selects the
	// default for the kind (res5 for p6p7, the last pyramid level otherwise).
	TopBlockIn string `yaml:"top_block_in"`
}

// WeightsConfig points at checkpoint files.
type WeightsConfig struct {
	// Checkpoint is a full model (or FPN) checkpoint.
	Checkpoint string `yaml:"checkpoint"`
	// BackboneOnly loads Checkpoint into the bottom-up network only.
	BackboneOnly bool `yaml:"backbone_only"`
}

// Default returns the ResNet-50-FPN configuration.
func Default() *Config {
	return &Config{
		Backbone: BackboneConfig{
			Depth:             50,
			InChannels:        3,
			StemOutChannels:   64,
			Res2OutChannels:   256,
			Norm:              "FrozenBN",
			OutFeatures:       []string{"res2", "res3", "res4", "res5"},
			StrideInStride1x1: true,
		},
		FPN: FPNConfig{
			InFeatures:  []string{"res2", "res3", "res4", "res5"},
			OutChannels: 256,
			Norm:        "",
			FuseType:    "sum",
			TopBlock:    TopBlockMaxPool,
		},
	}
}

// ResNet18FPN returns the ResNet-18-FPN preset: 128 pyramid channels, BN
// on the FPN convs and a strided-conv top block.
func ResNet18FPN() *Config {
	return basicFPN(18, 128)
}

// ResNet34FPN returns the ResNet-34-FPN preset: like ResNet18FPN with 64
// pyramid channels.
func ResNet34FPN() *Config {
	return basicFPN(34, 64)
}

func basicFPN(depth, channels int) *Config {
	cfg := Default()
	cfg.Backbone.Depth = depth
	cfg.Backbone.Res2OutChannels = 64
	cfg.Backbone.Norm = "BN"
	cfg.FPN.OutChannels = channels
	cfg.FPN.Norm = "BN"
	cfg.FPN.TopBlock = TopBlockStridedConv
	return cfg
}

// Load reads a YAML configuration. Fields omitted from the file keep their
// Default values. The result is validated.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and ranges. Cross-field checks that need
// the built backbone (feature strides) are left to construction.
func (c *Config) Validate() error {
	b := c.Backbone
	if !slices.Contains([]int{18, 34, 50, 101, 152}, b.Depth) {
		return fmt.Errorf("%w: backbone.depth %d (want 18, 34, 50, 101 or 152)", ErrInvalid, b.Depth)
	}
	if b.InChannels <= 0 || b.StemOutChannels <= 0 || b.Res2OutChannels <= 0 {
		return fmt.Errorf("%w: backbone channel counts must be positive", ErrInvalid)
	}
	if err := validateNorm("backbone.norm", b.Norm); err != nil {
		return err
	}
	if len(b.OutFeatures) == 0 {
		return fmt.Errorf("%w: backbone.out_features is empty", ErrInvalid)
	}

	f := c.FPN
	if len(f.InFeatures) == 0 {
		return fmt.Errorf("%w: fpn.in_features is empty", ErrInvalid)
	}
	for _, name := range f.InFeatures {
		if !slices.Contains(b.OutFeatures, name) {
			return fmt.Errorf("%w: fpn.in_features %q is not in backbone.out_features", ErrInvalid, name)
		}
	}
	if f.OutChannels <= 0 {
		return fmt.Errorf("%w: fpn.out_channels %d must be positive", ErrInvalid, f.OutChannels)
	}
	if err := validateNorm("fpn.norm", f.Norm); err != nil {
		return err
	}
	if f.FuseType != "sum" && f.FuseType != "avg" {
		return fmt.Errorf("%w: fpn.fuse_type %q (want sum or avg)", ErrInvalid, f.FuseType)
	}
	switch f.TopBlock {
	case TopBlockMaxPool, TopBlockStridedConv, TopBlockP6P7, TopBlockNone:
	default:
		return fmt.Errorf("%w: fpn.top_block %q (want %s, %s, %s or %s)", ErrInvalid,
			f.TopBlock, TopBlockMaxPool, TopBlockStridedConv, TopBlockP6P7, TopBlockNone)
	}

	if c.Weights.BackboneOnly && c.Weights.Checkpoint == "" {
		return fmt.Errorf("%w: weights.backbone_only set without weights.checkpoint", ErrInvalid)
	}
	return nil
}

func validateNorm(field, norm string) error {
	switch norm {
	case "", "BN", "FrozenBN", "GN":
		return nil
	}
	return fmt.Errorf("%w: %s %q (want \"\", BN, FrozenBN or GN)", ErrInvalid, field, norm)
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
