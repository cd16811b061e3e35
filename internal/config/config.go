// Package config handles baker configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/multierr"

	"github.com/Faultbox/lightbaker/internal/scene"
)

// Config holds all baker settings.
type Config struct {
	Bake    BakeConfig    `yaml:"bake"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// BakeConfig holds the lightmap layout, execution and quality settings.
type BakeConfig struct {
	Threads int    `yaml:"threads"`
	Seed    uint64 `yaml:"seed"`
	Size    int    `yaml:"size"`   // Atlas side in texels
	Margin  int    `yaml:"margin"` // Padding around each UV island

	Params scene.Params `yaml:"params"`

	// Zero selects the engine default.
	MaxAmbientCubes      int `yaml:"max_ambient_cubes"`
	AmbientRaysPerSide   int `yaml:"ambient_rays_per_side"`
	OcclusionRaysPerSide int `yaml:"occlusion_rays_per_side"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Dir      string  `yaml:"dir"`
	PNG      bool    `yaml:"png"`
	TIFF     bool    `yaml:"tiff"`
	E8       bool    `yaml:"e8"`
	Exposure float32 `yaml:"exposure"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"` // console or json
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Bake: BakeConfig{
			Threads: runtime.NumCPU(),
			Seed:    1,
			Size:    512,
			Margin:  2,
			Params:  scene.DefaultParams(),
		},
		Output: OutputConfig{
			Dir:      "lightmaps",
			PNG:      true,
			TIFF:     true,
			Exposure: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
			Format:  "console",
		},
	}
}

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Bake.Threads < 0 {
		err = multierr.Append(err, fmt.Errorf("bake.threads must not be negative, got %d", c.Bake.Threads))
	}
	if c.Bake.Size <= 0 {
		err = multierr.Append(err, fmt.Errorf("bake.size must be positive, got %d", c.Bake.Size))
	}
	if c.Bake.Margin < 0 {
		err = multierr.Append(err, fmt.Errorf("bake.margin must not be negative, got %d", c.Bake.Margin))
	}
	if e := c.Bake.Params.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("bake.params: %w", e))
	}
	if c.Output.Exposure <= 0 {
		err = multierr.Append(err, fmt.Errorf("output.exposure must be positive, got %v", c.Output.Exposure))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
