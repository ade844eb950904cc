package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/image-synth/pkg/processing"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Range is a closed [min, max] interval sampled uniformly
type Range [2]float64

// Min returns the lower bound
func (r Range) Min() float64 { return r[0] }

// Max returns the upper bound
func (r Range) Max() float64 { return r[1] }

// Config holds the application configuration
type Config struct {
	Paths     PathsConfig     `json:"paths" yaml:"paths"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`
	Placement PlacementConfig `json:"placement" yaml:"placement"`
	Output    OutputConfig    `json:"output" yaml:"output"`
	Runtime   RuntimeConfig   `json:"runtime" yaml:"runtime"`
}

// PathsConfig holds input and output locations
type PathsConfig struct {
	DatasetPath  string `json:"dataset_path" yaml:"dataset_path"`
	FolderA      string `json:"folder_A" yaml:"folder_A"`
	FolderB      string `json:"folder_B" yaml:"folder_B"`
	OutputFolder string `json:"output_folder" yaml:"output_folder"`
}

// SynthesisConfig holds composition parameters
type SynthesisConfig struct {
	NumImagesToGenerate int             `json:"num_images_to_generate" yaml:"num_images_to_generate"`
	MaxObjectsPerImage  int             `json:"max_objects_per_image" yaml:"max_objects_per_image"`
	MinObjectAreaRatio  float64         `json:"min_object_area_ratio" yaml:"min_object_area_ratio"`
	MaxObjectAreaRatio  float64         `json:"max_object_area_ratio" yaml:"max_object_area_ratio"`
	RotationRange       Range           `json:"rotation_range" yaml:"rotation_range"`
	ColorAdjustment     ColorAdjustment `json:"color_adjustment" yaml:"color_adjustment"`
}

// ColorAdjustment holds photometric jitter ranges
type ColorAdjustment struct {
	BrightnessRange Range `json:"brightness_range" yaml:"brightness_range"`
	ContrastRange   Range `json:"contrast_range" yaml:"contrast_range"`
	SaturationRange Range `json:"saturation_range" yaml:"saturation_range"`
}

// PlacementConfig holds placement search limits
type PlacementConfig struct {
	MinObjectSize int `json:"min_object_size" yaml:"min_object_size"`
	MaxAttempts   int `json:"max_attempts" yaml:"max_attempts"`
}

// OutputConfig holds configuration for written images
type OutputConfig struct {
	CropFormat      string   `json:"crop_format" yaml:"crop_format"`
	ImageFormat     string   `json:"image_format" yaml:"image_format"`
	JPEGQuality     int      `json:"jpeg_quality" yaml:"jpeg_quality"`
	WebPQuality     int      `json:"webp_quality" yaml:"webp_quality"`
	WebPLossless    bool     `json:"webp_lossless" yaml:"webp_lossless"`
	ImageExtensions []string `json:"image_extensions" yaml:"image_extensions"`
}

// RuntimeConfig holds seeding and parallelism
type RuntimeConfig struct {
	Seed    uint64 `json:"seed" yaml:"seed"`
	Workers int    `json:"workers" yaml:"workers"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DatasetPath:  "./dataset",
			FolderA:      "./backgrounds",
			FolderB:      "./objects",
			OutputFolder: "./output",
		},
		Synthesis: SynthesisConfig{
			NumImagesToGenerate: 100,
			MaxObjectsPerImage:  5,
			MinObjectAreaRatio:  0.01,
			MaxObjectAreaRatio:  0.1,
			RotationRange:       Range{-30, 30},
			ColorAdjustment: ColorAdjustment{
				BrightnessRange: Range{0.8, 1.2},
				ContrastRange:   Range{0.8, 1.2},
				SaturationRange: Range{0.8, 1.2},
			},
		},
		Placement: PlacementConfig{
			MinObjectSize: 10,
			MaxAttempts:   50,
		},
		Output: OutputConfig{
			CropFormat:      "png",
			ImageFormat:     "",
			JPEGQuality:     95,
			WebPQuality:     90,
			ImageExtensions: []string{".png", ".jpg", ".jpeg"},
		},
		Runtime: RuntimeConfig{
			Seed:    0,
			Workers: 1,
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults, so keys missing from the file keep their default value.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := Default()
	if isJSON(filename) {
		err = json.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return config, nil
}

// SaveToFile saves configuration as YAML, or JSON for a .json file name
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	var data []byte
	var err error
	if isJSON(filename) {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	required := []struct{ key, val string }{
		{"paths.dataset_path", c.Paths.DatasetPath},
		{"paths.folder_A", c.Paths.FolderA},
		{"paths.folder_B", c.Paths.FolderB},
		{"paths.output_folder", c.Paths.OutputFolder},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return errors.Wrapf(ErrInvalid, "%s is required", r.key)
		}
	}

	s := c.Synthesis
	if s.NumImagesToGenerate < 1 {
		return errors.Wrap(ErrInvalid, "synthesis.num_images_to_generate must be positive")
	}
	if s.MaxObjectsPerImage < 1 {
		return errors.Wrap(ErrInvalid, "synthesis.max_objects_per_image must be at least 1")
	}
	if s.MinObjectAreaRatio <= 0 || s.MaxObjectAreaRatio >= 1 || s.MinObjectAreaRatio > s.MaxObjectAreaRatio {
		return errors.Wrap(ErrInvalid, "synthesis area ratios must satisfy 0 < min_object_area_ratio <= max_object_area_ratio < 1")
	}

	ranges := []struct {
		key string
		r   Range
		pos bool
	}{
		{"synthesis.rotation_range", s.RotationRange, false},
		{"synthesis.color_adjustment.brightness_range", s.ColorAdjustment.BrightnessRange, true},
		{"synthesis.color_adjustment.contrast_range", s.ColorAdjustment.ContrastRange, true},
		{"synthesis.color_adjustment.saturation_range", s.ColorAdjustment.SaturationRange, true},
	}
	for _, r := range ranges {
		if r.r.Min() > r.r.Max() {
			return errors.Wrapf(ErrInvalid, "%s min must not exceed max", r.key)
		}
		if r.pos && r.r.Min() < 0 {
			return errors.Wrapf(ErrInvalid, "%s must not be negative", r.key)
		}
	}

	if c.Placement.MinObjectSize < 1 {
		return errors.Wrap(ErrInvalid, "placement.min_object_size must be positive")
	}
	if c.Placement.MaxAttempts < 1 {
		return errors.Wrap(ErrInvalid, "placement.max_attempts must be positive")
	}

	if !processing.IsWritableFormat(normalizeExt(c.Output.CropFormat)) {
		return errors.Wrapf(ErrInvalid, "output.crop_format %q is not supported", c.Output.CropFormat)
	}
	if c.Output.ImageFormat != "" && !processing.IsWritableFormat(normalizeExt(c.Output.ImageFormat)) {
		return errors.Wrapf(ErrInvalid, "output.image_format %q is not supported", c.Output.ImageFormat)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return errors.Wrap(ErrInvalid, "output.jpeg_quality must be between 1 and 100")
	}
	if c.Output.WebPQuality < 1 || c.Output.WebPQuality > 100 {
		return errors.Wrap(ErrInvalid, "output.webp_quality must be between 1 and 100")
	}
	if len(c.Output.ImageExtensions) == 0 {
		return errors.Wrap(ErrInvalid, "output.image_extensions cannot be empty")
	}
	if !hasExtension(c.Output.ImageExtensions, c.Output.CropFormat) {
		return errors.Wrapf(ErrInvalid, "output.crop_format %q must be listed in output.image_extensions", c.Output.CropFormat)
	}

	if c.Runtime.Workers < 1 {
		return errors.Wrap(ErrInvalid, "runtime.workers must be at least 1")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "image-synth", "config.yaml")
}

func isJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

func hasExtension(exts []string, format string) bool {
	f := normalizeExt(format)
	for _, e := range exts {
		if normalizeExt(e) == f {
			return true
		}
	}
	return false
}

func normalizeExt(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
}
