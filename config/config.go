// Package config holds the settings of an item cloud run.
//
// A Config starts from Default and is overlaid by a TOML or YAML file and
// then by command line flags. Validate must pass before a Config is handed to
// the generator; the typed accessors (Pattern, Resize, RenderOptions, ...)
// assume a validated Config and fall back to defaults for unparsable names.
package config

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/item"
	"itemcloud/reserve"
	"itemcloud/search"
)

// Modes lists the supported output colour modes.
var Modes = []string{"RGBA", "RGB"}

// Config contains the canvas, placement and rendering settings of one run.
type Config struct {
	// Name is the base name of every output file. Empty means a generated name.
	Name string `toml:"name" yaml:"name" json:"name"`

	// Size is the canvas size in pixels.
	Size geom.Size `toml:"size" yaml:"size" json:"size"`

	// Mode is the output colour mode (RGBA, RGB).
	Mode string `toml:"mode" yaml:"mode" json:"mode"`

	// Background is the canvas colour as #rrggbb or #rrggbbaa.
	Background string `toml:"background" yaml:"background" json:"background"`

	// MaxItems caps the number of items placed, heaviest first.
	MaxItems int `toml:"max-items" yaml:"max-items" json:"maxItems"`

	// MaxItemSize caps the size of any item. Zero means derived from a trial run.
	MaxItemSize geom.Size `toml:"max-item-size" yaml:"max-item-size" json:"maxItemSize"`

	// MinItemSize is the size below which an item is dropped.
	MinItemSize geom.Size `toml:"min-item-size" yaml:"min-item-size" json:"minItemSize"`

	// StepSize is the number of pixels an item shrinks by per sampling step.
	StepSize int `toml:"step-size" yaml:"step-size" json:"stepSize"`

	// RotationIncrement is the clockwise rotation tried per search, 0 disables rotation.
	RotationIncrement int `toml:"rotation-increment" yaml:"rotation-increment" json:"rotationIncrement"`

	// ResizeType is the shrink policy (MAINTAIN_ASPECT_RATIO, MAINTAIN_PERCENTAGE_CHANGE, NO_RESIZE).
	ResizeType string `toml:"resize-type" yaml:"resize-type" json:"resizeType"`

	// Scale is applied to the rendered cloud image only.
	Scale float64 `toml:"scale" yaml:"scale" json:"scale"`

	// Margin is the number of free pixels kept around every item.
	Margin int `toml:"margin" yaml:"margin" json:"margin"`

	// Threads is the number of workers used by the opening scan.
	Threads int `toml:"threads" yaml:"threads" json:"threads"`

	// SearchPattern picks among openings (NONE, RANDOM, LINEAR, RAY, SPIRAL).
	SearchPattern string `toml:"search-pattern" yaml:"search-pattern" json:"searchPattern"`

	// Seed drives the RANDOM search pattern.
	Seed uint64 `toml:"seed" yaml:"seed" json:"seed"`

	// ExpansionStep grows the canvas when items are dropped, 0 disables expansion.
	ExpansionStep int `toml:"expansion-step" yaml:"expansion-step" json:"expansionStep"`

	// MaskPath is an image whose opaque non-white pixels are the usable canvas.
	MaskPath string `toml:"mask" yaml:"mask" json:"mask,omitempty"`

	// Maximize grows every placed item into the surrounding empty space.
	Maximize bool `toml:"maximize" yaml:"maximize" json:"maximize"`

	// MaxSamples caps opening searches per item, 0 means unlimited.
	MaxSamples int `toml:"max-samples" yaml:"max-samples" json:"maxSamples"`

	// Filter is the resample filter used when resizing images.
	Filter string `toml:"filter" yaml:"filter" json:"filter"`

	// FontSize is the point size text items are first rendered at.
	FontSize float64 `toml:"font-size" yaml:"font-size" json:"fontSize"`

	// TextColor is the colour of text items.
	TextColor string `toml:"text-color" yaml:"text-color" json:"textColor"`

	// AlphaThreshold is the alpha above which an image pixel is solid.
	AlphaThreshold uint8 `toml:"alpha-threshold" yaml:"alpha-threshold" json:"alphaThreshold"`

	// SolidText makes text masks cover the whole text box.
	SolidText bool `toml:"solid-text" yaml:"solid-text" json:"solidText"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Size:              geom.NewSize(400, 200),
		Mode:              "RGBA",
		Background:        "#ffffff00",
		MaxItems:          200,
		MinItemSize:       geom.NewSize(4, 4),
		StepSize:          1,
		RotationIncrement: 90,
		ResizeType:        geom.MaintainAspectRatio.String(),
		Scale:             1.0,
		Margin:            1,
		Threads:           1,
		SearchPattern:     search.None.String(),
		Filter:            "LANCZOS",
		FontSize:          64,
		TextColor:         "#000000",
	}
}

// Load reads a TOML (.toml) or YAML (.yaml, .yml) file on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to read config file %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return Config{}, errors.New(errors.ErrCodeInvalidConfig, "config file %s: unsupported extension %q", path, filepath.Ext(path))
}

// ParseTOML parses TOML data on top of Default. Unknown keys are rejected.
func ParseTOML(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ParseYAML parses YAML data on top of Default. Unknown keys are rejected.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse config")
	}
	return cfg, nil
}

func invalid(field, format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, "config error in '%s': %s", field, fmt.Sprintf(format, args...))
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	if c.Size.IsEmpty() {
		return invalid("size", "must be positive, got %s", c.Size)
	}
	if !contains(Modes, strings.ToUpper(c.Mode)) {
		return invalid("mode", "%s unsupported. Must be one of [%s]", c.Mode, strings.Join(Modes, "|"))
	}
	if _, err := item.ParseColor(c.Background); err != nil {
		return invalid("background", "%v", err)
	}
	if _, err := item.ParseColor(c.TextColor); err != nil {
		return invalid("text-color", "%v", err)
	}
	if c.MaxItems < 1 {
		return invalid("max-items", "must be at least 1, got %d", c.MaxItems)
	}
	if c.MaxItemSize.Width < 0 || c.MaxItemSize.Height < 0 {
		return invalid("max-item-size", "must not be negative, got %s", c.MaxItemSize)
	}
	if !c.MaxItemSize.Eq(geom.Size{}) && c.MaxItemSize.IsLessThan(c.MinItemSize) {
		return invalid("max-item-size", "%s is smaller than min item size %s", c.MaxItemSize, c.MinItemSize)
	}
	if c.Scale <= 0 {
		return invalid("scale", "must be positive, got %g", c.Scale)
	}
	if c.Threads < 1 {
		return invalid("threads", "must be at least 1, got %d", c.Threads)
	}
	if c.RotationIncrement >= 360 {
		return invalid("rotation-increment", "must be below 360, got %d", c.RotationIncrement)
	}
	if _, err := geom.ParseResizeType(c.ResizeType); err != nil {
		return invalid("resize-type", "%v", err)
	}
	if _, err := search.Parse(c.SearchPattern); err != nil {
		return invalid("search-pattern", "%v", err)
	}
	if _, err := item.ParseFilter(c.Filter); err != nil {
		return invalid("filter", "%v", err)
	}
	if c.FontSize <= 0 {
		return invalid("font-size", "must be positive, got %g", c.FontSize)
	}
	if c.ExpansionStep < 0 {
		return invalid("expansion-step", "must not be negative, got %d", c.ExpansionStep)
	}
	if err := c.SampleOptions().Validate(); err != nil {
		return err
	}
	if c.MaskPath != "" && c.ExpansionStep > 0 {
		return errors.New(errors.ErrCodeExpansionWithMask,
			"canvas expansion (step %d) cannot be used with mask %s", c.ExpansionStep, c.MaskPath)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// ResolveName returns Name, or a short random name when Name is empty.
func (c Config) ResolveName() string {
	if c.Name != "" {
		return c.Name
	}
	return "itemcloud-" + uuid.New().String()[:8]
}

// Pattern returns the parsed search pattern.
func (c Config) Pattern() search.Pattern {
	p, err := search.Parse(c.SearchPattern)
	if err != nil {
		return search.None
	}
	return p
}

// Resize returns the parsed resize type.
func (c Config) Resize() geom.ResizeType {
	rt, err := geom.ParseResizeType(c.ResizeType)
	if err != nil {
		return geom.MaintainAspectRatio
	}
	return rt
}

// HasMaxItemSize reports whether MaxItemSize was configured.
func (c Config) HasMaxItemSize() bool {
	return !c.MaxItemSize.IsEmpty()
}

// BackgroundColor returns the parsed background colour. RGB mode drops alpha.
func (c Config) BackgroundColor() color.NRGBA {
	bg, err := item.ParseColor(c.Background)
	if err != nil {
		bg = color.NRGBA{R: 255, G: 255, B: 255}
	}
	if strings.EqualFold(c.Mode, "RGB") {
		bg.A = 255
	}
	return bg
}

// RenderOptions returns the item render settings.
func (c Config) RenderOptions() item.RenderOptions {
	opts := item.DefaultRenderOptions()
	if f, err := item.ParseFilter(c.Filter); err == nil {
		opts.Filter = f
	}
	if tc, err := item.ParseColor(c.TextColor); err == nil {
		opts.TextColor = tc
	}
	opts.FontSize = c.FontSize
	opts.AlphaThreshold = c.AlphaThreshold
	opts.SolidText = c.SolidText
	return opts
}

// SampleOptions returns the per item sampling settings.
func (c Config) SampleOptions() reserve.SampleOptions {
	return reserve.SampleOptions{
		MinSize:           c.MinItemSize,
		Margin:            c.Margin,
		ResizeType:        c.Resize(),
		StepSize:          c.StepSize,
		RotationIncrement: c.RotationIncrement,
		MaxSamples:        c.MaxSamples,
	}
}
