package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/search"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, geom.NewSize(400, 200), cfg.Size)
	assert.Equal(t, search.None, cfg.Pattern())
	assert.Equal(t, geom.MaintainAspectRatio, cfg.Resize())
	assert.False(t, cfg.HasMaxItemSize())

	opts := cfg.SampleOptions()
	assert.Equal(t, 1, opts.StepSize)
	assert.Equal(t, 90, opts.RotationIncrement)
	assert.Equal(t, geom.NewSize(4, 4), opts.MinSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		code   errors.Code
	}{
		{"empty canvas", func(c *Config) { c.Size = geom.NewSize(0, 10) }, errors.ErrCodeInvalidConfig},
		{"bad mode", func(c *Config) { c.Mode = "CMYK" }, errors.ErrCodeInvalidConfig},
		{"bad background", func(c *Config) { c.Background = "white" }, errors.ErrCodeInvalidConfig},
		{"no items", func(c *Config) { c.MaxItems = 0 }, errors.ErrCodeInvalidConfig},
		{"zero step", func(c *Config) { c.StepSize = 0 }, errors.ErrCodeInvalidConfig},
		{"negative rotation", func(c *Config) { c.RotationIncrement = -90 }, errors.ErrCodeInvalidConfig},
		{"full rotation", func(c *Config) { c.RotationIncrement = 360 }, errors.ErrCodeInvalidConfig},
		{"bad resize type", func(c *Config) { c.ResizeType = "STRETCH" }, errors.ErrCodeInvalidConfig},
		{"bad pattern", func(c *Config) { c.SearchPattern = "zigzag" }, errors.ErrCodeInvalidConfig},
		{"bad filter", func(c *Config) { c.Filter = "sharp" }, errors.ErrCodeInvalidConfig},
		{"no threads", func(c *Config) { c.Threads = 0 }, errors.ErrCodeInvalidConfig},
		{"max below min", func(c *Config) { c.MaxItemSize = geom.NewSize(2, 2) }, errors.ErrCodeInvalidConfig},
		{"mask with expansion", func(c *Config) {
			c.MaskPath = "mask.png"
			c.ExpansionStep = 10
		}, errors.ErrCodeExpansionWithMask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestParseTOML(t *testing.T) {
	data := `
name = "demo"
size = { width = 120, height = 80 }
search-pattern = "spiral"
threads = 4
margin = 2
`
	cfg, err := ParseTOML([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, geom.NewSize(120, 80), cfg.Size)
	assert.Equal(t, search.Spiral, cfg.Pattern())
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 2, cfg.Margin)
	assert.Equal(t, 90, cfg.RotationIncrement, "unset keys keep defaults")

	_, err = ParseTOML([]byte(`colour = "red"`))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestParseYAML(t *testing.T) {
	data := `
size:
  width: 64
  height: 32
resize-type: maintain_percentage_change
rotation-increment: 0
maximize: true
`
	cfg, err := ParseYAML([]byte(data))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, geom.NewSize(64, 32), cfg.Size)
	assert.Equal(t, geom.MaintainPercentageChange, cfg.Resize())
	assert.Equal(t, 0, cfg.RotationIncrement)
	assert.True(t, cfg.Maximize)

	_, err = ParseYAML([]byte("unknown: 1\n"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloud.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: fromfile\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.Name)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	other := filepath.Join(dir, "cloud.ini")
	require.NoError(t, os.WriteFile(other, []byte("name=x"), 0644))
	_, err = Load(other)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestAccessors(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.ResolveName(), len("itemcloud-")+8)
	cfg.Name = "named"
	assert.Equal(t, "named", cfg.ResolveName())

	cfg.Mode = "RGB"
	assert.Equal(t, uint8(255), cfg.BackgroundColor().A)

	cfg.FontSize = 12
	cfg.SolidText = true
	opts := cfg.RenderOptions()
	assert.Equal(t, 12.0, opts.FontSize)
	assert.True(t, opts.SolidText)
}
