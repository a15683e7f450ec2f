package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemcloud/config"
	"itemcloud/geom"
	"itemcloud/occupancy"
)

func quietApp() *App {
	return NewApp(io.Discard, log.InfoLevel)
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := quietApp().RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

// writeSprites 写出几张左上角透明的方形图片
func writeSprites(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		side := 8 + 4*i
		img := imaging.New(side, side, color.NRGBA{R: uint8(40 * i), G: 120, B: 200, A: 255})
		for y := 0; y < side/4; y++ {
			for x := 0; x < side/4; x++ {
				img.SetNRGBA(x, y, color.NRGBA{})
			}
		}
		require.NoError(t, imaging.Save(img, filepath.Join(dir, fmt.Sprintf("sprite%d.png", i+1))))
	}
}

func TestGenerateAndRelayout(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeSprites(t, input, 3)

	require.NoError(t, execute(t, "generate", input, "-o", output, "--name", "demo", "--size", "60,40", "--margin", "1"))
	for _, name := range []string{"demo.layout.json", "demo.reservation_map.csv", "demo.png", "demo.reservation_map.png"} {
		assert.FileExists(t, filepath.Join(output, name))
	}
	cloudImage, err := imaging.Open(filepath.Join(output, "demo.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 60, 40), cloudImage.Bounds())

	require.NoError(t, execute(t, "relayout", filepath.Join(output, "demo.layout.json"), "-o", output, "--maximize"))
	for _, name := range []string{"demo.maximized.layout.json", "demo.maximized.reservation_map.csv", "demo.maximized.png"} {
		assert.FileExists(t, filepath.Join(output, name))
	}
	require.NoError(t, execute(t, "relayout", filepath.Join(output, "demo.maximized.layout.json"), "-o", t.TempDir(), "--no-render"))
}

func TestGenerateScaledCloud(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeSprites(t, input, 2)

	require.NoError(t, execute(t, "generate", input, "-o", output, "--name", "big", "--size", "30,20", "--scale", "2", "--mode", "RGB", "--background", "#ffffff"))
	img, err := imaging.Open(filepath.Join(output, "big.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 60, 40), img.Bounds())
}

func TestGenerateErrors(t *testing.T) {
	assert.Error(t, execute(t, "generate", filepath.Join(t.TempDir(), "missing.csv")))
	assert.Error(t, execute(t, "generate", t.TempDir(), "--size", "40x20"))
	assert.Error(t, execute(t, "relayout", filepath.Join(t.TempDir(), "missing.layout.json")))
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
size = { width = 80, height = 60 }
margin = 3
threads = 2
`), 0644))

	opts := &Options{Config: config.Default()}
	cmd := quietApp().generateCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--margin", "2", "--search-pattern", "ray"}))

	cfg, err := opts.resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, geom.NewSize(80, 60), cfg.Size)
	assert.Equal(t, 2, cfg.Margin)
	assert.Equal(t, 2, cfg.Threads)
	assert.Equal(t, "ray", cfg.SearchPattern)
	assert.Equal(t, 90, cfg.RotationIncrement)
}

func TestLabelColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, labelColor(occupancy.Free))
	assert.Equal(t, color.NRGBA{A: 255}, labelColor(occupancy.Blocked))
	assert.NotEqual(t, labelColor(1), labelColor(2))
	assert.Equal(t, labelColor(7), labelColor(7))
}

func TestRenderReservationMap(t *testing.T) {
	grid := occupancy.NewMap(geom.NewSize(3, 2))
	grid.Set(geom.GridCoord{Row: 0, Col: 1}, 1)
	grid.Set(geom.GridCoord{Row: 1, Col: 2}, occupancy.Blocked)

	img := RenderReservationMap(grid)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, labelColor(occupancy.Free), img.NRGBAAt(0, 0))
	assert.Equal(t, labelColor(1), img.NRGBAAt(1, 0))
	assert.Equal(t, labelColor(occupancy.Blocked), img.NRGBAAt(2, 1))
}
