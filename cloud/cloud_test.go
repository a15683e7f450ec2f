package cloud

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemcloud/config"
	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/item"
	"itemcloud/layout"
	"itemcloud/occupancy"
	"itemcloud/reserve"
)

var quietLogger = log.New(io.Discard)

// gridConfig 是不旋转、无 margin、显式最大尺寸的确定性配置
func gridConfig(size geom.Size) config.Config {
	cfg := config.Default()
	cfg.Name = "test"
	cfg.Size = size
	cfg.Margin = 0
	cfg.RotationIncrement = 0
	cfg.MaxItemSize = size
	return cfg
}

func squares(n int, side int, weight float64) []item.Weighted {
	opts := item.DefaultRenderOptions()
	items := make([]item.Weighted, n)
	for i := range items {
		items[i] = item.Weighted{
			Name:   fmt.Sprintf("sq%d", i+1),
			Weight: weight,
			Item:   item.NewRect(geom.NewSize(side, side), opts),
		}
	}
	return items
}

func boxes(l *layout.Layout) []geom.Box {
	out := make([]geom.Box, len(l.Items))
	for i, p := range l.Items {
		out[i] = p.ReservationBox.Box()
	}
	return out
}

func TestExpansionWithMaskIsFatal(t *testing.T) {
	cfg := gridConfig(geom.NewSize(10, 10))
	cfg.ExpansionStep = 5
	c, err := New(cfg, quietLogger, WithMask(occupancy.SolidMask(geom.NewSize(10, 10))))
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), squares(2, 4, 1))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.ErrCodeExpansionWithMask))

	cfg.MaskPath = "mask.png"
	_, err = New(cfg, quietLogger)
	assert.True(t, errors.Is(err, errors.ErrCodeExpansionWithMask))
}

func TestGenerateNoItems(t *testing.T) {
	c, err := New(gridConfig(geom.NewSize(10, 10)), quietLogger)
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.ErrCodeNoItems))
}

func TestGenerateDropsWhatDoesNotFit(t *testing.T) {
	c, err := New(gridConfig(geom.NewSize(10, 10)), quietLogger)
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), squares(5, 10, 1))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 4, res.Placed)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 0, res.Expansions)
	assert.Equal(t, []geom.Box{
		geom.NewBox(0, 0, 4, 4),
		geom.NewBox(4, 0, 8, 4),
		geom.NewBox(0, 4, 4, 8),
		geom.NewBox(4, 4, 8, 8),
	}, boxes(res.Layout))

	for i, p := range res.Layout.Items {
		assert.Equal(t, uint32(i+1), p.No)
	}
	require.NoError(t, res.Layout.Verify(res.Layout.Settings.RenderOptions()))
}

func TestGenerateExpandsCanvas(t *testing.T) {
	cfg := gridConfig(geom.NewSize(10, 10))
	cfg.ExpansionStep = 5
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), squares(5, 10, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expansions)
	assert.Equal(t, 5, res.Placed)
	assert.Equal(t, 0, res.Dropped)
	assert.Equal(t, geom.NewSize(15, 15), res.Layout.Canvas.Size)
	assert.Equal(t, geom.NewSize(15, 15), res.Layout.Settings.Size)
}

func TestExpansionIgnoresItemsBelowMinSize(t *testing.T) {
	cfg := gridConfig(geom.NewSize(40, 40))
	cfg.ExpansionStep = 4
	cfg.MinItemSize = geom.NewSize(4, 4)
	opts := item.DefaultRenderOptions()
	items := []item.Weighted{
		{Name: "heavy", Weight: 1000, Item: item.NewRect(geom.NewSize(10, 10), opts)},
		{Name: "light", Weight: 1, Item: item.NewRect(geom.NewSize(10, 10), opts)},
	}
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := c.Generate(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Expansions)
	assert.Equal(t, 1, res.Placed)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Layout.Items, 1)
	assert.Equal(t, "heavy", res.Layout.Items[0].Name)
	assert.Equal(t, geom.NewSize(40, 40), res.Layout.Canvas.Size)
}

func TestGenerateWeightOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Name = "order"
	cfg.Size = geom.NewSize(60, 40)
	cfg.SearchPattern = "spiral"
	opts := item.DefaultRenderOptions()

	var items []item.Weighted
	for i, w := range []float64{1, 5, 3, 0, 2, 4} {
		items = append(items, item.Weighted{
			Name:   fmt.Sprintf("r%d", i),
			Weight: w,
			Item:   item.NewRect(geom.NewSize(3+i, 2+i%3), opts),
		})
	}
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)
	res, err := c.Generate(context.Background(), items)
	require.NoError(t, err)

	placed := res.Layout.Items
	require.NotEmpty(t, placed)
	assert.Equal(t, res.Total, res.Placed+res.Dropped)
	assert.GreaterOrEqual(t, res.Dropped, 1, "zero weight item is dropped")
	for i := 1; i < len(placed); i++ {
		assert.GreaterOrEqual(t, placed[i-1].Weight, placed[i].Weight)
	}
	for _, p := range placed {
		assert.True(t, res.Layout.Canvas.Grid.Bounds().Contains(p.ReservationBox.Box()))
	}
	require.NoError(t, res.Layout.Verify(res.Layout.Settings.RenderOptions()))
}

func TestGenerateTruncatesToMaxItems(t *testing.T) {
	cfg := gridConfig(geom.NewSize(20, 20))
	cfg.MaxItems = 2
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), squares(5, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Placed)
}

func TestCanvasTooSmallForFirstItems(t *testing.T) {
	cfg := gridConfig(geom.NewSize(6, 6))
	cfg.MaxItemSize = geom.Size{}
	cfg.MinItemSize = geom.NewSize(8, 8)
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), squares(2, 4, 1))
	assert.True(t, errors.Is(err, errors.ErrCodeCanvasTooSmall))
}

func TestGenerateWithTrialMaxSize(t *testing.T) {
	cfg := config.Default()
	cfg.Name = "trial"
	cfg.Size = geom.NewSize(40, 20)
	opts := item.DefaultRenderOptions()
	items := []item.Weighted{
		{Name: "a", Weight: 2, Item: item.NewRect(geom.NewSize(8, 4), opts)},
		{Name: "b", Weight: 1, Item: item.NewRect(geom.NewSize(4, 4), opts)},
		{Name: "c", Weight: 1, Item: item.NewRect(geom.NewSize(6, 2), opts)},
	}
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)
	res, err := c.Generate(context.Background(), items)
	require.NoError(t, err)
	assert.Positive(t, res.Placed)
	require.NoError(t, res.Layout.Verify(res.Layout.Settings.RenderOptions()))
}

func TestGenerateWithMask(t *testing.T) {
	allowed := occupancy.NewMask(geom.NewSize(20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			allowed.Set(x, y, true)
		}
	}
	cfg := gridConfig(geom.NewSize(99, 99))
	cfg.MaxItemSize = geom.NewSize(10, 10)
	c, err := New(cfg, quietLogger, WithMask(allowed))
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), squares(4, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, geom.NewSize(20, 10), res.Layout.Canvas.Size)
	require.NotEmpty(t, res.Layout.Items)
	for _, p := range res.Layout.Items {
		assert.LessOrEqual(t, p.ReservationBox.Box().Right, 10)
	}
	assert.Equal(t, 100, res.Layout.Canvas.Grid.Count(occupancy.Blocked))
	require.NoError(t, res.Layout.Verify(res.Layout.Settings.RenderOptions()))
}

func TestGenerateCancelled(t *testing.T) {
	c, err := New(gridConfig(geom.NewSize(10, 10)), quietLogger)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Generate(ctx, squares(3, 4, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaximizeEmptySpace(t *testing.T) {
	cfg := gridConfig(geom.NewSize(10, 10))
	cfg.Maximize = true
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), squares(5, 10, 1))
	require.NoError(t, err)
	l := res.Layout
	assert.Equal(t, "test.maximized", l.Name)
	assert.True(t, strings.HasSuffix(l.Canvas.ReservationMap, ".reservation_map.csv"))

	// 逆序扩展：后放置的物品先占用空白
	assert.Equal(t, []geom.Box{
		geom.NewBox(0, 0, 4, 4),
		geom.NewBox(4, 0, 10, 4),
		geom.NewBox(0, 4, 4, 10),
		geom.NewBox(4, 4, 10, 10),
	}, boxes(l))
	assert.Equal(t, geom.NewSize(6, 6), l.Items[3].PlacementBox.Box().Size())
	assert.Equal(t, 0, l.Canvas.Grid.Count(occupancy.Free))
	require.NoError(t, l.Verify(l.Settings.RenderOptions()))
}

func TestMaximizeFullCanvasIsUnchanged(t *testing.T) {
	cfg := gridConfig(geom.NewSize(10, 10))
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)
	res, err := c.Generate(context.Background(), squares(1, 3, 1))
	require.NoError(t, err)
	require.Len(t, res.Layout.Items, 1)
	assert.Equal(t, geom.NewBox(0, 0, 10, 10), res.Layout.Items[0].ReservationBox.Box())

	maximized, err := c.MaximizeEmptySpace(context.Background(), res.Layout)
	require.NoError(t, err)
	assert.Equal(t, res.Layout.Items[0].ReservationBox, maximized.Items[0].ReservationBox)
}

func TestMaximizeKeepsNoOverlap(t *testing.T) {
	cfg := config.Default()
	cfg.Name = "grow"
	cfg.Size = geom.NewSize(48, 32)
	cfg.Margin = 1
	cfg.SearchPattern = "linear"
	opts := item.DefaultRenderOptions()
	items := []item.Weighted{
		{Name: "a", Weight: 3, Item: item.NewRect(geom.NewSize(6, 4), opts)},
		{Name: "b", Weight: 2, Item: item.NewRect(geom.NewSize(4, 4), opts)},
		{Name: "c", Weight: 1, Item: item.NewRect(geom.NewSize(2, 5), opts)},
	}
	c, err := New(cfg, quietLogger)
	require.NoError(t, err)
	res, err := c.Generate(context.Background(), items)
	require.NoError(t, err)

	maximized, err := c.MaximizeEmptySpace(context.Background(), res.Layout)
	require.NoError(t, err)
	require.Len(t, maximized.Items, len(res.Layout.Items))
	for i, p := range maximized.Items {
		before := res.Layout.Items[i].ReservationBox.Box()
		assert.True(t, p.ReservationBox.Box().Contains(before), "%s grows", p.Name)
		assert.Equal(t, res.Layout.Items[i].No, p.No)
	}
	require.NoError(t, maximized.Verify(maximized.Settings.RenderOptions()))

	var rs []*reserve.Reservation
	for _, p := range maximized.Items {
		it, err := item.FromSource(p.Item, opts)
		require.NoError(t, err)
		rs = append(rs, &reserve.Reservation{Name: p.Name, No: p.No, Box: p.ReservationBox.Box(), Item: it})
	}
	rebuilt, err := reserve.RebuildMap(occupancy.NewMap(cfg.Size), rs, cfg.Margin)
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(maximized.Canvas.Grid))
}
