// Package cloud 驱动整个生成过程：按权重排序、按比例缩放到画布、逐个放置物品，
// 有物品被丢弃时扩大画布重试，最后可选地把每个物品扩展到周围的空白区域。
package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"itemcloud/config"
	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/item"
	"itemcloud/layout"
	"itemcloud/occupancy"
	"itemcloud/reserve"
)

// Cloud 按配置生成布局
type Cloud struct {
	cfg    config.Config
	name   string
	logger *log.Logger
	mask   *occupancy.Mask
}

// Option 修改 Cloud 的可选设置
type Option func(*Cloud)

// WithMask 使用 mask 作为画布形状，只有实心像素可以放置物品，画布尺寸等于 mask 尺寸
func WithMask(mask *occupancy.Mask) Option {
	return func(c *Cloud) {
		c.mask = mask
	}
}

// New 校验配置并创建 Cloud；配置了 MaskPath 且没有通过 WithMask 指定时从文件加载画布形状
func New(cfg config.Config, logger *log.Logger, opts ...Option) (*Cloud, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &Cloud{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	if c.mask == nil && cfg.MaskPath != "" {
		mask, err := LoadMask(cfg.MaskPath)
		if err != nil {
			return nil, err
		}
		c.mask = mask
	}
	c.name = cfg.ResolveName()
	c.cfg.Name = c.name
	return c, nil
}

// LoadMask 读取画布形状图片，不透明且非白色的像素可以放置物品
func LoadMask(path string) (*occupancy.Mask, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open mask %s", path)
	}
	mask := occupancy.FromShape(img)
	if mask.Count() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mask %s has no usable pixels", path)
	}
	return mask, nil
}

// Name 返回输出文件使用的名称
func (c *Cloud) Name() string {
	return c.name
}

// Config 返回生效的配置
func (c *Cloud) Config() config.Config {
	return c.cfg
}

// Result 是一次生成的结果
type Result struct {
	Layout *layout.Layout
	// Placed 是成功放置的物品数量
	Placed int
	// Total 是截断到 MaxItems 之后参与放置的物品数量
	Total int
	// Dropped 是没有放置的物品数量，包括权重为 0 的物品
	Dropped int
	// Expansions 是画布扩大的次数
	Expansions int
}

// run 是在某个画布尺寸上的一次完整放置
type run struct {
	layout  *layout.Layout
	placed  int
	dropped int
	// tooSmall 是缩放后已小于 MinItemSize 的物品数，扩大画布也无法放置
	tooSmall int
}

// Generate 生成布局。
//
// 物品按权重降序排序并截断到 MaxItems，按比例缩放到画布后逐个放置。
// ExpansionStep 大于 0 且有物品被丢弃时，按 ResizeType 扩大画布并从头重新放置；
// 缩放后已小于 MinItemSize 的物品直接丢弃，不会触发扩大。
// 配置了 Maximize 时最后执行 MaximizeEmptySpace。
func (c *Cloud) Generate(ctx context.Context, items []item.Weighted) (*Result, error) {
	if c.mask != nil && c.cfg.ExpansionStep > 0 {
		return nil, errors.New(errors.ErrCodeExpansionWithMask,
			"canvas expansion (step %d) cannot be used with a mask", c.cfg.ExpansionStep)
	}
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeNoItems, "need at least 1 item to generate a cloud, got 0")
	}

	sorted := item.SortByWeight(items)
	if len(sorted) > c.cfg.MaxItems {
		c.logger.Info("truncating items", "items", len(sorted), "max", c.cfg.MaxItems)
		sorted = sorted[:c.cfg.MaxItems]
	}
	weighted := 0
	for _, w := range sorted {
		if w.Weight > 0 {
			weighted++
		}
	}

	size := c.canvasSize()
	c.logger.Info("generating cloud", "name", c.name, "items", len(sorted), "canvas", size)
	p := newProgress(c.logger)

	fitted, err := item.ResizeToProportionallyFit(sorted, size, c.cfg.Margin)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(sorted)}
	for {
		r, err := c.generate(ctx, fitted, size)
		if err != nil {
			return nil, err
		}
		result.Layout, result.Placed, result.Dropped = r.layout, r.placed, r.dropped
		if c.cfg.ExpansionStep <= 0 || r.placed >= weighted-r.tooSmall {
			break
		}
		next := size.Adjust(c.cfg.ExpansionStep, c.cfg.Resize())
		if next.Eq(size) {
			c.logger.Warn("canvas cannot expand", "canvas", size, "resize", c.cfg.Resize())
			break
		}
		result.Expansions++
		c.logger.Info("expanded cloud for dropped items",
			"from", size, "to", next, "dropped", fmt.Sprintf("%d/%d", r.dropped, len(sorted)))
		size = next
	}
	p.done(fmt.Sprintf("Generated %d/%d items", result.Placed, result.Total))

	if c.cfg.Maximize {
		maximized, err := c.MaximizeEmptySpace(ctx, result.Layout)
		if err != nil {
			return nil, err
		}
		result.Layout = maximized
	}
	return result, nil
}

func (c *Cloud) canvasSize() geom.Size {
	if c.mask != nil {
		return c.mask.Size()
	}
	return c.cfg.Size
}

func (c *Cloud) newMap(size geom.Size) *occupancy.Map {
	if c.mask != nil {
		return occupancy.NewMaskedMap(c.mask)
	}
	return occupancy.NewMap(size)
}

// generate 在 size 的画布上放置已按比例缩放的物品
func (c *Cloud) generate(ctx context.Context, items []item.Weighted, size geom.Size) (*run, error) {
	maxSize := c.cfg.MaxItemSize
	if !c.cfg.HasMaxItemSize() {
		var err error
		if maxSize, err = c.maxItemSize(ctx, items, size); err != nil {
			return nil, err
		}
	}
	return c.place(ctx, items, size, maxSize, c.logger)
}

// maxItemSize 试放前两个物品，取它们放置尺寸的调和平均作为物品的最大尺寸；
// 只有一个物品时使用画布尺寸
func (c *Cloud) maxItemSize(ctx context.Context, items []item.Weighted, size geom.Size) (geom.Size, error) {
	if len(items) == 1 {
		return size, nil
	}
	trial, err := c.place(ctx, items[:2], size, size, c.logger.WithPrefix("trial"))
	if err != nil {
		return geom.Size{}, err
	}
	var sizes []geom.Size
	for _, p := range trial.layout.Items {
		sizes = append(sizes, p.PlacementBox.Box().Size())
	}
	switch len(sizes) {
	case 0:
		return geom.Size{}, errors.New(errors.ErrCodeCanvasTooSmall,
			"no space for the first items on a %s canvas; the canvas is too small or too much of it is masked out", size)
	case 1:
		return sizes[0], nil
	}
	maxSize := geom.NewSize(
		harmonic(sizes[0].Width, sizes[1].Width),
		harmonic(sizes[0].Height, sizes[1].Height),
	)
	c.logger.Debug("max item size", "size", maxSize)
	return maxSize, nil
}

func harmonic(a, b int) int {
	return 2 * a * b / (a + b)
}

// place 按顺序放置物品。单个物品找不到位置时丢弃并继续，只有取消或内部错误会中止。
func (c *Cloud) place(ctx context.Context, items []item.Weighted, size, maxSize geom.Size, logger *log.Logger) (*run, error) {
	rs := reserve.FromMap(c.newMap(size), c.cfg.Threads, logger)
	state := rs.NewSearchState(c.cfg.Pattern(), c.cfg.Seed)
	opts := c.cfg.SampleOptions()
	margin := c.cfg.Margin
	start := time.Now()

	settings := c.cfg
	settings.Size = size
	r := &run{layout: layout.New(c.name, settings, rs.Map())}
	total := len(items)
	for i, w := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress := fmt.Sprintf("%d/%d", i+1, total)
		if w.Weight <= 0 {
			logger.Info("dropping zero weight item", "item", w.Name, "progress", progress)
			r.dropped++
			continue
		}

		it := w.Item
		if !it.Size().Fits(maxSize) {
			it = it.Resize(it.Size().FitWithin(maxSize))
		}
		if it.Size().IsLessThan(opts.MinSize) {
			logger.Info("dropping item smaller than min size",
				"item", w.Name, "progress", progress, "size", it.Size(), "min", opts.MinSize)
			r.dropped++
			r.tooSmall++
			continue
		}
		itemStart := time.Now()
		sampled, err := rs.SampleOpening(ctx, it, opts, state)
		if err != nil {
			return nil, err
		}
		latency := time.Since(itemStart)
		if !sampled.Found {
			logger.Info("dropping item",
				"item", w.Name, "progress", progress, "samples", sampled.Samples,
				"resize", fmt.Sprintf("%s -> %s", it.Size(), sampled.Size),
				"tooSmall", sampled.Size.IsLessThan(opts.MinSize),
				"latency", latency.Round(time.Microsecond))
			r.dropped++
			continue
		}

		no := rs.NextNo()
		if !rs.ReserveOpening(w.Name, no, sampled.OpeningBox, sampled.Item, margin) {
			logger.Error("dropping item, failed to reserve opening",
				"item", w.Name, "progress", progress, "box", sampled.OpeningBox, "rotation", sampled.Rotation)
			r.dropped++
			continue
		}
		reservation, _ := rs.Get(no)
		r.layout.Items = append(r.layout.Items,
			layout.NewPlacement(reservation, w.Weight, margin, sampled.Samples, latency))
		r.placed++
		state.Next(sampled.OpeningBox)
		logger.Info("placed item",
			"item", w.Name, "progress", progress, "samples", sampled.Samples, "rotation", sampled.Rotation,
			"resize", fmt.Sprintf("%s -> %s", it.Size(), sampled.Item.Size()),
			"latency", latency.Round(time.Microsecond))
	}
	r.layout.Latency = time.Since(start).Round(time.Millisecond).String()
	return r, nil
}

// MaximizeEmptySpace 从保存的布局恢复预留，按放置顺序的逆序把每个物品扩展到周围空白，
// 返回名称带 .maximized 后缀的新布局。后放置的物品先扩展。
func (c *Cloud) MaximizeEmptySpace(ctx context.Context, l *layout.Layout) (*layout.Layout, error) {
	opts := l.Settings.RenderOptions()
	rs, err := l.Reservations(opts, c.logger)
	if err != nil {
		return nil, err
	}
	margin := l.Margin()
	list := rs.List()
	total := len(list)
	c.logger.Info("maximizing empty space", "items", total)
	p := newProgress(c.logger)

	placements := make([]layout.Placement, total)
	copy(placements, l.Items)
	maximized := 0
	for i := total - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := list[i]
		progress := fmt.Sprintf("%d/%d", total-i, total)
		start := time.Now()
		grown := rs.MaximizeReservation(r, margin)
		if grown == r {
			c.logger.Debug("already maximized", "item", r.Name, "progress", progress)
			continue
		}
		if !rs.Replace(grown, margin) {
			c.logger.Error("dropping maximized reservation", "item", r.Name, "from", r.Box, "to", grown.Box)
			continue
		}
		old := l.Items[i]
		placements[i] = layout.NewPlacement(grown, old.Weight, margin, old.Samples, time.Since(start))
		maximized++
		c.logger.Info("maximized item",
			"item", r.Name, "progress", progress,
			"resize", fmt.Sprintf("%s -> %s", r.Box.Size(), grown.Box.Size()))
	}
	p.done(fmt.Sprintf("Maximized %d/%d items", maximized, total))

	settings := l.Settings
	settings.Name = l.Name + ".maximized"
	out := layout.New(settings.Name, settings, rs.Map())
	out.Canvas.Mode = l.Canvas.Mode
	out.Canvas.Background = l.Canvas.Background
	out.Items = placements
	out.Latency = time.Since(p.start).Round(time.Millisecond).String()
	return out, nil
}
