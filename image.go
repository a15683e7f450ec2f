package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"

	"itemcloud/geom"
	"itemcloud/item"
	"itemcloud/layout"
	"itemcloud/occupancy"
)

// RenderCloud 按放置记录重建每个物品并合成到画布上，最后按 Scale 缩放。
// 物品并行重建，按序号顺序绘制。
func RenderCloud(l *layout.Layout, opts item.RenderOptions) (*image.NRGBA, error) {
	bg := l.Settings.BackgroundColor()
	dstImage := imaging.New(l.Canvas.Size.Width, l.Canvas.Size.Height, bg)

	rendered := make([]*image.NRGBA, len(l.Items))
	var wg sync.WaitGroup
	errChan := make(chan error, len(l.Items))
	semaphore := make(chan struct{}, runtime.NumCPU())
	for i, p := range l.Items {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, p layout.Placement) {
			defer wg.Done()
			defer func() { <-semaphore }()
			it, err := item.FromSource(p.Item, opts)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", p.Name, err)
				return
			}
			rendered[i] = it.Image()
		}(i, p)
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	for i, p := range l.Items {
		box := p.PlacementBox.Box()
		dstRect := image.Rect(box.Left, box.Upper, box.Right, box.Lower)
		draw.Draw(dstImage, dstRect, rendered[i], image.Point{}, draw.Over)
	}

	if l.Settings.Scale > 0 && l.Settings.Scale != 1 {
		w := int(math.Round(float64(l.Canvas.Size.Width) * l.Settings.Scale))
		h := int(math.Round(float64(l.Canvas.Size.Height) * l.Settings.Scale))
		dstImage = imaging.Resize(dstImage, max(1, w), max(1, h), opts.Filter)
	}
	if bg.A == 255 {
		// RGB 模式下去掉缩放产生的半透明边缘
		dstImage = imaging.Overlay(imaging.New(dstImage.Rect.Dx(), dstImage.Rect.Dy(), bg), dstImage, image.Point{}, 1)
	}
	return dstImage, nil
}

// labelColor 为每个预留标签生成固定的颜色，相邻序号的色相相差黄金角
func labelColor(label uint32) color.NRGBA {
	switch label {
	case occupancy.Free:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	case occupancy.Blocked:
		return color.NRGBA{A: 255}
	}
	hue := math.Mod(float64(label)*137.508, 360)
	return hsv(hue, 0.65, 0.9)
}

func hsv(h, s, v float64) color.NRGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.NRGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}

// RenderReservationMap 把预留网格画成图片，每个标签一种颜色
func RenderReservationMap(grid *occupancy.Map) *image.NRGBA {
	size := grid.Size()
	dstImage := imaging.New(size.Width, size.Height, color.NRGBA{})
	colors := make(map[uint32]color.NRGBA)
	for row := 0; row < size.Height; row++ {
		for col := 0; col < size.Width; col++ {
			g := geom.GridCoord{Row: row, Col: col}
			label := grid.At(g)
			c, ok := colors[label]
			if !ok {
				c = labelColor(label)
				colors[label] = c
			}
			p := g.Pixel()
			dstImage.SetNRGBA(p.X, p.Y, c)
		}
	}
	return dstImage
}

func savePNG(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := imaging.Encode(file, img, imaging.PNG); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// writeOutputs 保存布局，并按需要写出云图和预留网格图
func (a *App) writeOutputs(l *layout.Layout, opts *Options) error {
	path, err := l.Save(opts.OutputDir)
	if err != nil {
		return err
	}
	a.Logger.Info("wrote layout", "path", path)
	if opts.NoRender {
		return nil
	}

	cloudImage, err := RenderCloud(l, l.Settings.RenderOptions())
	if err != nil {
		return err
	}
	cloudPath := outputPath(opts, l.Name+".png")
	if err := savePNG(cloudImage, cloudPath); err != nil {
		return fmt.Errorf("write cloud image: %w", err)
	}
	mapPath := outputPath(opts, l.Name+".reservation_map.png")
	if err := savePNG(RenderReservationMap(l.Canvas.Grid), mapPath); err != nil {
		return fmt.Errorf("write reservation map image: %w", err)
	}
	a.Logger.Info("wrote images", "cloud", cloudPath, "reservations", mapPath)
	return nil
}
