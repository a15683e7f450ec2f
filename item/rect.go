package item

import (
	"image"

	"itemcloud/geom"
	"itemcloud/occupancy"
)

// Rect 是填充颜色的矩形物品，未旋转时 Mask 覆盖整个外接框
type Rect struct {
	t    Transform
	opts RenderOptions
	mask *occupancy.Mask
}

// NewRect 创建指定尺寸的矩形物品
func NewRect(size geom.Size, opts RenderOptions) *Rect {
	return newRect(Transform{Size: size}, opts)
}

func newRect(t Transform, opts RenderOptions) *Rect {
	mask := occupancy.SolidMask(t.Size)
	if t.Rotation != 0 {
		mask = mask.Rotate(t.Rotation)
	}
	if t.Fit != nil {
		mask = mask.Resize(*t.Fit)
	}
	return &Rect{t: t, opts: opts, mask: mask}
}

func (r *Rect) Size() geom.Size {
	return r.mask.Size()
}

func (r *Rect) Mask() *occupancy.Mask {
	return r.mask
}

func (r *Rect) Image() *image.NRGBA {
	size := r.mask.Size()
	img := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			if r.mask.At(x, y) {
				img.SetNRGBA(x, y, r.opts.RectColor)
			}
		}
	}
	return img
}

func (r *Rect) Resize(size geom.Size) Item {
	return newRect(r.t.resized(size), r.opts)
}

func (r *Rect) Rotate(degrees int) Item {
	return newRect(r.t.rotated(degrees), r.opts)
}

func (r *Rect) Describe() Source {
	return Source{Kind: KindRect, Transform: r.t}
}
