package item

import (
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/occupancy"
)

// Raster 是由位图渲染的物品：图片，或先渲染成位图的文本
type Raster struct {
	src  Source
	base image.Image
	opts RenderOptions
	img  *image.NRGBA
	mask *occupancy.Mask
}

// NewImage 使用已解码的图片创建物品，path 只用于描述和重建
func NewImage(path string, img image.Image, opts RenderOptions) *Raster {
	b := img.Bounds()
	src := Source{Kind: KindImage, Path: path, Transform: Transform{Size: geom.NewSize(b.Dx(), b.Dy())}}
	return newRaster(src, img, opts)
}

// LoadImage 从文件解码图片并创建物品，描述中保存绝对路径
func LoadImage(path string, opts RenderOptions) (*Raster, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "image %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "image %s", path)
	}
	img, err := imaging.Open(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode image %s", path)
	}
	return NewImage(abs, img, opts), nil
}

// NewText 使用 Go Regular 字体把文本渲染为位图后创建物品
func NewText(text string, opts RenderOptions) (*Raster, error) {
	img, err := renderText(text, opts)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	src := Source{Kind: KindText, Text: text, Transform: Transform{Size: geom.NewSize(b.Dx(), b.Dy())}}
	return newRaster(src, img, opts), nil
}

func newRaster(src Source, base image.Image, opts RenderOptions) *Raster {
	r := &Raster{src: src, base: base, opts: opts}
	r.render()
	return r
}

// render 从原始位图按 Transform 重新生成图像和 Mask
func (r *Raster) render() {
	t := r.src.Transform
	size := geom.NewSize(max(1, t.Size.Width), max(1, t.Size.Height))
	b := r.base.Bounds()
	var img *image.NRGBA
	if size.Width == b.Dx() && size.Height == b.Dy() {
		img = imaging.Clone(r.base)
	} else {
		img = imaging.Resize(r.base, size.Width, size.Height, r.opts.Filter)
	}
	if t.Rotation != 0 {
		// imaging 按逆时针旋转
		img = imaging.Rotate(img, float64(-t.Rotation), color.Transparent)
	}
	if t.Fit != nil {
		img = imaging.Resize(img, max(1, t.Fit.Width), max(1, t.Fit.Height), r.opts.Filter)
	}
	r.img = img
	if r.src.Kind == KindText && r.opts.SolidText {
		r.mask = occupancy.SolidMask(geom.NewSize(img.Bounds().Dx(), img.Bounds().Dy()))
		return
	}
	r.mask = occupancy.FromAlpha(img, r.opts.AlphaThreshold)
}

func (r *Raster) Size() geom.Size {
	return r.mask.Size()
}

func (r *Raster) Mask() *occupancy.Mask {
	return r.mask
}

func (r *Raster) Image() *image.NRGBA {
	return r.img
}

func (r *Raster) Resize(size geom.Size) Item {
	src := r.src
	src.Transform = r.src.Transform.resized(size)
	return newRaster(src, r.base, r.opts)
}

func (r *Raster) Rotate(degrees int) Item {
	src := r.src
	src.Transform = r.src.Transform.rotated(degrees)
	return newRaster(src, r.base, r.opts)
}

func (r *Raster) Describe() Source {
	return r.src
}

// renderText 渲染文本并裁剪到字形的外接框
func renderText(text string, opts RenderOptions) (*image.NRGBA, error) {
	if text == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty text")
	}
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse font")
	}
	size := opts.FontSize
	if size <= 0 {
		size = DefaultRenderOptions().FontSize
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create font face")
	}
	defer face.Close()

	fg := opts.TextColor
	if fg.A == 0 {
		fg = DefaultRenderOptions().TextColor
	}

	bounds, _ := font.BoundString(face, text)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "text %q has no visible glyphs", text)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot: fixed.Point26_6{
			X: -bounds.Min.X,
			Y: -bounds.Min.Y,
		},
	}
	d.DrawString(text)
	return img, nil
}
