package occupancy

import (
	"image"
	"image/color"
	"math"

	"itemcloud/geom"
)

// Mask 标记物品外接框内哪些像素是实心的（不可与其他物品重叠），
// 透明像素可以与其他物品重叠。Mask 创建后视为不可变，所有变换都返回新的 Mask。
type Mask struct {
	width  int
	height int
	solid  []bool
}

// NewMask 创建全透明的 Mask
func NewMask(size geom.Size) *Mask {
	w, h := max(0, size.Width), max(0, size.Height)
	return &Mask{width: w, height: h, solid: make([]bool, w*h)}
}

// SolidMask 创建全实心的 Mask，用于填充矩形或实心文本
func SolidMask(size geom.Size) *Mask {
	m := NewMask(size)
	for i := range m.solid {
		m.solid[i] = true
	}
	return m
}

// FromAlpha 以 alpha 通道生成 Mask：alpha 大于 threshold 的像素为实心
func FromAlpha(img image.Image, threshold uint8) *Mask {
	b := img.Bounds()
	m := NewMask(geom.NewSize(b.Dx(), b.Dy()))
	limit := uint32(threshold) * 0x101
	if nrgba, ok := img.(*image.NRGBA); ok {
		// 直接访问像素数组，避免逐像素接口调用
		for y := 0; y < m.height; y++ {
			row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+m.width*4]
			for x := 0; x < m.width; x++ {
				m.solid[y*m.width+x] = row[x*4+3] > threshold
			}
		}
		return m
	}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m.solid[y*m.width+x] = a > limit
		}
	}
	return m
}

// FromShape 以画布形状图生成可用区域：不透明且非白色的像素为可用
func FromShape(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(geom.NewSize(b.Dx(), b.Dy()))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			white := c.R > 250 && c.G > 250 && c.B > 250
			m.solid[y*m.width+x] = c.A > 0 && !white
		}
	}
	return m
}

// Size 返回 Mask 的尺寸
func (m *Mask) Size() geom.Size {
	return geom.NewSize(m.width, m.height)
}

// Width 返回宽度
func (m *Mask) Width() int {
	return m.width
}

// Height 返回高度
func (m *Mask) Height() int {
	return m.height
}

// At 返回 (x, y) 是否实心，越界返回 false
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.solid[y*m.width+x]
}

// Set 设置 (x, y) 是否实心，只用于构建阶段
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.solid[y*m.width+x] = v
}

// Count 返回实心像素数量
func (m *Mask) Count() int {
	n := 0
	for _, s := range m.solid {
		if s {
			n++
		}
	}
	return n
}

// Clone 返回副本
func (m *Mask) Clone() *Mask {
	return &Mask{width: m.width, height: m.height, solid: append([]bool(nil), m.solid...)}
}

// offsets 返回实心像素相对左上角在步长为 stride 的网格中的偏移，按行优先顺序
func (m *Mask) offsets(stride int) []int {
	out := make([]int, 0, len(m.solid))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.solid[y*m.width+x] {
				out = append(out, y*stride+x)
			}
		}
	}
	return out
}

// AddMargin 四边各扩展 margin 个像素，原内容复制到偏移处，边缘保持透明
func (m *Mask) AddMargin(margin int) *Mask {
	if margin <= 0 {
		return m.Clone()
	}
	out := NewMask(geom.NewSize(m.width+2*margin, m.height+2*margin))
	for y := 0; y < m.height; y++ {
		copy(out.solid[(y+margin)*out.width+margin:], m.solid[y*m.width:(y+1)*m.width])
	}
	return out
}

// Dilate 以方形邻域膨胀实心区域，半径为 r。尺寸不变，超出边界的部分被截掉。
func (m *Mask) Dilate(r int) *Mask {
	if r <= 0 {
		return m.Clone()
	}
	// 先水平后垂直，两次一维膨胀等价于方形邻域
	horiz := NewMask(m.Size())
	for y := 0; y < m.height; y++ {
		dilateLine(m.solid[y*m.width:(y+1)*m.width], horiz.solid[y*m.width:(y+1)*m.width], r)
	}
	out := NewMask(m.Size())
	col := make([]bool, m.height)
	dst := make([]bool, m.height)
	for x := 0; x < m.width; x++ {
		for y := 0; y < m.height; y++ {
			col[y] = horiz.solid[y*m.width+x]
		}
		dilateLine(col, dst, r)
		for y := 0; y < m.height; y++ {
			out.solid[y*m.width+x] = dst[y]
		}
	}
	return out
}

// dilateLine 使用前缀和计算每个位置 [i-r, i+r] 内是否存在实心像素
func dilateLine(src, dst []bool, r int) {
	n := len(src)
	prefix := make([]int, n+1)
	for i, s := range src {
		prefix[i+1] = prefix[i]
		if s {
			prefix[i+1]++
		}
	}
	for i := 0; i < n; i++ {
		lo := max(0, i-r)
		hi := min(n, i+r+1)
		dst[i] = prefix[hi]-prefix[lo] > 0
	}
}

// Resize 使用最近邻采样缩放到指定尺寸
func (m *Mask) Resize(size geom.Size) *Mask {
	out := NewMask(size)
	if m.width == 0 || m.height == 0 {
		return out
	}
	for y := 0; y < out.height; y++ {
		sy := y * m.height / out.height
		for x := 0; x < out.width; x++ {
			sx := x * m.width / out.width
			out.solid[y*out.width+x] = m.solid[sy*m.width+sx]
		}
	}
	return out
}

// Rotate 绕中心顺时针旋转 degrees 度，结果尺寸为旋转后的外接框。
// 对每个目标像素做逆映射取最近的源像素，90 度的倍数是精确的行列置换。
func (m *Mask) Rotate(degrees int) *Mask {
	degrees = ((degrees % 360) + 360) % 360
	if degrees == 0 {
		return m.Clone()
	}
	size := geom.RotatedSize(m.Size(), degrees)
	out := NewMask(size)
	rad := float64(degrees) * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	scx, scy := float64(m.width)/2, float64(m.height)/2
	dcx, dcy := float64(out.width)/2, float64(out.height)/2
	for y := 0; y < out.height; y++ {
		dy := float64(y) + 0.5 - dcy
		for x := 0; x < out.width; x++ {
			dx := float64(x) + 0.5 - dcx
			sx := int(math.Floor(dx*cos + dy*sin + scx))
			sy := int(math.Floor(-dx*sin + dy*cos + scy))
			out.solid[y*out.width+x] = m.At(sx, sy)
		}
	}
	return out
}
