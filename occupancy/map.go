// Package occupancy 实现预留网格：每个像素一个标签（0 表示空闲，N 表示属于第 N 个预留），
// 以及物品 Mask、开口查找和网格的 CSV 编解码。
//
// 网格按行优先存储，cells[y*width+x]；外部只通过 geom.GridCoord 或 geom.Box 访问，
// 不直接暴露 (row, col) 与 (x, y) 的换算。
package occupancy

import (
	"math"

	"itemcloud/errors"
	"itemcloud/geom"
)

const (
	// Free 是空闲像素的标签
	Free uint32 = 0
	// Blocked 标记被画布形状排除的像素，任何物品都不能占用
	Blocked uint32 = math.MaxUint32
)

// Map 是画布大小的预留网格
type Map struct {
	width  int
	height int
	cells  []uint32
}

// NewMap 创建所有像素都空闲的网格
func NewMap(size geom.Size) *Map {
	w, h := max(0, size.Width), max(0, size.Height)
	return &Map{width: w, height: h, cells: make([]uint32, w*h)}
}

// NewMaskedMap 创建网格并把 allowed 中透明的像素标记为 Blocked
func NewMaskedMap(allowed *Mask) *Map {
	m := NewMap(allowed.Size())
	for i, ok := range allowed.solid {
		if !ok {
			m.cells[i] = Blocked
		}
	}
	return m
}

// Size 返回网格尺寸
func (m *Map) Size() geom.Size {
	return geom.NewSize(m.width, m.height)
}

// Bounds 返回以原点为左上角的画布矩形
func (m *Map) Bounds() geom.Box {
	return geom.BoxAt(0, 0, m.Size())
}

// At 返回网格坐标上的标签，越界返回 Blocked
func (m *Map) At(c geom.GridCoord) uint32 {
	if c.Col < 0 || c.Row < 0 || c.Col >= m.width || c.Row >= m.height {
		return Blocked
	}
	return m.cells[c.Row*m.width+c.Col]
}

// Set 设置网格坐标上的标签，越界时忽略
func (m *Map) Set(c geom.GridCoord, label uint32) {
	if c.Col < 0 || c.Row < 0 || c.Col >= m.width || c.Row >= m.height {
		return
	}
	m.cells[c.Row*m.width+c.Col] = label
}

// Write 把 mask 的实心像素写入 box 对应位置，标签为 label。
// box 必须完整位于网格内且与 mask 尺寸一致；没有写入任何像素时返回错误。
func (m *Map) Write(mask *Mask, box geom.Box, label uint32) error {
	if label == Free {
		return errors.New(errors.ErrCodeInvalidInput, "label %d is reserved for free cells", Free)
	}
	if !box.Size().Eq(mask.Size()) {
		return errors.New(errors.ErrCodeInvalidInput, "mask %s does not match %s", mask.Size(), box)
	}
	if !m.Bounds().Contains(box) {
		return errors.New(errors.ErrCodeOutOfBounds, "%s is outside %s", box, m.Bounds())
	}
	written := 0
	for y := 0; y < mask.height; y++ {
		row := (box.Upper+y)*m.width + box.Left
		for x := 0; x < mask.width; x++ {
			if mask.solid[y*mask.width+x] {
				m.cells[row+x] = label
				written++
			}
		}
	}
	if written == 0 {
		return errors.New(errors.ErrCodeEmptyMask, "mask for label %d at %s has no solid cells", label, box)
	}
	return nil
}

// CanFit 判断 mask 的每个实心像素在网格上是否空闲或等于 ignore。
// box 超出网格或与 mask 尺寸不一致时返回 false。
func (m *Map) CanFit(mask *Mask, box geom.Box, ignore uint32) bool {
	if !box.Size().Eq(mask.Size()) || !m.Bounds().Contains(box) {
		return false
	}
	for y := 0; y < mask.height; y++ {
		row := (box.Upper+y)*m.width + box.Left
		for x := 0; x < mask.width; x++ {
			if !mask.solid[y*mask.width+x] {
				continue
			}
			c := m.cells[row+x]
			if c != Free && c != ignore {
				return false
			}
		}
	}
	return true
}

// Clear 把 box 范围内等于 label 的像素恢复为空闲
func (m *Map) Clear(label uint32, box geom.Box) {
	box = clip(box, m.Bounds())
	for y := box.Upper; y < box.Lower; y++ {
		for x := box.Left; x < box.Right; x++ {
			if m.cells[y*m.width+x] == label {
				m.cells[y*m.width+x] = Free
			}
		}
	}
}

// Count 返回等于 label 的像素数量
func (m *Map) Count(label uint32) int {
	n := 0
	for _, c := range m.cells {
		if c == label {
			n++
		}
	}
	return n
}

// Clone 返回副本
func (m *Map) Clone() *Map {
	return &Map{width: m.width, height: m.height, cells: append([]uint32(nil), m.cells...)}
}

// Blank 返回只保留 Blocked 像素的副本，即放置任何物品之前的网格
func (m *Map) Blank() *Map {
	blank := NewMap(m.Size())
	for i, c := range m.cells {
		if c == Blocked {
			blank.cells[i] = Blocked
		}
	}
	return blank
}

// Equal 比较两个网格的尺寸与每个像素
func (m *Map) Equal(other *Map) bool {
	return m.Diff(other) == 0
}

// Diff 返回两个网格不同像素的数量，尺寸不同时返回全部像素数
func (m *Map) Diff(other *Map) int {
	if m.width != other.width || m.height != other.height {
		return max(len(m.cells), len(other.cells))
	}
	n := 0
	for i, c := range m.cells {
		if other.cells[i] != c {
			n++
		}
	}
	return n
}

func clip(b, bounds geom.Box) geom.Box {
	return geom.NewBox(
		max(b.Left, bounds.Left),
		max(b.Upper, bounds.Upper),
		max(min(b.Right, bounds.Right), max(b.Left, bounds.Left)),
		max(min(b.Lower, bounds.Lower), max(b.Upper, bounds.Upper)),
	)
}
