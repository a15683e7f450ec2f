// Package geom 提供布局所用的几何类型：尺寸、矩形框、方向以及像素/网格坐标。
//
// Box 使用 (left, upper, right, lower) 半开区间，x 向右、y 向下增长。
// 占用网格按行优先存储（行 = y，列 = x），两者之间的换算只通过
// PixelCoord 与 GridCoord 进行，避免宽高与行列的颠倒。
package geom

import (
	"fmt"
	"math"
)

// Direction 描述滑动或扩展的轴向
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions 是最大化扩展时固定的方向遍历顺序
var Directions = []Direction{Up, Right, Down, Left}

// String 返回方向名称
func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Right:
		return "RIGHT"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Box 描述一个轴对齐的矩形，满足 Left <= Right、Upper <= Lower
type Box struct {
	Left  int `json:"left"`
	Upper int `json:"upper"`
	Right int `json:"right"`
	Lower int `json:"lower"`
}

// NewBox 使用左/上/右/下值初始化矩形
func NewBox(left, upper, right, lower int) Box {
	return Box{Left: left, Upper: upper, Right: right, Lower: lower}
}

// BoxAt 使用左上角坐标和尺寸初始化矩形
func BoxAt(x, y int, size Size) Box {
	return Box{Left: x, Upper: y, Right: x + size.Width, Lower: y + size.Height}
}

// Width 返回宽度
func (b Box) Width() int {
	return b.Right - b.Left
}

// Height 返回高度
func (b Box) Height() int {
	return b.Lower - b.Upper
}

// Size 返回尺寸
func (b Box) Size() Size {
	return Size{Width: b.Width(), Height: b.Height()}
}

// Area 返回面积
func (b Box) Area() int {
	return b.Width() * b.Height()
}

// TopLeft 返回左上角像素坐标
func (b Box) TopLeft() PixelCoord {
	return PixelCoord{X: b.Left, Y: b.Upper}
}

// Center 返回中心点（浮点）
func (b Box) Center() (float64, float64) {
	return float64(b.Left+b.Right) / 2, float64(b.Upper+b.Lower) / 2
}

// Eq 比较两个矩形是否相同
func (b Box) Eq(other Box) bool {
	return b == other
}

// String 返回描述矩形的字符串
func (b Box) String() string {
	return fmt.Sprintf("Box(%d, %d, %d, %d)", b.Left, b.Upper, b.Right, b.Lower)
}

// IsEmpty 测试矩形的宽度或高度是否小于1
func (b Box) IsEmpty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Contains 测试 other 是否完全位于接收者之内
func (b Box) Contains(other Box) bool {
	return b.Left <= other.Left &&
		b.Upper <= other.Upper &&
		b.Right >= other.Right &&
		b.Lower >= other.Lower
}

// RemoveMargin 每边向内收缩 margin
func (b Box) RemoveMargin(margin int) Box {
	if margin <= 0 {
		return b
	}
	return Box{
		Left:  b.Left + margin,
		Upper: b.Upper + margin,
		Right: b.Right - margin,
		Lower: b.Lower - margin,
	}
}

// AddMargin 每边向外扩展 margin
func (b Box) AddMargin(margin int) Box {
	if margin <= 0 {
		return b
	}
	return Box{
		Left:  b.Left - margin,
		Upper: b.Upper - margin,
		Right: b.Right + margin,
		Lower: b.Lower + margin,
	}
}

// Slide 沿方向平移 distance
func (b Box) Slide(distance int, direction Direction) Box {
	switch direction {
	case Up:
		b.Upper -= distance
		b.Lower -= distance
	case Down:
		b.Upper += distance
		b.Lower += distance
	case Left:
		b.Left -= distance
		b.Right -= distance
	case Right:
		b.Left += distance
		b.Right += distance
	}
	return b
}

// Expand 只移动方向上的那一条边，使矩形增长 distance
func (b Box) Expand(distance int, direction Direction) Box {
	switch direction {
	case Up:
		b.Upper -= distance
	case Down:
		b.Lower += distance
	case Left:
		b.Left -= distance
	case Right:
		b.Right += distance
	}
	return b
}

// RotatedSize 返回按角度旋转后轴对齐外接框的尺寸
func RotatedSize(size Size, degrees int) Size {
	rad := float64(degrees) * math.Pi / 180
	cos := math.Abs(math.Cos(rad))
	sin := math.Abs(math.Sin(rad))
	w, h := float64(size.Width), float64(size.Height)
	return Size{
		Width:  int(math.Round(w*cos + h*sin)),
		Height: int(math.Round(w*sin + h*cos)),
	}
}

// Rotate 绕自身中心旋转，返回新的外接框。矩形关于中心对称，顺/逆时针结果相同。
func (b Box) Rotate(degrees int) Box {
	size := RotatedSize(b.Size(), degrees)
	left := b.Left + floorDiv(b.Width()-size.Width, 2)
	upper := b.Upper + floorDiv(b.Height()-size.Height, 2)
	return BoxAt(left, upper, size)
}

// IsWedged 矩形碰到或越过 bounding 的任一边时返回 true
func (b Box) IsWedged(bounding Box) bool {
	return b.Upper <= bounding.Upper ||
		b.Lower >= bounding.Lower ||
		b.Left <= bounding.Left ||
		b.Right >= bounding.Right
}

// RotateUntilWedged 以5度为增量旋转，直到碰到 bounding 或累计超过90度，返回可用的角度
func (b Box) RotateUntilWedged(bounding Box) int {
	const increment = 5
	result := 0
	box := b
	for !box.IsWedged(bounding) {
		if 90 < result+increment {
			break
		}
		result += increment
		box = b.Rotate(result)
	}
	return result
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
