package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResizeType 描述尺寸按步长调整时采用的策略
type ResizeType int

const (
	// NoResize 调整不改变尺寸
	NoResize ResizeType = -1
	// MaintainAspectRatio 长边按步长变化，短边按宽高比跟随
	MaintainAspectRatio ResizeType = 1
	// MaintainPercentageChange 两边按同一百分比（步长/长边）独立变化，每边至少变化1像素
	MaintainPercentageChange ResizeType = 2
)

// ResizeTypes 列出所有可解析的策略名称
var ResizeTypes = []string{"NO_RESIZE", "MAINTAIN_ASPECT_RATIO", "MAINTAIN_PERCENTAGE_CHANGE"}

// String 返回策略名称
func (rt ResizeType) String() string {
	switch rt {
	case NoResize:
		return "NO_RESIZE"
	case MaintainAspectRatio:
		return "MAINTAIN_ASPECT_RATIO"
	case MaintainPercentageChange:
		return "MAINTAIN_PERCENTAGE_CHANGE"
	}
	return fmt.Sprintf("ResizeType(%d)", int(rt))
}

// ParseResizeType 按名称（不区分大小写）解析策略
func ParseResizeType(s string) (ResizeType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NO_RESIZE", "NO_RESIZE_TYPE":
		return NoResize, nil
	case "MAINTAIN_ASPECT_RATIO":
		return MaintainAspectRatio, nil
	case "MAINTAIN_PERCENTAGE_CHANGE":
		return MaintainPercentageChange, nil
	}
	return NoResize, fmt.Errorf("%s unsupported. Must be one of [%s]", s, strings.Join(ResizeTypes, "|"))
}

// Size 描述了二维空间中实体的尺寸
type Size struct {
	// Width 是在水平 x 轴上的尺寸
	Width int `json:"width" toml:"width" yaml:"width"`
	// Height 是在垂直 y 轴上的尺寸
	Height int `json:"height" toml:"height" yaml:"height"`
}

// NewSize 创建具有指定尺寸的新尺寸对象
func NewSize(width, height int) Size {
	return Size{Width: width, Height: height}
}

// ParseSize 解析 "宽,高" 形式的字符串
func ParseSize(s string) (Size, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("size %q must be of form width,height", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Size{}, fmt.Errorf("size %q: invalid width: %w", s, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Size{}, fmt.Errorf("size %q: invalid height: %w", s, err)
	}
	return Size{Width: w, Height: h}, nil
}

// Eq 判断两个尺寸是否相等
func (sz Size) Eq(size Size) bool {
	return sz.Width == size.Width && sz.Height == size.Height
}

// String 返回尺寸的字符串表示形式
func (sz Size) String() string {
	return fmt.Sprintf("Size(%d, %d)", sz.Width, sz.Height)
}

// Area 返回总面积（宽度 * 高度）
func (sz Size) Area() int {
	return sz.Width * sz.Height
}

// MaxSide 返回较大边的值
func (sz Size) MaxSide() int {
	return max(sz.Width, sz.Height)
}

// MinSide 返回较小边的值
func (sz Size) MinSide() int {
	return min(sz.Width, sz.Height)
}

// IsEmpty 测试宽度或高度是否小于1
func (sz Size) IsEmpty() bool {
	return sz.Width <= 0 || sz.Height <= 0
}

// IsLessThan 任一边小于 other 的对应边时返回 true
func (sz Size) IsLessThan(other Size) bool {
	return sz.Width < other.Width || sz.Height < other.Height
}

// Fits 两边都不大于 other 时返回 true
func (sz Size) Fits(other Size) bool {
	return sz.Width <= other.Width && sz.Height <= other.Height
}

// Scale 按比例缩放，四舍五入
func (sz Size) Scale(scale float64) Size {
	return Size{
		Width:  int(math.Round(float64(sz.Width) * scale)),
		Height: int(math.Round(float64(sz.Height) * scale)),
	}
}

// FitWithin 保持宽高比缩小到 bound 之内；已经放得下时原样返回
func (sz Size) FitWithin(bound Size) Size {
	if sz.Fits(bound) || sz.IsEmpty() {
		return sz
	}
	scale := math.Min(float64(bound.Width)/float64(sz.Width), float64(bound.Height)/float64(sz.Height))
	result := Size{
		Width:  int(math.Floor(float64(sz.Width) * scale)),
		Height: int(math.Floor(float64(sz.Height) * scale)),
	}
	return Size{Width: max(1, result.Width), Height: max(1, result.Height)}
}

// Adjust 按步长和策略调整尺寸，step 为负表示收缩
func (sz Size) Adjust(step int, resizeType ResizeType) Size {
	if step == 0 {
		return sz
	}
	switch resizeType {
	case MaintainAspectRatio:
		if sz.Width <= 0 || sz.Height <= 0 {
			return Size{Width: max(0, sz.Width+step), Height: max(0, sz.Height+step)}
		}
		if sz.Width >= sz.Height {
			w := max(0, sz.Width+step)
			h := int(math.Round(float64(sz.Height) * float64(w) / float64(sz.Width)))
			return Size{Width: w, Height: max(0, h)}
		}
		h := max(0, sz.Height+step)
		w := int(math.Round(float64(sz.Width) * float64(h) / float64(sz.Height)))
		return Size{Width: max(0, w), Height: h}
	case MaintainPercentageChange:
		longer := sz.MaxSide()
		if longer <= 0 {
			return Size{Width: max(0, sz.Width+step), Height: max(0, sz.Height+step)}
		}
		pct := float64(step) / float64(longer)
		return Size{
			Width:  max(0, sz.Width+percentStep(sz.Width, pct, step)),
			Height: max(0, sz.Height+percentStep(sz.Height, pct, step)),
		}
	}
	return sz
}

// percentStep 计算一边按百分比的变化量，至少为1像素
func percentStep(side int, pct float64, step int) int {
	delta := int(math.Round(float64(side) * pct))
	if delta == 0 {
		if step < 0 {
			return -1
		}
		return 1
	}
	return delta
}
