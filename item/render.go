package item

import (
	"fmt"
	"image/color"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
)

// RenderOptions 是物品渲染参数，作为构造参数显式传入
type RenderOptions struct {
	// Filter 是缩放图片时的重采样滤波器
	Filter imaging.ResampleFilter
	// AlphaThreshold 以上的像素视为实心
	AlphaThreshold uint8
	// FontSize 是文本初始渲染的字号（点）
	FontSize float64
	// TextColor 是文本颜色
	TextColor color.NRGBA
	// RectColor 是填充矩形的颜色
	RectColor color.NRGBA
	// SolidText 为 true 时文本的 Mask 覆盖整个外接框，而不是只覆盖字形
	SolidText bool
}

// DefaultRenderOptions 返回默认渲染参数
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Filter:    imaging.Lanczos,
		FontSize:  64,
		TextColor: color.NRGBA{A: 255},
		RectColor: color.NRGBA{R: 0x5b, G: 0x8d, B: 0xef, A: 255},
	}
}

var filters = map[string]imaging.ResampleFilter{
	"NEAREST":    imaging.NearestNeighbor,
	"BOX":        imaging.Box,
	"LINEAR":     imaging.Linear,
	"HERMITE":    imaging.Hermite,
	"MITCHELL":   imaging.MitchellNetravali,
	"CATMULLROM": imaging.CatmullRom,
	"BSPLINE":    imaging.BSpline,
	"GAUSSIAN":   imaging.Gaussian,
	"BARTLETT":   imaging.Bartlett,
	"LANCZOS":    imaging.Lanczos,
	"HANN":       imaging.Hann,
	"HAMMING":    imaging.Hamming,
	"BLACKMAN":   imaging.Blackman,
	"WELCH":      imaging.Welch,
	"COSINE":     imaging.Cosine,
}

// FilterNames 返回所有滤波器名称，按字母排序
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseFilter 按名称（不区分大小写）解析重采样滤波器
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	if f, ok := filters[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("%s unsupported. Must be one of [%s]", name, strings.Join(FilterNames(), "|"))
}

// ParseColor 解析 #rrggbb 或 #rrggbbaa 形式的颜色
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	c := color.NRGBA{A: 255}
	var err error
	switch len(s) {
	case 6:
		_, err = fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(s, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = fmt.Errorf("expected 6 or 8 hex digits")
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return c, nil
}
