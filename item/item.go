// Package item 定义布局引擎使用的物品抽象。
//
// 引擎只依赖 Item 的能力集合：尺寸、占用 Mask、缩放和旋转；
// 具体物品有填充矩形（Rect）、图片（Image）和文本（Text）三种。
// 所有变换都从原始内容重新渲染，避免反复重采样带来的累计误差，
// 因此同一个 Source 总能重建出相同的 Mask。
package item

import (
	"image"

	"itemcloud/geom"
	"itemcloud/occupancy"
)

// Kind 是物品的种类
type Kind string

const (
	KindRect  Kind = "rect"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Item 是布局引擎需要的物品能力集合。实现是不可变的，Resize/Rotate 返回新物品。
type Item interface {
	// Size 返回当前外接框尺寸（旋转后），与 Mask 尺寸一致
	Size() geom.Size
	// Mask 返回当前外接框内的实心像素
	Mask() *occupancy.Mask
	// Image 返回用于合成的渲染结果
	Image() *image.NRGBA
	// Resize 缩放到指定尺寸
	Resize(size geom.Size) Item
	// Rotate 在当前旋转的基础上再顺时针旋转 degrees 度
	Rotate(degrees int) Item
	// Describe 返回可以重建该物品的描述
	Describe() Source
}

// Transform 记录从原始内容得到当前物品的变换：
// 先缩放到 Size，再顺时针旋转 Rotation 度，最后（如果有）把旋转结果拉伸到 Fit。
type Transform struct {
	Size     geom.Size  `json:"size"`
	Rotation int        `json:"rotation"`
	Fit      *geom.Size `json:"fit,omitempty"`
}

// Source 描述物品的原始内容和变换
type Source struct {
	Kind      Kind      `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Text      string    `json:"text,omitempty"`
	Transform Transform `json:"transform"`
}

// resized 未旋转时直接改变 Size；已旋转时保留旋转，把结果拉伸到 size
func (t Transform) resized(size geom.Size) Transform {
	if t.Rotation == 0 {
		return Transform{Size: size}
	}
	return Transform{Size: t.Size, Rotation: t.Rotation, Fit: &size}
}

// rotated 累加旋转角度，丢弃之前的拉伸
func (t Transform) rotated(degrees int) Transform {
	return Transform{Size: t.Size, Rotation: normalizeDegrees(t.Rotation + degrees)}
}

func normalizeDegrees(d int) int {
	return ((d % 360) + 360) % 360
}

// Weighted 是带名称和权重的物品
type Weighted struct {
	Name   string
	Weight float64
	Item   Item
}
