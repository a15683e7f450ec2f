package item

import (
	"cmp"
	"math"
	"slices"

	"itemcloud/errors"
	"itemcloud/geom"
)

// SortByWeight 按权重降序稳定排序，权重相同的物品保持输入顺序
func SortByWeight(items []Weighted) []Weighted {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Weighted) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	return sorted
}

// TotalWeight 返回权重之和
func TotalWeight(items []Weighted) float64 {
	total := 0.0
	for _, it := range items {
		total += it.Weight
	}
	return total
}

// marginOverhead 是尺寸为 size 的物品四周 margin 圈占用的面积
func marginOverhead(size geom.Size, margin int) int {
	if margin <= 0 {
		return 0
	}
	return (size.Width+2*margin)*(size.Height+2*margin) - size.Area()
}

// scaleToArea 保持宽高比把 size 缩放到面积约为 area，每边至少为1
func scaleToArea(size geom.Size, area float64) geom.Size {
	if size.IsEmpty() || area <= 0 {
		return geom.NewSize(1, 1)
	}
	ratio := math.Sqrt(area / float64(size.Area()))
	scaled := size.Scale(ratio)
	return geom.NewSize(max(1, scaled.Width), max(1, scaled.Height))
}

// ResizeToProportionallyFit 按权重把所有物品的面积分配到画布上：
//
//	target_i = weight_i / total_weight * (canvas_area - margin_overhead)
//	size_i   = size_i * sqrt(target_i / area_i)
//
// margin_overhead 是每个物品在第一次按权重分配后的尺寸下 margin 圈的面积之和。
// 权重为 0 的物品原样返回，由调用方丢弃。
func ResizeToProportionallyFit(items []Weighted, canvas geom.Size, margin int) ([]Weighted, error) {
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeNoItems, "need at least 1 item to fit, got 0")
	}
	total := TotalWeight(items)
	if total <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "total weight must be positive, got %g", total)
	}
	canvasArea := float64(canvas.Area())

	overhead := 0
	for _, it := range items {
		if it.Weight <= 0 {
			continue
		}
		first := scaleToArea(it.Item.Size(), it.Weight/total*canvasArea)
		overhead += marginOverhead(first, margin)
	}
	available := canvasArea - float64(overhead)
	if available <= 0 {
		return nil, errors.New(errors.ErrCodeCanvasTooSmall,
			"margin overhead %d exceeds canvas area %d", overhead, canvas.Area())
	}

	fitted := make([]Weighted, len(items))
	for i, it := range items {
		fitted[i] = it
		if it.Weight <= 0 {
			continue
		}
		size := scaleToArea(it.Item.Size(), it.Weight/total*available)
		if !size.Eq(it.Item.Size()) {
			fitted[i].Item = it.Item.Resize(size)
		}
	}
	return fitted, nil
}
