package reserve

import (
	"context"

	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/item"
	"itemcloud/search"
)

// SampleOptions 控制收缩、搜索、旋转循环
type SampleOptions struct {
	// MinSize 是物品可以收缩到的最小尺寸，任一边小于它时停止
	MinSize geom.Size
	// Margin 是物品四周预留的空白像素
	Margin int
	// ResizeType 是收缩策略
	ResizeType geom.ResizeType
	// StepSize 是每次收缩的像素数，必须大于0
	StepSize int
	// RotationIncrement 是每次旋转的角度，0 表示不旋转
	RotationIncrement int
	// MaxSamples 限制开口查找的次数，0 表示不限制
	MaxSamples int
}

// Validate 检查参数能保证采样在有限步内结束
func (o SampleOptions) Validate() error {
	if o.StepSize <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "step size must be positive, got %d", o.StepSize)
	}
	if o.RotationIncrement < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "rotation increment must not be negative, got %d", o.RotationIncrement)
	}
	if o.MinSize.IsEmpty() {
		return errors.New(errors.ErrCodeInvalidConfig, "min item size must be positive, got %s", o.MinSize)
	}
	if o.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "margin must not be negative, got %d", o.Margin)
	}
	if o.MaxSamples < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max samples must not be negative, got %d", o.MaxSamples)
	}
	return nil
}

// SampledOpening 是一次采样的结果
type SampledOpening struct {
	Found bool
	// Samples 是调用开口查找的次数
	Samples int
	// Size 是最后一次尝试时物品旋转前的尺寸
	Size geom.Size
	// Item 是找到开口时的物品（已缩放和旋转）
	Item item.Item
	// OpeningBox 包含 margin
	OpeningBox geom.Box
	// ActualBox 是 OpeningBox 去掉 margin 后物品所在的位置
	ActualBox geom.Box
	// Rotation 是顺时针旋转的角度
	Rotation int
}

// SampleOpening 为物品查找未被占用的开口。
//
// 在当前尺寸下先不旋转查找；找不到时按 RotationIncrement 顺时针旋转后重试，
// 直到累计旋转达到 360 度；仍找不到则把未旋转的物品按 StepSize 收缩后从头开始。
// 收缩后任一边小于 MinSize，或收缩不再改变尺寸时，返回未找到。
// 选中的开口不会被写入网格，由调用方决定是否 ReserveOpening。
func (rs *Reservations) SampleOpening(ctx context.Context, it item.Item, opts SampleOptions, state *search.State) (SampledOpening, error) {
	if err := opts.Validate(); err != nil {
		return SampledOpening{}, err
	}
	size := it.Size()
	result := SampledOpening{Size: size}
	if size.IsLessThan(opts.MinSize) {
		rs.logger.Debug("item below min size", "size", size, "min", opts.MinSize)
		return result, nil
	}

	sized := it
	for {
		rotation := 0
		candidate := sized
		for {
			result.Samples++
			openings, err := rs.FindOpenings(ctx, MarginedMask(candidate, opts.Margin))
			if err != nil {
				return result, err
			}
			if box, ok := state.Search(openings); ok {
				result.Found = true
				result.Item = candidate
				result.OpeningBox = box
				result.ActualBox = box.RemoveMargin(opts.Margin)
				result.Rotation = rotation
				rs.logger.Debug("found opening", "samples", result.Samples, "size", size, "rotation", rotation, "box", box)
				return result, nil
			}
			if opts.MaxSamples > 0 && result.Samples >= opts.MaxSamples {
				rs.logger.Debug("sample limit reached", "samples", result.Samples)
				return result, nil
			}
			if opts.RotationIncrement == 0 || rotation+opts.RotationIncrement >= 360 {
				break
			}
			rotation += opts.RotationIncrement
			candidate = sized.Rotate(rotation)
		}

		next := size.Adjust(-opts.StepSize, opts.ResizeType)
		if next.Eq(size) || next.IsLessThan(opts.MinSize) {
			result.Size = next
			rs.logger.Debug("item resized too small", "samples", result.Samples, "size", next)
			return result, nil
		}
		size = next
		result.Size = size
		sized = it.Resize(size)
	}
}
