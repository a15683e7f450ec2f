package reserve

import (
	"itemcloud/geom"
)

// MaximizeReservation 把预留向四个方向逐像素扩展，返回扩展后的预留，网格不变。
//
// 每一轮按 Up、Right、Down、Left 的固定顺序各尝试扩展1像素：扩展后的矩形超出网格，
// 或缩放后的物品与其他预留冲突时，该方向在本次调用中不再尝试。
// 一整轮都没有扩展时结束。结果总是包含原矩形。
func (rs *Reservations) MaximizeReservation(r *Reservation, margin int) *Reservation {
	bounds := rs.grid.Bounds()
	box := r.Box
	it := r.Item
	dead := make(map[geom.Direction]bool, len(geom.Directions))

	for {
		expansions := 0
		for _, d := range geom.Directions {
			if dead[d] {
				continue
			}
			candidate := box.Expand(1, d)
			if !bounds.Contains(candidate) {
				dead[d] = true
				continue
			}
			resized := r.Item.Resize(candidate.RemoveMargin(margin).Size())
			mask := MarginedMask(resized, margin)
			if !rs.grid.CanFit(mask, candidate, r.No) {
				dead[d] = true
				continue
			}
			box, it = candidate, resized
			expansions++
		}
		if expansions == 0 {
			break
		}
	}

	if box == r.Box {
		return r
	}
	rs.logger.Debug("maximized", "name", r.Name, "from", r.Box, "to", box)
	return &Reservation{Name: r.Name, No: r.No, Box: box, Item: it}
}
