// Package reserve 管理画布上的预留：为物品查找未被占用的开口（收缩、搜索、旋转），
// 把选中的开口写入预留网格，以及把已有预留向四周扩展到空白区域。
package reserve

import (
	"cmp"
	"context"
	"slices"

	"github.com/charmbracelet/log"

	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/item"
	"itemcloud/occupancy"
	"itemcloud/search"
)

// Reservation 是一个物品在画布上的已提交占用。
// Box 包含 margin；物品绘制在 Box.RemoveMargin(margin) 中。
type Reservation struct {
	Name string
	No   uint32
	Box  geom.Box
	Item item.Item
}

// Rotation 返回物品的顺时针旋转角度
func (r *Reservation) Rotation() int {
	return r.Item.Describe().Transform.Rotation
}

// PlacementBox 返回去掉 margin 后物品实际所在的矩形
func (r *Reservation) PlacementBox(margin int) geom.Box {
	return r.Box.RemoveMargin(margin)
}

// MarginedMask 返回写入网格的 Mask：四周加 margin，并把实心像素膨胀 margin，
// 保证两个物品的实心像素之间至少留出 margin 的空白
func MarginedMask(it item.Item, margin int) *occupancy.Mask {
	return it.Mask().AddMargin(margin).Dilate(margin)
}

// Reservations 拥有预留网格和按提交顺序排列的预留列表。
// 网格只在单个 goroutine 中写入；开口查找期间可被多个 worker 并发读取。
type Reservations struct {
	logger *log.Logger
	grid   *occupancy.Map
	finder *occupancy.Finder
	list   []*Reservation
}

// New 创建尺寸为 size 的空白预留网格
func New(size geom.Size, threads int, logger *log.Logger) *Reservations {
	return FromMap(occupancy.NewMap(size), threads, logger)
}

// FromMap 在已有网格上创建预留管理器，用于遮罩画布或重新布局
func FromMap(grid *occupancy.Map, threads int, logger *log.Logger) *Reservations {
	if logger == nil {
		logger = log.Default()
	}
	return &Reservations{
		logger: logger,
		grid:   grid,
		finder: occupancy.NewFinder(threads),
	}
}

// Map 返回预留网格
func (rs *Reservations) Map() *occupancy.Map {
	return rs.grid
}

// Area 返回可预留的区域
func (rs *Reservations) Area() geom.Box {
	return rs.grid.Bounds()
}

// List 按序号返回所有预留
func (rs *Reservations) List() []*Reservation {
	return slices.Clone(rs.list)
}

// Len 返回预留数量
func (rs *Reservations) Len() int {
	return len(rs.list)
}

// NextNo 返回下一个预留的序号，从1开始
func (rs *Reservations) NextNo() uint32 {
	return uint32(len(rs.list) + 1)
}

// Get 按序号查找预留
func (rs *Reservations) Get(no uint32) (*Reservation, bool) {
	for _, r := range rs.list {
		if r.No == no {
			return r, true
		}
	}
	return nil, false
}

// FindOpenings 返回 mask 在当前网格上的所有开口
func (rs *Reservations) FindOpenings(ctx context.Context, mask *occupancy.Mask) ([]geom.Box, error) {
	return rs.finder.FindOpenings(ctx, rs.grid, mask)
}

// ReserveOpening 把物品写入 box 并追加预留。
// box 不在网格内或与已有预留冲突时记录错误并返回 false，网格不会被修改。
func (rs *Reservations) ReserveOpening(name string, no uint32, box geom.Box, it item.Item, margin int) bool {
	if !rs.grid.Bounds().Contains(box) {
		rs.logger.Error("reservation outside map", "name", name, "no", no, "box", box, "map", rs.grid.Bounds())
		return false
	}
	if no == occupancy.Free || no == occupancy.Blocked {
		rs.logger.Error("invalid reservation number", "name", name, "no", no)
		return false
	}
	mask := MarginedMask(it, margin)
	if !rs.grid.CanFit(mask, box, occupancy.Free) {
		rs.logger.Error("reservation collides", "name", name, "no", no, "box", box)
		return false
	}
	if err := rs.grid.Write(mask, box, no); err != nil {
		rs.logger.Error("failed to write reservation", "name", name, "no", no, "err", err)
		return false
	}
	rs.list = append(rs.list, &Reservation{Name: name, No: no, Box: box, Item: it})
	rs.logger.Debug("reserved", "name", name, "no", no, "box", box)
	return true
}

// Adopt 登记一个已经写在网格里的预留，用于从保存的布局恢复。
// 序号必须有效且未被使用，Box 必须在网格内。
func (rs *Reservations) Adopt(r *Reservation) error {
	if r.No == occupancy.Free || r.No == occupancy.Blocked {
		return errors.New(errors.ErrCodeInvalidLayout, "reservation %s has invalid number %d", r.Name, r.No)
	}
	if _, ok := rs.Get(r.No); ok {
		return errors.New(errors.ErrCodeInvalidLayout, "duplicate reservation number %d (%s)", r.No, r.Name)
	}
	if !rs.grid.Bounds().Contains(r.Box) {
		return errors.New(errors.ErrCodeInvalidLayout, "reservation %d (%s) box %s outside map %s", r.No, r.Name, r.Box, rs.grid.Bounds())
	}
	rs.list = append(rs.list, r)
	return nil
}

// Replace 用扩展后的预留替换同序号的预留：先清除旧像素，再写入新的 Mask。
// 写入失败时恢复旧预留并返回 false。
func (rs *Reservations) Replace(updated *Reservation, margin int) bool {
	idx := slices.IndexFunc(rs.list, func(r *Reservation) bool { return r.No == updated.No })
	if idx < 0 {
		rs.logger.Error("unknown reservation", "name", updated.Name, "no", updated.No)
		return false
	}
	old := rs.list[idx]
	mask := MarginedMask(updated.Item, margin)
	if !rs.grid.CanFit(mask, updated.Box, updated.No) {
		rs.logger.Error("maximized reservation collides", "name", updated.Name, "no", updated.No, "box", updated.Box)
		return false
	}
	rs.grid.Clear(old.No, old.Box)
	if err := rs.grid.Write(mask, updated.Box, updated.No); err != nil {
		rs.logger.Error("failed to write maximized reservation", "name", updated.Name, "err", err)
		if restore := rs.grid.Write(MarginedMask(old.Item, margin), old.Box, old.No); restore != nil {
			rs.logger.Error("failed to restore reservation", "name", old.Name, "err", restore)
		}
		return false
	}
	rs.list[idx] = updated
	return true
}

// RebuildMap 按序号顺序把预留重新写入 blank 的副本。
// 预留网格与重建结果必须逐像素一致。
func RebuildMap(blank *occupancy.Map, reservations []*Reservation, margin int) (*occupancy.Map, error) {
	grid := blank.Clone()
	ordered := slices.Clone(reservations)
	slices.SortStableFunc(ordered, func(a, b *Reservation) int {
		return cmp.Compare(a.No, b.No)
	})
	for _, r := range ordered {
		if err := grid.Write(MarginedMask(r.Item, margin), r.Box, r.No); err != nil {
			return nil, errors.Wrap(errors.ErrCodeReconstructionMismatch, err, "rebuild reservation %d (%s)", r.No, r.Name)
		}
	}
	return grid, nil
}

// NewSearchState 创建以整个网格为区域的搜索状态
func (rs *Reservations) NewSearchState(pattern search.Pattern, seed uint64) *search.State {
	return search.NewState(pattern, rs.Area(), seed)
}
