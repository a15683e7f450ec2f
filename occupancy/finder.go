package occupancy

import (
	"context"

	"itemcloud/geom"
)

// Finder 枚举 mask 可以无碰撞放入网格的所有左上角位置
type Finder struct {
	// Threads 是并行扫描的 worker 数量，<= 1 表示顺序扫描
	Threads int
}

// NewFinder 创建使用 threads 个 worker 的 Finder
func NewFinder(threads int) *Finder {
	return &Finder{Threads: threads}
}

// FindOpenings 返回 mask 可以放入的全部矩形，按行优先扫描顺序排列。
// 行区间并行扫描，网格在扫描期间只读；结果按区间顺序拼接，与线程数无关。
// 没有开口时返回空切片，这不是错误。
func (f *Finder) FindOpenings(ctx context.Context, m *Map, mask *Mask) ([]geom.Box, error) {
	size := mask.Size()
	if size.IsEmpty() || !size.Fits(m.Size()) {
		return nil, nil
	}
	offsets := mask.offsets(m.width)
	lastRow := m.height - size.Height
	lastCol := m.width - size.Width

	spans := Spans(0, lastRow+1, f.Threads)
	results := make([][]geom.Box, len(spans))
	err := Parallel(ctx, spans, f.Threads, func(i int, s Span) error {
		var found []geom.Box
		for y := s.From; y < s.To; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := 0; x <= lastCol; x++ {
				if m.fits(y*m.width+x, offsets) {
					found = append(found, geom.BoxAt(x, y, size))
				}
			}
		}
		results[i] = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	openings := make([]geom.Box, 0, total)
	for _, r := range results {
		openings = append(openings, r...)
	}
	return openings, nil
}

// fits 检查以 base 为左上角时所有实心偏移是否空闲，遇到第一个碰撞立即返回
func (m *Map) fits(base int, offsets []int) bool {
	for _, off := range offsets {
		if m.cells[base+off] != Free {
			return false
		}
	}
	return true
}
