package occupancy

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Span 是半开区间 [From, To)
type Span struct {
	From int
	To   int
}

// Spans 把 [start, end) 切分成连续区间。workers <= 1 时只有一个区间；
// 否则每个 worker 分到若干较小的区间，行耗时不均时负载更平衡。
func Spans(start, end, workers int) []Span {
	n := end - start
	if n <= 0 {
		return nil
	}
	if workers <= 1 {
		return []Span{{From: start, To: end}}
	}
	chunks := min(n, workers*4)
	size := (n + chunks - 1) / chunks
	spans := make([]Span, 0, chunks)
	for from := start; from < end; from += size {
		spans = append(spans, Span{From: from, To: min(from+size, end)})
	}
	return spans
}

// Parallel 最多使用 workers 个 goroutine 对每个区间执行 fn，i 是区间下标。
// 任一 fn 返回错误或 ctx 被取消时，尚未开始的区间不再执行。
func Parallel(ctx context.Context, spans []Span, workers int, fn func(i int, s Span) error) error {
	if workers <= 1 || len(spans) <= 1 {
		// 任务数量不足，直接顺序执行
		for i, s := range spans {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i, s); err != nil {
				return err
			}
		}
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range spans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i, s)
		})
	}
	return g.Wait()
}
