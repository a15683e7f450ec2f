// Package search 在开口查找返回的候选矩形中按搜索模式挑选一个，
// 并在每次成功放置后推进模式的原点，使下一个物品靠近刚放置的物品。
package search

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"itemcloud/geom"
)

// Pattern 是候选开口的挑选策略
type Pattern int

const (
	// None 取扫描顺序中的第一个，偏向左上角
	None Pattern = iota
	// Random 使用带种子的随机数均匀挑选
	Random
	// Linear 沿水平扫描线移动的原点，取最近的候选
	Linear
	// Ray 从画布中心发出、每次放置后旋转 45 度的射线，取离射线最近的候选
	Ray
	// Spiral 从画布中心向外的阿基米德螺线，取离当前螺线点最近的候选
	Spiral
)

// Patterns 列出所有可解析的模式名称
var Patterns = []string{"NONE", "RANDOM", "LINEAR", "RAY", "SPIRAL"}

// String 返回模式名称
func (p Pattern) String() string {
	if p >= None && int(p) < len(Patterns) {
		return Patterns[p]
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// Parse 按名称（不区分大小写）解析模式
func Parse(s string) (Pattern, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, p := range Patterns {
		if p == name {
			return Pattern(i), nil
		}
	}
	return None, fmt.Errorf("%s unsupported. Must be one of [%s]", s, strings.Join(Patterns, "|"))
}

const (
	rayIncrement    = math.Pi / 4
	spiralIncrement = math.Pi / 8
)

// State 保存搜索模式的区域、原点和循环计数。
// 只在成功放置后通过 Next 推进，采样过程中不变。
type State struct {
	Pattern Pattern
	Area    geom.Box
	Origin  geom.PixelCoord
	Loop    int

	rng *rand.Rand
}

// NewState 以区域左上角为原点创建搜索状态，seed 决定 Random 模式的序列
func NewState(pattern Pattern, area geom.Box, seed uint64) *State {
	return &State{
		Pattern: pattern,
		Area:    area,
		Origin:  area.TopLeft(),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Search 从 openings 中挑选一个。openings 为空时返回 false。
// 距离相同的候选按扫描顺序取第一个。
func (s *State) Search(openings []geom.Box) (geom.Box, bool) {
	if len(openings) == 0 {
		return geom.Box{}, false
	}
	switch s.Pattern {
	case Random:
		return openings[s.rng.IntN(len(openings))], true
	case Linear:
		ox, oy := float64(s.Origin.X), float64(s.Origin.Y)
		return nearest(openings, func(b geom.Box) float64 {
			dx, dy := float64(b.Left)-ox, float64(b.Upper)-oy
			return dx*dx + dy*dy
		}), true
	case Ray:
		cx, cy := s.Area.Center()
		angle := float64(s.Loop) * rayIncrement
		dirX, dirY := math.Cos(angle), math.Sin(angle)
		return nearest(openings, func(b geom.Box) float64 {
			x, y := b.Center()
			vx, vy := x-cx, y-cy
			along := vx*dirX + vy*dirY
			if along < 0 {
				// 射线反方向的候选按到中心的距离再加上一段惩罚
				return math.Hypot(vx, vy) + s.diagonal()
			}
			return math.Abs(vx*dirY - vy*dirX)
		}), true
	case Spiral:
		px, py := s.spiralPoint(s.Loop)
		return nearest(openings, func(b geom.Box) float64 {
			x, y := b.Center()
			dx, dy := x-px, y-py
			return dx*dx + dy*dy
		}), true
	}
	return openings[0], true
}

// Next 在 chosen 被预留之后推进原点和循环计数
func (s *State) Next(chosen geom.Box) {
	switch s.Pattern {
	case Linear:
		s.Origin = geom.PixelCoord{X: chosen.Right, Y: chosen.Upper}
		if s.Origin.X >= s.Area.Right {
			s.Origin = geom.PixelCoord{X: s.Area.Left, Y: chosen.Lower}
			s.Loop++
		}
		if s.Origin.Y >= s.Area.Lower {
			s.Origin = s.Area.TopLeft()
			s.Loop++
		}
	case Ray:
		s.Loop = (s.Loop + 1) % 8
	case Spiral:
		s.Loop++
		x, y := s.spiralPoint(s.Loop)
		if x < float64(s.Area.Left) || x >= float64(s.Area.Right) ||
			y < float64(s.Area.Upper) || y >= float64(s.Area.Lower) {
			s.Loop = 0
			x, y = s.spiralPoint(0)
		}
		s.Origin = geom.PixelCoord{X: int(math.Round(x)), Y: int(math.Round(y))}
	default:
		s.Loop++
	}
}

// spiralPoint 返回第 loop 步的螺线点，每圈半径增加区域短边的十分之一
func (s *State) spiralPoint(loop int) (float64, float64) {
	cx, cy := s.Area.Center()
	spacing := math.Max(1, float64(s.Area.Size().MinSide())/10)
	theta := float64(loop) * spiralIncrement
	r := spacing * theta / (2 * math.Pi)
	return cx + r*math.Cos(theta), cy + r*math.Sin(theta)
}

func (s *State) diagonal() float64 {
	return math.Hypot(float64(s.Area.Width()), float64(s.Area.Height()))
}

func nearest(openings []geom.Box, score func(geom.Box) float64) geom.Box {
	best := openings[0]
	bestScore := score(best)
	for _, b := range openings[1:] {
		if v := score(b); v < bestScore {
			best, bestScore = b, v
		}
	}
	return best
}
