// Package layout 保存和恢复一次生成的结果：画布记录（含预留网格）、运行参数，
// 以及每个物品的放置矩形、旋转、预留矩形、序号和可以重建物品的描述。
//
// 布局写成两个文件：<name>.layout.json 和 <name>.reservation_map.csv，
// 后者是按行优先的整数矩阵。
package layout

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"itemcloud/config"
	"itemcloud/errors"
	"itemcloud/geom"
	"itemcloud/item"
	"itemcloud/occupancy"
	"itemcloud/reserve"
)

// Version 是布局文件格式的版本
const Version = "1.0"

const (
	layoutSuffix = ".layout.json"
	mapSuffix    = ".reservation_map.csv"
)

// Rect 是布局文件中的矩形，左上角加宽高
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// RectOf 把 Box 转换成 Rect
func RectOf(b geom.Box) Rect {
	return Rect{X: b.Left, Y: b.Upper, W: b.Width(), H: b.Height()}
}

// Box 把 Rect 转换成 Box
func (r Rect) Box() geom.Box {
	return geom.NewBox(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Meta 记录格式版本和生成时间
type Meta struct {
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Canvas 是画布记录，Grid 单独保存为 CSV
type Canvas struct {
	Name           string         `json:"name"`
	Size           geom.Size      `json:"size"`
	Mode           string         `json:"mode"`
	Background     string         `json:"background"`
	ReservationMap string         `json:"reservationMap"`
	Grid           *occupancy.Map `json:"-"`
}

// Placement 是一个已放置物品的记录
type Placement struct {
	Name           string      `json:"name"`
	Weight         float64     `json:"weight"`
	No             uint32      `json:"no"`
	PlacementBox   Rect        `json:"placementBox"`
	Rotation       int         `json:"rotation"`
	ReservationBox Rect        `json:"reservationBox"`
	Samples        int         `json:"samples"`
	Latency        string      `json:"latency"`
	Item           item.Source `json:"item"`
}

// NewPlacement 根据预留生成放置记录
func NewPlacement(r *reserve.Reservation, weight float64, margin, samples int, latency time.Duration) Placement {
	return Placement{
		Name:           r.Name,
		Weight:         weight,
		No:             r.No,
		PlacementBox:   RectOf(r.PlacementBox(margin)),
		Rotation:       r.Rotation(),
		ReservationBox: RectOf(r.Box),
		Samples:        samples,
		Latency:        latency.String(),
		Item:           r.Item.Describe(),
	}
}

// Layout 是一次生成的完整结果
type Layout struct {
	Meta     Meta          `json:"meta"`
	Name     string        `json:"name"`
	Canvas   Canvas        `json:"canvas"`
	Settings config.Config `json:"settings"`
	Items    []Placement   `json:"items"`
	Latency  string        `json:"latency"`
}

// New 创建以 grid 为预留网格的空布局
func New(name string, settings config.Config, grid *occupancy.Map) *Layout {
	return &Layout{
		Meta: Meta{Version: Version, Timestamp: time.Now().Format(time.RFC3339)},
		Name: name,
		Canvas: Canvas{
			Name:           name,
			Size:           grid.Size(),
			Mode:           settings.Mode,
			Background:     settings.Background,
			ReservationMap: name + mapSuffix,
			Grid:           grid,
		},
		Settings: settings,
	}
}

// Margin 返回生成时使用的 margin
func (l *Layout) Margin() int {
	return l.Settings.Margin
}

// Path 返回布局 JSON 在 dir 中的路径
func (l *Layout) Path(dir string) string {
	return filepath.Join(dir, l.Name+layoutSuffix)
}

// Save 把布局 JSON 和预留网格 CSV 写入 dir，返回 JSON 文件路径
func (l *Layout) Save(dir string) (string, error) {
	if l.Canvas.Grid == nil {
		return "", errors.New(errors.ErrCodeInvalidLayout, "layout %s has no reservation map", l.Name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create output directory %s", dir)
	}
	l.Canvas.ReservationMap = l.Name + mapSuffix

	mapFile, err := os.Create(filepath.Join(dir, l.Canvas.ReservationMap))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create reservation map")
	}
	if err := l.Canvas.Grid.WriteCSV(mapFile); err != nil {
		mapFile.Close()
		return "", errors.Wrap(errors.ErrCodeInternal, err, "write reservation map")
	}
	if err := mapFile.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "write reservation map")
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode layout")
	}
	path := l.Path(dir)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "write layout")
	}
	return path, nil
}

// Load 读取 Save 写出的布局，预留网格从同目录的 CSV 读取
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "layout %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "read layout %s", path)
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "decode layout %s", path)
	}
	if l.Canvas.ReservationMap == "" {
		return nil, errors.New(errors.ErrCodeInvalidLayout, "layout %s has no reservation map", path)
	}
	mapPath := l.Canvas.ReservationMap
	if !filepath.IsAbs(mapPath) {
		mapPath = filepath.Join(filepath.Dir(path), mapPath)
	}
	f, err := os.Open(mapPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "open reservation map")
	}
	defer f.Close()
	grid, err := occupancy.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	if !grid.Size().Eq(l.Canvas.Size) {
		return nil, errors.New(errors.ErrCodeInvalidLayout,
			"reservation map is %s, canvas is %s", grid.Size(), l.Canvas.Size)
	}
	l.Canvas.Grid = grid
	return &l, nil
}

// Reservations 从物品描述重建物品，恢复出以保存的网格为基础的预留管理器。
// 重建的物品尺寸必须与放置矩形一致。
func (l *Layout) Reservations(opts item.RenderOptions, logger *log.Logger) (*reserve.Reservations, error) {
	if l.Canvas.Grid == nil {
		return nil, errors.New(errors.ErrCodeInvalidLayout, "layout %s has no reservation map", l.Name)
	}
	rs := reserve.FromMap(l.Canvas.Grid.Clone(), l.Settings.Threads, logger)
	for _, p := range l.Items {
		it, err := item.FromSource(p.Item, opts)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "rebuild item %s", p.Name)
		}
		if !it.Size().Eq(p.PlacementBox.Box().Size()) {
			return nil, errors.New(errors.ErrCodeInvalidLayout,
				"item %s rebuilt as %s, placement box is %s", p.Name, it.Size(), p.PlacementBox.Box().Size())
		}
		r := &reserve.Reservation{Name: p.Name, No: p.No, Box: p.ReservationBox.Box(), Item: it}
		if err := rs.Adopt(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// Verify 按序号把所有预留重新写入空白网格，结果必须与保存的网格逐像素一致
func (l *Layout) Verify(opts item.RenderOptions) error {
	rs, err := l.Reservations(opts, log.New(io.Discard))
	if err != nil {
		return err
	}
	rebuilt, err := reserve.RebuildMap(l.Canvas.Grid.Blank(), rs.List(), l.Margin())
	if err != nil {
		return err
	}
	if !rebuilt.Equal(l.Canvas.Grid) {
		return errors.New(errors.ErrCodeReconstructionMismatch,
			"reservation map of %s differs from its reservations in %d cells", l.Name, rebuilt.Diff(l.Canvas.Grid))
	}
	return nil
}
