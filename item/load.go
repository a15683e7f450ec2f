package item

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"

	"itemcloud/errors"
)

// imageExtensions 是目录输入时识别的图片扩展名
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// LoadCSV 读取 name,weight,value 形式的物品列表。
// value 是存在的图片路径时创建图片物品（相对路径以 CSV 所在目录为基准），否则作为文本渲染。
// 第一行如果是表头（weight 列无法解析为数字）会被跳过。
func LoadCSV(path string, opts RenderOptions) ([]Weighted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, filepath.Dir(path), opts)
}

// ReadCSV 从 r 读取物品列表，baseDir 用于解析相对的图片路径
func ReadCSV(r io.Reader, baseDir string, opts RenderOptions) ([]Weighted, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	var items []Weighted
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read items line %d", line)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d: weight", line)
		}
		if weight < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "line %d: negative weight %g", line, weight)
		}
		it, err := newItem(strings.TrimSpace(record[2]), baseDir, opts)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", line)
		}
		items = append(items, Weighted{Name: strings.TrimSpace(record[0]), Weight: weight, Item: it})
	}
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeNoItems, "no items in csv")
	}
	return items, nil
}

func newItem(value, baseDir string, opts RenderOptions) (Item, error) {
	path := value
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, value)
	}
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(path))] {
		return LoadImage(path, opts)
	}
	return NewText(value, opts)
}

// LoadDir 读取目录下的所有图片，按文件名自然顺序排列，权重都为1
func LoadDir(dir string, opts RenderOptions) ([]Weighted, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read dir %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeNoItems, "no images in %s", dir)
	}
	sort.Sort(natural.StringSlice(names))

	items := make([]Weighted, 0, len(names))
	for _, name := range names {
		img, err := LoadImage(filepath.Join(dir, name), opts)
		if err != nil {
			return nil, err
		}
		items = append(items, Weighted{
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			Weight: 1,
			Item:   img,
		})
	}
	return items, nil
}

// FromSource 按描述重建物品：重新加载原始内容后依次应用缩放、旋转和拉伸
func FromSource(src Source, opts RenderOptions) (Item, error) {
	var (
		base *Raster
		err  error
	)
	switch src.Kind {
	case KindRect:
		return newRect(src.Transform, opts), nil
	case KindImage:
		base, err = LoadImage(src.Path, opts)
	case KindText:
		base, err = NewText(src.Text, opts)
	default:
		return nil, errors.New(errors.ErrCodeInvalidLayout, "unknown item kind %q", src.Kind)
	}
	if err != nil {
		return nil, err
	}
	rebuilt := base.src
	rebuilt.Transform = src.Transform
	return newRaster(rebuilt, base.base, opts), nil
}
