package occupancy

import (
	"encoding/csv"
	"io"
	"strconv"

	"itemcloud/errors"
	"itemcloud/geom"
)

// WriteCSV 以行优先的整数矩阵写出网格，每行一条记录
func (m *Map) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	record := make([]string, m.width)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			label := m.At(geom.PixelCoord{X: x, Y: y}.Grid())
			record[x] = strconv.FormatUint(uint64(label), 10)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV 读取 WriteCSV 写出的网格，所有行必须等长
func ReadCSV(r io.Reader) (*Map, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	var (
		width int
		rows  [][]uint32
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "read reservation map row %d", len(rows)+1)
		}
		if len(rows) == 0 {
			width = len(record)
		}
		row := make([]uint32, len(record))
		for x, field := range record {
			v, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "reservation map cell (%d, %d)", x, len(rows))
			}
			row[x] = uint32(v)
		}
		rows = append(rows, row)
	}
	m := NewMap(geom.NewSize(width, len(rows)))
	for r, row := range rows {
		for c, label := range row {
			m.Set(geom.GridCoord{Row: r, Col: c}, label)
		}
	}
	return m, nil
}
