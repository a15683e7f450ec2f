package geom

// PixelCoord 是图像空间坐标：X 向右，Y 向下
type PixelCoord struct {
	X int
	Y int
}

// GridCoord 是占用网格的行列坐标：Row 对应 y，Col 对应 x
type GridCoord struct {
	Row int
	Col int
}

// Grid 将像素坐标转换为网格坐标
func (p PixelCoord) Grid() GridCoord {
	return GridCoord{Row: p.Y, Col: p.X}
}

// Pixel 将网格坐标转换为像素坐标
func (g GridCoord) Pixel() PixelCoord {
	return PixelCoord{X: g.Col, Y: g.Row}
}
