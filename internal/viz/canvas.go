package viz

import "strings"

// braille dot layout per character cell, 2 columns x 4 rows, offset 0x2800
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a Braille-cell drawing surface with a world-coordinate window.
// Each character cell carries 2x4 dots, so a WxH canvas resolves 2W x 4H
// points.
type Canvas struct {
	Width, Height int
	Grid          [][]rune

	xMin, xMax float64
	yMin, yMax float64
}

// NewCanvas creates an empty canvas mapping the world window [xMin,xMax] x
// [yMin,yMax] onto its dot grid. Degenerate windows are widened so points
// still land on the canvas.
func NewCanvas(w, h int, xMin, xMax, yMin, yMax float64) *Canvas {
	if xMax <= xMin {
		xMin, xMax = xMin-0.5, xMin+0.5
	}
	if yMax <= yMin {
		yMin, yMax = yMin-0.5, yMin+0.5
	}
	c := &Canvas{Width: w, Height: h, xMin: xMin, xMax: xMax, yMin: yMin, yMax: yMax}
	c.Grid = make([][]rune, h)
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
	return c
}

// Plot marks the world point (x, y); points outside the window are dropped.
func (c *Canvas) Plot(x, y float64) {
	px, py, ok := c.toDot(x, y)
	if ok {
		c.set(px, py)
	}
}

// Line draws a world-coordinate segment with Bresenham stepping over the dot
// grid.
func (c *Canvas) Line(x0, y0, x1, y1 float64) {
	p0x, p0y, ok0 := c.toDot(x0, y0)
	p1x, p1y, ok1 := c.toDot(x1, y1)
	if !ok0 || !ok1 {
		return
	}

	dx, dy := absInt(p1x-p0x), absInt(p1y-p0y)
	sx, sy := -1, -1
	if p0x < p1x {
		sx = 1
	}
	if p0y < p1y {
		sy = 1
	}
	err := dx - dy
	for {
		c.set(p0x, p0y)
		if p0x == p1x && p0y == p1y {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			p0x += sx
		}
		if e2 < dx {
			err += dx
			p0y += sy
		}
	}
}

// toDot maps world coordinates to dot coordinates, y growing upward.
func (c *Canvas) toDot(x, y float64) (int, int, bool) {
	w, h := c.Width*2, c.Height*4
	px := int((x - c.xMin) / (c.xMax - c.xMin) * float64(w-1))
	py := h - 1 - int((y-c.yMin)/(c.yMax-c.yMin)*float64(h-1))
	if px < 0 || py < 0 || px >= w || py >= h {
		return 0, 0, false
	}
	return px, py, true
}

func (c *Canvas) set(px, py int) {
	c.Grid[py/4][px/2] |= brailleDots[py%4][px%2]
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
