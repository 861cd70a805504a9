package main

// viewport maps arena ground coordinates to terminal cells. Cells are about
// twice as tall as wide, so each row covers two columns' worth of ground.
type viewport struct {
	left, cols, rows int
	half             float64
}

func newViewport(width, height int, half float64) viewport {
	rows := height - 2
	cols := rows * 2
	if cols > width {
		cols = width
		rows = cols / 2
	}
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return viewport{left: (width - cols) / 2, cols: cols, rows: rows, half: half}
}

// cell returns the screen position for (x, z), north (+z) up. Row 0 is the
// top border.
func (v viewport) cell(x, z float64) (col, row int, ok bool) {
	if v.half <= 0 {
		return 0, 0, false
	}
	fx := (x + v.half) / (2 * v.half)
	fz := (v.half - z) / (2 * v.half)
	if fx < 0 || fx > 1 || fz < 0 || fz > 1 {
		return 0, 0, false
	}
	c := int(fx * float64(v.cols))
	r := int(fz * float64(v.rows))
	if c == v.cols {
		c--
	}
	if r == v.rows {
		r--
	}
	return v.left + c, r + 1, true
}
