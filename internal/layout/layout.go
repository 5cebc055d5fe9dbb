package layout

import (
	"image"
	"math"

	"github.com/coreman2200/funtimes-meshgrid/internal/diagnostics"
)

// Rect is a cell rectangle in viewport space: origin bottom-left, Y up.
type Rect struct {
	X, Y, W, H float64
}

// Pixels converts r into a top-left pixel rectangle on a canvas of the given height.
// Edges are rounded independently so neighbouring cells share their boundary exactly.
func (r Rect) Pixels(canvasHeight float64) image.Rectangle {
	x0 := int(math.Round(r.X))
	x1 := int(math.Round(r.X + r.W))
	y0 := int(math.Round(canvasHeight - (r.Y + r.H)))
	y1 := int(math.Round(canvasHeight - r.Y))
	return image.Rect(x0, y0, x1, y1)
}

// Aspect returns W/H, or 1 for a degenerate rect.
func (r Rect) Aspect() float64 {
	if r.H <= 0 || r.W <= 0 {
		return 1
	}
	return r.W / r.H
}

// Grid is the row/column arrangement of cells. Each row is a heading strip followed by the
// cell content and a spacing gap; the canvas ends with Margin below the last row.
type Grid struct {
	Rows, Cols    int
	HeadingHeight float64
	CellHeight    float64
	RowSpacing    float64
	Margin        float64
}

// New validates the dimensions and returns a Grid.
func New(rows, cols int, heading, cell, spacing, margin float64) (Grid, error) {
	g := Grid{Rows: rows, Cols: cols, HeadingHeight: heading, CellHeight: cell, RowSpacing: spacing, Margin: margin}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// Fit builds a grid whose rows exactly fill a container of the given height.
func Fit(width, height float64, rows, cols int) (Grid, error) {
	if width <= 0 {
		return Grid{}, diagnostics.Configf("layout.width", "must be > 0, got %v", width)
	}
	if rows <= 0 {
		return Grid{}, diagnostics.Configf("layout.rows", "must be > 0, got %d", rows)
	}
	return New(rows, cols, 0, height/float64(rows), 0, 0)
}

func (g Grid) Validate() error {
	switch {
	case g.Rows <= 0:
		return diagnostics.Configf("layout.rows", "must be > 0, got %d", g.Rows)
	case g.Cols <= 0:
		return diagnostics.Configf("layout.cols", "must be > 0, got %d", g.Cols)
	case g.CellHeight <= 0:
		return diagnostics.Configf("layout.cell_height", "must be > 0, got %v", g.CellHeight)
	case g.HeadingHeight < 0 || g.RowSpacing < 0 || g.Margin < 0:
		return diagnostics.Configf("layout", "heading, spacing and margin must not be negative")
	}
	return nil
}

// Count is the number of cells.
func (g Grid) Count() int { return g.Rows * g.Cols }

// Index maps row,col -> linear cell index (row-major).
func (g Grid) Index(row, col int) int { return row*g.Cols + col }

// RowCol is the inverse of Index.
func (g Grid) RowCol(i int) (row, col int) { return i / g.Cols, i % g.Cols }

func (g Grid) RowHeight() float64 { return g.HeadingHeight + g.CellHeight + g.RowSpacing }

func (g Grid) CanvasHeight() float64 { return g.RowHeight()*float64(g.Rows) + g.Margin }

// CellWidth is the width of every column for a container width.
func (g Grid) CellWidth(width float64) float64 { return width / float64(g.Cols) }

// Cell returns the viewport rectangle of (row, col) for the current container width.
func (g Grid) Cell(width float64, row, col int) Rect {
	w := g.CellWidth(width)
	rowTop := float64(row)*g.RowHeight() + g.HeadingHeight
	return Rect{
		X: float64(col) * w,
		Y: g.CanvasHeight() - (rowTop + g.CellHeight),
		W: w,
		H: g.CellHeight,
	}
}

// Cells returns every cell rectangle in row-major order.
func (g Grid) Cells(width float64) []Rect {
	out := make([]Rect, 0, g.Count())
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			out = append(out, g.Cell(width, r, c))
		}
	}
	return out
}

// LabelPos is the top-left position (DOM space, Y down) of a cell label.
func (g Grid) LabelPos(width float64, row, col int, inset float64) (left, top float64) {
	r := g.Cell(width, row, col)
	return r.X + inset, g.CanvasHeight() - r.Y - r.H + inset
}

// Heading is the top-left of a row's heading strip in DOM space.
func (g Grid) Heading(row int) (left, top float64) {
	return 20, float64(row)*g.RowHeight() + 10
}
