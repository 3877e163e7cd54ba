// Package render draws grid environments to images
package render

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
)

// Palette colours used when drawing grids
var (
	Background = color.RGBA{R: 250, G: 250, B: 245, A: 255}
	GridLine   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	AgentColor = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	GoalColor  = color.RGBA{R: 245, G: 200, B: 40, A: 255}
)

// Grid describes something that can be drawn cell by cell
type Grid interface {
	// Dims returns the number of rows and columns
	Dims() (r, c int)

	// CellColor returns the fill colour of the cell in row r, column c
	CellColor(r, c int) color.Color

	// Label returns text to draw in the cell, or the empty string
	Label(r, c int) string
}

// Draw draws g onto a new drawing context with square cells cellSize
// pixels wide
func Draw(g Grid, cellSize int) (*gg.Context, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("draw: cell size must be positive, have %d",
			cellSize)
	}
	rows, cols := g.Dims()
	size := float64(cellSize)

	dc := gg.NewContext(cols*cellSize, rows*cellSize)
	dc.SetColor(Background)
	dc.Clear()

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x, y := float64(c)*size, float64(r)*size

			dc.DrawRectangle(x, y, size, size)
			dc.SetColor(g.CellColor(r, c))
			dc.FillPreserve()
			dc.SetColor(GridLine)
			dc.SetLineWidth(1)
			dc.Stroke()

			if label := g.Label(r, c); label != "" {
				dc.SetColor(color.Black)
				dc.DrawStringAnchored(label, x+size/2, y+size/2, 0.5, 0.5)
			}
		}
	}
	return dc, nil
}

// SavePNG draws g and saves the drawing as a PNG at filename
func SavePNG(g Grid, cellSize int, filename string) error {
	dc, err := Draw(g, cellSize)
	if err != nil {
		return fmt.Errorf("savePNG: %w", err)
	}
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("savePNG: could not save %v: %w", filename, err)
	}
	return nil
}

// Heat returns a colour between Background (t = 0) and a saturated
// blue (t = 1). Values of t outside [0, 1] are clipped.
func Heat(t float64) color.Color {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + t*(float64(b)-float64(a)))
	}
	return color.RGBA{
		R: lerp(Background.R, 30),
		G: lerp(Background.G, 90),
		B: lerp(Background.B, 200),
		A: 255,
	}
}
