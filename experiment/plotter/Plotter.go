// Package plotter plots data tracked during experiments
package plotter

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is a named sequence of values, one per episode
type Series struct {
	Name string
	Data []float64
}

// Labels hold the text of a plot
type Labels struct {
	Title string
	X, Y  string
}

// Lines saves a line plot of each series at filename. The format of
// the image is determined by the extension of filename.
func Lines(labels Labels, filename string, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("lines: nothing to plot")
	}

	p := plot.New()
	p.Title.Text = labels.Title
	p.X.Label.Text = labels.X
	p.Y.Label.Text = labels.Y

	for i, s := range series {
		points := make(plotter.XYs, len(s.Data))
		for j, v := range s.Data {
			points[j] = plotter.XY{X: float64(j), Y: v}
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("lines: could not plot %v: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("lines: could not save plot: %w", err)
	}
	return nil
}

// Smooth returns the moving average of data over a trailing window of
// the given size. The first window-1 values average over all values
// seen so far.
func Smooth(data []float64, window int) []float64 {
	if window <= 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}

	out := make([]float64, len(data))
	for i := range data {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = stat.Mean(data[start:i+1], nil)
	}
	return out
}
