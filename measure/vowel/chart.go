package vowel

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/formant"
)

// Chart maps formant frequencies onto a plot of Width x Height units divided
// into Columns x Rows cells. F2 runs along x, highest F2 at x = 0. F1 runs
// along y, lowest F1 at y = 0.
type Chart struct {
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Columns int     `yaml:"columns"`
	Rows    int     `yaml:"rows"`
	F1Min   float64 `yaml:"f1_min"`
	F1Max   float64 `yaml:"f1_max"`
	F2Min   float64 `yaml:"f2_min"`
	F2Max   float64 `yaml:"f2_max"`
}

// DefaultChart is the 800x100 plot with a 15x7 grid of the trainer UI,
// spanning the formant ranges of the reference table.
func DefaultChart() Chart {
	return Chart{
		Width:   800,
		Height:  100,
		Columns: 15,
		Rows:    7,
		F1Min:   250,
		F1Max:   850,
		F2Min:   800,
		F2Max:   2500,
	}
}

// Validate checks the chart geometry.
func (c Chart) Validate() error {
	switch {
	case !(c.Width > 0) || !(c.Height > 0):
		return fmt.Errorf("chart size must be positive: %gx%g", c.Width, c.Height)
	case c.Columns <= 0 || c.Rows <= 0:
		return fmt.Errorf("chart grid must be positive: %dx%d", c.Columns, c.Rows)
	case !(c.F1Max > c.F1Min):
		return fmt.Errorf("chart F1 range is empty: [%g, %g]", c.F1Min, c.F1Max)
	case !(c.F2Max > c.F2Min):
		return fmt.Errorf("chart F2 range is empty: [%g, %g]", c.F2Min, c.F2Max)
	}
	return nil
}

// Point is a position on the chart.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Map places f1/f2 on the chart, clamped to the plot area.
func (c Chart) Map(f1, f2 float64) Point {
	x := core.MapRange(f2, c.F2Max, c.F2Min, 0, c.Width)
	y := core.MapRange(f1, c.F1Min, c.F1Max, 0, c.Height)
	return Point{
		X: core.Clamp(x, 0, c.Width),
		Y: core.Clamp(y, 0, c.Height),
	}
}

// Place maps a formant pair. ok is false unless both formants are valid.
func (c Chart) Place(p formant.Pair) (pt Point, ok bool) {
	if !p.Valid() {
		return Point{}, false
	}
	return c.Map(p.F1.FrequencyHz, p.F2.FrequencyHz), true
}

// Cell returns the grid cell containing pt.
func (c Chart) Cell(pt Point) (col, row int) {
	col = int(math.Floor(pt.X / (c.Width / float64(c.Columns))))
	row = int(math.Floor(pt.Y / (c.Height / float64(c.Rows))))
	return clampInt(col, 0, c.Columns-1), clampInt(row, 0, c.Rows-1)
}

// CellCentre returns the centre of a grid cell.
func (c Chart) CellCentre(col, row int) Point {
	return Point{
		X: (float64(col) + 0.5) * c.Width / float64(c.Columns),
		Y: (float64(row) + 0.5) * c.Height / float64(c.Rows),
	}
}

// Target returns the chart position of a reference vowel's grid cell.
func (c Chart) Target(v Vowel) Point {
	return c.CellCentre(v.Column, v.Row)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
