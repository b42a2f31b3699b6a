package vowel

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-formant/dsp/formant"
)

func TestTableMatchesChartGrid(t *testing.T) {
	c := DefaultChart()
	seen := map[string]bool{}
	for _, v := range All() {
		if seen[v.Code] {
			t.Fatalf("duplicate code %s", v.Code)
		}
		seen[v.Code] = true
		if v.Column < 0 || v.Column >= c.Columns || v.Row < 0 || v.Row >= c.Rows {
			t.Fatalf("%s cell (%d,%d) outside %dx%d grid", v.Code, v.Column, v.Row, c.Columns, c.Rows)
		}
		if !(v.F1 < v.F2 && v.F2 < v.F3) {
			t.Fatalf("%s formants not ascending: %v %v %v", v.Code, v.F1, v.F2, v.F3)
		}
	}
	if len(seen) != 9 {
		t.Fatalf("got %d vowels, want 9", len(seen))
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].F1 = 0
	if All()[0].F1 == 0 {
		t.Fatal("All exposes the internal table")
	}
}

func TestLookup(t *testing.T) {
	for _, key := range []string{"AA", "aa", "bot", " ɑ "} {
		v, err := Lookup(key)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", key, err)
		}
		if v.Code != "AA" || v.F1 != 710 {
			t.Fatalf("Lookup(%q) = %+v", key, v)
		}
	}
	if _, err := Lookup("XX"); err == nil {
		t.Fatal("expected error for unknown vowel")
	}
	if got := Codes(); len(got) != 9 || got[0] != "IY" || got[8] != "AO" {
		t.Fatalf("Codes() = %v", got)
	}
}

func TestChartMap(t *testing.T) {
	c := DefaultChart()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		f1, f2 float64
		want   Point
	}{
		{f1: 250, f2: 2500, want: Point{0, 0}},
		{f1: 850, f2: 800, want: Point{800, 100}},
		{f1: 550, f2: 1650, want: Point{400, 50}},
		{f1: 100, f2: 4000, want: Point{0, 0}},
		{f1: 2000, f2: 100, want: Point{800, 100}},
	}
	for _, tc := range tests {
		got := c.Map(tc.f1, tc.f2)
		if math.Abs(got.X-tc.want.X) > 1e-9 || math.Abs(got.Y-tc.want.Y) > 1e-9 {
			t.Fatalf("Map(%v, %v) = %+v want %+v", tc.f1, tc.f2, got, tc.want)
		}
	}
}

func TestChartPlace(t *testing.T) {
	c := DefaultChart()
	p := formant.Pair{
		F1: formant.Estimate{FrequencyHz: 285, Valid: true},
		F2: formant.Estimate{FrequencyHz: 2373, Valid: true},
	}
	pt, ok := c.Place(p)
	if !ok {
		t.Fatal("Place rejected a valid pair")
	}
	if pt.X > c.Width/4 || pt.Y > c.Height/4 {
		t.Fatalf("IY formants should land top left, got %+v", pt)
	}

	if _, ok := c.Place(formant.Pair{F1: p.F1}); ok {
		t.Fatal("Place accepted a pair without F2")
	}
}

func TestChartCells(t *testing.T) {
	c := DefaultChart()
	if col, row := c.Cell(Point{800, 100}); col != 14 || row != 6 {
		t.Fatalf("corner cell = (%d,%d)", col, row)
	}

	uw, err := Lookup("UW")
	if err != nil {
		t.Fatal(err)
	}
	target := c.Target(uw)
	if col, row := c.Cell(target); col != uw.Column || row != uw.Row {
		t.Fatalf("target of UW in cell (%d,%d)", col, row)
	}
}

func TestChartValidate(t *testing.T) {
	bad := DefaultChart()
	bad.F2Max = bad.F2Min
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for empty F2 range")
	}
	bad = DefaultChart()
	bad.Rows = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for empty grid")
	}
}
