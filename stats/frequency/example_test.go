package frequency_test

import (
	"fmt"

	"github.com/cwbudde/algo-formant/dsp/spectrum"
	frequencystats "github.com/cwbudde/algo-formant/stats/frequency"
)

func ExampleCalculate() {
	frame := spectrum.Frame{
		Magnitudes:    []float64{0, 1, 2, 1, 0},
		SampleRate:    8000,
		TransformSize: 8,
		Scale:         spectrum.ScaleLinear,
	}
	s := frequencystats.Calculate(frame)
	fmt.Printf("centroid=%.0f rolloff=%.0f\n", s.Centroid, s.Rolloff)

	// Output:
	// centroid=2000 rolloff=3000
}

func ExampleFlatness() {
	flat := frequencystats.Flatness([]float64{0, 1, 1, 1, 1})
	fmt.Printf("flatness=%.1f\n", flat)

	// Output:
	// flatness=1.0
}
