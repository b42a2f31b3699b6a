package spectrum_test

import (
	"fmt"

	"github.com/cwbudde/algo-formant/dsp/core"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/internal/testutil"
)

func ExampleFrame_BinFrequency() {
	frame := spectrum.NewFrame(make([]float64, 1024), 16000, 2048)
	fmt.Printf("%.4f Hz per bin, bin 64 = %.0f Hz\n", frame.BinWidth(), frame.BinFrequency(64))
	// Output: 7.8125 Hz per bin, bin 64 = 500 Hz
}

func ExampleAnalyzer() {
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(16000),
		core.WithFFTSize(2048),
		core.WithHopSize(2048),
	)
	analyzer, err := spectrum.NewAnalyzer(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	analyzer.Write(testutil.DeterministicSine(1000, 16000, 0.5, 2048), func(f spectrum.Frame) {
		loudest := 0
		for i, v := range f.Magnitudes {
			if v > f.Magnitudes[loudest] {
				loudest = i
			}
		}
		fmt.Printf("%d bins, loudest at %.0f Hz\n", f.Len(), f.BinFrequency(loudest))
	})
	// Output: 1024 bins, loudest at 1000 Hz
}
