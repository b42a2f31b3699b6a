//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/cwbudde/algo-formant/dsp/formant"
	"github.com/cwbudde/algo-formant/dsp/spectrum"
	"github.com/cwbudde/algo-formant/internal/webdemo"
	"github.com/cwbudde/algo-formant/measure/vowel"
)

var (
	engine *webdemo.Engine
	funcs  []js.Func
)

func main() {
	api := js.Global().Get("Object").New()

	api.Set("init", export(func(args []js.Value) any {
		sr, size := 48000.0, 2048
		if len(args) > 0 {
			sr = args[0].Float()
		}
		if len(args) > 1 {
			size = args[1].Int()
		}
		e, err := webdemo.NewEngine(sr, size)
		if err != nil {
			return err.Error()
		}
		engine = e
		return js.Null()
	}))

	// extract(mags, sampleRate, fftSize) runs the stateless extractor.
	api.Set("extract", export(func(args []js.Value) any {
		if len(args) < 3 {
			return js.Null()
		}
		frame := spectrum.NewFrame(floats(args[0]), args[1].Float(), args[2].Int())
		p, err := formant.Extract(frame)
		if err != nil {
			return errorObject(err)
		}
		return pairObject(p)
	}))

	api.Set("configure", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		o := args[0]
		s := engine.Settings()
		if v := o.Get("selection"); v.Truthy() {
			s.Selection = v.String()
		}
		if v := o.Get("interpolate"); !v.IsUndefined() {
			s.Interpolate = v.Bool()
		}
		if v := o.Get("envelopeWidth"); !v.IsUndefined() {
			s.EnvelopeWidthHz = v.Float()
		}
		if v := o.Get("threshold"); !v.IsUndefined() {
			s.ThresholdDB = v.Float()
		}
		if v := o.Get("tracker"); v.Truthy() {
			s.TrackerMode = v.String()
		}
		if v := o.Get("voicingGate"); !v.IsUndefined() {
			s.VoicingGate = v.Float()
		}
		if v := o.Get("f3"); !v.IsUndefined() {
			s.F3 = v.Bool()
		}
		if err := engine.Configure(s); err != nil {
			return err.Error()
		}
		return js.Null()
	}))

	// track(mags) feeds one AnalyserNode frame through the tracker.
	api.Set("track", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		v, err := engine.Track(floats(args[0]))
		if err != nil {
			return errorObject(err)
		}
		return viewObject(v)
	}))

	// pushSamples(samples) analyses raw microphone samples.
	api.Set("pushSamples", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		v, ok, err := engine.PushSamples(floats(args[0]))
		if err != nil {
			return errorObject(err)
		}
		if !ok {
			return js.Null()
		}
		return viewObject(v)
	}))

	api.Set("reset", export(func(args []js.Value) any {
		if engine != nil {
			engine.Reset()
		}
		return js.Null()
	}))

	api.Set("vowels", export(func(args []js.Value) any {
		chart := vowel.DefaultChart()
		if engine != nil {
			chart = engine.Chart()
		}
		all := vowel.All()
		arr := js.Global().Get("Array").New(len(all))
		for i, v := range all {
			pt := chart.Target(v)
			arr.SetIndex(i, map[string]any{
				"code": v.Code,
				"ipa":  v.IPA,
				"word": v.Word,
				"f1":   v.F1,
				"f2":   v.F2,
				"x":    pt.X,
				"y":    pt.Y,
			})
		}
		return arr
	}))

	api.Set("renderVowel", export(func(args []js.Value) any {
		if engine == nil || len(args) < 3 {
			return js.Global().Get("Float32Array").New(0)
		}
		out, err := engine.RenderVowel(args[0].String(), args[1].Float(), args[2].Int())
		if err != nil {
			return js.Global().Get("Float32Array").New(0)
		}
		arr := js.Global().Get("Float32Array").New(len(out))
		for i, v := range out {
			arr.SetIndex(i, v)
		}
		return arr
	}))

	js.Global().Set("formant", api)
	select {}
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}

func floats(arr js.Value) []float64 {
	out := make([]float64, arr.Length())
	for i := range out {
		out[i] = arr.Index(i).Float()
	}
	return out
}

func estimateObject(e formant.Estimate) map[string]any {
	return map[string]any{
		"frequency":  e.FrequencyHz,
		"magnitude":  e.MagnitudeDB,
		"bandwidth":  e.BandwidthHz,
		"confidence": e.Confidence,
		"valid":      e.Valid,
	}
}

func pairObject(p formant.Pair) map[string]any {
	return map[string]any{
		"f1":    estimateObject(p.F1),
		"f2":    estimateObject(p.F2),
		"valid": p.Valid(),
	}
}

func viewObject(v webdemo.View) map[string]any {
	return map[string]any{
		"f1":     v.F1,
		"f2":     v.F2,
		"f3":     v.F3,
		"valid":  v.Valid,
		"held":   v.Held,
		"voiced": v.Voiced,
		"x":      v.X,
		"y":      v.Y,
		"placed": v.Placed,
		"col":    v.Col,
		"row":    v.Row,
	}
}

func errorObject(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}
