package signal

import "fmt"

// Resonance is one vocal-tract resonance: a centre frequency and a -3 dB
// bandwidth, both in Hz.
type Resonance struct {
	FrequencyHz float64
	BandwidthHz float64
}

// DefaultBandwidth returns a typical formant bandwidth for a resonance at
// hz: about 60 Hz for F1 growing slowly with frequency.
func DefaultBandwidth(hz float64) float64 {
	return 50 + 0.04*hz
}

// Vowel synthesises a steady vowel by additive synthesis: harmonics of f0
// with a -6 dB/octave source tilt, weighted by the sum of Lorentzian
// resonance curves. Harmonics above 0.45 * SampleRate are omitted. The
// result is normalised to the given peak amplitude.
func (g *Generator) Vowel(f0 float64, formants []Resonance, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("vowel samples must be > 0: %d", samples)
	}
	sr := g.cfg.SampleRate
	if !(f0 > 0) || f0 >= sr/2 {
		return nil, fmt.Errorf("vowel fundamental must be in (0, %g): %g", sr/2, f0)
	}
	if len(formants) == 0 {
		return nil, fmt.Errorf("vowel needs at least one formant")
	}
	for i, r := range formants {
		if !(r.FrequencyHz > 0) || !(r.BandwidthHz > 0) {
			return nil, fmt.Errorf("vowel formant %d must have positive frequency and bandwidth: %+v", i, r)
		}
	}

	out := make([]float64, samples)
	limit := 0.45 * sr
	for k := 1; float64(k)*f0 < limit; k++ {
		f := float64(k) * f0
		addPartial(out, f/sr, ResonanceGain(f, formants)/float64(k))
	}

	if err := NormalizeInPlace(out, amplitude); err != nil {
		return nil, err
	}
	return out, nil
}

// ResonanceGain returns the summed Lorentzian weight of formants at hz. Each
// resonance contributes 1 at its centre and 0.5 at half its bandwidth away.
func ResonanceGain(hz float64, formants []Resonance) float64 {
	gain := 0.0
	for _, r := range formants {
		d := (hz - r.FrequencyHz) / (r.BandwidthHz / 2)
		gain += 1 / (1 + d*d)
	}
	return gain
}
