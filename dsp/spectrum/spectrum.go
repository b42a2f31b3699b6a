package spectrum

import (
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// scratchBuf holds the unpacked real and imaginary halves for MagnitudeInto.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// MagnitudeInto writes |in[k]| to dst. The real and imaginary parts are
// unpacked into pooled scratch memory, so steady-state calls do not
// allocate.
func MagnitudeInto(dst []float64, in []complex128) error {
	if len(dst) != len(in) {
		return fmt.Errorf("magnitude length mismatch: %d != %d", len(dst), len(in))
	}
	if len(in) == 0 {
		return nil
	}

	re, im, buf := getScratch(len(in))
	defer putScratch(buf)
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}
	vecmath.Magnitude(dst, re, im)
	return nil
}

// MagnitudeToDB converts linear amplitudes in src to decibels in dst.
// Values whose level falls below floorDB (including zero) are written as
// floorDB. dst and src may alias.
func MagnitudeToDB(dst, src []float64, floorDB float64) error {
	if len(dst) != len(src) {
		return fmt.Errorf("magnitude to dB length mismatch: %d != %d", len(dst), len(src))
	}
	floorLin := math.Pow(10, floorDB/20)
	for i, v := range src {
		if !(v > floorLin) {
			dst[i] = floorDB
			continue
		}
		dst[i] = 20 * log10(v)
	}
	return nil
}

// SmoothEnvelope applies a centred moving average of 2*halfWidth+1 bins to
// src and writes the result to dst, shrinking the window at the edges.
// Values below floor, and non-finite values, are treated as floor so a
// silent bin cannot poison the running sum. Runs in O(N) regardless of
// width. dst must not alias src.
func SmoothEnvelope(dst, src []float64, halfWidth int, floor float64) error {
	if len(dst) != len(src) {
		return fmt.Errorf("envelope length mismatch: %d != %d", len(dst), len(src))
	}
	if halfWidth < 0 {
		return fmt.Errorf("envelope half width must be >= 0: %d", halfWidth)
	}
	n := len(src)
	if n == 0 {
		return nil
	}

	at := func(i int) float64 {
		v := src[i]
		if !(v > floor) || math.IsInf(v, 1) {
			return floor
		}
		return v
	}

	sum := 0.0
	hi := halfWidth
	if hi > n-1 {
		hi = n - 1
	}
	for i := 0; i <= hi; i++ {
		sum += at(i)
	}
	lo := 0

	for i := 0; i < n; i++ {
		wantLo := i - halfWidth
		if wantLo < 0 {
			wantLo = 0
		}
		wantHi := i + halfWidth
		if wantHi > n-1 {
			wantHi = n - 1
		}
		for hi < wantHi {
			hi++
			sum += at(hi)
		}
		for lo < wantLo {
			sum -= at(lo)
			lo++
		}
		dst[i] = sum / float64(hi-lo+1)
	}
	return nil
}
