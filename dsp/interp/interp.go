package interp

// Parabolic fits a parabola through three equally spaced samples centred on
// y0 and returns the vertex offset from the centre sample (in samples, within
// [-0.5, 0.5] when y0 is a strict local maximum) and the interpolated height.
//
// When the three points are collinear the centre sample is returned
// unchanged.
func Parabolic(ym1, y0, y1 float64) (offset, height float64) {
	den := ym1 - 2*y0 + y1
	if den == 0 {
		return 0, y0
	}
	offset = 0.5 * (ym1 - y1) / den
	height = y0 - 0.25*(ym1-y1)*offset
	return offset, height
}

// Linear2 interpolates between x0 and x1 at fraction t.
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Crossing returns the fraction t in [0, 1] at which the segment from y0 to
// y1 reaches level. If the segment is flat, 0 is returned; results outside
// [0, 1] are clamped.
func Crossing(y0, y1, level float64) float64 {
	d := y1 - y0
	if d == 0 {
		return 0
	}
	t := (level - y0) / d
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
