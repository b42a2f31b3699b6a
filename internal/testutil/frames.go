package testutil

// FrameDB returns a decibel spectrum of n bins at floorDB with the given
// bins raised to the mapped levels.
func FrameDB(n int, floorDB float64, peaks map[int]float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = floorDB
	}
	for bin, db := range peaks {
		if bin >= 0 && bin < n {
			out[bin] = db
		}
	}
	return out
}

// Resonance returns a decibel spectrum of n bins at floorDB with a smooth
// triangular hump of the given half width (in bins) centred on each peak bin.
// The centre bin is the strict maximum of its hump.
func Resonance(n int, floorDB float64, halfWidth int, peaks map[int]float64) []float64 {
	out := FrameDB(n, floorDB, nil)
	if halfWidth < 1 {
		halfWidth = 1
	}
	for centre, db := range peaks {
		for d := -halfWidth; d <= halfWidth; d++ {
			i := centre + d
			if i < 0 || i >= n {
				continue
			}
			ad := d
			if ad < 0 {
				ad = -ad
			}
			v := db - (db-floorDB)*float64(ad)/float64(halfWidth+1)
			if v > out[i] {
				out[i] = v
			}
		}
	}
	return out
}
