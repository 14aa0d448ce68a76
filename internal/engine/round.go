package engine

import "math"

// round3 rounds half away from zero to 3 decimals. Non-finite values become 0
// so results never carry NaN or Inf.
func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}

// sumRounded adds values that are already rounded and rounds the total again.
func sumRounded(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return round3(total)
}
