package ranking

import "math"

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(MaxScore, v))
}

// Normalize min-max scales the submitted values of one criterion to 0..100.
// An empty cohort yields an empty map and a cohort without spread maps every
// value to the neutral midpoint.
func Normalize(values map[string]float64, direction string) map[string]float64 {
	out := make(map[string]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	spread := hi - lo
	for id, v := range values {
		if spread == 0 {
			out[id] = NeutralScore
			continue
		}
		var scaled float64
		if direction == DirectionLowerIsBetter {
			scaled = (hi - v) / spread * MaxScore
		} else {
			scaled = (v - lo) / spread * MaxScore
		}
		out[id] = round2(clampScore(scaled))
	}
	return out
}
