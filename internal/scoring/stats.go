package scoring

import "math"

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// clampScore bounds a sub-score to the canonical 0-100 range.
func clampScore(v float64) float64 {
	return clamp(v, 0, 100)
}

// round1 rounds to one decimal place, matching the dashboard's toFixed(1)
// rendering of momentum scores.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// mean returns the arithmetic mean of the series, zero for an empty series.
func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// stddev returns the population standard deviation of the series.
func stddev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	m := mean(series)
	sumSq := 0.0
	for _, v := range series {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(series)))
}

// growthPct returns the percent change from a to b. A zero base with positive
// b saturates at +100% rather than reporting an infinite change.
func growthPct(a, b float64) float64 {
	if a == 0 {
		if b > 0 {
			return 100
		}
		return 0
	}
	return (b - a) / a * 100
}

// dayOverDayGrowth converts a daily level series into percent growth rates
// between consecutive days.
func dayOverDayGrowth(levels []int64) []float64 {
	if len(levels) < 2 {
		return nil
	}
	rates := make([]float64, 0, len(levels)-1)
	for i := 1; i < len(levels); i++ {
		rates = append(rates, growthPct(float64(levels[i-1]), float64(levels[i])))
	}
	return rates
}

// logCurve maps v onto [0,100] along a log10 reference curve anchored at
// floor (score 0) and ceiling (score 100). Values at or below the floor score
// zero; the curve saturates at the ceiling. Long-tailed raw signals (reach,
// streams, revenue) all normalize through this.
func logCurve(v, floor, ceiling float64) float64 {
	if v <= floor {
		return 0
	}
	if v >= ceiling {
		return 100
	}
	return 100 * (math.Log10(v) - math.Log10(floor)) / (math.Log10(ceiling) - math.Log10(floor))
}

// sumInt64 totals an int64 series.
func sumInt64(series []int64) int64 {
	var sum int64
	for _, v := range series {
		sum += v
	}
	return sum
}

// toFloats converts an int64 series for the float helpers.
func toFloats(series []int64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = float64(v)
	}
	return out
}
