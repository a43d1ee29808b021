package table

import (
	"math"
	"sort"
)

// The helpers below ignore NaN entries, matching the missing-value handling
// of the live evaluation path and of the generated scripts (na.rm=TRUE /
// pandas skipna defaults).

// DropNaN returns the non-NaN entries of xs.
func DropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Mean returns the arithmetic mean, ignoring NaN. NaN if no values remain.
func Mean(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Std returns the sample standard deviation (ddof=1), ignoring NaN.
func Std(xs []float64) float64 {
	mean := Mean(xs)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		d := x - mean
		sum += d * d
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(n-1))
}

// Min returns the minimum, ignoring NaN. NaN if no values remain.
func Min(xs []float64) float64 {
	m, seen := math.NaN(), false
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		if !seen || x < m {
			m, seen = x, true
		}
	}
	return m
}

// Max returns the maximum, ignoring NaN. NaN if no values remain.
func Max(xs []float64) float64 {
	m, seen := math.NaN(), false
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		if !seen || x > m {
			m, seen = x, true
		}
	}
	return m
}

// Sum returns the total, ignoring NaN.
func Sum(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		if !math.IsNaN(x) {
			sum += x
		}
	}
	return sum
}

// Median returns the 0.5 quantile, ignoring NaN.
func Median(xs []float64) float64 {
	return Quantile(xs, 0.5)
}

// Quantile returns the q-th quantile (0 <= q <= 1) with linear
// interpolation between order statistics, ignoring NaN.
func Quantile(xs []float64, q float64) float64 {
	clean := DropNaN(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	if q <= 0 {
		return clean[0]
	}
	if q >= 1 {
		return clean[len(clean)-1]
	}
	pos := q * float64(len(clean)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return clean[lo]
	}
	frac := pos - float64(lo)
	return clean[lo]*(1-frac) + clean[hi]*frac
}

// Ranks returns 1-based ranks with ties averaged. NaN entries receive NaN
// ranks and do not count toward the ranking.
func Ranks(xs []float64) []float64 {
	type indexed struct {
		value float64
		index int
	}
	clean := make([]indexed, 0, len(xs))
	for i, x := range xs {
		if !math.IsNaN(x) {
			clean = append(clean, indexed{x, i})
		}
	}
	sort.Slice(clean, func(i, j int) bool { return clean[i].value < clean[j].value })

	ranks := make([]float64, len(xs))
	for i := range ranks {
		ranks[i] = math.NaN()
	}
	for i := 0; i < len(clean); {
		j := i
		for j < len(clean) && clean[j].value == clean[i].value {
			j++
		}
		// average rank across the tie group
		avg := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[clean[k].index] = avg
		}
		i = j
	}
	return ranks
}
