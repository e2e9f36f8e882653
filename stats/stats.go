// Package stats implements the C3 statistics utilities: population
// mean/variance, z-score conversions, histogram binning, and a stable
// sort-by-index helper used to rank domains by an arbitrary numeric
// index (spec/§4.3).
//
// Mean uses montanaflynn/stats (grounded on activecm/rita's own
// dependency on it for beaconing statistics); population variance is
// computed directly because montanaflynn/stats' Variance defaults to
// the sample (n-1) estimator, which does not match the exact
// population formula Σ(x-μ)²/n that spec/§4.3 requires.
package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// MeanVariance returns the population mean and population variance of
// xs (variance = Σ(x-μ)²/n). Both are 0 for an empty input.
func MeanVariance(xs []float64) (mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0
	}

	mean, err := mstats.Float64Data(xs).Mean()
	if err != nil {
		// Float64Data.Mean only errors on an empty slice, already excluded above.
		return 0, 0
	}

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	variance = sumSq / float64(len(xs))

	return mean, variance
}

// Z converts a raw value x to a z-score given mean and variance.
// Guards against a zero-variance population by returning 0.
func Z(mean, variance, x float64) float64 {
	if variance == 0 {
		return 0
	}
	return (x - mean) / math.Sqrt(variance)
}

// FromZ converts a z-score back to a raw value given mean and variance.
func FromZ(mean, variance, z float64) float64 {
	return mean + z*math.Sqrt(variance)
}

// Histogram is a fixed-step binning of a sample over [min, max], plus
// one overflow bin collecting every value strictly greater than max.
// Counts[i] is the count for bin [Min+i*Step, Min+(i+1)*Step) for
// i < len(Counts)-1, except that the first bin also takes values below
// Min and the last regular bin also takes values equal to max;
// Counts[len(Counts)-1] is the overflow bin.
type Histogram struct {
	Min    float64
	Step   float64
	Counts []int
}

// BuildHistogram bins xs into step-wide buckets starting at min, up to
// max, with a trailing overflow bucket for values > max. step must be
// > 0; values < min fall into bucket 0 (clamped, never negative-indexed).
func BuildHistogram(xs []float64, min, max, step float64) Histogram {
	nBins := int(math.Ceil((max - min) / step))
	if nBins < 1 {
		nBins = 1
	}
	counts := make([]int, nBins+1)

	for _, x := range xs {
		if x > max {
			counts[nBins]++
			continue
		}
		idx := int((x - min) / step)
		if idx < 0 {
			idx = 0
		}
		if idx >= nBins {
			idx = nBins - 1
		}
		counts[idx]++
	}

	return Histogram{Min: min, Step: step, Counts: counts}
}

// CleanHistogram trims leading and trailing zero-count bins from h
// when h has more than three bins, always preserving at least one bin.
func CleanHistogram(h Histogram) Histogram {
	if len(h.Counts) <= 3 {
		return h
	}

	start, end := 0, len(h.Counts)
	for start < end-1 && h.Counts[start] == 0 {
		start++
	}
	for end > start+1 && h.Counts[end-1] == 0 {
		end--
	}

	return Histogram{
		Min:    h.Min + float64(start)*h.Step,
		Step:   h.Step,
		Counts: append([]int(nil), h.Counts[start:end]...),
	}
}

// SortByIndex returns a copy of items sorted descending by idx[item].
// Ties preserve the input order (sort.SliceStable) — stdlib's stable
// sort is used directly; no pack member ships a stable-sort primitive
// beyond what "sort" already provides (see DESIGN.md).
func SortByIndex[T comparable](items []T, idx map[T]float64) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return idx[out[i]] > idx[out[j]]
	})
	return out
}
