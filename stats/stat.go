// Package stats holds the small set of robust statistics shared by the phenology stages.
package stats

import (
	"errors"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoValues          = errors.New("no finite values")
	ErrInvalidPercentile = errors.New("percentile must be within [0, 100]")
)

// Finite returns a copy of y without NaN or infinite values.
func Finite(y []float64) []float64 {
	res := make([]float64, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		res = append(res, v)
	}
	return res
}

// Percentile returns the p-th percentile (0-100) of the finite values in y using linear
// interpolation of the empirical distribution.
func Percentile(y []float64, p float64) (float64, error) {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, ErrInvalidPercentile
	}
	vals := Finite(y)
	if len(vals) == 0 {
		return 0, ErrNoValues
	}
	sort.Float64s(vals)
	return stat.Quantile(p/100.0, stat.LinInterp, vals, nil), nil
}

// Range returns the minimum and maximum of the finite values in y.
func Range(y []float64) (float64, float64, error) {
	vals := Finite(y)
	if len(vals) == 0 {
		return 0, 0, ErrNoValues
	}
	return floats.Min(vals), floats.Max(vals), nil
}

// DetectOutliers returns the indices of values outside the Tukey fence built from the lower
// and upper quantiles, given as fractions in [0, 1]. NaN values are never reported.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := Finite(y)
	if len(yCopy) == 0 {
		return nil
	}
	sort.Float64s(yCopy)

	lower := stat.Quantile(lowerPerc, stat.LinInterp, yCopy, nil)
	upper := stat.Quantile(upperPerc, stat.LinInterp, yCopy, nil)
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if math.IsNaN(y[i]) {
			continue
		}
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// MeanDayOfYear averages the day-of-year values keyed by year, skipping the excluded year.
// Years are visited in ascending order so the sum is reproducible. The boolean is false when
// no year remains.
func MeanDayOfYear(days map[int]int, exclude int) (float64, bool) {
	years := make([]int, 0, len(days))
	for year := range days {
		if year == exclude {
			continue
		}
		years = append(years, year)
	}
	if len(years) == 0 {
		return 0, false
	}
	slices.Sort(years)

	vals := make([]float64, 0, len(years))
	for _, year := range years {
		vals = append(vals, float64(days[year]))
	}
	return stat.Mean(vals, nil), true
}
