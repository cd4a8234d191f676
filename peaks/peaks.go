// Package peaks establishes the low-activity baseline of a smoothed series and detects candidate
// bloom peaks rising above it.
package peaks

import (
	"fmt"
	"sort"
	"time"

	"github.com/florasat/go-phenology/smoother"
	"github.com/florasat/go-phenology/stats"
)

// Options configures baseline estimation and peak acceptance
type Options struct {
	// BaselinePercentile of the valid smoothed values, in [0, 100)
	BaselinePercentile float64 `json:"baseline_percentile" yaml:"baseline_percentile"`

	// MinProminence is the minimum height above baseline, in index units
	MinProminence float64 `json:"min_prominence" yaml:"min_prominence"`

	// MinSeparation is the minimum distance between accepted peaks, in grid steps
	MinSeparation int `json:"min_separation" yaml:"min_separation"`
}

// NewDefaultOptions returns the default detector options
func NewDefaultOptions() *Options {
	return &Options{
		BaselinePercentile: 20,
		MinProminence:      0.1,
		MinSeparation:      20,
	}
}

// Validate runs basic validation on the detector options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.BaselinePercentile < 0 || o.BaselinePercentile >= 100 {
		return nil, fmt.Errorf("baseline percentile %.2f outside [0, 100), %w", o.BaselinePercentile, smoother.ErrConfiguration)
	}
	if o.MinProminence < 0 {
		return nil, fmt.Errorf("negative minimum prominence, %w", smoother.ErrConfiguration)
	}
	if o.MinSeparation < 1 {
		return nil, fmt.Errorf("minimum separation must be at least one step, %w", smoother.ErrConfiguration)
	}
	return o, nil
}

// CandidatePeak is a local maximum of the smoothed series
type CandidatePeak struct {
	Index      int       `json:"index"`
	T          time.Time `json:"time"`
	Value      float64   `json:"value"`
	Prominence float64   `json:"prominence"`
}

// Suppressed is a prominent local maximum that lost to a stronger nearby peak
type Suppressed struct {
	CandidatePeak

	// Owner is the grid index of the accepted peak that suppressed it
	Owner int
}

// Result holds the baseline and the peaks detected in one series
type Result struct {
	Baseline   float64
	Peaks      []CandidatePeak
	Suppressed []Suppressed
}

// Detect computes the baseline percentile of the valid smoothed values and accepts local
// maxima whose height above baseline reaches MinProminence. Maxima are visited from highest
// to lowest and accepted only when at least MinSeparation steps away from every accepted
// peak, so the strongest peak of a cluster wins. Accepted peaks are returned in time order.
// An empty result with no error means no bloom was detected.
func Detect(series *smoother.SmoothedSeries, opt *Options) (*Result, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if series == nil || series.Len() == 0 {
		return nil, smoother.ErrNoSeries
	}

	baseline, err := stats.Percentile(series.ValidValues(), opt.BaselinePercentile)
	if err != nil {
		return nil, fmt.Errorf("unable to compute baseline, %w", err)
	}

	res := &Result{Baseline: baseline}
	var candidates []CandidatePeak
	for _, idx := range LocalMaxima(series) {
		prominence := series.Y[idx] - baseline
		if prominence < opt.MinProminence {
			continue
		}
		candidates = append(candidates, CandidatePeak{
			Index:      idx,
			T:          series.T[idx],
			Value:      series.Y[idx],
			Prominence: prominence,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Value != candidates[j].Value {
			return candidates[i].Value > candidates[j].Value
		}
		return candidates[i].Index < candidates[j].Index
	})

	for _, c := range candidates {
		owner := -1
		for _, p := range res.Peaks {
			if absInt(c.Index-p.Index) < opt.MinSeparation {
				owner = p.Index
				break
			}
		}
		if owner >= 0 {
			res.Suppressed = append(res.Suppressed, Suppressed{CandidatePeak: c, Owner: owner})
			continue
		}
		res.Peaks = append(res.Peaks, c)
	}

	sort.Slice(res.Peaks, func(i, j int) bool {
		return res.Peaks[i].Index < res.Peaks[j].Index
	})
	sort.Slice(res.Suppressed, func(i, j int) bool {
		return res.Suppressed[i].Index < res.Suppressed[j].Index
	})
	return res, nil
}

// LocalMaxima returns the indices of valid points higher than their nearest valid neighbours on
// both sides. Missing points are skipped when looking for neighbours. A flat run counts once, at
// its middle, when both sides are lower. The first and last valid points, and flat runs touching
// them, are never maxima.
func LocalMaxima(series *smoother.SmoothedSeries) []int {
	valid := make([]int, 0, series.Len())
	for i := 0; i < series.Len(); i++ {
		if series.Valid(i) {
			valid = append(valid, i)
		}
	}

	var maxima []int
	for k := 0; k < len(valid); {
		// extend over a plateau of equal values
		end := k
		for end+1 < len(valid) && series.Y[valid[end+1]] == series.Y[valid[k]] {
			end++
		}
		v := series.Y[valid[k]]
		interior := k > 0 && end < len(valid)-1
		if interior && series.Y[valid[k-1]] < v && series.Y[valid[end+1]] < v {
			maxima = append(maxima, valid[(k+end)/2])
		}
		k = end + 1
	}
	return maxima
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
