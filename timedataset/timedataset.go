// Package timedataset prepares raw vegetation index observations into a regular temporal grid
// ready for smoothing.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/florasat/go-phenology/stats"
)

const Day = 24 * time.Hour

var (
	ErrNoObservations       = errors.New("no observations")
	ErrInsufficientData     = errors.New("insufficient usable observations")
	ErrCannotInferFreq      = errors.New("cannot infer frequency from time slice")
	ErrInvalidGridStep      = errors.New("grid step must be non-negative")
	ErrInvalidGapThreshold  = errors.New("gap fill threshold must be non-negative")
	ErrInvalidMinUsable     = errors.New("minimum usable points must be positive")
	ErrInvalidOutlierOption = errors.New("outlier quantiles must satisfy 0 <= lower < upper <= 1")
	ErrUnknownQuality       = errors.New("unknown quality flag")
)

// OutlierOptions despikes raw samples outside a Tukey fence before gridding. Cloud or snow
// contamination typically shows up as isolated drops in the index.
type OutlierOptions struct {
	LowerQuantile float64 `json:"lower_quantile" yaml:"lower_quantile"`
	UpperQuantile float64 `json:"upper_quantile" yaml:"upper_quantile"`
	TukeyFactor   float64 `json:"tukey_factor" yaml:"tukey_factor"`
}

// NewDefaultOutlierOptions returns the inter-quartile fence with the classic 1.5 factor
func NewDefaultOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		LowerQuantile: 0.25,
		UpperQuantile: 0.75,
		TukeyFactor:   1.5,
	}
}

// PrepareOptions configures how raw observations are resampled onto the grid
type PrepareOptions struct {
	// GridStepDays is the spacing of the output grid. Zero infers the step from the most
	// common interval between raw samples.
	GridStepDays int `json:"grid_step_days" yaml:"grid_step_days"`

	// GapFillThreshold is the longest run of empty grid slots, in steps, bridged by linear
	// interpolation. Longer runs are kept as missing.
	GapFillThreshold int `json:"gap_fill_threshold" yaml:"gap_fill_threshold"`

	// MinUsablePoints is the minimum number of good or interpolated points a season needs.
	MinUsablePoints int `json:"min_usable_points" yaml:"min_usable_points"`

	// Outliers enables despiking when set.
	Outliers *OutlierOptions `json:"outliers,omitempty" yaml:"outliers,omitempty"`
}

// NewDefaultPrepareOptions matches the 8 day revisit cadence of common NDVI composites
func NewDefaultPrepareOptions() *PrepareOptions {
	return &PrepareOptions{
		GridStepDays:     8,
		GapFillThreshold: 2,
		MinUsablePoints:  5,
	}
}

// Validate runs basic validation on the preparation options
func (o *PrepareOptions) Validate() (*PrepareOptions, error) {
	if o == nil {
		o = NewDefaultPrepareOptions()
	}
	if o.GridStepDays < 0 {
		return nil, ErrInvalidGridStep
	}
	if o.GapFillThreshold < 0 {
		return nil, ErrInvalidGapThreshold
	}
	if o.MinUsablePoints < 1 {
		return nil, ErrInvalidMinUsable
	}
	if out := o.Outliers; out != nil {
		if out.LowerQuantile < 0 || out.UpperQuantile > 1 || out.LowerQuantile >= out.UpperQuantile || out.TukeyFactor < 0 {
			return nil, ErrInvalidOutlierOption
		}
	}
	return o, nil
}

// Prepare resamples raw observations onto a regular grid of GridStepDays. Each grid slot takes
// the closest usable raw sample within half a step. Short runs of empty slots are linearly
// interpolated and flagged Interpolated, longer runs stay Missing with a NaN value so that
// indices remain aligned with time.
func Prepare(raw []Observation, opt *PrepareOptions) (Series, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w, %w", ErrNoObservations, ErrInsufficientData)
	}

	samples := usableSamples(raw)
	if opt.Outliers != nil {
		samples = despike(samples, opt.Outliers)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("all %d raw samples are missing, %w", len(raw), ErrInsufficientData)
	}

	step, err := gridStep(samples, opt.GridStepDays)
	if err != nil {
		return nil, err
	}

	series := snapToGrid(samples, step)
	fillGaps(series, opt.GapFillThreshold)

	if n := series.Usable(); n < opt.MinUsablePoints {
		return nil, fmt.Errorf("%d usable grid points, need %d, %w", n, opt.MinUsablePoints, ErrInsufficientData)
	}
	return series, nil
}

// usableSamples drops missing or non-finite samples and sorts the rest by time
func usableSamples(raw []Observation) []Observation {
	samples := make([]Observation, 0, len(raw))
	for _, obs := range raw {
		if obs.Quality == Missing || math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
			continue
		}
		samples = append(samples, obs)
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].T.Before(samples[j].T)
	})
	return samples
}

func despike(samples []Observation, opt *OutlierOptions) []Observation {
	y := make([]float64, len(samples))
	for i, obs := range samples {
		y[i] = obs.Value
	}
	outliers := stats.DetectOutliers(y, opt.LowerQuantile, opt.UpperQuantile, opt.TukeyFactor)
	if len(outliers) == 0 {
		return samples
	}

	drop := make(map[int]struct{}, len(outliers))
	for _, idx := range outliers {
		drop[idx] = struct{}{}
	}
	kept := make([]Observation, 0, len(samples)-len(outliers))
	for i, obs := range samples {
		if _, exists := drop[i]; exists {
			continue
		}
		kept = append(kept, obs)
	}
	return kept
}

func gridStep(samples []Observation, stepDays int) (time.Duration, error) {
	if stepDays > 0 {
		return time.Duration(stepDays) * Day, nil
	}

	t := make(TimeSlice, len(samples))
	for i, obs := range samples {
		t[i] = obs.T
	}
	days, err := t.RevisitDays()
	if err != nil {
		return 0, err
	}
	return time.Duration(days) * Day, nil
}

func snapToGrid(samples []Observation, step time.Duration) Series {
	start := samples[0].T
	end := samples[len(samples)-1].T
	// the last slot is the one nearest to the final sample
	n := int((end.Sub(start)+step/2)/step) + 1

	series := make(Series, n)
	dist := make([]time.Duration, n)
	for i := range series {
		series[i] = Observation{
			T:       start.Add(time.Duration(i) * step),
			Value:   math.NaN(),
			Quality: Missing,
		}
	}

	for _, obs := range samples {
		offset := obs.T.Sub(start)
		slot := min(int((offset+step/2)/step), n-1)
		d := obs.T.Sub(series[slot].T)
		if d < 0 {
			d = -d
		}
		if d > step/2 {
			continue
		}
		// ties go to the later sample, so duplicated timestamps keep the last value
		if series[slot].Quality != Missing && d > dist[slot] {
			continue
		}
		series[slot].Value = obs.Value
		series[slot].Quality = obs.Quality
		dist[slot] = d
	}
	return series
}

// fillGaps interpolates runs of missing slots no longer than threshold that are bounded by
// usable slots on both sides.
func fillGaps(series Series, threshold int) {
	prev := -1
	for i, obs := range series {
		if obs.Quality == Missing {
			continue
		}
		gap := i - prev - 1
		if prev >= 0 && gap > 0 && gap <= threshold {
			left := series[prev].Value
			right := obs.Value
			for j := prev + 1; j < i; j++ {
				frac := float64(j-prev) / float64(i-prev)
				series[j].Value = left + frac*(right-left)
				series[j].Quality = Interpolated
			}
		}
		prev = i
	}
}
