// Package bloom turns detected peaks of a smoothed vegetation index series into bloom events
// with onset, duration, amplitude, anomaly and reliability metrics.
package bloom

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/florasat/go-phenology/peaks"
	"github.com/florasat/go-phenology/smoother"
	"github.com/florasat/go-phenology/stats"
	"github.com/florasat/go-phenology/timedataset"
)

var (
	ErrPeakOutOfBounds = errors.New("peak index outside series bounds")
	ErrInvalidPeak     = errors.New("peak index points at a missing value")
)

// Options configures the boundary scans and the reliability score
type Options struct {
	// HalfDecayFraction of the amplitude above baseline below which the bloom has decayed
	HalfDecayFraction float64 `json:"half_decay_fraction" yaml:"half_decay_fraction"`

	// OnsetEpsilon is how close to baseline, in index units, the onset must come
	OnsetEpsilon float64 `json:"onset_epsilon" yaml:"onset_epsilon"`

	// SlopeTolerance allows small rises while walking back from the peak before the walk
	// is considered to have entered a previous bump
	SlopeTolerance float64 `json:"slope_tolerance" yaml:"slope_tolerance"`

	// SeasonWindowDays is the distance from the peak within which other candidates are
	// reported as supporting peaks
	SeasonWindowDays int `json:"season_window_days" yaml:"season_window_days"`

	// ReferenceAmplitude is the amplitude regarded as full contrast
	ReferenceAmplitude float64 `json:"reference_amplitude" yaml:"reference_amplitude"`

	CensorPenalty   float64 `json:"censor_penalty" yaml:"censor_penalty"`
	BoundaryPenalty float64 `json:"boundary_penalty" yaml:"boundary_penalty"`

	// GapPenalty is scaled by the fraction of interpolated or missing points in the event
	GapPenalty float64 `json:"gap_penalty" yaml:"gap_penalty"`
}

// NewDefaultOptions returns the default extraction options
func NewDefaultOptions() *Options {
	return &Options{
		HalfDecayFraction:  0.5,
		OnsetEpsilon:       0.02,
		SlopeTolerance:     0.005,
		SeasonWindowDays:   120,
		ReferenceAmplitude: 0.3,
		CensorPenalty:      0.25,
		BoundaryPenalty:    0.15,
		GapPenalty:         0.5,
	}
}

// Validate runs basic validation on the extraction options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.HalfDecayFraction <= 0 || o.HalfDecayFraction > 1 {
		return nil, fmt.Errorf("half decay fraction %.3f outside (0, 1], %w", o.HalfDecayFraction, smoother.ErrConfiguration)
	}
	if o.OnsetEpsilon < 0 || o.SlopeTolerance < 0 {
		return nil, fmt.Errorf("onset epsilon and slope tolerance must be non-negative, %w", smoother.ErrConfiguration)
	}
	if o.SeasonWindowDays < 0 {
		return nil, fmt.Errorf("negative season window, %w", smoother.ErrConfiguration)
	}
	if o.ReferenceAmplitude <= 0 {
		return nil, fmt.Errorf("reference amplitude must be positive, %w", smoother.ErrConfiguration)
	}
	for _, p := range []float64{o.CensorPenalty, o.BoundaryPenalty, o.GapPenalty} {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("penalty %.3f outside [0, 1], %w", p, smoother.ErrConfiguration)
		}
	}
	return o, nil
}

// Extract builds the event for one peak. The event year is the calendar year of the peak and
// no supporting peaks are attached. Weak peaks are never an error, they yield a low reliability.
func Extract(series *smoother.SmoothedSeries, peak peaks.CandidatePeak, baseline float64, history HistoricalBaseline, opt *Options) (Event, error) {
	opt, err := opt.Validate()
	if err != nil {
		return Event{}, err
	}
	return extract(series, peak, baseline, peak.T.Year(), history, opt, nil)
}

// ExtractAll builds one event per accepted peak of the detection result. Every other candidate,
// accepted or suppressed, within SeasonWindowDays of a peak is listed as a supporting peak.
func ExtractAll(series *smoother.SmoothedSeries, det *peaks.Result, year int, history HistoricalBaseline, opt *Options) ([]Event, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if det == nil || len(det.Peaks) == 0 {
		return []Event{}, nil
	}

	candidates := make([]peaks.CandidatePeak, 0, len(det.Peaks)+len(det.Suppressed))
	candidates = append(candidates, det.Peaks...)
	for _, s := range det.Suppressed {
		candidates = append(candidates, s.CandidatePeak)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Index < candidates[j].Index
	})

	window := time.Duration(opt.SeasonWindowDays) * 24 * time.Hour
	events := make([]Event, 0, len(det.Peaks))
	for _, p := range det.Peaks {
		var supporting []peaks.CandidatePeak
		for _, c := range candidates {
			if c.Index == p.Index {
				continue
			}
			d := c.T.Sub(p.T)
			if d < 0 {
				d = -d
			}
			if d <= window {
				supporting = append(supporting, c)
			}
		}

		ev, err := extract(series, p, det.Baseline, year, history, opt, supporting)
		if err != nil {
			return nil, fmt.Errorf("unable to extract event at index %d, %w", p.Index, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func extract(series *smoother.SmoothedSeries, peak peaks.CandidatePeak, baseline float64, year int,
	history HistoricalBaseline, opt *Options, supporting []peaks.CandidatePeak,
) (Event, error) {
	if series == nil || series.Len() == 0 {
		return Event{}, smoother.ErrNoSeries
	}
	idx := peak.Index
	if idx < 0 || idx >= series.Len() {
		return Event{}, fmt.Errorf("index %d with series length %d, %w", idx, series.Len(), ErrPeakOutOfBounds)
	}
	if !series.Valid(idx) {
		return Event{}, fmt.Errorf("index %d, %w", idx, ErrInvalidPeak)
	}

	peakVal := series.Y[idx]
	amplitude := math.Max(peakVal-baseline, 0)

	onset, boundary := scanOnset(series, idx, baseline, opt)
	decay, censored := scanDecay(series, idx, baseline+opt.HalfDecayFraction*amplitude)

	ev := Event{
		Year:            year,
		OnsetDate:       series.T[onset],
		PeakDate:        series.T[idx],
		DecayDate:       series.T[decay],
		PeakDOY:         series.T[idx].YearDay(),
		Duration:        wholeDays(series.T[decay].Sub(series.T[onset])),
		Amplitude:       amplitude,
		PeakValue:       peakVal,
		Baseline:        baseline,
		Censored:        censored,
		OnsetAtBoundary: boundary,
		SupportingPeaks: supporting,
	}
	if mean, ok := stats.MeanDayOfYear(history, year); ok {
		anomaly := float64(ev.PeakDOY) - mean
		ev.AnomalyDays = &anomaly
	}
	ev.Reliability = reliability(series, amplitude, onset, decay, censored, boundary, opt)
	return ev, nil
}

// scanOnset walks back from the peak while the series keeps falling. The onset is the first
// point within OnsetEpsilon of baseline, or the trough before the series starts rising again.
// Running off the start of the series reports a boundary hit.
func scanOnset(series *smoother.SmoothedSeries, idx int, baseline float64, opt *Options) (int, bool) {
	last := idx
	for j := idx - 1; j >= 0; j-- {
		if !series.Valid(j) {
			continue
		}
		v := series.Y[j]
		if v <= baseline+opt.OnsetEpsilon {
			return j, false
		}
		if v > series.Y[last]+opt.SlopeTolerance {
			return last, false
		}
		last = j
	}
	return last, true
}

// scanDecay walks forward from the peak until the series drops below threshold. If the series
// ends first the decay is censored at the last valid point.
func scanDecay(series *smoother.SmoothedSeries, idx int, threshold float64) (int, bool) {
	last := idx
	for k := idx + 1; k < series.Len(); k++ {
		if !series.Valid(k) {
			continue
		}
		if series.Y[k] < threshold {
			return k, false
		}
		last = k
	}
	return last, true
}

// reliability combines contrast, the amplitude relative to the dynamic range of the series and
// to ReferenceAmplitude, with a completeness factor penalising censoring, boundary hits and
// gaps inside the event.
func reliability(series *smoother.SmoothedSeries, amplitude float64, onset, decay int, censored, boundary bool, opt *Options) float64 {
	var relRange float64
	if lo, hi, err := stats.Range(series.ValidValues()); err == nil && hi > lo {
		relRange = math.Min(amplitude/(hi-lo), 1)
	}
	contrast := 0.5*relRange + 0.5*math.Min(amplitude/opt.ReferenceAmplitude, 1)

	completeness := 1.0
	if censored {
		completeness -= opt.CensorPenalty
	}
	if boundary {
		completeness -= opt.BoundaryPenalty
	}
	completeness -= opt.GapPenalty * gapFraction(series, onset, decay)

	return math.Min(math.Max(contrast*completeness, 0), 1)
}

func gapFraction(series *smoother.SmoothedSeries, onset, decay int) float64 {
	var gaps int
	for i := onset; i <= decay; i++ {
		if series.Quality[i] != timedataset.Good {
			gaps++
		}
	}
	return float64(gaps) / float64(decay-onset+1)
}

func wholeDays(d time.Duration) int {
	return int(math.Round(d.Hours() / 24.0))
}
