// Package alerts flags points of a prepared vegetation index series that stray from their
// rolling neighbourhood: drought stress, summer fire risk and unusual vegetation changes.
package alerts

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/florasat/go-phenology/smoother"
	"github.com/florasat/go-phenology/timedataset"
	"gonum.org/v1/gonum/stat"
)

// Kind names the rule that raised an alert
type Kind string

const (
	DroughtStress     Kind = "drought_stress"
	FireRisk          Kind = "fire_risk"
	VegetationAnomaly Kind = "vegetation_anomaly"
)

// Alert is a single flagged point. Severity is the deviation relative to the expected value,
// rounded to two decimals.
type Alert struct {
	Date     time.Time `json:"date"`
	Kind     Kind      `json:"type"`
	Value    float64   `json:"value"`
	Expected float64   `json:"expected"`
	Severity float64   `json:"severity"`
}

// Thresholds are the index levels of a species below which a drop is considered harmful
type Thresholds struct {
	Drought    float64 `json:"drought" yaml:"drought"`
	FireRisk   float64 `json:"fire_risk" yaml:"fire_risk"`
	StressDrop float64 `json:"stress_drop" yaml:"stress_drop"`
}

// DefaultSpecies is used for species without thresholds of their own
const DefaultSpecies = "arroz"

// NewDefaultThresholds returns the thresholds of the supported crop species
func NewDefaultThresholds() map[string]Thresholds {
	return map[string]Thresholds{
		"arroz": {Drought: 0.3, FireRisk: 0.2, StressDrop: 0.15},
		"trigo": {Drought: 0.25, FireRisk: 0.18, StressDrop: 0.12},
		"maiz":  {Drought: 0.35, FireRisk: 0.25, StressDrop: 0.18},
	}
}

// Options configures the rolling window and the alert rules
type Options struct {
	// WindowPoints is the number of usable neighbours in the rolling window, split evenly
	// before and after the point
	WindowPoints int `json:"window_points" yaml:"window_points"`

	// MinUsablePoints below which a series raises no alerts
	MinUsablePoints int `json:"min_usable_points" yaml:"min_usable_points"`

	// Sigma is the number of rolling standard deviations a vegetation anomaly must exceed
	Sigma float64 `json:"sigma" yaml:"sigma"`

	// FireMonths are the months in which sudden drops are reported as fire risk
	FireMonths []time.Month `json:"fire_months" yaml:"fire_months"`

	// FireDropFactor scales the stress drop a fire risk deviation must exceed
	FireDropFactor float64 `json:"fire_drop_factor" yaml:"fire_drop_factor"`

	Species map[string]Thresholds `json:"species" yaml:"species"`
}

// NewDefaultOptions returns the default alert options
func NewDefaultOptions() *Options {
	return &Options{
		WindowPoints:    10,
		MinUsablePoints: 10,
		Sigma:           3,
		FireMonths:      []time.Month{time.June, time.July, time.August},
		FireDropFactor:  1.5,
		Species:         NewDefaultThresholds(),
	}
}

// Validate runs basic validation on the alert options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.WindowPoints < 2 {
		return nil, fmt.Errorf("window of %d points is too small, %w", o.WindowPoints, smoother.ErrConfiguration)
	}
	if o.MinUsablePoints < 1 {
		return nil, fmt.Errorf("min usable points must be positive, %w", smoother.ErrConfiguration)
	}
	if o.Sigma <= 0 || o.FireDropFactor <= 0 {
		return nil, fmt.Errorf("sigma and fire drop factor must be positive, %w", smoother.ErrConfiguration)
	}
	for _, m := range o.FireMonths {
		if m < time.January || m > time.December {
			return nil, fmt.Errorf("invalid fire month %d, %w", m, smoother.ErrConfiguration)
		}
	}
	if _, ok := o.Species[DefaultSpecies]; !ok {
		return nil, fmt.Errorf("missing thresholds for default species %s, %w", DefaultSpecies, smoother.ErrConfiguration)
	}
	for name, th := range o.Species {
		if th.Drought < 0 || th.FireRisk < 0 || th.StressDrop < 0 {
			return nil, fmt.Errorf("negative threshold for species %s, %w", name, smoother.ErrConfiguration)
		}
	}
	return o, nil
}

// For returns the thresholds of species, falling back to the default species
func (o *Options) For(species string) Thresholds {
	if th, ok := o.Species[species]; ok {
		return th
	}
	return o.Species[DefaultSpecies]
}

// Detect compares every usable point of series with the mean and standard deviation of its
// usable neighbours, the point itself excluded. Points too close to either end for a full window
// are never flagged. At most one alert is raised per point with fire risk taking precedence over
// drought stress and drought stress over vegetation anomalies. A series with fewer usable points than
// MinUsablePoints raises no alerts.
func Detect(series timedataset.Series, species string, opt *Options) ([]Alert, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	usable := make([]timedataset.Observation, 0, len(series))
	for _, obs := range series {
		if !obs.Usable() || math.IsInf(obs.Value, 0) {
			continue
		}
		usable = append(usable, obs)
	}

	alerts := []Alert{}
	if len(usable) < opt.MinUsablePoints {
		return alerts, nil
	}

	values := make([]float64, len(usable))
	for i, obs := range usable {
		values[i] = obs.Value
	}

	th := opt.For(species)
	half := min(opt.WindowPoints, len(values)-1) / 2
	if half == 0 {
		return alerts, nil
	}
	neighbours := make([]float64, 2*half)
	for i := half; i+half < len(values); i++ {
		copy(neighbours, values[i-half:i])
		copy(neighbours[half:], values[i+1:i+half+1])
		mean, std := stat.MeanStdDev(neighbours, nil)
		v := values[i]
		deviation := math.Abs(v - mean)

		var kind Kind
		switch {
		case slices.Contains(opt.FireMonths, usable[i].T.Month()) &&
			v < th.FireRisk && deviation > th.StressDrop*opt.FireDropFactor:
			kind = FireRisk
		case v < th.Drought && deviation > th.StressDrop:
			kind = DroughtStress
		case deviation > opt.Sigma*std:
			kind = VegetationAnomaly
		default:
			continue
		}
		alerts = append(alerts, Alert{
			Date:     usable[i].T,
			Kind:     kind,
			Value:    v,
			Expected: mean,
			Severity: severity(deviation, mean),
		})
	}
	return alerts, nil
}

func severity(deviation, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	return math.Round(deviation/expected*100) / 100
}
