package phenology

import (
	"fmt"
	"math"
	"time"

	"github.com/florasat/go-phenology/bloom"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Weather impact categories by mean temperature between onset and peak
const (
	ImpactColdStress  = "cold_stress"
	ImpactCool        = "cool"
	ImpactOptimal     = "optimal"
	ImpactWarm        = "warm"
	ImpactHeatStress  = "heat_stress"
	ImpactExtremeHeat = "extreme_heat"
)

// WeatherSample is a single temperature reading
type WeatherSample struct {
	T            time.Time `json:"time"`
	TemperatureC float64   `json:"temperature_c"`
}

// WeatherOptions configures the yield index
type WeatherOptions struct {
	// OptimalMinC and OptimalMaxC bound the temperature band with no yield penalty
	OptimalMinC float64 `json:"optimal_min_c" yaml:"optimal_min_c"`
	OptimalMaxC float64 `json:"optimal_max_c" yaml:"optimal_max_c"`

	// ReferenceDurationDays is the bloom length that earns the full duration factor
	ReferenceDurationDays int `json:"reference_duration_days" yaml:"reference_duration_days"`
}

// NewDefaultWeatherOptions uses the optimal band of mediterranean crops
func NewDefaultWeatherOptions() *WeatherOptions {
	return &WeatherOptions{
		OptimalMinC:           18,
		OptimalMaxC:           25,
		ReferenceDurationDays: 120,
	}
}

// Validate runs basic validation on the weather options
func (o *WeatherOptions) Validate() (*WeatherOptions, error) {
	if o == nil {
		o = NewDefaultWeatherOptions()
	}
	if o.OptimalMinC <= 0 || o.OptimalMaxC < o.OptimalMinC {
		return nil, fmt.Errorf("optimal band [%.1f, %.1f] is not a positive range, %w", o.OptimalMinC, o.OptimalMaxC, ErrConfiguration)
	}
	if o.ReferenceDurationDays < 1 {
		return nil, fmt.Errorf("reference duration must be at least one day, %w", ErrConfiguration)
	}
	return o, nil
}

// Enrich returns copies of the events with a weather summary computed from the samples falling
// between each onset and peak, inclusive. Events without any finite sample in that window are
// returned unchanged.
func Enrich(events []bloom.Event, weather []WeatherSample, opt *WeatherOptions) ([]bloom.Event, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	out := make([]bloom.Event, len(events))
	for i, ev := range events {
		out[i] = ev
		temps := temperaturesBetween(weather, ev.OnsetDate, ev.PeakDate)
		if len(temps) == 0 {
			continue
		}
		out[i] = ev.WithWeather(summarize(ev, temps, opt))
	}
	return out, nil
}

func temperaturesBetween(weather []WeatherSample, start, end time.Time) []float64 {
	var temps []float64
	for _, w := range weather {
		if w.T.Before(start) || w.T.After(end) {
			continue
		}
		if math.IsNaN(w.TemperatureC) || math.IsInf(w.TemperatureC, 0) {
			continue
		}
		temps = append(temps, w.TemperatureC)
	}
	return temps
}

func summarize(ev bloom.Event, temps []float64, opt *WeatherOptions) bloom.WeatherSummary {
	mean := stat.Mean(temps, nil)
	yield := yieldIndex(ev, mean, opt)
	return bloom.WeatherSummary{
		MeanTemperatureC: mean,
		MinTemperatureC:  floats.Min(temps),
		MaxTemperatureC:  floats.Max(temps),
		Samples:          len(temps),
		Impact:           WeatherImpact(mean),
		YieldIndex:       yield,
		YieldCategory:    YieldCategory(yield),
	}
}

// WeatherImpact classifies a mean temperature in degrees celsius
func WeatherImpact(meanC float64) string {
	switch {
	case meanC < 10:
		return ImpactColdStress
	case meanC < 15:
		return ImpactCool
	case meanC <= 25:
		return ImpactOptimal
	case meanC <= 30:
		return ImpactWarm
	case meanC <= 35:
		return ImpactHeatStress
	default:
		return ImpactExtremeHeat
	}
}

// temperatureFactor is 1 inside the optimal band and decays linearly outside of it
func temperatureFactor(meanC float64, opt *WeatherOptions) float64 {
	switch {
	case meanC < opt.OptimalMinC:
		return math.Max(0.7+0.3*meanC/opt.OptimalMinC, 0)
	case meanC > opt.OptimalMaxC:
		return math.Max(1-(meanC-opt.OptimalMaxC)/20, 0.3)
	default:
		return 1
	}
}

func yieldIndex(ev bloom.Event, meanC float64, opt *WeatherOptions) float64 {
	durationFactor := 0.5
	if ev.Duration > 0 {
		durationFactor = math.Min(float64(ev.Duration)/float64(opt.ReferenceDurationDays), 1)
	}
	y := ev.Amplitude * 100 * temperatureFactor(meanC, opt) * durationFactor * ev.Reliability
	return math.Min(math.Max(y, 0), 100)
}

// YieldCategory buckets a yield index
func YieldCategory(yield float64) string {
	switch {
	case yield < 15:
		return "very_low"
	case yield < 30:
		return "low"
	case yield < 50:
		return "medium"
	case yield < 70:
		return "good"
	default:
		return "excellent"
	}
}
