package bloom

import (
	"time"

	"github.com/florasat/go-phenology/peaks"
	"github.com/florasat/go-phenology/timedataset"
)

// HistoricalBaseline maps a year to the day-of-year of that year's bloom peak
type HistoricalBaseline map[int]int

// Event describes one bloom. Field names are part of the persisted record and must not change.
type Event struct {
	Year      int       `json:"year"`
	OnsetDate time.Time `json:"onset_date"`
	PeakDate  time.Time `json:"peak_date"`
	DecayDate time.Time `json:"decay_date"`
	PeakDOY   int       `json:"peak_doy"`
	Duration  int       `json:"duration_days"`
	Amplitude float64   `json:"amplitude"`
	PeakValue float64   `json:"peak_value"`
	Baseline  float64   `json:"baseline"`

	// AnomalyDays is nil when no historical peak is available
	AnomalyDays *float64 `json:"anomaly_days"`

	Reliability     float64 `json:"reliability"`
	Censored        bool    `json:"censored"`
	OnsetAtBoundary bool    `json:"onset_at_boundary"`

	SupportingPeaks []peaks.CandidatePeak `json:"supporting_peaks"`

	Weather *WeatherSummary `json:"weather,omitempty"`
}

// End returns onset + duration, counted in whole 24 hour days so that it lands on the grid
// regardless of daylight saving changes in the onset's location
func (e Event) End() time.Time {
	return e.OnsetDate.Add(time.Duration(e.Duration) * timedataset.Day)
}

// WeatherSummary describes the temperatures observed between onset and peak
type WeatherSummary struct {
	MeanTemperatureC float64 `json:"mean_temperature_c"`
	MinTemperatureC  float64 `json:"min_temperature_c"`
	MaxTemperatureC  float64 `json:"max_temperature_c"`
	Samples          int     `json:"samples"`
	Impact           string  `json:"impact"`

	// YieldIndex is a 0-100 indication of flowering productivity
	YieldIndex    float64 `json:"yield_index"`
	YieldCategory string  `json:"yield_category"`
}

// WithWeather returns a copy of the event carrying the weather summary
func (e Event) WithWeather(w WeatherSummary) Event {
	e.SupportingPeaks = append([]peaks.CandidatePeak(nil), e.SupportingPeaks...)
	e.Weather = &w
	return e
}
