// Package phenology extracts bloom events from vegetation index time series. A series is
// resampled onto a regular grid, smoothed with a local polynomial filter, searched for peaks
// above a low-activity baseline and every accepted peak is turned into a bloom event with
// onset, duration, amplitude, anomaly and reliability metrics.
package phenology

import (
	"fmt"

	"github.com/florasat/go-phenology/alerts"
	"github.com/florasat/go-phenology/bloom"
	"github.com/florasat/go-phenology/peaks"
	"github.com/florasat/go-phenology/smoother"
	"github.com/florasat/go-phenology/timedataset"
)

// Analysis holds the intermediate products of one run along with the resulting events
type Analysis struct {
	Year      int
	Series    timedataset.Series
	Smoothed  *smoother.SmoothedSeries
	Detection *peaks.Result
	Events    []bloom.Event

	// Alerts is only set once DetectAlerts has run
	Alerts []alerts.Alert
}

// Analyzer runs the full pipeline and keeps the products of the last run for inspection
type Analyzer struct {
	opt *Options

	last *Analysis
}

// NewAnalyzer validates the options and returns an analyzer. If no options are provided the
// defaults are used.
func NewAnalyzer(opt *Options) (*Analyzer, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Analyzer{opt: opt}, nil
}

// Run prepares, smooths and searches the raw observations for bloom events. Events are tagged
// with year, which is also excluded from history when computing anomalies. A season with no
// peak above the prominence threshold yields an empty event list and no error.
func (a *Analyzer) Run(raw []timedataset.Observation, year int, history bloom.HistoricalBaseline) (*Analysis, error) {
	series, err := timedataset.Prepare(raw, a.opt.Prepare)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare series, %w", err)
	}

	smoothed, err := smoother.Smooth(series, a.opt.Smoother)
	if err != nil {
		return nil, fmt.Errorf("unable to smooth series, %w", err)
	}

	det, err := peaks.Detect(smoothed, a.opt.Peaks)
	if err != nil {
		return nil, fmt.Errorf("unable to detect peaks, %w", err)
	}

	events, err := bloom.ExtractAll(smoothed, det, year, history, a.opt.Bloom)
	if err != nil {
		return nil, fmt.Errorf("unable to extract bloom events, %w", err)
	}

	a.last = &Analysis{
		Year:      year,
		Series:    series,
		Smoothed:  smoothed,
		Detection: det,
		Events:    events,
	}
	return a.last, nil
}

// Enrich attaches weather summaries to the events of the last run
func (a *Analyzer) Enrich(weather []WeatherSample) ([]bloom.Event, error) {
	if a.last == nil {
		return nil, ErrNoAnalysis
	}
	events, err := Enrich(a.last.Events, weather, a.opt.Weather)
	if err != nil {
		return nil, err
	}
	a.last.Events = events
	return events, nil
}

// DetectAlerts flags the points of the last prepared series that stray from their rolling
// neighbourhood, using the thresholds of species.
func (a *Analyzer) DetectAlerts(species string) ([]alerts.Alert, error) {
	if a.last == nil {
		return nil, ErrNoAnalysis
	}
	res, err := alerts.Detect(a.last.Series, species, a.opt.Alerts)
	if err != nil {
		return nil, err
	}
	a.last.Alerts = res
	return res, nil
}

// LastAnalysis returns the products of the most recent successful run
func (a *Analyzer) LastAnalysis() *Analysis {
	return a.last
}

// PlotAnalysis renders the most recent run as an html page
func (a *Analyzer) PlotAnalysis(path string) error {
	if a.last == nil {
		return ErrNoAnalysis
	}
	return a.last.Plot(path)
}

// Analyze runs the full pipeline on one season of raw observations and returns one event per
// accepted peak in time order. history may be nil, in which case no anomaly is reported.
func Analyze(raw []timedataset.Observation, year int, opt *Options, history bloom.HistoricalBaseline) ([]bloom.Event, error) {
	a, err := NewAnalyzer(opt)
	if err != nil {
		return nil, err
	}
	res, err := a.Run(raw, year, history)
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}
