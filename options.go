package phenology

import (
	"fmt"
	"maps"
	"slices"

	"github.com/florasat/go-phenology/alerts"
	"github.com/florasat/go-phenology/bloom"
	"github.com/florasat/go-phenology/peaks"
	"github.com/florasat/go-phenology/smoother"
	"github.com/florasat/go-phenology/timedataset"
	"gopkg.in/yaml.v3"
)

// Options configures every stage of the analysis. An Options value is shared read-only between
// concurrent analyses and is never modified by them.
type Options struct {
	Prepare  *timedataset.PrepareOptions `json:"prepare" yaml:"prepare"`
	Smoother *smoother.Options           `json:"smoother" yaml:"smoother"`
	Peaks    *peaks.Options              `json:"peaks" yaml:"peaks"`
	Bloom    *bloom.Options              `json:"bloom" yaml:"bloom"`
	Weather  *WeatherOptions             `json:"weather" yaml:"weather"`
	Alerts   *alerts.Options             `json:"alerts" yaml:"alerts"`
}

// NewDefaultOptions returns the default options for all stages
func NewDefaultOptions() *Options {
	return &Options{
		Prepare:  timedataset.NewDefaultPrepareOptions(),
		Smoother: smoother.NewDefaultOptions(),
		Peaks:    peaks.NewDefaultOptions(),
		Bloom:    bloom.NewDefaultOptions(),
		Weather:  NewDefaultWeatherOptions(),
		Alerts:   alerts.NewDefaultOptions(),
	}
}

// Validate checks the options of every stage and returns a fully populated deep copy, so later
// changes to o never reach the returned options. Stages with no options fall back to their
// defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}

	prepare, err := o.Prepare.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid preparation options, %w, %w", ErrConfiguration, err)
	}
	smooth, err := o.Smoother.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid smoother options, %w", err)
	}
	pk, err := o.Peaks.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid peak options, %w", err)
	}
	bl, err := o.Bloom.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid bloom options, %w", err)
	}
	weather, err := o.Weather.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid weather options, %w", err)
	}
	al, err := o.Alerts.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid alert options, %w", err)
	}

	out := &Options{
		Prepare:  clone(prepare),
		Smoother: clone(smooth),
		Peaks:    clone(pk),
		Bloom:    clone(bl),
		Weather:  clone(weather),
		Alerts:   clone(al),
	}
	if prepare.Outliers != nil {
		out.Prepare.Outliers = clone(prepare.Outliers)
	}
	out.Alerts.FireMonths = slices.Clone(al.FireMonths)
	out.Alerts.Species = maps.Clone(al.Species)
	return out, nil
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// ParseOptions decodes a YAML or JSON document on top of the default options, so only the
// settings that differ from the defaults need to be present.
func ParseOptions(data []byte) (*Options, error) {
	opt := NewDefaultOptions()
	if err := yaml.Unmarshal(data, opt); err != nil {
		return nil, fmt.Errorf("unable to decode options, %w", err)
	}
	return opt.Validate()
}
