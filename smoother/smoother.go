// Package smoother applies a local polynomial (Savitzky-Golay style) filter to a prepared
// vegetation index series. Missing slots are left out of every local regression but keep their
// position so the output stays aligned with the input grid.
package smoother

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/florasat/go-phenology/models"
	"github.com/florasat/go-phenology/timedataset"
)

var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrNoSeries      = errors.New("no series to smooth")
)

// Options configures the local polynomial filter
type Options struct {
	// WindowLength is the odd number of grid points in each local regression
	WindowLength int `json:"window_length" yaml:"window_length"`

	// PolyOrder is the order of the polynomial fit inside each window
	PolyOrder int `json:"poly_order" yaml:"poly_order"`
}

// NewDefaultOptions spans five grid steps with a quadratic fit
func NewDefaultOptions() *Options {
	return &Options{
		WindowLength: 5,
		PolyOrder:    2,
	}
}

// Validate checks the options independently of any series
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.PolyOrder < 0 {
		return nil, fmt.Errorf("polynomial order %d is negative, %w", o.PolyOrder, ErrConfiguration)
	}
	if o.WindowLength%2 == 0 {
		return nil, fmt.Errorf("window length %d must be odd, %w", o.WindowLength, ErrConfiguration)
	}
	if o.WindowLength < o.PolyOrder+2 {
		return nil, fmt.Errorf("window length %d must be at least polynomial order + 2 (%d), %w",
			o.WindowLength, o.PolyOrder+2, ErrConfiguration)
	}
	return o, nil
}

// SmoothedSeries is the filtered series aligned one to one with the prepared grid
type SmoothedSeries struct {
	T       []time.Time
	Y       []float64
	Quality []timedataset.Quality
}

// Len returns the number of grid points
func (s *SmoothedSeries) Len() int {
	return len(s.T)
}

// Valid reports whether index i carries a smoothed value
func (s *SmoothedSeries) Valid(i int) bool {
	return s.Quality[i] != timedataset.Missing && !math.IsNaN(s.Y[i])
}

// ValidValues returns the smoothed values of all valid points in grid order
func (s *SmoothedSeries) ValidValues() []float64 {
	vals := make([]float64, 0, len(s.Y))
	for i := range s.Y {
		if s.Valid(i) {
			vals = append(vals, s.Y[i])
		}
	}
	return vals
}

// Smooth fits a polynomial of PolyOrder to every window of WindowLength points centred on each
// grid point and evaluates it at the centre. Windows reaching past either end of the series
// repeat the nearest edge value. If a window holds too few usable points for the configured
// order, the order is lowered for that window only.
func Smooth(series timedataset.Series, opt *Options) (*SmoothedSeries, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	n := len(series)
	if n == 0 {
		return nil, ErrNoSeries
	}
	if opt.WindowLength > n {
		return nil, fmt.Errorf("window length %d exceeds series length %d, %w", opt.WindowLength, n, ErrConfiguration)
	}

	values := series.Values()
	out := &SmoothedSeries{
		T:       series.Times(),
		Y:       make([]float64, n),
		Quality: series.Qualities(),
	}

	half := opt.WindowLength / 2
	x := make([]float64, 0, opt.WindowLength)
	y := make([]float64, 0, opt.WindowLength)
	for i := 0; i < n; i++ {
		if out.Quality[i] == timedataset.Missing || math.IsNaN(values[i]) {
			out.Y[i] = math.NaN()
			out.Quality[i] = timedataset.Missing
			continue
		}

		x = x[:0]
		y = y[:0]
		for k := -half; k <= half; k++ {
			idx := min(max(i+k, 0), n-1)
			if math.IsNaN(values[idx]) {
				continue
			}
			x = append(x, float64(k))
			y = append(y, values[idx])
		}

		v, err := fitCentre(x, y, opt.PolyOrder)
		if err != nil {
			return nil, fmt.Errorf("unable to smooth index %d, %w", i, err)
		}
		out.Y[i] = v
	}
	return out, nil
}

// fitCentre returns the least squares polynomial evaluated at x = 0
func fitCentre(x, y []float64, order int) (float64, error) {
	order = min(order, len(x)-1)
	model, err := models.NewPolyRegression(&models.PolyOptions{Order: order})
	if err != nil {
		return 0, err
	}
	if err := model.Fit(x, y); err != nil {
		return 0, err
	}
	return model.Intercept(), nil
}
