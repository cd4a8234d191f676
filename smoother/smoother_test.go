package smoother

import (
	"math"
	"testing"
	"time"

	"github.com/florasat/go-phenology/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesFrom(y timedataset.Signal) timedataset.Series {
	t := timedataset.GenerateGrid(start, len(y), 8)
	return timedataset.Series(y.Observations(t))
}

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *Options
		expected *Options
		err      error
	}{
		"nil":              {expected: NewDefaultOptions()},
		"even window":      {opt: &Options{WindowLength: 4, PolyOrder: 2}, err: ErrConfiguration},
		"window too short": {opt: &Options{WindowLength: 3, PolyOrder: 2}, err: ErrConfiguration},
		"negative order":   {opt: &Options{WindowLength: 5, PolyOrder: -1}, err: ErrConfiguration},
		"valid":            {opt: &Options{WindowLength: 7, PolyOrder: 3}, expected: &Options{WindowLength: 7, PolyOrder: 3}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestSmoothErrors(t *testing.T) {
	_, err := Smooth(nil, nil)
	assert.ErrorIs(t, err, ErrNoSeries)

	_, err = Smooth(seriesFrom(timedataset.GenerateConstY(4, 0.2)), nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Smooth(seriesFrom(timedataset.GenerateConstY(10, 0.2)), &Options{WindowLength: 6, PolyOrder: 2})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSmoothConstant(t *testing.T) {
	series := seriesFrom(timedataset.GenerateConstY(46, 0.35))
	res, err := Smooth(series, nil)
	require.Nil(t, err)

	require.Equal(t, len(series), res.Len())
	assert.Equal(t, series.Times(), res.T)
	for i, v := range res.Y {
		assert.InDelta(t, 0.35, v, 1e-12, "index %d", i)
		assert.True(t, res.Valid(i))
	}
}

func TestSmoothImpulseResponse(t *testing.T) {
	y := timedataset.GenerateConstY(11, 0)
	y[5] = 1
	res, err := Smooth(seriesFrom(y), nil)
	require.Nil(t, err)

	expected := []float64{-3.0 / 35, 12.0 / 35, 17.0 / 35, 12.0 / 35, -3.0 / 35}
	assert.InDeltaSlice(t, expected, res.Y[3:8], 1e-9)
	assert.InDelta(t, 0.0, res.Y[0], 1e-9)
	assert.InDelta(t, 0.0, res.Y[10], 1e-9)
}

func TestSmoothPreservesQuadratic(t *testing.T) {
	y := make(timedataset.Signal, 20)
	for i := range y {
		x := float64(i)
		y[i] = 0.1 + 0.02*x - 0.001*x*x
	}
	res, err := Smooth(seriesFrom(y), nil)
	require.Nil(t, err)

	// interior windows see the exact polynomial
	for i := 2; i < 18; i++ {
		assert.InDelta(t, y[i], res.Y[i], 1e-9, "index %d", i)
	}
}

func TestSmoothSpike(t *testing.T) {
	y := timedataset.GenerateConstY(30, 0.2)
	y[15] = 0.6
	res, err := Smooth(seriesFrom(y), nil)
	require.Nil(t, err)

	assert.Less(t, res.Y[15], 0.6)
	assert.Less(t, res.Y[15]-0.2, 0.2)
}

func TestSmoothMissing(t *testing.T) {
	y := timedataset.GenerateConstY(20, 0.3)
	y.MaskIndices(8, 11)
	series := seriesFrom(y)

	res, err := Smooth(series, nil)
	require.Nil(t, err)
	require.Equal(t, len(series), res.Len())
	assert.Equal(t, series.Times(), res.T)

	for i := range res.Y {
		if i >= 8 && i < 11 {
			assert.False(t, res.Valid(i))
			assert.True(t, math.IsNaN(res.Y[i]))
			assert.Equal(t, timedataset.Missing, res.Quality[i])
			continue
		}
		assert.True(t, res.Valid(i))
		assert.InDelta(t, 0.3, res.Y[i], 1e-12)
	}
	assert.Len(t, res.ValidValues(), 17)
}

func TestSmoothIsolatedPoint(t *testing.T) {
	// a single usable point surrounded by missing slots falls back to a constant fit
	y := timedataset.GenerateConstY(11, math.NaN())
	y[0], y[1], y[2] = 0.2, 0.2, 0.2
	y[5] = 0.4
	y[8], y[9], y[10] = 0.2, 0.2, 0.2

	res, err := Smooth(seriesFrom(y), nil)
	require.Nil(t, err)
	assert.InDelta(t, 0.4, res.Y[5], 1e-12)
}
