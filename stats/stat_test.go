package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		p        float64
		expected float64
		err      error
	}{
		"no values": {
			y:   []float64{math.NaN()},
			p:   20,
			err: ErrNoValues,
		},
		"negative percentile": {
			y:   []float64{1},
			p:   -1,
			err: ErrInvalidPercentile,
		},
		"above 100": {
			y:   []float64{1},
			p:   101,
			err: ErrInvalidPercentile,
		},
		"constant": {
			y:        []float64{0.2, 0.2, 0.2, 0.2},
			p:        20,
			expected: 0.2,
		},
		"ignores nan": {
			y:        []float64{math.NaN(), 3, 1, 2, math.Inf(1)},
			p:        0,
			expected: 1,
		},
		"max": {
			y:        []float64{3, 1, 2},
			p:        100,
			expected: 3,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Percentile(td.y, td.p)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, td.expected, res, 1e-12)
		})
	}
}

func TestPercentileMonotonic(t *testing.T) {
	y := []float64{0.9, 0.1, 0.5, 0.3, 0.7, 0.2, 0.8}
	prev := math.Inf(-1)
	for p := 0.0; p <= 100; p += 5 {
		res, err := Percentile(y, p)
		require.Nil(t, err)
		assert.GreaterOrEqual(t, res, prev)
		prev = res
	}
}

func TestRange(t *testing.T) {
	lo, hi, err := Range([]float64{math.NaN(), 0.4, -0.1, 0.3})
	require.Nil(t, err)
	assert.Equal(t, -0.1, lo)
	assert.Equal(t, 0.4, hi)

	_, _, err = Range(nil)
	assert.ErrorIs(t, err, ErrNoValues)
}

func TestDetectOutliers(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		expected []int
	}{
		"empty": {
			y: nil,
		},
		"single spike": {
			y:        []float64{0.2, 0.21, 0.19, 0.2, 0.95, 0.2, 0.22, 0.18, 0.2, 0.21},
			expected: []int{4},
		},
		"nan skipped": {
			y:        []float64{0.2, math.NaN(), 0.21, 0.19, 0.2, -0.8, 0.2, 0.22, 0.18, 0.2},
			expected: []int{5},
		},
		"no outliers": {
			y: []float64{0.2, 0.21, 0.19, 0.2},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := DetectOutliers(td.y, 0.25, 0.75, 1.5)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestMeanDayOfYear(t *testing.T) {
	testData := map[string]struct {
		days     map[int]int
		exclude  int
		expected float64
		ok       bool
	}{
		"nil": {
			days: nil,
		},
		"only excluded year": {
			days:    map[int]int{2024: 150},
			exclude: 2024,
		},
		"five years": {
			days:     map[int]int{2019: 179, 2020: 183, 2021: 181, 2022: 180, 2023: 182},
			exclude:  2024,
			expected: 181,
			ok:       true,
		},
		"excludes current": {
			days:     map[int]int{2022: 100, 2023: 110, 2024: 300},
			exclude:  2024,
			expected: 105,
			ok:       true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, ok := MeanDayOfYear(td.days, td.exclude)
			assert.Equal(t, td.ok, ok)
			assert.InDelta(t, td.expected, res, 1e-12)
		})
	}
}
