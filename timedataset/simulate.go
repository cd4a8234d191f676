package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateGrid returns n timestamps spaced stepDays apart starting at start
func GenerateGrid(start time.Time, n, stepDays int) []time.Time {
	t := make([]time.Time, 0, n)
	step := time.Duration(stepDays) * Day
	for i := 0; i < n; i++ {
		t = append(t, start.Add(step*time.Duration(i)))
	}
	return t
}

// Signal is a simulated index series used to build test and example inputs
type Signal []float64

func (s Signal) Add(src Signal) Signal {
	floats.Add(s, src)
	return s
}

// MaskWithTimeRange sets every value within [start, end] to NaN
func (s Signal) MaskWithTimeRange(t []time.Time, start, end time.Time) Signal {
	for i := range s {
		if !t[i].Before(start) && !t[i].After(end) {
			s[i] = math.NaN()
		}
	}
	return s
}

// MaskIndices sets the values in [start, end) to NaN
func (s Signal) MaskIndices(start, end int) Signal {
	for i := max(start, 0); i < end && i < len(s); i++ {
		s[i] = math.NaN()
	}
	return s
}

// Observations converts the signal into Good observations, NaN values become Missing
func (s Signal) Observations(t []time.Time) []Observation {
	obs := make([]Observation, len(s))
	for i, v := range s {
		obs[i] = Observation{T: t[i], Value: v, Quality: Good}
		if math.IsNaN(v) {
			obs[i].Quality = Missing
		}
	}
	return obs
}

func GenerateConstY(n int, val float64) Signal {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Signal(y)
}

// GenerateBump returns a gaussian bloom curve of the given amplitude centred at center with a
// standard deviation of widthDays
func GenerateBump(t []time.Time, amp float64, center time.Time, widthDays float64) Signal {
	y := make([]float64, 0, len(t))
	for i := range t {
		d := t[i].Sub(center).Hours() / 24.0
		y = append(y, amp*math.Exp(-d*d/(2*widthDays*widthDays)))
	}
	return Signal(y)
}

// GenerateNoise returns gaussian noise with the given scale. The same seed always yields the
// same noise.
func GenerateNoise(n int, scale float64, seed uint64) Signal {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, r.NormFloat64()*scale)
	}
	return Signal(y)
}
