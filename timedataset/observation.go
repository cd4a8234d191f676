package timedataset

import (
	"fmt"
	"math"
	"time"
)

// Quality flags how a grid value was obtained
type Quality int

const (
	Good Quality = iota
	Interpolated
	Missing
)

func (q Quality) String() string {
	switch q {
	case Good:
		return "good"
	case Interpolated:
		return "interpolated"
	case Missing:
		return "missing"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// MarshalText encodes the quality as its lowercase name
func (q Quality) MarshalText() ([]byte, error) {
	switch q {
	case Good, Interpolated, Missing:
		return []byte(q.String()), nil
	default:
		return nil, fmt.Errorf("%d, %w", int(q), ErrUnknownQuality)
	}
}

// UnmarshalText decodes a quality name. An empty value decodes as Good.
func (q *Quality) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "good":
		*q = Good
	case "interpolated":
		*q = Interpolated
	case "missing":
		*q = Missing
	default:
		return fmt.Errorf("%q, %w", string(text), ErrUnknownQuality)
	}
	return nil
}

// Observation is a single vegetation index sample
type Observation struct {
	T       time.Time `json:"time"`
	Value   float64   `json:"value"`
	Quality Quality   `json:"quality"`
}

// Usable reports whether the observation carries a value the downstream stages can use
func (o Observation) Usable() bool {
	return o.Quality != Missing && !math.IsNaN(o.Value)
}

// Series is a sequence of observations on a regular grid, ordered by time
type Series []Observation

// Times returns the grid timestamps
func (s Series) Times() []time.Time {
	t := make([]time.Time, len(s))
	for i, obs := range s {
		t[i] = obs.T
	}
	return t
}

// Values returns the grid values with NaN for missing slots
func (s Series) Values() []float64 {
	y := make([]float64, len(s))
	for i, obs := range s {
		if !obs.Usable() {
			y[i] = math.NaN()
			continue
		}
		y[i] = obs.Value
	}
	return y
}

// Qualities returns the quality flag of each slot
func (s Series) Qualities() []Quality {
	q := make([]Quality, len(s))
	for i, obs := range s {
		q[i] = obs.Quality
	}
	return q
}

// Usable counts good and interpolated slots
func (s Series) Usable() int {
	var n int
	for _, obs := range s {
		if obs.Usable() {
			n++
		}
	}
	return n
}

// Count returns the number of slots with the given quality
func (s Series) Count(q Quality) int {
	var n int
	for _, obs := range s {
		if obs.Quality == q {
			n++
		}
	}
	return n
}

// Copy returns an independent copy of the series
func (s Series) Copy() Series {
	c := make(Series, len(s))
	copy(c, s)
	return c
}
