package phenology

import (
	"errors"

	"github.com/florasat/go-phenology/smoother"
	"github.com/florasat/go-phenology/timedataset"
)

var (
	// ErrInsufficientData is returned when a season holds too few usable observations
	ErrInsufficientData = timedataset.ErrInsufficientData

	// ErrConfiguration is returned for options that cannot be honoured
	ErrConfiguration = smoother.ErrConfiguration

	ErrNoAnalysis = errors.New("no analysis has been run")
)
