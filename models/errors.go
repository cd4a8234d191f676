package models

import (
	"errors"
)

const singularTol = 1e-12

var (
	ErrNoOptions         = errors.New("no initialized model options")
	ErrNegativeOrder     = errors.New("polynomial order must be non-negative")
	ErrNoTrainingData    = errors.New("no training data")
	ErrTargetLenMismatch = errors.New("target length does not match abscissa length")
	ErrUnderdetermined   = errors.New("fewer samples than polynomial coefficients")
	ErrSingularDesign    = errors.New("design matrix is rank deficient")
	ErrUntrained         = errors.New("polynomial has not been fit yet")
)
