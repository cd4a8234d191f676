// Package models holds the least squares polynomial fits used by the smoother
package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PolyOptions represents input options to fit a univariate polynomial
type PolyOptions struct {
	// Order is the highest power of x in the fitted polynomial
	Order int
}

// Validate runs basic validation on polynomial options
func (o *PolyOptions) Validate() (*PolyOptions, error) {
	if o == nil {
		o = NewDefaultPolyOptions()
	}
	if o.Order < 0 {
		return nil, ErrNegativeOrder
	}
	return o, nil
}

// NewDefaultPolyOptions returns a quadratic fit
func NewDefaultPolyOptions() *PolyOptions {
	return &PolyOptions{
		Order: 2,
	}
}

// PolyRegression fits y ~ c0 + c1*x + ... + cn*x^n with ordinary least squares using QR
// factorization of the Vandermonde design matrix.
type PolyRegression struct {
	opt  *PolyOptions
	coef []float64
}

// NewPolyRegression initializes a polynomial model ready for fitting
func NewPolyRegression(opt *PolyOptions) (*PolyRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &PolyRegression{
		opt: opt,
	}, nil
}

// Fit the polynomial to the x, y samples. At least Order+1 samples are required.
func (p *PolyRegression) Fit(x, y []float64) error {
	if p.opt == nil {
		return ErrNoOptions
	}
	m := len(x)
	if m == 0 {
		return ErrNoTrainingData
	}
	if len(y) != m {
		return fmt.Errorf("abscissa has %d points and target has %d points, %w", m, len(y), ErrTargetLenMismatch)
	}
	n := p.opt.Order + 1
	if m < n {
		return fmt.Errorf("need %d points for order %d but got %d, %w", n, p.opt.Order, m, ErrUnderdetermined)
	}

	// a constant fit is the sample mean
	if n == 1 {
		p.coef = []float64{stat.Mean(y, nil)}
		return nil
	}

	design := mat.NewDense(m, n, nil)
	for i, xi := range x {
		pow := 1.0
		for j := 0; j < n; j++ {
			design.Set(i, j, pow)
			pow *= xi
		}
	}
	yT := mat.NewDense(1, m, y)

	qr := new(mat.QR)
	qr.Factorize(design)

	q := new(mat.Dense)
	r := new(mat.Dense)
	qr.QTo(q)
	qr.RTo(r)

	yq := new(mat.Dense)
	yq.Mul(yT, q)

	c := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		c[i] = yq.At(0, i)
		for j := i + 1; j < n; j++ {
			c[i] -= c[j] * r.At(i, j)
		}
		diag := r.At(i, i)
		if math.Abs(diag) < singularTol {
			return ErrSingularDesign
		}
		c[i] /= diag
	}
	p.coef = c
	return nil
}

// Predict evaluates the fitted polynomial at every x
func (p *PolyRegression) Predict(x []float64) ([]float64, error) {
	if p.coef == nil {
		return nil, ErrUntrained
	}
	res := make([]float64, len(x))
	for i, xi := range x {
		res[i] = p.eval(xi)
	}
	return res, nil
}

// eval uses Horner's method
func (p *PolyRegression) eval(x float64) float64 {
	var v float64
	for i := len(p.coef) - 1; i >= 0; i-- {
		v = v*x + p.coef[i]
	}
	return v
}

// Intercept returns the value of the polynomial at x = 0
func (p *PolyRegression) Intercept() float64 {
	if len(p.coef) == 0 {
		return math.NaN()
	}
	return p.coef[0]
}

// Coef returns the coefficients ordered by increasing power, including the intercept
func (p *PolyRegression) Coef() []float64 {
	c := make([]float64, len(p.coef))
	copy(c, p.coef)
	return c
}
