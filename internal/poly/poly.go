// Package poly provides polynomial evaluation and least-squares fitting with
// coefficients ordered highest power first.
package poly

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrTooFewPoints is returned when a fit has fewer samples than
	// coefficients.
	ErrTooFewPoints = errors.New("poly: fewer points than coefficients")
	// ErrInvalidOrder is returned for a negative order.
	ErrInvalidOrder = errors.New("poly: order must be >= 0")
)

// Val evaluates the polynomial c at x using Horner's scheme.
func Val(c []float64, x float64) float64 {
	y := 0.0
	for _, k := range c {
		y = y*x + k
	}
	return y
}

// ValInto evaluates c at every x. dst must have len(x) elements.
func ValInto(dst []float64, c []float64, x []float64) {
	for i, xi := range x {
		dst[i] = Val(c, xi)
	}
}

// Shift returns the coefficients of p(x+h) for the polynomial c, both
// highest power first.
func Shift(c []float64, h float64) []float64 {
	out := append([]float64(nil), c...)
	n := len(out) - 1
	for i := 0; i < n; i++ {
		for j := 1; j <= n-i; j++ {
			out[j] += h * out[j-1]
		}
	}
	return out
}

// Fit returns the least-squares polynomial of the given order through
// (x, y), highest power first. Columns of the Vandermonde matrix are scaled
// to unit norm before solving. A rank-deficient system still yields the
// minimum-residual solution.
func Fit(x, y []float64, order int) ([]float64, error) {
	if order < 0 {
		return nil, ErrInvalidOrder
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("poly: length mismatch: %d vs %d", len(x), len(y))
	}
	ncoef := order + 1
	if len(x) < ncoef {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooFewPoints, len(x), ncoef)
	}

	a := mat.NewDense(len(x), ncoef, nil)
	for i, xi := range x {
		v := 1.0
		for j := ncoef - 1; j >= 0; j-- {
			a.Set(i, j, v)
			v *= xi
		}
	}

	scale := make([]float64, ncoef)
	for j := range scale {
		scale[j] = mat.Norm(a.ColView(j), 2)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	for i := range x {
		for j := range scale {
			a.Set(i, j, a.At(i, j)/scale[j])
		}
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("poly: least squares: %w", err)
		}
	}

	coef := make([]float64, ncoef)
	for j := range coef {
		coef[j] = sol.AtVec(j) / scale[j]
		if math.IsNaN(coef[j]) {
			return nil, fmt.Errorf("poly: least squares produced NaN coefficients")
		}
	}
	return coef, nil
}
