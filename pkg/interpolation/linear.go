// Package interpolation provides the interpolants used by the profile and
// dose-grid packages: piecewise-linear 1-D curves, numerical gradients and
// trilinear sampling of regular 3-D grids.
//
// Every interpolant is strict: querying outside the sampled range returns a
// *errors.DomainError instead of extrapolating. Callers that want a fill value
// substitute it themselves.
package interpolation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	doseerrors "dosekit/pkg/errors"
)

// rangeTolerance is the relative slack allowed at the ends of an axis so that
// grid values produced by repeated addition still count as inside.
const rangeTolerance = 1e-9

// Linear is a piecewise-linear interpolant over strictly increasing abscissae.
type Linear struct {
	pl       interp.PiecewiseLinear
	min, max float64
	tol      float64
}

// NewLinear fits a piecewise-linear interpolant through (xs[i], ys[i]).
// xs must hold at least two strictly increasing, finite values.
func NewLinear(xs, ys []float64) (*Linear, error) {
	if len(xs) != len(ys) {
		return nil, doseerrors.InvalidArgument("interpolation: %d abscissae but %d ordinates", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, doseerrors.InvalidArgument("interpolation: need at least 2 samples, got %d", len(xs))
	}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsInf(xs[i], 0) || math.IsNaN(ys[i]) {
			return nil, doseerrors.InvalidArgument("interpolation: non-finite sample at index %d", i)
		}
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, doseerrors.InvalidArgument("interpolation: abscissae not strictly increasing at index %d", i)
		}
	}

	l := &Linear{
		min: xs[0],
		max: xs[len(xs)-1],
	}
	l.tol = rangeTolerance * math.Max(1, l.max-l.min)
	if err := l.pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("interpolation: fit failed: %w", err)
	}
	return l, nil
}

// Min returns the smallest abscissa.
func (l *Linear) Min() float64 { return l.min }

// Max returns the largest abscissa.
func (l *Linear) Max() float64 { return l.max }

// Contains reports whether x lies within the fitted range.
func (l *Linear) Contains(x float64) bool {
	return x >= l.min-l.tol && x <= l.max+l.tol
}

// At returns the interpolated value at x or a DomainError if x is outside
// the fitted range.
func (l *Linear) At(x float64) (float64, error) {
	if !l.Contains(x) {
		return 0, doseerrors.NewDomainError("linear interpolation", x, l.min, l.max)
	}
	return l.pl.Predict(x), nil
}

// AtOr returns the interpolated value at x, or fill when x is outside the
// fitted range.
func (l *Linear) AtOr(x, fill float64) float64 {
	if !l.Contains(x) {
		return fill
	}
	return l.pl.Predict(x)
}

// Sample evaluates the interpolant at every x. The first out-of-range value
// aborts the evaluation.
func (l *Linear) Sample(xs []float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		v, err := l.At(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
