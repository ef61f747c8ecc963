package interpolation

import (
	doseerrors "dosekit/pkg/errors"
)

// Gradient returns dy/dx sampled at every x.
//
// Interior points use second-order central differences that account for
// uneven spacing; the two end points use one-sided first differences.
func Gradient(y, x []float64) ([]float64, error) {
	n := len(x)
	if len(y) != n {
		return nil, doseerrors.InvalidArgument("gradient: %d values but %d coordinates", len(y), n)
	}
	if n < 2 {
		return nil, doseerrors.InvalidArgument("gradient: need at least 2 samples, got %d", n)
	}

	g := make([]float64, n)
	g[0] = (y[1] - y[0]) / (x[1] - x[0])
	g[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])

	for i := 1; i < n-1; i++ {
		hs := x[i] - x[i-1]
		hd := x[i+1] - x[i]
		g[i] = (hs*hs*y[i+1] + (hd*hd-hs*hs)*y[i] - hd*hd*y[i-1]) / (hs * hd * (hd + hs))
	}
	return g, nil
}
