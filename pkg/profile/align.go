package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	doseerrors "dosekit/pkg/errors"
)

// Align estimates the shift that best overlays moving onto fixed.
//
// This is a coarse brute-force search, not an optimiser. Candidate offsets
// run from the larger of the two minimum distances to the smaller of the two
// maximum distances, spaced at half the finest sample spacing of either
// profile. For each candidate, both profiles are evaluated on a padded grid
// from 3*min to 3*max distance at step, with zero dose outside each
// profile, and scored by their dot product. The first offset with the
// highest positive score wins. If no offset scores above zero the result is
// an ErrDomain failure.
func Align(moving, fixed Profile, step float64) (float64, error) {
	lo := math.Max(moving.Min(), fixed.Min())
	hi := math.Min(moving.Max(), fixed.Max())
	if hi < lo {
		return 0, fmt.Errorf("align: %w: profiles do not overlap", doseerrors.ErrDomain)
	}
	inc := 0.5 * math.Min(minSpacing(moving.dist), minSpacing(fixed.dist))
	offsets, err := MakeDistanceGrid(lo, hi, inc)
	if err != nil {
		return 0, fmt.Errorf("align: %w", err)
	}

	coords, err := MakeDistanceGrid(
		3*math.Min(moving.Min(), fixed.Min()),
		3*math.Max(moving.Max(), fixed.Max()),
		step)
	if err != nil {
		return 0, fmt.Errorf("align: %w", err)
	}

	fixedFn, err := fixed.interpolant()
	if err != nil {
		return 0, fmt.Errorf("align: %w", err)
	}
	ref := make([]float64, len(coords))
	for i, x := range coords {
		ref[i] = fixedFn.AtOr(x, 0)
	}

	best, bestOffset := 0.0, math.NaN()
	moved := make([]float64, len(coords))
	for _, off := range offsets {
		fn, err := moving.Shift(off).interpolant()
		if err != nil {
			return 0, fmt.Errorf("align: %w", err)
		}
		for i, x := range coords {
			moved[i] = fn.AtOr(x, 0)
		}
		if c := floats.Dot(ref, moved); c > best {
			best, bestOffset = c, off
		}
	}
	if math.IsNaN(bestOffset) {
		return 0, fmt.Errorf("align: %w: no offset correlates positively", doseerrors.ErrDomain)
	}
	return bestOffset, nil
}

func minSpacing(x []float64) float64 {
	m := math.Inf(1)
	for i := 1; i < len(x); i++ {
		m = math.Min(m, x[i]-x[i-1])
	}
	return m
}
