package profile

import (
	"fmt"
	"math"

	doseerrors "dosekit/pkg/errors"
)

// Pulse returns a rectangular profile of unit dose for distances within
// width/2 of centre and zero elsewhere, sampled from start to stop at step.
func Pulse(centre, width, start, stop, step float64) (Profile, error) {
	if !(width > 0) {
		return Profile{}, doseerrors.InvalidArgument("pulse: width %g must be positive", width)
	}
	grid, err := MakeDistanceGrid(start, stop, step)
	if err != nil {
		return Profile{}, err
	}
	half := width / 2
	return FromFunc(grid, func(x float64) float64 {
		if math.Abs(x-centre) <= half {
			return 1
		}
		return 0
	})
}

// Symmetrize returns the profile resampled on the multiples of step inside
// the part of its extent that is symmetric about distance 0, with each dose
// replaced by the mean of itself and its mirror image.
func (p Profile) Symmetrize(step float64) (Profile, error) {
	reach := math.Min(-p.Min(), p.Max())
	if reach <= 0 {
		return Profile{}, fmt.Errorf("symmetrize: %w: extent [%g, %g] does not straddle 0",
			doseerrors.ErrDomain, p.Min(), p.Max())
	}
	if !(step > 0) || !isFinite(step) {
		return Profile{}, doseerrors.InvalidArgument("symmetrize: step %g must be positive", step)
	}
	// Multiples of step mirror exactly about 0.
	grid, err := alignedGrid(-reach, reach, step)
	if err != nil {
		return Profile{}, fmt.Errorf("symmetrize: %w", err)
	}
	r, err := p.sampleOn(grid)
	if err != nil {
		return Profile{}, fmt.Errorf("symmetrize: %w", err)
	}
	n := len(r.dose)
	dose := make([]float64, n)
	for i := range dose {
		dose[i] = (r.dose[i] + r.dose[n-1-i]) / 2
	}
	return Profile{dist: r.dist, dose: dose}, nil
}
