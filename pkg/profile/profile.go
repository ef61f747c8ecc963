// Package profile analyses one-dimensional dose profiles: ordered
// (distance, dose) samples taken along a line through a radiation field.
//
// A Profile is immutable. Every operation returns a new Profile or a scalar
// and never modifies its receiver. Errors are drawn from dosekit/pkg/errors:
// malformed input is ErrInvalidArgument, queries outside the sampled distance
// range are *errors.DomainError.
package profile

import (
	"math"
	"sort"

	doseerrors "dosekit/pkg/errors"
	"dosekit/pkg/interpolation"
)

// DefaultStep is the resampling step used by edge detection, in the
// profile's distance unit (normally mm).
const DefaultStep = 0.1

// Profile is an ordered sequence of (distance, dose) samples with strictly
// increasing distances.
type Profile struct {
	dist []float64
	dose []float64
}

// New builds a Profile from parallel distance and dose slices. Samples are
// sorted by distance; duplicate distances are rejected.
func New(distances, doses []float64) (Profile, error) {
	if len(distances) != len(doses) {
		return Profile{}, doseerrors.InvalidArgument("profile: %d distances but %d doses", len(distances), len(doses))
	}
	if len(distances) < 2 {
		return Profile{}, doseerrors.InvalidArgument("profile: need at least 2 samples, got %d", len(distances))
	}
	for i := range distances {
		if !isFinite(distances[i]) || !isFinite(doses[i]) {
			return Profile{}, doseerrors.InvalidArgument("profile: non-finite sample at index %d", i)
		}
	}

	order := make([]int, len(distances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return distances[order[a]] < distances[order[b]] })

	p := Profile{
		dist: make([]float64, len(order)),
		dose: make([]float64, len(order)),
	}
	for i, j := range order {
		p.dist[i] = distances[j]
		p.dose[i] = doses[j]
		if i > 0 && p.dist[i] == p.dist[i-1] {
			return Profile{}, doseerrors.InvalidArgument("profile: duplicate distance %g", p.dist[i])
		}
	}
	return p, nil
}

// MustNew is like New but panics on error. Intended for literals in tests
// and examples.
func MustNew(distances, doses []float64) Profile {
	p, err := New(distances, doses)
	if err != nil {
		panic(err)
	}
	return p
}

// FromFunc samples doseAt on the given distances.
func FromFunc(distances []float64, doseAt func(float64) float64) (Profile, error) {
	doses := make([]float64, len(distances))
	for i, d := range distances {
		doses[i] = doseAt(d)
	}
	return New(distances, doses)
}

// Len returns the number of samples.
func (p Profile) Len() int { return len(p.dist) }

// Distances returns a copy of the distance values.
func (p Profile) Distances() []float64 { return append([]float64(nil), p.dist...) }

// Doses returns a copy of the dose values.
func (p Profile) Doses() []float64 { return append([]float64(nil), p.dose...) }

// Min returns the smallest distance.
func (p Profile) Min() float64 { return p.dist[0] }

// Max returns the largest distance.
func (p Profile) Max() float64 { return p.dist[len(p.dist)-1] }

// Shift returns the profile translated by d along the distance axis.
func (p Profile) Shift(d float64) Profile {
	out := Profile{dist: make([]float64, len(p.dist)), dose: p.Doses()}
	for i, x := range p.dist {
		out.dist[i] = x + d
	}
	return out
}

// Slice returns the samples whose distance lies in [start, stop].
// Fewer than two remaining samples is an ErrDomain failure.
func (p Profile) Slice(start, stop float64) (Profile, error) {
	var dist, dose []float64
	for i, x := range p.dist {
		if x >= start && x <= stop {
			dist = append(dist, x)
			dose = append(dose, p.dose[i])
		}
	}
	if len(dist) < 2 {
		return Profile{}, doseerrors.NewDomainError("slice", float64(len(dist)), start, stop)
	}
	return Profile{dist: dist, dose: dose}, nil
}

// IsEvenSpaced reports whether consecutive distance differences are equal
// within floating-point tolerance.
func (p Profile) IsEvenSpaced() bool {
	if len(p.dist) < 3 {
		return true
	}
	diffs := make([]float64, len(p.dist)-1)
	var sum float64
	for i := range diffs {
		diffs[i] = p.dist[i+1] - p.dist[i]
		sum += diffs[i]
	}
	mean := sum / float64(len(diffs))
	tol := 1e-8 + 1e-5*math.Abs(mean)
	for _, d := range diffs {
		if math.Abs(d-mean) > tol {
			return false
		}
	}
	return true
}

// FindDose returns the interpolated dose at distance d.
func (p Profile) FindDose(d float64) (float64, error) {
	l, err := p.interpolant()
	if err != nil {
		return 0, err
	}
	return l.At(d)
}

func (p Profile) interpolant() (*interpolation.Linear, error) {
	return interpolation.NewLinear(p.dist, p.dose)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
