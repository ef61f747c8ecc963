package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	doseerrors "dosekit/pkg/errors"
	"dosekit/pkg/interpolation"
)

// UmbraFraction is the fraction of each edge distance kept by FindUmbra.
const UmbraFraction = 0.8

// WedgeThreshold is the mean dose step across the umbra above which a
// profile is considered wedged.
const WedgeThreshold = 0.05

// FindEdges returns the distances of the steepest rise (left) and steepest
// fall (right) of the profile, located on the profile resampled at
// DefaultStep. Ties resolve to the first occurrence.
func (p Profile) FindEdges() (left, right float64, err error) {
	r, err := p.Resample(DefaultStep)
	if err != nil {
		return 0, 0, fmt.Errorf("find edges: %w", err)
	}
	g, err := interpolation.Gradient(r.dose, r.dist)
	if err != nil {
		return 0, 0, fmt.Errorf("find edges: %w", err)
	}
	return r.dist[floats.MaxIdx(g)], r.dist[floats.MinIdx(g)], nil
}

// FindUmbra returns the central part of the profile between
// UmbraFraction*left and UmbraFraction*right. The profile is expected to be
// centred so that left < 0 < right.
func (p Profile) FindUmbra() (Profile, error) {
	left, right, err := p.FindEdges()
	if err != nil {
		return Profile{}, err
	}
	umbra, err := p.Slice(UmbraFraction*left, UmbraFraction*right)
	if err != nil {
		return Profile{}, fmt.Errorf("find umbra: %w", err)
	}
	return umbra, nil
}

// Flatness returns (max-min)/mean of the umbra dose.
func (p Profile) Flatness() (float64, error) {
	u, err := p.FindUmbra()
	if err != nil {
		return 0, err
	}
	mean := stat.Mean(u.dose, nil)
	if mean == 0 {
		return 0, fmt.Errorf("flatness: %w: zero mean umbra dose", doseerrors.ErrDomain)
	}
	return (floats.Max(u.dose) - floats.Min(u.dose)) / mean, nil
}

// Symmetry returns the largest difference between the umbra dose and its
// mirror image, relative to the mean umbra dose. Meaningful only for
// profiles centred on distance 0.
func (p Profile) Symmetry() (float64, error) {
	u, err := p.FindUmbra()
	if err != nil {
		return 0, err
	}
	mean := stat.Mean(u.dose, nil)
	if mean == 0 {
		return 0, fmt.Errorf("symmetry: %w: zero mean umbra dose", doseerrors.ErrDomain)
	}
	n := len(u.dose)
	var worst float64
	for i := range u.dose {
		worst = math.Max(worst, math.Abs((u.dose[i]-u.dose[n-1-i])/mean))
	}
	return worst, nil
}

// IsWedged reports whether the mean dose step across the umbra exceeds
// WedgeThreshold.
func (p Profile) IsWedged() (bool, error) {
	u, err := p.FindUmbra()
	if err != nil {
		return false, err
	}
	steps := make([]float64, len(u.dose)-1)
	for i := range steps {
		steps[i] = u.dose[i+1] - u.dose[i]
	}
	return stat.Mean(steps, nil) > WedgeThreshold, nil
}

// Center returns the profile shifted so the midpoint between its edges sits
// at distance 0.
func (p Profile) Center() (Profile, error) {
	left, right, err := p.FindEdges()
	if err != nil {
		return Profile{}, err
	}
	return p.Shift(-(left + right) / 2), nil
}

// NormalizeDistance rescales distances so the left edge maps to -1 and the
// right edge to +1. Samples left of the edge midpoint are divided by the
// left edge distance, samples right of it by the right edge distance; a
// sample exactly at the midpoint maps to 0.
func (p Profile) NormalizeDistance() (Profile, error) {
	left, right, err := p.FindEdges()
	if err != nil {
		return Profile{}, err
	}
	if left == 0 || right == 0 {
		return Profile{}, fmt.Errorf("normalize distance: %w: edge at distance 0 (left %g, right %g)",
			doseerrors.ErrDomain, left, right)
	}
	cax := (left + right) / 2

	dist := make([]float64, len(p.dist))
	for i, x := range p.dist {
		switch {
		case x < cax:
			dist[i] = x / math.Abs(left)
		case x > cax:
			dist[i] = x / math.Abs(right)
		default:
			dist[i] = 0
		}
	}
	out, err := New(dist, p.dose)
	if err != nil {
		return Profile{}, fmt.Errorf("normalize distance: %w", err)
	}
	return out, nil
}

// NormalizeDose rescales every dose so that the dose at atDistance becomes
// toDose.
func (p Profile) NormalizeDose(atDistance, toDose float64) (Profile, error) {
	ref, err := p.FindDose(atDistance)
	if err != nil {
		return Profile{}, fmt.Errorf("normalize dose: %w", err)
	}
	if ref == 0 {
		return Profile{}, fmt.Errorf("normalize dose: %w: zero dose at distance %g", doseerrors.ErrDomain, atDistance)
	}
	dose := p.Doses()
	floats.Scale(toDose/ref, dose)
	return Profile{dist: p.Distances(), dose: dose}, nil
}
