package dosegrid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	doseerrors "dosekit/pkg/errors"
	"dosekit/pkg/interpolation"
	"dosekit/pkg/profile"
)

// Profiles holds the inplane and crossplane profiles extracted at one depth.
type Profiles struct {
	Depth          float64
	Inplane        []float64
	InplaneDose    []float64
	Crossplane     []float64
	CrossplaneDose []float64
}

// InplaneProfile returns the inplane curve as a Profile.
func (p Profiles) InplaneProfile() (profile.Profile, error) {
	return profile.New(p.Inplane, p.InplaneDose)
}

// CrossplaneProfile returns the crossplane curve as a Profile.
func (p Profiles) CrossplaneProfile() (profile.Profile, error) {
	return profile.New(p.Crossplane, p.CrossplaneDose)
}

// window returns the indices of coordinates within halfWidth of 0.
func window(axis []float64, halfWidth float64) []int {
	var idx []int
	for i, v := range axis {
		if math.Abs(v) <= halfWidth {
			idx = append(idx, i)
		}
	}
	return idx
}

func beamWindows(beam BeamAxes, halfWidth float64) (cols, frames []int, err error) {
	if halfWidth < 0 || math.IsNaN(halfWidth) {
		return nil, nil, doseerrors.InvalidArgument("averaging half-width %g must be non-negative", halfWidth)
	}
	cols = window(beam.Crossplane, halfWidth)
	frames = window(beam.Inplane, halfWidth)
	if len(cols) == 0 {
		return nil, nil, doseerrors.NewDomainError("crossplane averaging window", halfWidth, floats.Min(beam.Crossplane), floats.Max(beam.Crossplane))
	}
	if len(frames) == 0 {
		return nil, nil, doseerrors.NewDomainError("inplane averaging window", halfWidth, floats.Min(beam.Inplane), floats.Max(beam.Inplane))
	}
	return cols, frames, nil
}

// DepthDose returns the depth axis and the dose along it, averaged over
// columns and frames whose crossplane and inplane coordinates lie within
// halfWidth of the central axis.
func DepthDose(grid *DoseGrid, beam BeamAxes, halfWidth float64) (depth, dose []float64, err error) {
	if err := grid.checkAxes(beam.axes()); err != nil {
		return nil, nil, err
	}
	cols, frames, err := beamWindows(beam, halfWidth)
	if err != nil {
		return nil, nil, fmt.Errorf("depth dose: %w", err)
	}

	dose = make([]float64, grid.Rows)
	n := float64(len(cols) * len(frames))
	for r := range dose {
		var sum float64
		for _, f := range frames {
			for _, c := range cols {
				sum += grid.At(r, c, f)
			}
		}
		dose[r] = sum / n
	}
	return append([]float64(nil), beam.Depth...), dose, nil
}

// ProfilesAtDepth extracts the inplane and crossplane profiles at the
// requested depth. The inplane profile averages over columns within
// halfWidth of the crossplane centre, the crossplane profile over frames
// within halfWidth of the inplane centre. A depth between two grid rows is
// served by weighting the bounding rows by proximity.
func ProfilesAtDepth(grid *DoseGrid, beam BeamAxes, depth, halfWidth float64) (Profiles, error) {
	if err := grid.checkAxes(beam.axes()); err != nil {
		return Profiles{}, err
	}
	cols, frames, err := beamWindows(beam, halfWidth)
	if err != nil {
		return Profiles{}, fmt.Errorf("profiles at depth: %w", err)
	}

	out := Profiles{
		Depth:      depth,
		Inplane:    append([]float64(nil), beam.Inplane...),
		Crossplane: append([]float64(nil), beam.Crossplane...),
	}

	for r, d := range beam.Depth {
		if d == depth {
			out.InplaneDose, out.CrossplaneDose = rowProfiles(grid, r, cols, frames)
			return out, nil
		}
	}

	shallow, deep, ok := boundingRows(beam.Depth, depth)
	if !ok {
		return Profiles{}, doseerrors.NewDomainError("profiles at depth", depth, floats.Min(beam.Depth), floats.Max(beam.Depth))
	}
	s, dd := beam.Depth[shallow], beam.Depth[deep]
	ws := 1 - (depth-s)/(dd-s)
	wd := 1 - (dd-depth)/(dd-s)

	sIn, sCross := rowProfiles(grid, shallow, cols, frames)
	dIn, dCross := rowProfiles(grid, deep, cols, frames)
	out.InplaneDose = blend(sIn, dIn, ws, wd)
	out.CrossplaneDose = blend(sCross, dCross, ws, wd)
	return out, nil
}

// rowProfiles returns the inplane dose (one value per frame) and the
// crossplane dose (one value per column) for grid row r.
func rowProfiles(grid *DoseGrid, r int, cols, frames []int) (inplane, crossplane []float64) {
	inplane = make([]float64, grid.Frames)
	for f := range inplane {
		var sum float64
		for _, c := range cols {
			sum += grid.At(r, c, f)
		}
		inplane[f] = sum / float64(len(cols))
	}
	crossplane = make([]float64, grid.Columns)
	for c := range crossplane {
		var sum float64
		for _, f := range frames {
			sum += grid.At(r, c, f)
		}
		crossplane[c] = sum / float64(len(frames))
	}
	return inplane, crossplane
}

// boundingRows returns the index of the largest depth not above d and of
// the smallest depth not below d.
func boundingRows(depths []float64, d float64) (shallow, deep int, ok bool) {
	shallow, deep = -1, -1
	for i, v := range depths {
		if v <= d && (shallow < 0 || v > depths[shallow]) {
			shallow = i
		}
		if v >= d && (deep < 0 || v < depths[deep]) {
			deep = i
		}
	}
	return shallow, deep, shallow >= 0 && deep >= 0
}

func blend(a, b []float64, wa, wb float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = wa*a[i] + wb*b[i]
	}
	return out
}

// InterpolateAtPoints returns the trilinearly interpolated dose at each
// (depth, crossplane, inplane) point. Any point outside the grid fails the
// whole call with a DomainError.
func InterpolateAtPoints(grid *DoseGrid, beam BeamAxes, points [][3]float64) ([]float64, error) {
	if err := grid.checkAxes(beam.axes()); err != nil {
		return nil, err
	}
	g, err := interpolation.NewRegularGrid3D(beam.Depth, beam.Crossplane, beam.Inplane, grid)
	if err != nil {
		return nil, fmt.Errorf("interpolate at points: %w", err)
	}
	out := make([]float64, len(points))
	for i, p := range points {
		v, err := g.At(p)
		if err != nil {
			return nil, fmt.Errorf("interpolate at point %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
