package dosegrid

import (
	"gonum.org/v1/gonum/floats"

	doseerrors "dosekit/pkg/errors"
)

// DoseGrid is a dense dose array stored frame-major, the native order of
// multi-frame DICOM pixel data.
type DoseGrid struct {
	Frames  int
	Rows    int
	Columns int
	values  []float64
}

// ExtractDose multiplies raw pixel values by DoseGridScaling. pixels must be
// ordered frame, row, column.
func ExtractDose(pixels []float64, frames, rows, cols int, scaling float64) (*DoseGrid, error) {
	if frames <= 0 || rows <= 0 || cols <= 0 {
		return nil, doseerrors.InvalidArgument("dose grid size %dx%dx%d must be positive", frames, rows, cols)
	}
	if len(pixels) != frames*rows*cols {
		return nil, doseerrors.InvalidArgument("dose grid: %d pixels for %d frames of %dx%d", len(pixels), frames, rows, cols)
	}
	values := make([]float64, len(pixels))
	floats.ScaleTo(values, scaling, pixels)
	return &DoseGrid{
		Frames:  frames,
		Rows:    rows,
		Columns: cols,
		values:  values,
	}, nil
}

// At returns the dose at the given row, column and frame.
func (g *DoseGrid) At(row, col, frame int) float64 {
	return g.values[(frame*g.Rows+row)*g.Columns+col]
}

// Max returns the largest dose in the grid.
func (g *DoseGrid) Max() float64 {
	return floats.Max(g.values)
}

// Values returns a copy of the dose values in frame, row, column order.
func (g *DoseGrid) Values() []float64 {
	return append([]float64(nil), g.values...)
}

// checkAxes verifies that fixed-frame axes match the grid dimensions.
func (g *DoseGrid) checkAxes(a Axes) error {
	if len(a.X) != g.Columns || len(a.Y) != g.Rows || len(a.Z) != g.Frames {
		return doseerrors.GeometryMismatch("axes %dx%dx%d do not match grid %d columns, %d rows, %d frames",
			len(a.X), len(a.Y), len(a.Z), g.Columns, g.Rows, g.Frames)
	}
	return nil
}

// BeamAxes views fixed-frame axes as beam-data coordinates. Grid rows run
// along Depth, columns along Crossplane and frames along Inplane.
type BeamAxes struct {
	Depth      []float64
	Crossplane []float64
	Inplane    []float64
}

// Beam returns the beam view of fixed-frame axes with depthAdjust added to
// every row coordinate.
func (a Axes) Beam(depthAdjust float64) BeamAxes {
	depth := append([]float64(nil), a.Y...)
	floats.AddConst(depthAdjust, depth)
	return BeamAxes{
		Depth:      depth,
		Crossplane: append([]float64(nil), a.X...),
		Inplane:    append([]float64(nil), a.Z...),
	}
}

func (b BeamAxes) axes() Axes {
	return Axes{X: b.Crossplane, Y: b.Depth, Z: b.Inplane}
}
