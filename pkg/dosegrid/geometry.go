// Package dosegrid maps a DICOM RT Dose pixel array onto coordinate axes and
// samples it: depth-dose curves, profiles at depth, trilinear point
// sampling, dose inside a contoured structure and cumulative DVHs.
//
// Coordinates are built in one of three frames. The fixed frame is the raw
// grid geometry (ImagePositionPatient plus PixelSpacing and
// GridFrameOffsetVector); the DICOM and IEC patient frames permute and flip
// those axes according to ImageOrientationPatient. Beam-data helpers
// (DepthDose, ProfilesAtDepth, InterpolateAtPoints) work on fixed-frame axes
// viewed as depth, crossplane and inplane through BeamAxes.
package dosegrid

import (
	"fmt"
	"strings"

	doseerrors "dosekit/pkg/errors"
)

// Frame selects the coordinate system of the axes returned by
// AxesFromGeometry.
type Frame int

const (
	FrameDICOM Frame = iota
	FramePatient
	FrameFixed
)

func (f Frame) String() string {
	switch f {
	case FrameDICOM:
		return "DICOM"
	case FramePatient:
		return "IEC PATIENT"
	case FrameFixed:
		return "IEC FIXED"
	default:
		return fmt.Sprintf("Frame(%d)", int(f))
	}
}

// ParseFrame accepts the names and abbreviations of the supported
// coordinate frames, case-insensitively.
func ParseFrame(s string) (Frame, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DICOM", "D":
		return FrameDICOM, nil
	case "PATIENT", "IEC PATIENT", "P":
		return FramePatient, nil
	case "FIXED", "IEC FIXED", "F":
		return FrameFixed, nil
	default:
		return 0, doseerrors.InvalidArgument("unknown coordinate frame %q", s)
	}
}

// Geometry holds the RT Dose attributes that position the dose grid.
type Geometry struct {
	ImagePosition [3]float64
	// PixelSpacing[0] steps along columns (x), PixelSpacing[1] along rows (y).
	PixelSpacing [2]float64
	Rows         int
	Columns      int
	FrameOffsets []float64
	Orientation  [6]float64
	// Modality is checked only when set.
	Modality string
}

// Validate checks that the geometry describes a non-empty RT Dose grid.
func (g Geometry) Validate() error {
	if g.Modality != "" && g.Modality != "RTDOSE" {
		return doseerrors.InvalidArgument("modality %q is not RTDOSE", g.Modality)
	}
	if g.Rows <= 0 || g.Columns <= 0 {
		return doseerrors.InvalidArgument("grid size %dx%d must be positive", g.Rows, g.Columns)
	}
	if g.PixelSpacing[0] <= 0 || g.PixelSpacing[1] <= 0 {
		return doseerrors.InvalidArgument("pixel spacing %v must be positive", g.PixelSpacing)
	}
	if len(g.FrameOffsets) == 0 {
		return doseerrors.InvalidArgument("grid frame offset vector is empty")
	}
	return nil
}

// Axes holds coordinate vectors for the grid's columns, rows and frames in
// some frame. In the DICOM and patient frames a decubitus orientation swaps
// which grid dimension X and Y run along.
type Axes struct {
	X []float64
	Y []float64
	Z []float64
}

// PatientPosition names one of the supported ImageOrientationPatient
// patterns.
type PatientPosition struct {
	Name    string
	Cosines [6]float64
}

// PatientPositions lists the supported scan orientations.
var PatientPositions = []PatientPosition{
	{"HFS", [6]float64{1, 0, 0, 0, 1, 0}},
	{"HFP", [6]float64{-1, 0, 0, 0, -1, 0}},
	{"FFS", [6]float64{-1, 0, 0, 0, 1, 0}},
	{"FFP", [6]float64{1, 0, 0, 0, -1, 0}},
	{"HFDL", [6]float64{0, -1, 0, 1, 0, 0}},
	{"HFDR", [6]float64{0, 1, 0, -1, 0, 0}},
	{"FFDL", [6]float64{0, 1, 0, 1, 0, 0}},
	{"FFDR", [6]float64{0, -1, 0, -1, 0, 0}},
}

// LookupPatientPosition returns the supported position whose cosines match
// exactly.
func LookupPatientPosition(cosines [6]float64) (PatientPosition, error) {
	for _, p := range PatientPositions {
		if p.Cosines == cosines {
			return p, nil
		}
	}
	return PatientPosition{}, doseerrors.UnsupportedOrientation(cosines[:])
}

// FixedAxes returns the raw grid axes: X along columns, Y along rows and Z
// along frames.
func (g Geometry) FixedAxes() Axes {
	x := make([]float64, g.Columns)
	for i := range x {
		x[i] = g.ImagePosition[0] + float64(i)*g.PixelSpacing[0]
	}
	y := make([]float64, g.Rows)
	for j := range y {
		y[j] = g.ImagePosition[1] + float64(j)*g.PixelSpacing[1]
	}
	z := make([]float64, len(g.FrameOffsets))
	for k, off := range g.FrameOffsets {
		z[k] = g.ImagePosition[2] + off
	}
	return Axes{X: x, Y: y, Z: z}
}

// AxesFromGeometry returns the grid coordinates in the requested frame.
// Orientations outside PatientPositions fail with ErrUnsupportedOrientation
// unless the fixed frame is requested.
func AxesFromGeometry(g Geometry, frame Frame) (Axes, error) {
	if err := g.Validate(); err != nil {
		return Axes{}, err
	}
	fixed := g.FixedAxes()
	if frame == FrameFixed {
		return fixed, nil
	}
	if frame != FrameDICOM && frame != FramePatient {
		return Axes{}, doseerrors.InvalidArgument("unknown coordinate frame %v", frame)
	}

	pos, err := LookupPatientPosition(g.Orientation)
	if err != nil {
		return Axes{}, err
	}
	o := pos.Cosines

	// Row cosines decide which fixed axis becomes x or y; column cosines
	// decide the other one.
	var x, yd []float64
	switch {
	case o[0] != 0:
		x = signed(fixed.X, o[0])
	default:
		yd = signed(fixed.X, o[1])
	}
	switch {
	case o[4] != 0:
		yd = signed(fixed.Y, o[4])
	default:
		x = signed(fixed.Y, o[3])
	}

	var sum float64
	for _, c := range o {
		sum += c
	}
	zd := fixed.Z
	if sum == 0 {
		zd = negReversed(fixed.Z)
	}

	if frame == FrameDICOM {
		return Axes{X: x, Y: yd, Z: zd}, nil
	}
	return Axes{X: x, Y: zd, Z: negReversed(yd)}, nil
}

// signed returns a copy of a for a positive cosine and its negated reverse
// for a negative one.
func signed(a []float64, cosine float64) []float64 {
	if cosine < 0 {
		return negReversed(a)
	}
	return append([]float64(nil), a...)
}

func negReversed(a []float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[len(a)-1-i] = -v
	}
	return out
}
