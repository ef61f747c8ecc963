package models

import (
	"fmt"
	"time"
)

// Plane identifies the direction a profile was sampled along
type Plane string

const (
	Inplane    Plane = "inplane"
	Crossplane Plane = "crossplane"
	// Imported marks a profile read from a file rather than a dose grid
	Imported Plane = "imported"
)

// Curve is a sampled one-dimensional dose curve
type Curve struct {
	// X holds the sample positions in mm
	X []float64

	// Y holds the dose at each position
	Y []float64
}

// ProfileResult holds the metrics of one beam profile
type ProfileResult struct {
	// Plane is the direction the profile runs along
	Plane Plane

	// Depth is the depth in mm the profile was taken at
	Depth float64

	// Left and Right are the field edges after centring, in mm
	Left  float64
	Right float64

	// Flatness and Symmetry are percentages over the umbra
	Flatness float64
	Symmetry float64

	// Wedged reports whether the profile exceeds the wedge threshold
	Wedged bool

	// Curve is the profile as sampled
	Curve Curve

	// Error is set when a metric could not be computed
	Error string
}

// Label names the profile in reports and history queries, e.g. "crossplane@100"
func (p ProfileResult) Label() string {
	if p.Plane == Imported {
		return string(p.Plane)
	}
	return fmt.Sprintf("%s@%g", p.Plane, p.Depth)
}

// OK reports whether every metric was computed
func (p ProfileResult) OK() bool {
	return p.Error == ""
}

// DVHResult holds the cumulative dose-volume histogram of one structure
type DVHResult struct {
	// Structure is the ROI name
	Structure string

	// Voxels is the number of dose samples inside the structure
	Voxels int

	// MaxDose and MeanDose summarise the samples
	MaxDose  float64
	MeanDose float64

	// Curve maps dose to percent volume receiving at least that dose
	Curve Curve

	// Error is set when the histogram could not be computed
	Error string
}

// Range is a closed interval of positions in mm
type Range struct {
	Min float64
	Max float64
}

// GridExtent is the span of the dose grid along each axis of a frame
type GridExtent struct {
	X Range
	Y Range
	Z Range
}

// AnalysisRun is the complete result of analysing one dose file
type AnalysisRun struct {
	// ID uniquely identifies the run
	ID string

	// CreatedAt is when the run finished
	CreatedAt time.Time

	// DoseFile and StructureFile are the inputs; StructureFile may be empty
	DoseFile      string
	StructureFile string

	// PatientID and PatientName are copied from the dose file
	PatientID   string
	PatientName string

	// Frame is the coordinate frame the axes were reported in
	Frame string

	// Extent is the grid span in Frame
	Extent GridExtent

	// MaxDose is the largest dose in the grid
	MaxDose float64

	// DepthDose is the central-axis depth-dose curve
	DepthDose Curve

	// Profiles holds one entry per plane and depth
	Profiles []ProfileResult

	// DVHs holds one entry per structure
	DVHs []DVHResult
}
