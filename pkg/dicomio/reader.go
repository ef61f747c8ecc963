// Package dicomio reads RT Dose and RT Structure Set files into the types of
// the dosegrid package. Decoding is delegated to github.com/suyashkumar/dicom.
package dicomio

import (
	"errors"
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dosekit/pkg/dosegrid"
)

// Common errors
var (
	ErrMissingAttribute = errors.New("dicomio: missing attribute")
	ErrBadAttribute     = errors.New("dicomio: malformed attribute")
)

// DoseDataset is the part of an RT Dose file needed for dose analysis.
type DoseDataset struct {
	Geometry    dosegrid.Geometry
	Scaling     float64
	Frames      int
	Rows        int
	Columns     int
	Pixels      []float64 // frame, row, column order
	PatientID   string
	PatientName string
}

// DoseGrid applies DoseGridScaling to the pixel data.
func (d *DoseDataset) DoseGrid() (*dosegrid.DoseGrid, error) {
	return dosegrid.ExtractDose(d.Pixels, d.Frames, d.Rows, d.Columns, d.Scaling)
}

// DoseReader reads RT Dose files.
type DoseReader interface {
	ReadDose(path string) (*DoseDataset, error)
}

// StructureReader reads contoured structures from RT Structure Set files.
type StructureReader interface {
	ReadStructures(path string) ([]dosegrid.Structure, error)
}

// FileReader reads DICOM files from the local filesystem.
type FileReader struct{}

// NewFileReader creates a new file reader
func NewFileReader() *FileReader {
	return &FileReader{}
}

func parse(path string) (elements, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return elements(ds.Elements), nil
}

// ReadDose parses an RT Dose file.
func (r *FileReader) ReadDose(path string) (*DoseDataset, error) {
	els, err := parse(path)
	if err != nil {
		return nil, err
	}
	d, err := decodeDose(els)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ReadStructures parses an RT Structure Set file.
func (r *FileReader) ReadStructures(path string) ([]dosegrid.Structure, error) {
	els, err := parse(path)
	if err != nil {
		return nil, err
	}
	s, err := decodeStructures(els)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func decodeDose(a attributes) (*DoseDataset, error) {
	var d DoseDataset
	var err error

	if d.Geometry.Modality, err = a.str(tag.Modality); err != nil {
		return nil, err
	}
	pos, err := fixedLen(a, tag.ImagePositionPatient, 3)
	if err != nil {
		return nil, err
	}
	copy(d.Geometry.ImagePosition[:], pos)

	spacing, err := fixedLen(a, tag.PixelSpacing, 2)
	if err != nil {
		return nil, err
	}
	copy(d.Geometry.PixelSpacing[:], spacing)

	orient, err := fixedLen(a, tag.ImageOrientationPatient, 6)
	if err != nil {
		return nil, err
	}
	copy(d.Geometry.Orientation[:], orient)

	if d.Geometry.FrameOffsets, err = a.floats(tag.GridFrameOffsetVector); err != nil {
		return nil, err
	}
	if d.Rows, err = single(a, tag.Rows); err != nil {
		return nil, err
	}
	if d.Columns, err = single(a, tag.Columns); err != nil {
		return nil, err
	}
	d.Geometry.Rows, d.Geometry.Columns = d.Rows, d.Columns

	scaling, err := fixedLen(a, tag.DoseGridScaling, 1)
	if err != nil {
		return nil, err
	}
	d.Scaling = scaling[0]

	// Patient identification is informational only.
	d.PatientID, _ = a.str(tag.PatientID)
	d.PatientName, _ = a.str(tag.PatientName)

	frames, err := a.pixels()
	if err != nil {
		return nil, err
	}
	d.Frames = len(frames)
	if d.Frames != len(d.Geometry.FrameOffsets) {
		return nil, fmt.Errorf("%w: %d pixel frames but %d frame offsets",
			ErrBadAttribute, d.Frames, len(d.Geometry.FrameOffsets))
	}
	d.Pixels = make([]float64, 0, d.Frames*d.Rows*d.Columns)
	for i, fr := range frames {
		if len(fr) != d.Rows*d.Columns {
			return nil, fmt.Errorf("%w: frame %d holds %d pixels, want %d",
				ErrBadAttribute, i, len(fr), d.Rows*d.Columns)
		}
		for _, v := range fr {
			d.Pixels = append(d.Pixels, float64(v))
		}
	}

	if err := d.Geometry.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeStructures(a attributes) ([]dosegrid.Structure, error) {
	rois, err := a.items(tag.StructureSetROISequence)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[int]int, len(rois))
	structures := make([]dosegrid.Structure, 0, len(rois))
	for _, roi := range rois {
		num, err := single(roi, tag.ROINumber)
		if err != nil {
			return nil, err
		}
		name, _ := roi.str(tag.ROIName)
		byNumber[num] = len(structures)
		structures = append(structures, dosegrid.Structure{Name: name, Number: num})
	}

	contourSets, err := a.items(tag.ROIContourSequence)
	if err != nil {
		return nil, err
	}
	for _, set := range contourSets {
		ref, err := single(set, tag.ReferencedROINumber)
		if err != nil {
			return nil, err
		}
		idx, ok := byNumber[ref]
		if !ok {
			return nil, fmt.Errorf("%w: contours reference unknown ROI %d", ErrBadAttribute, ref)
		}
		// An ROI without contours has no ContourSequence.
		contours, err := set.items(tag.ContourSequence)
		if errors.Is(err, ErrMissingAttribute) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, c := range contours {
			data, err := c.floats(tag.ContourData)
			if err != nil {
				return nil, err
			}
			contour, err := contourFromTriplets(data)
			if err != nil {
				return nil, fmt.Errorf("ROI %d: %w", ref, err)
			}
			structures[idx].Contours = append(structures[idx].Contours, contour)
		}
	}
	return structures, nil
}

// contourFromTriplets splits ContourData (x1, y1, z1, x2, ...) into a
// planar contour.
func contourFromTriplets(data []float64) (dosegrid.Contour, error) {
	if len(data) == 0 || len(data)%3 != 0 {
		return dosegrid.Contour{}, fmt.Errorf("%w: %d contour coordinates", ErrBadAttribute, len(data))
	}
	n := len(data) / 3
	c := dosegrid.Contour{
		Z: data[2],
		X: make([]float64, n),
		Y: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c.X[i] = data[3*i]
		c.Y[i] = data[3*i+1]
		if data[3*i+2] != c.Z {
			return dosegrid.Contour{}, fmt.Errorf("%w: contour is not planar", ErrBadAttribute)
		}
	}
	return c, nil
}

func fixedLen(a attributes, t tag.Tag, n int) ([]float64, error) {
	vals, err := a.floats(t)
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, fmt.Errorf("%w: %v has %d values, want %d", ErrBadAttribute, t, len(vals), n)
	}
	return vals, nil
}

func single(a attributes, t tag.Tag) (int, error) {
	vals, err := a.ints(t)
	if err != nil {
		return 0, err
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("%w: %v has %d values, want 1", ErrBadAttribute, t, len(vals))
	}
	return vals[0], nil
}
