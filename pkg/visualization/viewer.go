// Package visualization renders dose grids and dose curves: JPEG dumps of
// dose planes, PNG line plots and an interactive HTML review page.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strings"

	"dosekit/pkg/dosegrid"
)

// Viewer extracts grey-scale planes from a dose grid. Intensities are
// normalised to the grid maximum.
type Viewer struct {
	grid *dosegrid.DoseGrid

	// scale converts dose to a 16-bit intensity
	scale float64
}

// NewViewer creates a viewer over grid
func NewViewer(grid *dosegrid.DoseGrid) *Viewer {
	scale := 0.0
	if m := grid.Max(); m > 0 {
		scale = 65535 / m
	}
	return &Viewer{grid: grid, scale: scale}
}

func (v *Viewer) intensity(row, col, frame int) color.Gray16 {
	value := math.Max(0, math.Min(65535, v.grid.At(row, col, frame)*v.scale))
	return color.Gray16{Y: uint16(math.Round(value))}
}

// planeCount returns how many planes lie along axis. Axis "x" runs across
// columns, "y" across rows and "z" across frames.
func (v *Viewer) planeCount(axis string) (int, error) {
	switch strings.ToLower(axis) {
	case "x":
		return v.grid.Columns, nil
	case "y":
		return v.grid.Rows, nil
	case "z":
		return v.grid.Frames, nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// ExtractPlane extracts the plane at index along axis
func (v *Viewer) ExtractPlane(axis string, index int) (*image.Gray16, error) {
	n, err := v.planeCount(axis)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("plane %d outside 0..%d along %s", index, n-1, axis)
	}

	g := v.grid
	var img *image.Gray16
	switch strings.ToLower(axis) {
	case "x":
		// frames across, rows down
		img = image.NewGray16(image.Rect(0, 0, g.Frames, g.Rows))
		for r := 0; r < g.Rows; r++ {
			for f := 0; f < g.Frames; f++ {
				img.SetGray16(f, r, v.intensity(r, index, f))
			}
		}
	case "y":
		// columns across, frames down
		img = image.NewGray16(image.Rect(0, 0, g.Columns, g.Frames))
		for f := 0; f < g.Frames; f++ {
			for c := 0; c < g.Columns; c++ {
				img.SetGray16(c, f, v.intensity(index, c, f))
			}
		}
	default:
		img = image.NewGray16(image.Rect(0, 0, g.Columns, g.Rows))
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Columns; c++ {
				img.SetGray16(c, r, v.intensity(r, c, index))
			}
		}
	}
	return img, nil
}

// SavePlane saves an extracted plane as a JPEG image
func SavePlane(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SavePlaneSequence saves every plane along axis to outputDir and returns
// the number of files written
func (v *Viewer) SavePlaneSequence(axis string, outputDir string) (int, error) {
	n, err := v.planeCount(axis)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	for i := 0; i < n; i++ {
		img, err := v.ExtractPlane(axis, i)
		if err != nil {
			return i, err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("plane_%s_%03d.jpg", strings.ToLower(axis), i))
		if err := SavePlane(img, filename); err != nil {
			return i, err
		}
	}
	return n, nil
}
