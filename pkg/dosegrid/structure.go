package dosegrid

import (
	doseerrors "dosekit/pkg/errors"
)

// Contour is a closed polygon on the slice at height Z.
type Contour struct {
	Z float64
	X []float64
	Y []float64
}

// Structure is a named set of contours, one per slice.
type Structure struct {
	Name     string
	Number   int
	Contours []Contour
}

// DoseWithinStructure returns the dose of every grid sample whose (x, y)
// position lies inside a contour, collected contour by contour and row by
// row. axes must be the fixed-frame axes of grid. Each contour's Z must
// equal a frame coordinate exactly and no slice may carry more than one
// contour.
func DoseWithinStructure(contours []Contour, grid *DoseGrid, axes Axes) ([]float64, error) {
	if err := grid.checkAxes(axes); err != nil {
		return nil, err
	}

	perSlice := make(map[float64]int, len(contours))
	for _, c := range contours {
		perSlice[c.Z]++
	}

	var out []float64
	for i, c := range contours {
		if perSlice[c.Z] > 1 {
			return nil, doseerrors.GeometryMismatch("%d contours on slice z=%g", perSlice[c.Z], c.Z)
		}
		if len(c.X) != len(c.Y) || len(c.X) < 3 {
			return nil, doseerrors.InvalidArgument("contour %d: %d x and %d y vertices", i, len(c.X), len(c.Y))
		}
		frame := -1
		for k, z := range axes.Z {
			if z == c.Z {
				frame = k
				break
			}
		}
		if frame < 0 {
			return nil, doseerrors.GeometryMismatch("no dose frame at contour z=%g", c.Z)
		}

		for r, y := range axes.Y {
			for col, x := range axes.X {
				if insidePolygon(x, y, c.X, c.Y) {
					out = append(out, grid.At(r, col, frame))
				}
			}
		}
	}
	return out, nil
}

// insidePolygon applies the even-odd rule to the closed polygon (px, py).
func insidePolygon(x, y float64, px, py []float64) bool {
	inside := false
	n := len(px)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if (py[i] > y) != (py[j] > y) {
			xc := px[i] + (y-py[i])*(px[j]-px[i])/(py[j]-py[i])
			if x < xc {
				inside = !inside
			}
		}
	}
	return inside
}
