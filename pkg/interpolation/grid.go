package interpolation

import (
	"math"
	"sort"

	doseerrors "dosekit/pkg/errors"
)

// Volume is a dense 3-D array addressed by integer indices along each axis.
type Volume interface {
	At(i, j, k int) float64
}

// RegularGrid3D performs trilinear interpolation over a Volume whose sample
// positions are given by three monotonic axes. Axes may be ascending or
// descending; a single-sample axis only admits its exact coordinate.
type RegularGrid3D struct {
	axes [3][]float64
	vol  Volume
}

// NewRegularGrid3D creates a trilinear interpolator over vol.
func NewRegularGrid3D(a0, a1, a2 []float64, vol Volume) (*RegularGrid3D, error) {
	g := &RegularGrid3D{vol: vol}
	for d, a := range [][]float64{a0, a1, a2} {
		if len(a) == 0 {
			return nil, doseerrors.InvalidArgument("grid: axis %d is empty", d)
		}
		if !isMonotonic(a) {
			return nil, doseerrors.InvalidArgument("grid: axis %d is not strictly monotonic", d)
		}
		g.axes[d] = a
	}
	return g, nil
}

// At returns the trilinear interpolation at point p.
func (g *RegularGrid3D) At(p [3]float64) (float64, error) {
	var idx [3]int
	var frac [3]float64
	for d := 0; d < 3; d++ {
		i, t, err := locate(g.axes[d], p[d])
		if err != nil {
			return 0, err
		}
		idx[d], frac[d] = i, t
	}

	var sum float64
	for c := 0; c < 8; c++ {
		w := 1.0
		var off [3]int
		for d := 0; d < 3; d++ {
			if c&(1<<d) != 0 {
				off[d] = 1
				w *= frac[d]
			} else {
				w *= 1 - frac[d]
			}
		}
		if w == 0 {
			continue
		}
		sum += w * g.vol.At(idx[0]+off[0], idx[1]+off[1], idx[2]+off[2])
	}
	return sum, nil
}

// locate returns the lower bracketing index of x on axis and the fractional
// position of x between that sample and the next.
func locate(axis []float64, x float64) (int, float64, error) {
	n := len(axis)
	lo, hi := axis[0], axis[n-1]
	if lo > hi {
		lo, hi = hi, lo
	}
	tol := rangeTolerance * math.Max(1, hi-lo)
	if math.IsNaN(x) || x < lo-tol || x > hi+tol {
		return 0, 0, doseerrors.NewDomainError("grid interpolation", x, lo, hi)
	}
	if n == 1 {
		return 0, 0, nil
	}
	x = math.Max(lo, math.Min(hi, x))

	var i int
	if axis[n-1] > axis[0] {
		i = sort.SearchFloat64s(axis, x)
	} else {
		i = sort.Search(n, func(k int) bool { return axis[k] <= x })
	}
	i--
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	t := (x - axis[i]) / (axis[i+1] - axis[i])
	return i, t, nil
}

func isMonotonic(a []float64) bool {
	if len(a) < 2 {
		return true
	}
	asc := a[1] > a[0]
	for i := 1; i < len(a); i++ {
		if asc && a[i] <= a[i-1] {
			return false
		}
		if !asc && a[i] >= a[i-1] {
			return false
		}
	}
	return true
}
