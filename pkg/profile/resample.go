package profile

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"

	doseerrors "dosekit/pkg/errors"
)

// MaxGridPoints bounds the length of any distance grid.
const MaxGridPoints = 1 << 24

// MakeDistanceGrid returns the inclusive grid start, start+step, ... holding
// ceil((stop-start)/step)+1 values. Values are rounded to the number of
// decimal places in step, so the last value may exceed stop by less than
// one step. Grids longer than MaxGridPoints are rejected.
func MakeDistanceGrid(start, stop, step float64) ([]float64, error) {
	if !isFinite(start) || !isFinite(stop) || !isFinite(step) {
		return nil, doseerrors.InvalidArgument("distance grid: non-finite parameter (%g, %g, %g)", start, stop, step)
	}
	if step <= 0 {
		return nil, doseerrors.InvalidArgument("distance grid: step %g must be positive", step)
	}
	if stop < start {
		return nil, doseerrors.InvalidArgument("distance grid: stop %g before start %g", stop, start)
	}

	// Round the ratio first so 1.1/0.1 = 11.000000000000002 yields 12 points, not 13.
	intervals := math.Ceil(scalar.RoundEven((stop-start)/step, 9))
	if !isFinite(intervals) || intervals >= MaxGridPoints {
		return nil, doseerrors.InvalidArgument("distance grid: [%g, %g] at step %g exceeds %d points",
			start, stop, step, MaxGridPoints)
	}
	n := int(intervals) + 1
	prec := decimals(step)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = scalar.RoundEven(start+step*float64(i), prec)
	}
	return vals, nil
}

// decimals returns the number of fractional digits in the shortest decimal
// representation of v.
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// alignedGrid returns the largest grid of multiples of step that fits inside
// [min, max].
func alignedGrid(min, max, step float64) ([]float64, error) {
	start := math.Ceil(scalar.RoundEven(min/step, 9)) * step
	stop := math.Floor(scalar.RoundEven(max/step, 9)) * step
	if stop < start {
		return nil, doseerrors.InvalidArgument("resample: step %g exceeds extent [%g, %g]", step, min, max)
	}
	return MakeDistanceGrid(start, stop, step)
}

// Resample returns the profile linearly interpolated on every multiple of
// step inside its extent. Resampling the result again with the same step
// reproduces it.
func (p Profile) Resample(step float64) (Profile, error) {
	if !(step > 0) || !isFinite(step) {
		return Profile{}, doseerrors.InvalidArgument("resample: step %g must be positive", step)
	}
	grid, err := alignedGrid(p.Min(), p.Max(), step)
	if err != nil {
		return Profile{}, err
	}
	return p.sampleOn(grid)
}

// ResampleRange returns the profile linearly interpolated on the distance
// grid from start to stop at step. start and stop are clamped to the
// profile's extent; pass math.Inf to use the extent itself. A grid point
// beyond the extent, which happens when the extent is not a whole number of
// steps, is reported as a DomainError.
func (p Profile) ResampleRange(start, stop, step float64) (Profile, error) {
	grid, err := p.clampedGrid(start, stop, step)
	if err != nil {
		return Profile{}, err
	}
	return p.sampleOn(grid)
}

// ResampleFill is ResampleRange with grid points beyond the extent given the
// dose fill rather than failing.
func (p Profile) ResampleFill(start, stop, step, fill float64) (Profile, error) {
	grid, err := p.clampedGrid(start, stop, step)
	if err != nil {
		return Profile{}, err
	}
	l, err := p.interpolant()
	if err != nil {
		return Profile{}, err
	}
	dose := make([]float64, len(grid))
	for i, x := range grid {
		dose[i] = l.AtOr(x, fill)
	}
	return New(grid, dose)
}

func (p Profile) clampedGrid(start, stop, step float64) ([]float64, error) {
	if math.IsNaN(start) || math.IsNaN(stop) {
		return nil, doseerrors.InvalidArgument("resample: NaN range")
	}
	start = math.Max(start, p.Min())
	stop = math.Min(stop, p.Max())
	if stop <= start {
		return nil, doseerrors.InvalidArgument("resample: empty range [%g, %g]", start, stop)
	}
	return MakeDistanceGrid(start, stop, step)
}

func (p Profile) sampleOn(grid []float64) (Profile, error) {
	l, err := p.interpolant()
	if err != nil {
		return Profile{}, err
	}
	dose, err := l.Sample(grid)
	if err != nil {
		return Profile{}, err
	}
	return New(grid, dose)
}

// FindDists returns every distance at which the profile takes the value
// dose, in ascending order. Crossings between samples are found by linear
// interpolation; samples equal to dose are returned as-is.
func (p Profile) FindDists(dose float64) []float64 {
	var out []float64
	for i := range p.dist {
		if p.dose[i] == dose {
			out = append(out, p.dist[i])
			continue
		}
		if i == 0 {
			continue
		}
		d0, d1 := p.dose[i-1], p.dose[i]
		if (d1-dose)*(d0-dose) < 0 {
			x := p.dist[i] - ((d1-dose)/(d1-d0))*(p.dist[i]-p.dist[i-1])
			out = append(out, x)
		}
	}

	sort.Float64s(out)
	uniq := out[:0]
	for _, x := range out {
		if len(uniq) == 0 || x != uniq[len(uniq)-1] {
			uniq = append(uniq, x)
		}
	}
	return uniq
}
