package profile

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doseerrors "dosekit/pkg/errors"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// fieldProfile builds a smooth flat-topped beam profile sampled every 0.1 mm
// from -15 to 15. Edges sit at centre±halfWidth; tilt adds a linear slope
// across the field in dose per mm.
func fieldProfile(t *testing.T, centre, halfWidth, penumbra, tilt float64) Profile {
	t.Helper()
	grid, err := MakeDistanceGrid(-15, 15, 0.1)
	require.NoError(t, err)
	p, err := FromFunc(grid, func(x float64) float64 {
		shape := 1 / (1 + math.Exp((math.Abs(x-centre)-halfWidth)/penumbra))
		return 100 * shape * (1 + tilt*(x-centre))
	})
	require.NoError(t, err)
	return p
}

func TestMakeDistanceGrid(t *testing.T) {
	got, err := MakeDistanceGrid(0, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)

	got, err = MakeDistanceGrid(0, 1.1, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 12)
	assert.Equal(t, 0.3, got[3])
	assert.Equal(t, 1.1, got[11])

	// A range that is not a whole number of steps overshoots stop.
	got, err = MakeDistanceGrid(0, 1, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.3, 0.6, 0.9, 1.2}, got)

	tests := []struct {
		name              string
		start, stop, step float64
	}{
		{"ZeroStep", 0, 10, 0},
		{"NegativeStep", 0, 10, -1},
		{"Reversed", 10, 0, 1},
		{"NaN", math.NaN(), 1, 0.1},
		{"Inf", 0, math.Inf(1), 0.1},
		{"TooManyPoints", 0, 1e308, 1e-10},
		{"SpanOverflows", -1e308, 1e308, 1},
		{"JustOverLimit", 0, MaxGridPoints, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MakeDistanceGrid(tt.start, tt.stop, tt.step)
			assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New([]float64{2, 0, 1}, []float64{20, 0, 10})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, p.Distances())
	assert.Equal(t, []float64{0, 10, 20}, p.Doses())

	_, err = New([]float64{0, 1, 1}, []float64{0, 1, 2})
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument, "duplicate distances")

	_, err = New([]float64{0}, []float64{0})
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument, "single sample")

	_, err = New([]float64{0, 1}, []float64{0})
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument, "length mismatch")

	_, err = New([]float64{0, math.NaN()}, []float64{0, 1})
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument, "NaN distance")
}

func TestIsEvenSpaced(t *testing.T) {
	p := fieldProfile(t, 0, 5, 0.5, 0)
	assert.True(t, p.IsEvenSpaced())

	dist := p.Distances()
	dist[10] += 1e-3
	perturbed, err := New(dist, p.Doses())
	require.NoError(t, err)
	assert.False(t, perturbed.IsEvenSpaced())
}

func TestResampleIsIdempotent(t *testing.T) {
	p := MustNew(
		[]float64{0, 0.7, 1.9, 3.3, 5, 7.2, 10},
		[]float64{1, 4, 9, 7, 3, 2, 0},
	)
	once, err := p.Resample(0.5)
	require.NoError(t, err)
	assert.Equal(t, 21, once.Len())
	assert.True(t, once.IsEvenSpaced())

	twice, err := once.Resample(0.5)
	require.NoError(t, err)
	if diff := cmp.Diff(once.Distances(), twice.Distances(), approx); diff != "" {
		t.Errorf("distances changed (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(once.Doses(), twice.Doses(), approx); diff != "" {
		t.Errorf("doses changed (-once +twice):\n%s", diff)
	}
}

func TestResampleHugeExtent(t *testing.T) {
	p := MustNew([]float64{-1e300, 1e300}, []float64{0, 1})
	_, err := p.Resample(0.1)
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument)

	_, _, err = p.FindEdges()
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument)
}

func TestResampleRange(t *testing.T) {
	p := MustNew([]float64{0, 1}, []float64{0, 10})

	r, err := p.ResampleRange(math.Inf(-1), math.Inf(1), 0.25)
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{0, 2.5, 5, 7.5, 10}, r.Doses(), approx); diff != "" {
		t.Errorf("doses mismatch (-want +got):\n%s", diff)
	}

	// 0.3 does not divide the extent; the last grid point lies beyond it.
	_, err = p.ResampleRange(math.Inf(-1), math.Inf(1), 0.3)
	var de *doseerrors.DomainError
	require.True(t, errors.As(err, &de), "want DomainError, got %v", err)
	assert.InDelta(t, 1.2, de.Value, 1e-12)

	filled, err := p.ResampleFill(math.Inf(-1), math.Inf(1), 0.3, -1)
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{0, 3, 6, 9, -1}, filled.Doses(), approx); diff != "" {
		t.Errorf("filled doses mismatch (-want +got):\n%s", diff)
	}

	_, err = p.ResampleRange(2, 3, 0.1)
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument, "range outside extent")
}

func TestFindDose(t *testing.T) {
	p := MustNew([]float64{-1, 0, 1}, []float64{0, 50, 100})

	d, err := p.FindDose(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 75, d, 1e-12)

	_, err = p.FindDose(1.5)
	assert.ErrorIs(t, err, doseerrors.ErrDomain)
}

func TestFindDists(t *testing.T) {
	ramp, err := MakeDistanceGrid(0, 10, 1)
	require.NoError(t, err)
	p, err := FromFunc(ramp, func(x float64) float64 { return 10 * x })
	require.NoError(t, err)

	assert.Equal(t, []float64{5.0}, p.FindDists(50))
	assert.Equal(t, []float64{0.0}, p.FindDists(0), "crossing at distance zero is kept")
	if diff := cmp.Diff([]float64{2.5}, p.FindDists(25), approx); diff != "" {
		t.Errorf("interpolated crossing (-want +got):\n%s", diff)
	}
	assert.Empty(t, p.FindDists(150))

	field := fieldProfile(t, 0, 5, 0.5, 0)
	half := field.FindDists(50)
	require.Len(t, half, 2)
	assert.InDelta(t, -5, half[0], 1e-9)
	assert.InDelta(t, 5, half[1], 1e-9)
}

func TestNormalizeDose(t *testing.T) {
	p := fieldProfile(t, 0.3, 5, 0.5, 0.01)
	n, err := p.NormalizeDose(0, 100)
	require.NoError(t, err)

	d, err := n.FindDose(0)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, d, 1e-9)

	_, err = p.NormalizeDose(20, 100)
	assert.ErrorIs(t, err, doseerrors.ErrDomain)

	zero := MustNew([]float64{0, 1}, []float64{0, 1})
	_, err = zero.NormalizeDose(0, 100)
	assert.ErrorIs(t, err, doseerrors.ErrDomain)
}

func TestFindEdges(t *testing.T) {
	p := fieldProfile(t, 0, 5, 0.5, 0)
	left, right, err := p.FindEdges()
	require.NoError(t, err)
	assert.InDelta(t, -5, left, 1e-9)
	assert.InDelta(t, 5, right, 1e-9)
}

func TestCenterThenFindEdges(t *testing.T) {
	p := fieldProfile(t, 1.23, 5, 0.5, 0)
	c, err := p.Center()
	require.NoError(t, err)

	left, right, err := c.FindEdges()
	require.NoError(t, err)
	assert.InDelta(t, -left, right, 2*DefaultStep)
	assert.InDelta(t, 0, (left+right)/2, DefaultStep)
}

func TestFlatnessAndSymmetry(t *testing.T) {
	p := fieldProfile(t, 0, 5, 0.2, 0)

	umbra, err := p.FindUmbra()
	require.NoError(t, err)
	assert.InDelta(t, -4, umbra.Min(), 1e-9)
	assert.InDelta(t, 4, umbra.Max(), 1e-9)

	flat, err := p.Flatness()
	require.NoError(t, err)
	assert.Greater(t, flat, 0.0)
	assert.Less(t, flat, 0.01)

	sym, err := p.Symmetry()
	require.NoError(t, err)
	assert.InDelta(t, 0, sym, 1e-9)

	wedged, err := p.IsWedged()
	require.NoError(t, err)
	assert.False(t, wedged)

	tilted := fieldProfile(t, 0, 5, 0.2, 0.1)
	sym, err = tilted.Symmetry()
	require.NoError(t, err)
	assert.Greater(t, sym, 0.1)

	wedged, err = tilted.IsWedged()
	require.NoError(t, err)
	assert.True(t, wedged)
}

func TestNormalizeDistance(t *testing.T) {
	p := fieldProfile(t, 0, 5, 0.2, 0)
	n, err := p.NormalizeDistance()
	require.NoError(t, err)

	assert.InDelta(t, -3, n.Min(), 1e-9)
	assert.InDelta(t, 3, n.Max(), 1e-9)
	assert.Equal(t, p.Doses(), n.Doses())

	// The edges land on -1 and +1 with the dose of the original edge samples.
	edge, err := n.FindDose(1)
	require.NoError(t, err)
	orig, err := p.FindDose(5)
	require.NoError(t, err)
	assert.InDelta(t, orig, edge, 1e-9)
}

func TestAlignRecoversShift(t *testing.T) {
	fixed, err := Pulse(0, 10, -20, 20, 0.5)
	require.NoError(t, err)
	moving := fixed.Shift(2)

	off, err := Align(moving, fixed, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, -2, off, 1e-9)
}

func TestAlignWithoutOverlap(t *testing.T) {
	a := MustNew([]float64{0, 1}, []float64{1, 1})
	b := MustNew([]float64{5, 6}, []float64{1, 1})
	_, err := Align(a, b, 0.1)
	assert.ErrorIs(t, err, doseerrors.ErrDomain)
}

func TestSymmetrize(t *testing.T) {
	p := MustNew([]float64{-2, 3}, []float64{8, 13})
	s, err := p.Symmetrize(0.5)
	require.NoError(t, err)

	assert.InDelta(t, -2, s.Min(), 1e-12)
	assert.InDelta(t, 2, s.Max(), 1e-12)
	for i, d := range s.Doses() {
		assert.InDelta(t, 10, d, 1e-9, "sample %d", i)
	}

	// An extent with more decimals than the step keeps mirror pairs exact.
	ramp := MustNew([]float64{-2.05, 3}, []float64{8, 13})
	s, err = ramp.Symmetrize(0.1)
	require.NoError(t, err)
	dist := s.Distances()
	require.Len(t, dist, 41)
	for i := range dist {
		assert.Equal(t, -dist[len(dist)-1-i], dist[i], "sample %d", i)
	}
	want := 8 + 2.05*5/5.05
	for i, d := range s.Doses() {
		assert.InDelta(t, want, d, 1e-9, "sample %d", i)
	}

	_, err = MustNew([]float64{1, 2}, []float64{1, 1}).Symmetrize(0.1)
	assert.ErrorIs(t, err, doseerrors.ErrDomain)
}

func TestSlice(t *testing.T) {
	p := MustNew([]float64{0, 1, 2, 3}, []float64{0, 1, 2, 3})
	s, err := p.Slice(0.5, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, s.Distances())

	_, err = p.Slice(0.5, 1.5)
	assert.ErrorIs(t, err, doseerrors.ErrDomain)
}

func TestReadCSV(t *testing.T) {
	in := "distance,dose\n# exported profile\n1, 100\n-1,0\n0, 50\n"
	p, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 0, 1}, p.Distances())

	d, err := p.FindDose(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 75, d, 1e-12)

	_, err = ReadCSV(strings.NewReader("0,1\nx,2\n"))
	assert.ErrorIs(t, err, doseerrors.ErrInvalidArgument)
}
