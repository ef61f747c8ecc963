package dosegrid

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	doseerrors "dosekit/pkg/errors"
)

// DefaultDVHBins is the histogram resolution used when none is configured.
const DefaultDVHBins = 100

// CumulativeDVH histograms values into bins equal-width bins spanning their
// range and returns the bin midpoints with the percentage of values at or
// above each bin. A (0, 100%) anchor is prepended. Constant input is binned
// over value±0.5.
func CumulativeDVH(values []float64, bins int) (dose, volume []float64, err error) {
	if len(values) == 0 {
		return nil, nil, doseerrors.InvalidArgument("dvh: no dose values")
	}
	if bins < 1 {
		return nil, nil, doseerrors.InvalidArgument("dvh: bin count %d must be positive", bins)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, doseerrors.InvalidArgument("dvh: non-finite dose at index %d", i)
		}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	dividers := append([]float64(nil), edges...)
	// The last bin is closed; histogram bins are half-open.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	dose = make([]float64, bins+1)
	volume = make([]float64, bins+1)
	for i := 0; i < bins; i++ {
		dose[i+1] = (edges[i] + edges[i+1]) / 2
	}

	cum := make([]float64, bins)
	var run float64
	for i := bins - 1; i >= 0; i-- {
		run += counts[i]
		cum[i] = run
	}
	total := cum[0]
	volume[0] = 100
	for i, c := range cum {
		volume[i+1] = c / total * 100
	}
	return dose, volume, nil
}
