package analysis

import (
	"fmt"

	"dosekit/internal/models"
	"dosekit/pkg/profile"
)

// AnalyzeProfile computes the field metrics of a single profile. The
// profile is resampled at step (when step > 0) and centred before the
// metrics are taken. A failing metric is reported both through the error
// and through the result's Error field; the curve is always filled in.
func AnalyzeProfile(p profile.Profile, plane models.Plane, depth, step float64) (models.ProfileResult, error) {
	res := models.ProfileResult{
		Plane: plane,
		Depth: depth,
		Curve: models.Curve{X: p.Distances(), Y: p.Doses()},
	}
	fail := func(err error) (models.ProfileResult, error) {
		err = fmt.Errorf("%s: %w", res.Label(), err)
		res.Error = err.Error()
		return res, err
	}

	work := p
	if step > 0 {
		r, err := p.Resample(step)
		if err != nil {
			return fail(err)
		}
		work = r
	}

	centred, err := work.Center()
	if err != nil {
		return fail(err)
	}
	if res.Left, res.Right, err = centred.FindEdges(); err != nil {
		return fail(err)
	}
	flatness, err := centred.Flatness()
	if err != nil {
		return fail(err)
	}
	symmetry, err := centred.Symmetry()
	if err != nil {
		return fail(err)
	}
	if res.Wedged, err = centred.IsWedged(); err != nil {
		return fail(err)
	}
	res.Flatness = 100 * flatness
	res.Symmetry = 100 * symmetry
	return res, nil
}
