package analysis

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dosekit/internal/models"
	"dosekit/pkg/dosegrid"
)

// computeDVHs reads the structure set and builds one DVH per structure on a
// pool of NumWorkers goroutines. Each job writes only its own result slot.
func (a *Analyzer) computeDVHs(ctx context.Context) error {
	if a.params.Structures == nil {
		return fmt.Errorf("no structure reader configured")
	}
	structures, err := a.params.Structures.ReadStructures(a.params.StructureFile)
	if err != nil {
		return err
	}

	numWorkers := a.params.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(structures) {
		numWorkers = len(structures)
	}

	results := make([]models.DVHResult, len(structures))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = structureDVH(structures[i], a.grid, a.fixed, a.params.DVHBins)
			}
		}()
	}

	var cancelled error
	for i := range structures {
		if cancelled = ctx.Err(); cancelled != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if cancelled != nil {
		return cancelled
	}

	for _, r := range results {
		if r.Error != "" {
			a.log.Warn().Str("structure", r.Structure).Str("error", r.Error).Msg("DVH unavailable")
			continue
		}
		a.log.Debug().
			Str("structure", r.Structure).
			Int("voxels", r.Voxels).
			Float64("max_dose", r.MaxDose).
			Float64("mean_dose", r.MeanDose).
			Msg("DVH computed")
	}
	a.run.DVHs = results
	return nil
}

// structureDVH computes the cumulative DVH of one structure. Failures are
// recorded on the result.
func structureDVH(s dosegrid.Structure, grid *dosegrid.DoseGrid, axes dosegrid.Axes, bins int) models.DVHResult {
	res := models.DVHResult{Structure: s.Name}
	if len(s.Contours) == 0 {
		res.Error = "structure has no contours"
		return res
	}
	values, err := dosegrid.DoseWithinStructure(s.Contours, grid, axes)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if len(values) == 0 {
		res.Error = "no dose samples inside structure"
		return res
	}
	dose, volume, err := dosegrid.CumulativeDVH(values, bins)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Voxels = len(values)
	res.MaxDose = floats.Max(values)
	res.MeanDose = stat.Mean(values, nil)
	res.Curve = models.Curve{X: dose, Y: volume}
	return res
}
