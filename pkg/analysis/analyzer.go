// Package analysis runs the dose analysis pipeline: it reads an RT Dose
// file, extracts the depth-dose curve and beam profiles, computes field
// metrics and structure DVHs, and hands the run to reporting and storage.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	"dosekit/internal/models"
	"dosekit/pkg/config"
	"dosekit/pkg/dicomio"
	"dosekit/pkg/dosegrid"
	"dosekit/pkg/profile"
)

// RunStore persists finished runs
type RunStore interface {
	SaveRun(ctx context.Context, run *models.AnalysisRun) error
}

// Params holds the analysis parameters
type Params struct {
	// DoseFile is the RT Dose file to analyse
	DoseFile string

	// StructureFile is an optional RT Structure Set; DVHs are skipped when empty
	StructureFile string

	// Frame is the coordinate frame the grid axes are reported in
	Frame dosegrid.Frame

	// DepthAdjust is added to row coordinates to obtain depth in mm
	DepthAdjust float64

	// AveragingHalfWidth is the half-width in mm of the central-axis window
	AveragingHalfWidth float64

	// Depths lists the profile depths in mm
	Depths []float64

	// ResampleStep is the profile resampling step in mm
	ResampleStep float64

	// DVHBins is the number of histogram bins per structure
	DVHBins int

	// NumWorkers bounds the number of structures processed concurrently
	NumWorkers int

	// OutputDir receives reports; nothing is written when it is empty
	OutputDir string

	// SavePNG, SaveHTML and SavePlanes select the reports to write
	SavePNG    bool
	SaveHTML   bool
	SavePlanes bool

	// Reader and Structures decode the input files
	Reader     dicomio.DoseReader
	Structures dicomio.StructureReader

	// Store records the run when set
	Store RunStore
}

// ParamsFromConfig builds analysis parameters from a loaded configuration,
// using the DICOM file reader for both inputs
func ParamsFromConfig(cfg *config.Config, doseFile, structureFile string) (*Params, error) {
	frame, err := dosegrid.ParseFrame(cfg.Analysis.Frame)
	if err != nil {
		return nil, err
	}
	reader := dicomio.NewFileReader()
	return &Params{
		DoseFile:           doseFile,
		StructureFile:      structureFile,
		Frame:              frame,
		DepthAdjust:        cfg.Analysis.DepthAdjust,
		AveragingHalfWidth: cfg.Analysis.AveragingHalfWidth,
		Depths:             append([]float64(nil), cfg.Analysis.Depths...),
		ResampleStep:       cfg.Analysis.ResampleStep,
		DVHBins:            cfg.DVH.Bins,
		NumWorkers:         cfg.Analysis.NumWorkers,
		OutputDir:          cfg.Output.Dir,
		SavePNG:            cfg.Output.PNG,
		SaveHTML:           cfg.Output.HTML,
		SavePlanes:         cfg.Output.Planes,
		Reader:             reader,
		Structures:         reader,
	}, nil
}

// Analyzer runs the analysis of one dose file.
//
// The pipeline consists of these steps:
// 1. Reading the dose file and scaling the pixel data
// 2. Building the grid axes in the fixed and requested frames
// 3. Extracting the central-axis depth-dose curve
// 4. Extracting and measuring inplane and crossplane profiles
// 5. Computing structure DVHs in parallel
// 6. Writing reports
// 7. Storing the run
type Analyzer struct {
	params *Params
	log    zerolog.Logger

	dataset *dicomio.DoseDataset
	grid    *dosegrid.DoseGrid
	fixed   dosegrid.Axes
	beam    dosegrid.BeamAxes

	run *models.AnalysisRun
}

// NewAnalyzer creates a new analyzer with the provided parameters
func NewAnalyzer(params *Params) *Analyzer {
	return &Analyzer{
		params: params,
		log:    log.With().Str("component", "analysis").Str("dose", params.DoseFile).Logger(),
	}
}

// Run returns the result of the last Process call
func (a *Analyzer) Run() *models.AnalysisRun {
	return a.run
}

// Process runs the complete analysis pipeline
func (a *Analyzer) Process(ctx context.Context) (*models.AnalysisRun, error) {
	if a.params.Reader == nil {
		return nil, errors.New("analysis: no dose reader configured")
	}
	a.run = &models.AnalysisRun{
		ID:            uuid.NewString(),
		DoseFile:      a.params.DoseFile,
		StructureFile: a.params.StructureFile,
		Frame:         a.params.Frame.String(),
	}

	a.log.Info().Msg("Step 1: Reading dose grid")
	if err := a.loadDose(); err != nil {
		return nil, fmt.Errorf("failed to load dose: %w", err)
	}

	a.log.Info().Msg("Step 2: Building grid axes")
	if err := a.buildAxes(); err != nil {
		return nil, fmt.Errorf("failed to build axes: %w", err)
	}

	a.log.Info().Msg("Step 3: Extracting depth dose")
	depth, dose, err := dosegrid.DepthDose(a.grid, a.beam, a.params.AveragingHalfWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to extract depth dose: %w", err)
	}
	a.run.DepthDose = models.Curve{X: depth, Y: dose}

	a.log.Info().Int("depths", len(a.params.Depths)).Msg("Step 4: Measuring profiles")
	a.measureProfiles()

	if a.params.StructureFile != "" {
		a.log.Info().Str("structures", a.params.StructureFile).Msg("Step 5: Computing structure DVHs")
		if err := a.computeDVHs(ctx); err != nil {
			return nil, fmt.Errorf("failed to compute DVHs: %w", err)
		}
	}

	a.run.CreatedAt = time.Now().UTC()

	if a.params.OutputDir != "" {
		a.log.Info().Str("dir", a.params.OutputDir).Msg("Step 6: Writing reports")
		if err := a.writeReports(); err != nil {
			return nil, fmt.Errorf("failed to write reports: %w", err)
		}
	}

	if a.params.Store != nil {
		a.log.Info().Str("run", a.run.ID).Msg("Step 7: Storing run")
		if err := a.params.Store.SaveRun(ctx, a.run); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
	}

	return a.run, nil
}

func (a *Analyzer) loadDose() error {
	ds, err := a.params.Reader.ReadDose(a.params.DoseFile)
	if err != nil {
		return err
	}
	grid, err := ds.DoseGrid()
	if err != nil {
		return err
	}
	a.dataset, a.grid = ds, grid
	a.run.PatientID = ds.PatientID
	a.run.PatientName = ds.PatientName
	a.run.MaxDose = grid.Max()

	a.log.Info().
		Int("frames", grid.Frames).
		Int("rows", grid.Rows).
		Int("columns", grid.Columns).
		Float64("max_dose", a.run.MaxDose).
		Msg("Loaded dose grid")
	return nil
}

func (a *Analyzer) buildAxes() error {
	fixed, err := dosegrid.AxesFromGeometry(a.dataset.Geometry, dosegrid.FrameFixed)
	if err != nil {
		return err
	}
	// Beam data is always taken in the fixed frame; the requested frame
	// only sets the reported extent.
	reported := fixed
	if a.params.Frame != dosegrid.FrameFixed {
		reported, err = dosegrid.AxesFromGeometry(a.dataset.Geometry, a.params.Frame)
		if err != nil {
			return err
		}
	}
	a.fixed = fixed
	a.beam = fixed.Beam(a.params.DepthAdjust)
	a.run.Extent = models.GridExtent{
		X: axisRange(reported.X),
		Y: axisRange(reported.Y),
		Z: axisRange(reported.Z),
	}

	a.log.Debug().
		Str("frame", a.run.Frame).
		Floats64("x", []float64{a.run.Extent.X.Min, a.run.Extent.X.Max}).
		Floats64("y", []float64{a.run.Extent.Y.Min, a.run.Extent.Y.Max}).
		Floats64("z", []float64{a.run.Extent.Z.Min, a.run.Extent.Z.Max}).
		Msg("Built grid axes")
	return nil
}

func axisRange(axis []float64) models.Range {
	if len(axis) == 0 {
		return models.Range{}
	}
	return models.Range{Min: floats.Min(axis), Max: floats.Max(axis)}
}

func (a *Analyzer) measureProfiles() {
	for _, depth := range a.params.Depths {
		profiles, err := dosegrid.ProfilesAtDepth(a.grid, a.beam, depth, a.params.AveragingHalfWidth)
		if err != nil {
			a.log.Warn().Err(err).Float64("depth", depth).Msg("Skipping depth")
			for _, plane := range []models.Plane{models.Inplane, models.Crossplane} {
				a.run.Profiles = append(a.run.Profiles, models.ProfileResult{
					Plane: plane,
					Depth: depth,
					Error: err.Error(),
				})
			}
			continue
		}

		inplane, errIn := profiles.InplaneProfile()
		crossplane, errCross := profiles.CrossplaneProfile()
		a.addProfile(models.Inplane, depth, inplane, errIn)
		a.addProfile(models.Crossplane, depth, crossplane, errCross)
	}
}

func (a *Analyzer) addProfile(plane models.Plane, depth float64, p profile.Profile, buildErr error) {
	if buildErr != nil {
		res := models.ProfileResult{Plane: plane, Depth: depth, Error: buildErr.Error()}
		a.log.Warn().Err(buildErr).Str("profile", res.Label()).Msg("Profile unusable")
		a.run.Profiles = append(a.run.Profiles, res)
		return
	}
	res, err := AnalyzeProfile(p, plane, depth, a.params.ResampleStep)
	if err != nil {
		a.log.Warn().Err(err).Str("profile", res.Label()).Msg("Profile metrics incomplete")
	} else {
		a.log.Debug().
			Str("profile", res.Label()).
			Float64("left", res.Left).
			Float64("right", res.Right).
			Float64("flatness", res.Flatness).
			Float64("symmetry", res.Symmetry).
			Bool("wedged", res.Wedged).
			Msg("Profile measured")
	}
	a.run.Profiles = append(a.run.Profiles, res)
}

func (a *Analyzer) ensureOutputDir() error {
	if err := os.MkdirAll(a.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func (a *Analyzer) outputPath(name string) string {
	return filepath.Join(a.params.OutputDir, name)
}
