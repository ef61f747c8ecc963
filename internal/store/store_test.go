package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosekit/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMigrated(filepath.Join(t.TempDir(), "dosekit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(created time.Time, flatness float64) *models.AnalysisRun {
	return &models.AnalysisRun{
		CreatedAt:   created,
		DoseFile:    "rd.dcm",
		PatientID:   "QA",
		PatientName: "Water^Phantom",
		Frame:       "IEC FIXED",
		MaxDose:     2.1,
		Extent: models.GridExtent{
			X: models.Range{Min: -20, Max: 20},
			Y: models.Range{Min: -40, Max: 0},
			Z: models.Range{Min: -20, Max: 20},
		},
		Profiles: []models.ProfileResult{
			{Plane: models.Crossplane, Depth: 100, Left: -10, Right: 10, Flatness: flatness, Symmetry: 0.5},
			{Plane: models.Inplane, Depth: 100, Left: -10.1, Right: 9.9, Flatness: 2, Symmetry: 0.7, Wedged: true},
			{Plane: models.Inplane, Depth: 400, Error: "depth outside grid"},
		},
		DVHs: []models.DVHResult{
			{Structure: "PTV", Voxels: 36, MaxDose: 2.1, MeanDose: 1.9},
			{Structure: "Empty", Error: "structure has no contours"},
		},
	}
}

// TestMigrate verifies that migrations apply once and can be rolled back
func TestMigrate(t *testing.T) {
	s := newTestStore(t)

	version, dirty, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, s.Migrate(), "second migration is a no-op")

	require.NoError(t, s.MigrateDown())
	version, _, err = s.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

// TestSaveAndGetRun verifies a run round-trips through the database
func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC), 1.5)
	require.NoError(t, s.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "QA", got.PatientID)
	assert.Equal(t, "Water^Phantom", got.PatientName)
	assert.Equal(t, "IEC FIXED", got.Frame)
	assert.Equal(t, 2.1, got.MaxDose)
	assert.Equal(t, run.Extent, got.Extent)

	require.Len(t, got.Profiles, 3)
	assert.Equal(t, run.Profiles[1].Label(), got.Profiles[1].Label())
	assert.True(t, got.Profiles[1].Wedged)
	assert.Equal(t, -10.1, got.Profiles[1].Left)
	assert.Equal(t, "depth outside grid", got.Profiles[2].Error)

	require.Len(t, got.DVHs, 2)
	assert.Equal(t, 36, got.DVHs[0].Voxels)
	assert.Equal(t, "structure has no contours", got.DVHs[1].Error)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.Error(t, s.SaveRun(ctx, run), "duplicate run ID")
}

// TestSaveRunDefaults verifies that ID and timestamp are filled in
func TestSaveRunDefaults(t *testing.T) {
	s := newTestStore(t)
	run := &models.AnalysisRun{DoseFile: "rd.dcm", Frame: "FIXED"}
	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.Len(t, run.ID, 36)
	assert.False(t, run.CreatedAt.IsZero())
}

// TestListRunsAndHistory verifies ordering of listed runs and profile history
func TestListRunsAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, flat := range []float64{1.0, 1.2, 1.1} {
		require.NoError(t, s.SaveRun(ctx, sampleRun(base.Add(time.Duration(i)*24*time.Hour), flat)))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt))
	assert.Empty(t, runs[0].Profiles)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	history, err := s.ProfileHistory(ctx, "crossplane@100")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, want := range []float64{1.0, 1.2, 1.1} {
		assert.Equal(t, want, history[i].Profile.Flatness)
		assert.Equal(t, models.Crossplane, history[i].Profile.Plane)
	}
	assert.True(t, history[0].CreatedAt.Before(history[2].CreatedAt))

	none, err := s.ProfileHistory(ctx, "crossplane@999")
	require.NoError(t, err)
	assert.Empty(t, none)
}
