package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosekit/internal/models"
	"dosekit/internal/store"
)

func writeProfileCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("# synthetic 16 mm field\ndistance,dose\n")
	for i := -150; i <= 150; i++ {
		x := float64(i) / 10
		fmt.Fprintf(&b, "%g,%g\n", x, 100/(1+math.Exp((math.Abs(x)-8)/0.5)))
	}
	path := filepath.Join(t.TempDir(), "profile.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestRunProfile(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runProfile([]string{"-csv", writeProfileCSV(t)}, &out))
	assert.Contains(t, out.String(), "imported")
	assert.Contains(t, out.String(), "-8.00")
	assert.Contains(t, out.String(), "false")

	assert.Error(t, runProfile(nil, &out))
	assert.Error(t, runProfile([]string{"-csv", filepath.Join(t.TempDir(), "absent.csv")}, &out))
}

func TestRunProfilePlot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping plot rendering in short mode")
	}
	png := filepath.Join(t.TempDir(), "profile.png")
	var out bytes.Buffer
	require.NoError(t, runProfile([]string{"-csv", writeProfileCSV(t), "-png", png}, &out))
	_, err := os.Stat(png)
	assert.NoError(t, err)
}

func TestRunInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dosekit.yaml")
	var out bytes.Buffer
	require.NoError(t, runInitConfig([]string{path}, &out))
	assert.Contains(t, out.String(), path)

	assert.Error(t, runInitConfig([]string{path}, &out), "refuses to overwrite")
	assert.NoError(t, runInitConfig([]string{"-force", path}, &out))
}

func TestRunAnalyzeRequiresDose(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runAnalyze(context.Background(), nil, &out))
}

func TestRunHistory(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	s, err := store.OpenMigrated(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, &models.AnalysisRun{
		CreatedAt: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		DoseFile:  "rd.dcm",
		PatientID: "QA",
		Frame:     "FIXED",
		Profiles: []models.ProfileResult{
			{Plane: models.Crossplane, Depth: 100, Left: -10, Right: 10, Flatness: 1.25, Symmetry: 0.5},
		},
	}))
	require.NoError(t, s.Close())

	var out bytes.Buffer
	require.NoError(t, runHistory(ctx, []string{"-store", dbPath, "-label", "crossplane@100"}, &out))
	assert.Contains(t, out.String(), "2026-05-04T09:00:00Z")
	assert.Contains(t, out.String(), "1.25")

	out.Reset()
	require.NoError(t, runHistory(ctx, []string{"-store", dbPath}, &out))
	assert.Contains(t, out.String(), "rd.dcm")

	assert.Error(t, runHistory(ctx, []string{"-store", dbPath, "-label", "inplane@5"}, &out))
}

func TestPrintRun(t *testing.T) {
	run := &models.AnalysisRun{
		ID:          "run-1",
		PatientID:   "QA",
		PatientName: "Water^Phantom",
		Frame:       "IEC PATIENT",
		MaxDose:     2.1,
		Extent: models.GridExtent{
			X: models.Range{Min: -20, Max: 20},
			Y: models.Range{Min: -20, Max: 20},
			Z: models.Range{Min: -100, Max: 0},
		},
		Profiles: []models.ProfileResult{
			{Plane: models.Crossplane, Depth: 50, Left: -10, Right: 10, Flatness: 1.5, Symmetry: 0.25},
		},
	}

	var out bytes.Buffer
	printRun(&out, run)
	assert.Contains(t, out.String(), "patient QA (Water^Phantom)")
	assert.Contains(t, out.String(), "Grid IEC PATIENT  x [-20.00, 20.00]  y [-20.00, 20.00]  z [-100.00, 0.00] mm")
	assert.Contains(t, out.String(), "crossplane@50")

	out.Reset()
	run.PatientName = ""
	printRun(&out, run)
	assert.Contains(t, out.String(), "patient QA  max dose")
}
