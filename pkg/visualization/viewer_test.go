package visualization

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dosekit/pkg/dosegrid"
)

// rampGrid builds a grid whose dose rises with the frame index
func rampGrid(t *testing.T, frames, rows, cols int) *dosegrid.DoseGrid {
	t.Helper()
	pixels := make([]float64, 0, frames*rows*cols)
	for f := 0; f < frames; f++ {
		for i := 0; i < rows*cols; i++ {
			pixels = append(pixels, float64(f))
		}
	}
	grid, err := dosegrid.ExtractDose(pixels, frames, rows, cols, 1)
	require.NoError(t, err)
	return grid
}

// TestExtractPlane verifies plane sizes and normalisation to the grid maximum
func TestExtractPlane(t *testing.T) {
	frames, rows, cols := 5, 4, 6
	viewer := NewViewer(rampGrid(t, frames, rows, cols))

	for f := 0; f < frames; f++ {
		img, err := viewer.ExtractPlane("z", f)
		require.NoError(t, err)
		assert.Equal(t, cols, img.Bounds().Dx())
		assert.Equal(t, rows, img.Bounds().Dy())

		want := uint16(float64(f) / float64(frames-1) * 65535)
		assert.InDelta(t, want, img.Gray16At(cols/2, rows/2).Y, 1, "frame %d", f)
	}

	imgX, err := viewer.ExtractPlane("X", 2)
	require.NoError(t, err)
	assert.Equal(t, frames, imgX.Bounds().Dx())
	assert.Equal(t, rows, imgX.Bounds().Dy())
	assert.Equal(t, uint16(65535), imgX.Gray16At(frames-1, 0).Y)

	imgY, err := viewer.ExtractPlane("y", 1)
	require.NoError(t, err)
	assert.Equal(t, cols, imgY.Bounds().Dx())
	assert.Equal(t, frames, imgY.Bounds().Dy())

	_, err = viewer.ExtractPlane("w", 0)
	assert.Error(t, err)
	_, err = viewer.ExtractPlane("z", frames)
	assert.Error(t, err)
	_, err = viewer.ExtractPlane("x", -1)
	assert.Error(t, err)
}

// TestZeroDoseGrid verifies that an all-zero grid renders black without dividing by zero
func TestZeroDoseGrid(t *testing.T) {
	grid, err := dosegrid.ExtractDose(make([]float64, 8), 2, 2, 2, 1)
	require.NoError(t, err)
	img, err := NewViewer(grid).ExtractPlane("z", 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), img.Gray16At(1, 1).Y)
}

// TestSavePlaneSequence verifies that one JPEG is written per plane
func TestSavePlaneSequence(t *testing.T) {
	dir := t.TempDir()
	viewer := NewViewer(rampGrid(t, 3, 4, 5))

	n, err := viewer.SavePlaneSequence("z", dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, name := range []string{"plane_z_000.jpg", "plane_z_001.jpg", "plane_z_002.jpg"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0))
	}

	_, err = viewer.SavePlaneSequence("q", dir)
	assert.Error(t, err)
}

func testSeries() []Series {
	return []Series{
		{Name: "inplane@100", X: []float64{-10, 0, 10}, Y: []float64{5, 100, 5}},
		{Name: "crossplane@100", X: []float64{-10, 0, 10}, Y: []float64{4, 100, 6}},
	}
}

// TestSaveCurvesPNG verifies a plot file is produced and bad series are rejected
func TestSaveCurvesPNG(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping plot rendering in short mode")
	}
	path := filepath.Join(t.TempDir(), "plots", "profiles.png")
	require.NoError(t, SaveCurvesPNG(path, "Profiles", "Distance (mm)", "Dose (Gy)", testSeries()...))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, SaveCurvesPNG(path, "empty", "x", "y"))
	assert.Error(t, SaveCurvesPNG(path, "ragged", "x", "y", Series{Name: "r", X: []float64{1, 2}, Y: []float64{1}}))
}

// TestWriteCurvesHTML verifies the chart page embeds every series
func TestWriteCurvesHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCurvesHTML(&buf, "Profiles", "Distance (mm)", "Dose (Gy)", testSeries()...))
	html := buf.String()
	assert.True(t, strings.Contains(html, "inplane@100"))
	assert.True(t, strings.Contains(html, "crossplane@100"))

	buf.Reset()
	require.NoError(t, WriteReportHTML(&buf, "Run",
		Chart{Title: "Depth dose", Series: testSeries()[:1]},
		Chart{Title: "DVH", Series: testSeries()[1:]},
	))
	assert.Contains(t, buf.String(), "Depth dose")

	assert.Error(t, WriteReportHTML(&buf, "Run"))
	assert.Error(t, WriteCurvesHTML(&buf, "none", "x", "y"))
}
