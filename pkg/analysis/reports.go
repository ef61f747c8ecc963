package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"dosekit/internal/models"
	"dosekit/pkg/visualization"
)

// writeReports renders the PNG plots, the HTML page and the dose planes
// selected in the parameters
func (a *Analyzer) writeReports() error {
	if err := a.ensureOutputDir(); err != nil {
		return err
	}
	charts := ReportCharts(a.run)

	if a.params.SavePNG {
		for i, c := range charts {
			name := fmt.Sprintf("%02d_%s.png", i+1, slug(c.Title))
			if err := visualization.SaveCurvesPNG(a.outputPath(name), c.Title, c.XLabel, c.YLabel, c.Series...); err != nil {
				return err
			}
		}
	}

	if a.params.SaveHTML {
		title := fmt.Sprintf("Dose analysis %s", filepath.Base(a.run.DoseFile))
		if err := writeHTMLReport(a.outputPath("report.html"), title, charts); err != nil {
			return err
		}
	}

	if a.params.SavePlanes {
		n, err := visualization.NewViewer(a.grid).SavePlaneSequence("z", a.outputPath("planes"))
		if err != nil {
			return fmt.Errorf("failed to save dose planes: %w", err)
		}
		a.log.Info().Int("planes", n).Msg("Saved dose planes")
	}
	return nil
}

// writeHTMLReport renders charts to a page at path. A failed close is
// reported since it can lose buffered output.
func writeHTMLReport(path, title string, charts []visualization.Chart) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report: %w", cerr)
		}
	}()
	if err := visualization.WriteReportHTML(file, title, charts...); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// ReportCharts groups the curves of a run into report panels: the depth
// dose, one panel per profile depth and the DVHs. Curves whose metrics
// failed are still drawn when they were sampled.
func ReportCharts(run *models.AnalysisRun) []visualization.Chart {
	var charts []visualization.Chart
	if len(run.DepthDose.X) > 0 {
		charts = append(charts, visualization.Chart{
			Title:  "Depth dose",
			XLabel: "Depth (mm)",
			YLabel: "Dose (Gy)",
			Series: []visualization.Series{{Name: "central axis", X: run.DepthDose.X, Y: run.DepthDose.Y}},
		})
	}

	byDepth := make(map[float64]int)
	for _, p := range run.Profiles {
		if len(p.Curve.X) == 0 {
			continue
		}
		idx, ok := byDepth[p.Depth]
		if !ok {
			idx = len(charts)
			byDepth[p.Depth] = idx
			charts = append(charts, visualization.Chart{
				Title:  fmt.Sprintf("Profiles at %g mm", p.Depth),
				XLabel: "Distance (mm)",
				YLabel: "Dose (Gy)",
			})
		}
		charts[idx].Series = append(charts[idx].Series, visualization.Series{
			Name: string(p.Plane), X: p.Curve.X, Y: p.Curve.Y,
		})
	}

	dvh := visualization.Chart{Title: "Cumulative DVH", XLabel: "Dose (Gy)", YLabel: "Volume (%)"}
	for _, d := range run.DVHs {
		if len(d.Curve.X) == 0 {
			continue
		}
		dvh.Series = append(dvh.Series, visualization.Series{Name: d.Structure, X: d.Curve.X, Y: d.Curve.Y})
	}
	if len(dvh.Series) > 0 {
		charts = append(charts, dvh)
	}
	return charts
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		default:
			if len(out) > 0 && out[len(out)-1] != '_' {
				out = append(out, '_')
			}
		}
	}
	return string(out)
}
