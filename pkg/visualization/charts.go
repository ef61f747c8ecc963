package visualization

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart is one panel of an HTML report
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
}

func (c Chart) line() (*charts.Line, error) {
	if len(c.Series) == 0 {
		return nil, fmt.Errorf("chart %q has no series", c.Title)
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.Title, Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: c.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: c.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: c.YLabel, NameLocation: "middle", NameGap: 40}),
	)
	for _, s := range c.Series {
		if err := s.validate(); err != nil {
			return nil, err
		}
		data := make([]opts.LineData, len(s.X))
		for i := range s.X {
			data[i] = opts.LineData{Value: []interface{}{s.X[i], s.Y[i]}}
		}
		line.AddSeries(s.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line, nil
}

// WriteCurvesHTML renders the series as one interactive line chart
func WriteCurvesHTML(w io.Writer, title, xLabel, yLabel string, series ...Series) error {
	line, err := Chart{Title: title, XLabel: xLabel, YLabel: yLabel, Series: series}.line()
	if err != nil {
		return err
	}
	return line.Render(w)
}

// WriteReportHTML renders every chart onto a single page
func WriteReportHTML(w io.Writer, title string, panels ...Chart) error {
	if len(panels) == 0 {
		return fmt.Errorf("report %q has no charts", title)
	}
	page := components.NewPage()
	page.PageTitle = title
	for _, c := range panels {
		line, err := c.line()
		if err != nil {
			return err
		}
		page.AddCharts(line)
	}
	return page.Render(w)
}
