package chart

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot/plotter"

	"mc-integrator/domain"
	"mc-integrator/report"
)

func lineData(pts plotter.XYs) []opts.LineData {
	items := make([]opts.LineData, 0, len(pts))
	for _, p := range pts {
		items = append(items, opts.LineData{Value: []interface{}{p.X, p.Y}})
	}
	return items
}

// HTML builds an interactive page with the integrand curve, the shaded
// region and mark lines at both bounds. The subtitle carries the estimate
// and the reference.
func HTML(in Integrand, r domain.Report) *components.Page {
	page := components.NewPage().SetPageTitle(in.Title())

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    in.Title(),
			Subtitle: fmt.Sprintf("Monte Carlo %.6f (n=%d)   reference %.6f ± %.2e", r.Estimate, r.Samples, r.Reference, r.ErrorBound),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "f(x)", Type: "value"}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)},
				Restore:     &opts.ToolBoxFeatureRestore{Show: opts.Bool(true)},
			},
		}),
	)

	line.AddSeries("f(x) = "+in.Expr, lineData(sample(in.F, in.A-margin, in.B+margin, curvePoints)),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{Name: "a", XAxis: in.A},
			opts.MarkLineNameXAxisItem{Name: "b", XAxis: in.B},
		),
		charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
			Label:     &opts.Label{Show: opts.Bool(true)},
			LineStyle: &opts.LineStyle{Type: "dashed", Width: 1},
		}),
	)
	line.AddSeries(fmt.Sprintf("Area on [%g, %g]", in.A, in.B), lineData(sample(in.F, in.A, in.B, regionPoints)),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.3)}),
	)

	page.AddCharts(line)
	return page
}

// WriteHTML renders the interactive chart to path.
func WriteHTML(path string, in Integrand, r domain.Report) error {
	var buf bytes.Buffer
	if err := HTML(in, r).Render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return report.WriteFileAtomic(path, buf.Bytes())
}
