package chart

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"mc-integrator/evaluation"
)

// Convergence plots the estimator's standard deviation against n on log-log
// axes, with a 1/sqrt(n) guide anchored at the first point.
func Convergence(s evaluation.ConvergenceStudy) (*plot.Plot, error) {
	var measured plotter.XYs
	for _, pt := range s.Points {
		if pt.StdDev > 0 && pt.Samples > 0 {
			measured = append(measured, plotter.XY{X: float64(pt.Samples), Y: pt.StdDev})
		}
	}
	if len(measured) < 2 {
		return nil, errors.New("convergence plot needs at least two points with positive spread")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Convergence of %s on [%g, %g]: slope %.3f", s.Integrand, s.A, s.B, s.Slope)
	p.X.Label.Text = "n"
	p.Y.Label.Text = "standard deviation"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	first := measured[0]
	guide := make(plotter.XYs, len(measured))
	for i, m := range measured {
		guide[i] = plotter.XY{X: m.X, Y: first.Y * math.Sqrt(first.X/m.X)}
	}
	guideLine, err := plotter.NewLine(guide)
	if err != nil {
		return nil, err
	}
	guideLine.LineStyle.Color = boundColor
	guideLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	line, points, err := plotter.NewLinePoints(measured)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = curveColor
	line.LineStyle.Width = vg.Points(2)
	points.Shape = draw.CircleGlyph{}
	points.Color = curveColor

	p.Add(guideLine, line, points)
	p.Legend.Add("1/√n", guideLine)
	p.Legend.Add("measured", line, points)
	p.Legend.Top = true
	return p, nil
}

// WriteConvergencePNG renders the convergence plot to path.
func WriteConvergencePNG(path string, s evaluation.ConvergenceStudy) error {
	p, err := Convergence(s)
	if err != nil {
		return err
	}
	return savePNG(path, p, 7*vg.Inch, 5*vg.Inch)
}
