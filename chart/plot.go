package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"mc-integrator/domain"
	"mc-integrator/report"
)

var (
	curveColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	regionColor = color.NRGBA{R: 128, G: 128, B: 128, A: 77}
	boundColor  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Integrand describes what to draw.
type Integrand struct {
	F    domain.Func
	Expr string
	A, B float64
}

// Title is the plot heading.
func (in Integrand) Title() string {
	return fmt.Sprintf("Integral of f(x)=%s from %g to %g", in.Expr, in.A, in.B)
}

// Plot builds the integrand plot: the curve over [a-0.5, b+0.5], the shaded
// region over [a, b] and dashed verticals at both bounds.
func Plot(in Integrand) (*plot.Plot, error) {
	curve := sample(in.F, in.A-margin, in.B+margin, curvePoints)
	if len(curve) < 2 {
		return nil, errors.New("integrand has fewer than two finite points to draw")
	}

	p := plot.New()
	p.Title.Text = in.Title()
	p.X.Label.Text = "x"
	p.Y.Label.Text = "f(x)"
	p.Add(plotter.NewGrid())

	if region := sample(in.F, in.A, in.B, regionPoints); len(region) >= 2 {
		outline := append(region, plotter.XY{X: region[len(region)-1].X, Y: 0}, plotter.XY{X: region[0].X, Y: 0})
		poly, err := plotter.NewPolygon(outline)
		if err != nil {
			return nil, fmt.Errorf("region: %w", err)
		}
		poly.Color = regionColor
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add(fmt.Sprintf("Area on [%g, %g]", in.A, in.B), poly)
	}

	line, err := plotter.NewLine(curve)
	if err != nil {
		return nil, fmt.Errorf("curve: %w", err)
	}
	line.LineStyle.Color = curveColor
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("f(x) = "+in.Expr, line)

	ylo, yhi := yRange(curve)
	for _, x := range []float64{in.A, in.B} {
		bound, err := plotter.NewLine(plotter.XYs{{X: x, Y: ylo}, {X: x, Y: yhi}})
		if err != nil {
			return nil, fmt.Errorf("bound at %g: %w", x, err)
		}
		bound.LineStyle.Color = boundColor
		bound.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(bound)
	}

	p.Y.Min, p.Y.Max = ylo, yhi
	p.X.Min, p.X.Max = in.A-margin, in.B+margin
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// WritePNG renders the integrand plot at 8x5 inches and writes it to path.
func WritePNG(path string, in Integrand) error {
	p, err := Plot(in)
	if err != nil {
		return err
	}
	return savePNG(path, p, 8*vg.Inch, 5*vg.Inch)
}

func savePNG(path string, p *plot.Plot, w, h vg.Length) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return report.WriteFileAtomic(path, buf.Bytes())
}
