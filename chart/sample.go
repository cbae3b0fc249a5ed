// Package chart draws the integrand and the integration region as a static
// PNG (gonum/plot) or an interactive HTML page (go-echarts).
package chart

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/plotter"

	"mc-integrator/domain"
)

const (
	curvePoints  = 400
	regionPoints = 100
	margin       = 0.5
)

// sample evaluates f at n evenly spaced points of [lo, hi], dropping points
// where f is not finite.
func sample(f domain.Func, lo, hi float64, n int) plotter.XYs {
	xs := floats.Span(make([]float64, n), lo, hi)
	pts := make(plotter.XYs, 0, n)
	for _, x := range xs {
		y := f(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

// yRange is [min(0, min y), max y + 0.1].
func yRange(pts plotter.XYs) (lo, hi float64) {
	if len(pts) == 0 {
		return 0, 1
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}
	return math.Min(0, lo), hi + 0.1
}
