package quadrature

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// romberg doubles the number of equally spaced samples until two successive
// Romberg estimates agree. Earlier samples are reused at every level.
func romberg(ctx context.Context, g *guard, a, b float64, opts Options) (Result, error) {
	fail := failure{a: a, b: b, opts: opts}

	x := make([]float64, 1<<minLevel+1)
	floats.Span(x, a, b)
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = g.eval(xi)
	}
	if g.bad {
		return Result{}, fail.err(math.NaN(), math.Inf(1), len(y)-1, g.reason())
	}
	prev := integrate.Romberg(y, (b-a)/float64(len(y)-1))
	bound := math.Inf(1)

	for level := minLevel + 1; level <= opts.MaxLevel; level++ {
		if err := ctx.Err(); err != nil {
			return Result{}, interrupted(err, g.n)
		}

		next := make([]float64, 2*len(y)-1)
		dx := (b - a) / float64(len(next)-1)
		for i := range next {
			if i%2 == 0 {
				next[i] = y[i/2]
			} else {
				next[i] = g.eval(a + float64(i)*dx)
			}
		}
		y = next
		if g.bad {
			return Result{}, fail.err(prev, bound, len(y)-1, g.reason())
		}

		cur := integrate.Romberg(y, dx)
		bound = math.Max(math.Abs(cur-prev), roundoff*math.Abs(cur))
		if bound <= opts.tolerance(cur) {
			return Result{
				Value:        cur,
				ErrorBound:   bound,
				Method:       Romberg,
				Subintervals: len(y) - 1,
				Evaluations:  g.n,
			}, nil
		}
		prev = cur
	}
	return Result{}, fail.err(prev, bound, len(y)-1, "maximum refinement level reached")
}
