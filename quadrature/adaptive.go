package quadrature

import (
	"container/heap"
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"
)

// panel is one subinterval with its 21-point value and error estimate.
type panel struct {
	lo, hi     float64
	value, err float64
}

// panels is a max-heap on err.
type panels []panel

func (p panels) Len() int           { return len(p) }
func (p panels) Less(i, j int) bool { return p[i].err > p[j].err }
func (p panels) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func (p *panels) Push(x any) { *p = append(*p, x.(panel)) }

func (p *panels) Pop() any {
	old := *p
	last := old[len(old)-1]
	*p = old[:len(old)-1]
	return last
}

func (p panels) totals() (value, err float64) {
	values := make([]float64, len(p))
	errs := make([]float64, len(p))
	for i, pn := range p {
		values[i], errs[i] = pn.value, pn.err
	}
	return floats.SumCompensated(values), floats.SumCompensated(errs)
}

func integratePanel(g *guard, lo, hi float64) panel {
	g21 := quad.Fixed(g.eval, lo, hi, 21, quad.Legendre{}, 0)
	g10 := quad.Fixed(g.eval, lo, hi, 10, quad.Legendre{}, 0)
	return panel{
		lo:    lo,
		hi:    hi,
		value: g21,
		err:   math.Max(math.Abs(g21-g10), roundoff*math.Abs(g21)),
	}
}

// adaptive bisects the worst panel until the summed error is within tolerance.
func adaptive(ctx context.Context, g *guard, a, b float64, opts Options) (Result, error) {
	fail := failure{a: a, b: b, opts: opts}
	h := panels{integratePanel(g, a, b)}
	for {
		value, bound := h.totals()
		if g.bad {
			return Result{}, fail.err(value, bound, len(h), g.reason())
		}
		if bound <= opts.tolerance(value) {
			return Result{
				Value:        value,
				ErrorBound:   bound,
				Method:       GaussLegendre,
				Subintervals: len(h),
				Evaluations:  g.n,
			}, nil
		}
		if len(h) >= opts.Limit {
			return Result{}, fail.err(value, bound, len(h), "subinterval limit reached")
		}
		if err := ctx.Err(); err != nil {
			return Result{}, interrupted(err, g.n)
		}

		worst := heap.Pop(&h).(panel)
		mid := worst.lo + (worst.hi-worst.lo)/2
		if mid <= worst.lo || mid >= worst.hi {
			heap.Push(&h, worst)
			return Result{}, fail.err(value, bound, len(h), "roundoff prevents further bisection")
		}
		heap.Push(&h, integratePanel(g, worst.lo, mid))
		heap.Push(&h, integratePanel(g, mid, worst.hi))
	}
}
