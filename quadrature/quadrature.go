// Package quadrature computes deterministic reference values of definite
// integrals together with an error bound.
package quadrature

import (
	"context"
	"errors"
	"fmt"
	"math"

	"mc-integrator/domain"
)

// Methods.
const (
	GaussLegendre = "gauss-legendre"
	Romberg       = "romberg"
)

// Defaults follow the usual QUADPACK driver settings.
const (
	DefaultAbsTol   = 1.49e-8
	DefaultRelTol   = 1.49e-8
	DefaultLimit    = 50
	DefaultMaxLevel = 20
)

const (
	epsilon = 0x1p-52
	// roundoff is the smallest error a panel can claim relative to its value.
	roundoff = 50 * epsilon

	minLevel = 3
	maxLevel = 30
)

// Options controls the reference computation. The zero value selects the
// defaults.
type Options struct {
	Method string `json:"method" yaml:"method"`
	// AbsTol and RelTol: the run converges once the error bound is at most
	// max(AbsTol, RelTol·|value|). Both zero selects the defaults.
	AbsTol float64 `json:"abs_tol" yaml:"abs_tol"`
	RelTol float64 `json:"rel_tol" yaml:"rel_tol"`
	// Limit caps the number of adaptive subintervals.
	Limit int `json:"limit" yaml:"limit"`
	// MaxLevel caps Romberg refinement at 2^MaxLevel+1 points.
	MaxLevel int `json:"max_level" yaml:"max_level"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Method:   GaussLegendre,
		AbsTol:   DefaultAbsTol,
		RelTol:   DefaultRelTol,
		Limit:    DefaultLimit,
		MaxLevel: DefaultMaxLevel,
	}
}

// Normalized returns o with zero fields replaced by their defaults. Options
// that normalize to the same value describe the same computation.
func (o Options) Normalized() Options {
	if o.Method == "" {
		o.Method = GaussLegendre
	}
	if o.AbsTol == 0 && o.RelTol == 0 {
		o.AbsTol, o.RelTol = DefaultAbsTol, DefaultRelTol
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.MaxLevel == 0 {
		o.MaxLevel = DefaultMaxLevel
	}
	return o
}

// Validate checks o after defaults have been applied.
func (o Options) Validate() error {
	o = o.Normalized()
	switch o.Method {
	case GaussLegendre, Romberg:
	default:
		return fmt.Errorf("unknown quadrature method %q (want %q or %q)", o.Method, GaussLegendre, Romberg)
	}
	if o.AbsTol < 0 || o.RelTol < 0 || math.IsNaN(o.AbsTol) || math.IsNaN(o.RelTol) {
		return fmt.Errorf("quadrature tolerances must be non-negative, got abs %g rel %g", o.AbsTol, o.RelTol)
	}
	if o.Limit < 1 {
		return fmt.Errorf("quadrature subinterval limit must be positive, got %d", o.Limit)
	}
	if o.MaxLevel <= minLevel || o.MaxLevel > maxLevel {
		return fmt.Errorf("romberg max level must be in (%d, %d], got %d", minLevel, maxLevel, o.MaxLevel)
	}
	return nil
}

func (o Options) tolerance(value float64) float64 {
	return math.Max(o.AbsTol, o.RelTol*math.Abs(value))
}

// Result is a reference value and its error bound.
type Result struct {
	Value        float64 `json:"value"`
	ErrorBound   float64 `json:"error_bound"`
	Method       string  `json:"method"`
	Subintervals int     `json:"subintervals"`
	Evaluations  int     `json:"evaluations"`
}

// Reference computes ∫_a^b f(x)dx to within opts' tolerance. It fails with a
// *domain.QuadratureError rather than return an unconverged value.
func Reference(ctx context.Context, f domain.Func, a, b float64, opts Options) (Result, error) {
	if err := domain.ValidateInterval(a, b); err != nil {
		return Result{}, err
	}
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	opts = opts.Normalized()

	g := &guard{f: f}
	if opts.Method == Romberg {
		return romberg(ctx, g, a, b, opts)
	}
	return adaptive(ctx, g, a, b, opts)
}

// guard counts evaluations and remembers the first non-finite value.
type guard struct {
	f    domain.Func
	n    int
	bad  bool
	badX float64
	badY float64
}

func (g *guard) eval(x float64) float64 {
	g.n++
	y := g.f(x)
	if !g.bad && !domain.IsFinite(y) {
		g.bad = true
		g.badX, g.badY = x, y
	}
	return y
}

func (g *guard) reason() string {
	return fmt.Sprintf("integrand is not finite: f(%g) = %g", g.badX, g.badY)
}

type failure struct {
	a, b float64
	opts Options
}

func (fl failure) err(value, bound float64, subintervals int, reason string) error {
	return &domain.QuadratureError{
		A:            fl.a,
		B:            fl.b,
		Method:       fl.opts.Method,
		Value:        value,
		ErrorBound:   bound,
		Tolerance:    fl.opts.tolerance(value),
		Subintervals: subintervals,
		Reason:       reason,
	}
}

func interrupted(err error, evaluated int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.BudgetError{Evaluated: int64(evaluated), Cause: err}
	}
	return fmt.Errorf("quadrature interrupted after %d evaluations: %w", evaluated, err)
}
