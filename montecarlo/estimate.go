// Package montecarlo estimates definite integrals by uniform random sampling.
//
// Randomness is always supplied by the caller, either as a Source or as a
// seed, so every estimate can be reproduced.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"mc-integrator/domain"
)

// checkInterval is how many samples are drawn between context checks.
const checkInterval = 4096

// Result is a Monte Carlo estimate together with its sampling statistics.
type Result struct {
	// Value is (b-a) times the sample mean of f.
	Value float64 `json:"value"`
	// StdError is the estimated standard deviation of Value, zero when N < 2.
	StdError float64 `json:"std_error"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	N        int     `json:"n"`
	Seed     uint64  `json:"seed"`
	Workers  int     `json:"workers"`
}

// ConfidenceInterval returns Value ± z·StdError (z = 1.96 for 95%).
func (r Result) ConfidenceInterval(z float64) (lo, hi float64) {
	return r.Value - z*r.StdError, r.Value + z*r.StdError
}

// newResult fails when the statistics overflowed even though every sample
// was finite, e.g. for values near ±MaxFloat64.
func newResult(acc accumulator, width float64) (Result, error) {
	v := acc.variance()
	res := Result{
		Value:    width * acc.mean,
		StdError: width * math.Sqrt(v/float64(acc.n)),
		Mean:     acc.mean,
		Variance: v,
		N:        int(acc.n),
		Workers:  1,
	}
	switch {
	case !domain.IsFinite(res.Mean):
		return Result{}, &domain.NonFiniteError{Op: "sample mean", Y: res.Mean}
	case !domain.IsFinite(res.Value):
		return Result{}, &domain.NonFiniteError{Op: "estimate", Y: res.Value}
	case !domain.IsFinite(res.Variance):
		return Result{}, &domain.NonFiniteError{Op: "sample variance", Y: res.Variance}
	case !domain.IsFinite(res.StdError):
		return Result{}, &domain.NonFiniteError{Op: "standard error", Y: res.StdError}
	}
	return res, nil
}

// Estimate returns the Monte Carlo estimate of ∫_a^b f(x)dx from n samples
// drawn from src.
func Estimate(ctx context.Context, src Source, f domain.Func, a, b float64, n int) (float64, error) {
	res, err := Sample(ctx, src, f, a, b, n)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Sample is Estimate with the sampling statistics attached.
func Sample(ctx context.Context, src Source, f domain.Func, a, b float64, n int) (Result, error) {
	if err := validate(a, b, n); err != nil {
		return Result{}, err
	}
	w := worker{src: src, count: n}
	if err := w.run(ctx, f, a, b-a); err != nil {
		return Result{}, samplingError(err, w.acc.n)
	}
	return newResult(w.acc, b-a)
}

func validate(a, b float64, n int) error {
	if err := domain.ValidateInterval(a, b); err != nil {
		return err
	}
	return domain.ValidateSampleCount(n)
}

// samplingError turns a context deadline into a budget failure.
func samplingError(err error, evaluated int64) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.BudgetError{Evaluated: evaluated, Cause: err}
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("sampling canceled after %d evaluations: %w", evaluated, err)
	}
	return err
}
