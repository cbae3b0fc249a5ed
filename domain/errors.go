package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind. Every typed error below unwraps to
// exactly one of them.
var (
	ErrInvalidInterval    = errors.New("invalid interval")
	ErrInvalidSampleCount = errors.New("invalid sample count")
	ErrQuadratureFailure  = errors.New("quadrature failure")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrBudgetExceeded     = errors.New("budget exceeded")
	ErrNonFiniteValue     = errors.New("non-finite value")
)

// IntervalError is returned when the bounds violate a < b.
type IntervalError struct {
	A, B float64
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval [%g, %g]: lower bound must be finite and strictly less than upper bound", e.A, e.B)
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// SampleCountError is returned when the sample count is below one.
type SampleCountError struct {
	N int
}

func (e *SampleCountError) Error() string {
	return fmt.Sprintf("invalid sample count %d: must be at least 1", e.N)
}

func (e *SampleCountError) Unwrap() error { return ErrInvalidSampleCount }

// QuadratureError is returned when the deterministic reference does not
// converge. Value and ErrorBound hold the best estimate reached, for
// diagnostics only.
type QuadratureError struct {
	A, B         float64
	Method       string
	Value        float64
	ErrorBound   float64
	Tolerance    float64
	Subintervals int
	Reason       string
}

func (e *QuadratureError) Error() string {
	return fmt.Sprintf("%s quadrature on [%g, %g] did not converge: %s (value %g, error %.3g, tolerance %.3g, %d subintervals)",
		e.Method, e.A, e.B, e.Reason, e.Value, e.ErrorBound, e.Tolerance, e.Subintervals)
}

func (e *QuadratureError) Unwrap() error { return ErrQuadratureFailure }

// DivisionByZeroError is returned when a relative error is requested against
// a reference of zero, or one so small that the quotient overflows.
type DivisionByZeroError struct {
	Estimate  float64
	Reference float64
}

func (e *DivisionByZeroError) Error() string {
	if e.Reference != 0 {
		return fmt.Sprintf("relative error of estimate %g is undefined: reference %g is too close to zero", e.Estimate, e.Reference)
	}
	return fmt.Sprintf("relative error of estimate %g is undefined: reference is zero", e.Estimate)
}

func (e *DivisionByZeroError) Unwrap() error { return ErrDivisionByZero }

// BudgetError is returned when an evaluation budget is exhausted. Cause is
// context.DeadlineExceeded for deadline budgets and nil for evaluation caps.
type BudgetError struct {
	Limit     int64
	Evaluated int64
	Cause     error
}

func (e *BudgetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation stopped after %d evaluations: %v", e.Evaluated, e.Cause)
	}
	return fmt.Sprintf("evaluation budget of %d exceeded (requested %d)", e.Limit, e.Evaluated)
}

func (e *BudgetError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrBudgetExceeded, e.Cause}
	}
	return []error{ErrBudgetExceeded}
}

// NonFiniteError is returned when the target function yields NaN or an
// infinity, or when a comparator input is not finite.
type NonFiniteError struct {
	Op string
	X  float64
	Y  float64
}

func (e *NonFiniteError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: non-finite value %g", e.Op, e.Y)
	}
	return fmt.Sprintf("f(%g) = %g is not finite", e.X, e.Y)
}

func (e *NonFiniteError) Unwrap() error { return ErrNonFiniteValue }

// Kind names the failure kind of err, or "Error" when err is not one of ours.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInterval):
		return "InvalidIntervalError"
	case errors.Is(err, ErrInvalidSampleCount):
		return "InvalidSampleCountError"
	case errors.Is(err, ErrQuadratureFailure):
		return "QuadratureFailureError"
	case errors.Is(err, ErrDivisionByZero):
		return "DivisionByZeroError"
	case errors.Is(err, ErrBudgetExceeded):
		return "BudgetExceededError"
	case errors.Is(err, ErrNonFiniteValue):
		return "NonFiniteValueError"
	default:
		return "Error"
	}
}
