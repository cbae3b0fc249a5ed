// Package comparison measures how far an estimate is from a reference value.
package comparison

import (
	"errors"
	"math"

	"mc-integrator/domain"
)

// Comparison holds both error measures. Relative is only meaningful when
// RelativeDefined is true.
type Comparison struct {
	Absolute        float64 `json:"absolute"`
	Relative        float64 `json:"relative"`
	RelativeDefined bool    `json:"relative_defined"`
}

// RelativeError returns |estimate - reference| / |reference|.
func RelativeError(estimate, reference float64) (float64, error) {
	if err := checkFinite("relative error", estimate, reference); err != nil {
		return 0, err
	}
	if reference == 0 {
		return 0, &domain.DivisionByZeroError{Estimate: estimate}
	}
	rel := math.Abs(estimate-reference) / math.Abs(reference)
	if !domain.IsFinite(rel) {
		return 0, &domain.DivisionByZeroError{Estimate: estimate, Reference: reference}
	}
	return rel, nil
}

// AbsoluteError returns |estimate - reference|.
func AbsoluteError(estimate, reference float64) float64 {
	return math.Abs(estimate - reference)
}

// Compare computes both errors, falling back to the absolute error alone when
// the reference is zero or too small to divide by.
func Compare(estimate, reference float64) (Comparison, error) {
	if err := checkFinite("compare", estimate, reference); err != nil {
		return Comparison{}, err
	}
	c := Comparison{Absolute: AbsoluteError(estimate, reference)}
	rel, err := RelativeError(estimate, reference)
	switch {
	case errors.Is(err, domain.ErrDivisionByZero):
		return c, nil
	case err != nil:
		return Comparison{}, err
	}
	c.Relative, c.RelativeDefined = rel, true
	return c, nil
}

func checkFinite(op string, values ...float64) error {
	for _, v := range values {
		if !domain.IsFinite(v) {
			return &domain.NonFiniteError{Op: op, Y: v}
		}
	}
	return nil
}
