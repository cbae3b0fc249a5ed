package domain

import "math"

// Func is a pure real-valued function of one real variable.
type Func func(x float64) float64

// Interval is a closed integration interval [A, B].
type Interval struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
}

// Width returns B - A.
func (iv Interval) Width() float64 {
	return iv.B - iv.A
}

// Validate reports an *IntervalError unless A < B and both bounds are finite.
func (iv Interval) Validate() error {
	return ValidateInterval(iv.A, iv.B)
}

// ValidateInterval reports an *IntervalError unless a < b and both bounds are finite.
func ValidateInterval(a, b float64) error {
	// NaN fails a < b as well
	if !(a < b) || math.IsInf(a, 0) || math.IsInf(b, 0) || math.IsInf(b-a, 0) {
		return &IntervalError{A: a, B: b}
	}
	return nil
}

// ValidateSampleCount reports a *SampleCountError when n < 1.
func ValidateSampleCount(n int) error {
	if n < 1 {
		return &SampleCountError{N: n}
	}
	return nil
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
