package domain

import "time"

// Report is the outcome of one estimate-versus-reference run. It carries
// scalar values only; formatting belongs to the report and chart packages.
type Report struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Integrand  string    `json:"integrand"`
	Expression string    `json:"expression"`
	Interval   Interval  `json:"interval"`

	Samples  int     `json:"samples"`
	Seed     uint64  `json:"seed"`
	Workers  int     `json:"workers"`
	Estimate float64 `json:"estimate"`
	StdError float64 `json:"std_error"`
	CI95Low  float64 `json:"ci95_low"`
	CI95High float64 `json:"ci95_high"`

	Reference        float64 `json:"reference"`
	ErrorBound       float64 `json:"error_bound"`
	QuadratureMethod string  `json:"quadrature_method"`
	Subintervals     int     `json:"subintervals"`
	ReferenceCached  bool    `json:"reference_cached"`

	AbsoluteError        float64 `json:"absolute_error"`
	RelativeError        float64 `json:"relative_error"`
	RelativeErrorDefined bool    `json:"relative_error_defined"`

	// Exact is the closed-form value when the integrand has one.
	Exact *float64 `json:"exact,omitempty"`

	EstimateDuration  time.Duration `json:"estimate_duration"`
	ReferenceDuration time.Duration `json:"reference_duration"`
}
