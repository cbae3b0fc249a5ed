package evaluation

import (
	"context"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/stat"

	"mc-integrator/montecarlo"
	"mc-integrator/quadrature"
)

// DefaultSampleCounts is the sample-count ladder of the convergence study.
var DefaultSampleCounts = []int{100, 1000, 10000, 100000}

// ConvergencePoint summarises repeated estimates at one sample count.
type ConvergencePoint struct {
	Samples      int     `json:"samples"`
	Trials       int     `json:"trials"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	MeanAbsError float64 `json:"mean_abs_error"`
}

// ConvergenceStudy measures how the spread of the estimator shrinks with n.
// Slope is the fitted exponent of StdDev against n on a log-log scale; for
// Monte Carlo it should be close to -0.5.
type ConvergenceStudy struct {
	Integrand string             `json:"integrand"`
	A         float64            `json:"a"`
	B         float64            `json:"b"`
	Reference float64            `json:"reference"`
	Points    []ConvergencePoint `json:"points"`
	Slope     float64            `json:"slope"`
	Intercept float64            `json:"intercept"`
	RSquared  float64            `json:"r_squared"`
}

// RunConvergenceStudy runs trials independent estimates at each sample
// count. Trial i uses stream i of seed, so the study is reproducible.
func RunConvergenceStudy(ctx context.Context, w Workload, sampleCounts []int, trials int) (ConvergenceStudy, error) {
	if trials < 2 {
		return ConvergenceStudy{}, fmt.Errorf("convergence study needs at least 2 trials, got %d", trials)
	}
	if len(sampleCounts) < 2 {
		return ConvergenceStudy{}, fmt.Errorf("convergence study needs at least 2 sample counts, got %d", len(sampleCounts))
	}

	f, a, b := w.Integrand.F, w.Interval.A, w.Interval.B
	ref, err := quadrature.Reference(ctx, f, a, b, quadrature.Options{})
	if err != nil {
		return ConvergenceStudy{}, fmt.Errorf("reference: %w", err)
	}

	study := ConvergenceStudy{
		Integrand: w.Integrand.Name,
		A:         a,
		B:         b,
		Reference: ref.Value,
		Points:    make([]ConvergencePoint, 0, len(sampleCounts)),
	}
	logN := make([]float64, 0, len(sampleCounts))
	logSD := make([]float64, 0, len(sampleCounts))

	estimates := make([]float64, trials)
	for _, n := range sampleCounts {
		var absErr float64
		for trial := range estimates {
			v, err := montecarlo.Estimate(ctx, montecarlo.NewSource(w.Seed, uint64(trial)), f, a, b, n)
			if err != nil {
				return ConvergenceStudy{}, fmt.Errorf("estimate with n=%d: %w", n, err)
			}
			estimates[trial] = v
			absErr += math.Abs(v - ref.Value)
		}
		mean, sd := stat.MeanStdDev(estimates, nil)
		study.Points = append(study.Points, ConvergencePoint{
			Samples:      n,
			Trials:       trials,
			Mean:         mean,
			StdDev:       sd,
			MeanAbsError: absErr / float64(trials),
		})
		// a zero spread has no logarithm; the point is kept but not fitted
		if sd > 0 {
			logN = append(logN, math.Log10(float64(n)))
			logSD = append(logSD, math.Log10(sd))
		}
	}
	if len(logN) < 2 {
		return ConvergenceStudy{}, fmt.Errorf("convergence study of %s: estimates do not vary at %d of %d sample counts",
			w.Integrand.Name, len(sampleCounts)-len(logN), len(sampleCounts))
	}

	study.Intercept, study.Slope = stat.LinearRegression(logN, logSD, nil, false)
	study.RSquared = stat.RSquared(logN, logSD, nil, study.Intercept, study.Slope)
	return study, nil
}

// PrintConvergenceReport prints the study as a table.
func PrintConvergenceReport(w io.Writer, s ConvergenceStudy) {
	fmt.Fprintf(w, "\n========== CONVERGENCE STUDY ==========\n")
	fmt.Fprintf(w, "Integrand: %s on [%g, %g], reference %.10f\n", s.Integrand, s.A, s.B, s.Reference)
	fmt.Fprintf(w, "%-10s %-8s %-14s %-12s %-12s\n", "n", "Trials", "Mean", "StdDev", "MeanAbsErr")
	for _, p := range s.Points {
		fmt.Fprintf(w, "%-10d %-8d %-14.8f %-12.3e %-12.3e\n", p.Samples, p.Trials, p.Mean, p.StdDev, p.MeanAbsError)
	}
	fmt.Fprintf(w, "Fitted rate: StdDev ~ n^%.3f (R² = %.4f, expected -0.5)\n", s.Slope, s.RSquared)
	fmt.Fprintf(w, "=======================================\n")
}
