package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"mc-integrator/evaluation"
)

// Benchmark collects whatever the evaluation runner produced; nil or empty
// sections are left out of the text report.
type Benchmark struct {
	Generated   time.Time
	Convergence *evaluation.ConvergenceStudy
	Comparisons map[string]evaluation.ConcurrencyComparison
	Scalability []evaluation.BenchmarkResult
}

// BenchmarkText renders the evaluation text report.
func BenchmarkText(bm Benchmark) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Monte Carlo Integrator - Benchmark Report\n")
	fmt.Fprintf(&b, "Generated: %s\n", bm.Generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "=========================================\n\n")

	if s := bm.Convergence; s != nil {
		fmt.Fprintf(&b, "CONVERGENCE STUDY\n")
		fmt.Fprintf(&b, "-----------------\n")
		fmt.Fprintf(&b, "Integrand %s on [%g, %g], reference %.10f\n", s.Integrand, s.A, s.B, s.Reference)
		fmt.Fprintf(&b, "n           StdDev       MeanAbsErr\n")
		for _, p := range s.Points {
			fmt.Fprintf(&b, "%-10d  %-11.3e  %.3e\n", p.Samples, p.StdDev, p.MeanAbsError)
		}
		fmt.Fprintf(&b, "Fitted rate n^%.3f (R² %.4f)\n\n", s.Slope, s.RSquared)
	}

	if len(bm.Comparisons) > 0 {
		fmt.Fprintf(&b, "CONCURRENCY COMPARISON RESULTS\n")
		fmt.Fprintf(&b, "------------------------------\n")
		names := make([]string, 0, len(bm.Comparisons))
		for name := range bm.Comparisons {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			comp := bm.Comparisons[name]
			fmt.Fprintf(&b, "%s Scale (%d samples):\n", name, comp.ConcurrentResult.Samples)
			fmt.Fprintf(&b, "  Concurrent: %.0f samples/sec with %d workers, %.2f MB memory\n",
				comp.ConcurrentResult.SamplesPerSecond, comp.ConcurrentResult.Workers, comp.ConcurrentResult.PeakMemoryMB)
			fmt.Fprintf(&b, "  Sequential: %.0f samples/sec, %.2f MB memory\n",
				comp.SequentialResult.SamplesPerSecond, comp.SequentialResult.PeakMemoryMB)
			fmt.Fprintf(&b, "  Speedup: %.2fx, Efficiency: %.2f%%\n\n", comp.SpeedupRatio, comp.EfficiencyGain)
		}
	}

	if len(bm.Scalability) > 0 {
		fmt.Fprintf(&b, "SCALABILITY TEST RESULTS\n")
		fmt.Fprintf(&b, "------------------------\n")
		fmt.Fprintf(&b, "Workers  Samples/Sec   Memory(MB)  Per Worker\n")
		for _, r := range bm.Scalability {
			fmt.Fprintf(&b, "%-7d  %-12.0f  %-10.2f  %.0f\n",
				r.Workers, r.SamplesPerSecond, r.PeakMemoryMB, r.SamplesPerSecond/float64(r.Workers))
		}
	}
	return b.Bytes()
}

// WriteBenchmark writes the evaluation text report to path atomically.
func WriteBenchmark(path string, bm Benchmark) error {
	return WriteFileAtomic(path, BenchmarkText(bm))
}
