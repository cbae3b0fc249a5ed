package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"mc-integrator/chart"
	"mc-integrator/evaluation"
	"mc-integrator/report"
)

func main() {
	if err := newRunnerCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type runner struct {
	outputDir     string
	fullBenchmark bool
	quickTest     bool
	scalability   bool
	charts        bool
	trials        int

	out   io.Writer
	bench report.Benchmark
}

func newRunnerCmd() *cobra.Command {
	r := &runner{}
	cmd := &cobra.Command{
		Use:           "evaluation_runner",
		Short:         "Convergence and throughput evaluation of the Monte Carlo integrator",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r.out = cmd.OutOrStdout()
			return r.run(cmd.Context())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&r.outputDir, "output", "evaluation_results", "output directory for results")
	fs.BoolVar(&r.fullBenchmark, "full-benchmark", false, "run comprehensive benchmark suite")
	fs.BoolVar(&r.quickTest, "quick", false, "run quick evaluation tests")
	fs.BoolVar(&r.scalability, "scalability", false, "run scalability tests")
	fs.BoolVar(&r.charts, "charts", true, "generate visualization charts")
	fs.IntVar(&r.trials, "trials", 100, "independent estimates per sample count in the convergence study")
	return cmd
}

func (r *runner) run(ctx context.Context) error {
	fmt.Fprintln(r.out, "========== Monte Carlo Integrator Evaluation Runner ==========")

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	r.bench.Generated = time.Now()

	var err error
	switch {
	case r.quickTest:
		err = r.runQuickEvaluation(ctx)
	case r.scalability:
		err = r.runScalabilityEvaluation(ctx)
	case r.fullBenchmark:
		err = r.runFullBenchmarkSuite(ctx)
	default:
		err = r.runConvergence(ctx, evaluation.DefaultSampleCounts)
	}
	if err != nil {
		return err
	}

	if r.charts && r.bench.Convergence != nil {
		path := filepath.Join(r.outputDir, "convergence.png")
		if err := chart.WriteConvergencePNG(path, *r.bench.Convergence); err != nil {
			return fmt.Errorf("convergence chart: %w", err)
		}
		fmt.Fprintf(r.out, "Convergence chart saved to: %s\n", path)
	}
	reportPath := filepath.Join(r.outputDir, "benchmark_report.txt")
	if err := report.WriteBenchmark(reportPath, r.bench); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "\nEvaluation completed. Results saved to: %s\n", r.outputDir)
	return nil
}

// runConvergence measures the 1/sqrt(n) rate on the default workload.
func (r *runner) runConvergence(ctx context.Context, counts []int) error {
	fmt.Fprintln(r.out, "\n=== Running Convergence Study ===")

	study, err := evaluation.RunConvergenceStudy(ctx, evaluation.DefaultWorkload(0), counts, r.trials)
	if err != nil {
		return err
	}
	evaluation.PrintConvergenceReport(r.out, study)
	r.bench.Convergence = &study
	return r.saveResults(study, "convergence_study.json")
}

// runQuickEvaluation runs small workloads for rapid feedback
func (r *runner) runQuickEvaluation(ctx context.Context) error {
	fmt.Fprintln(r.out, "\n=== Running Quick Evaluation Tests ===")

	tests := []struct {
		name    string
		samples int
	}{
		{"Small", 10000},
		{"Medium", 100000},
		{"Large", 1000000},
	}
	workers := runtime.NumCPU()

	var results []evaluation.BenchmarkResult
	for _, test := range tests {
		fmt.Fprintf(r.out, "Running %s test (%d samples, %d workers)...\n", test.name, test.samples, workers)
		result, err := evaluation.RunBenchmark(ctx, evaluation.DefaultWorkload(test.samples), workers)
		if err != nil {
			return fmt.Errorf("%s test: %w", test.name, err)
		}
		result.Name = test.name
		results = append(results, result)

		fmt.Fprintf(r.out, "  - Throughput: %.0f samples/sec\n", result.SamplesPerSecond)
		fmt.Fprintf(r.out, "  - Estimate: %.6f ± %.2e\n", result.Estimate, result.StdError)
		fmt.Fprintf(r.out, "  - Memory: %.2f MB\n", result.PeakMemoryMB)
	}
	if err := r.runConvergence(ctx, []int{100, 1000, 10000}); err != nil {
		return err
	}
	return r.saveResults(results, "quick_evaluation.json")
}

// runScalabilityEvaluation sweeps the worker count on a fixed workload
func (r *runner) runScalabilityEvaluation(ctx context.Context) error {
	fmt.Fprintln(r.out, "\n=== Running Scalability Evaluation ===")

	results, err := evaluation.RunScalabilityTest(ctx, evaluation.DefaultWorkload(2000000), workerCounts(runtime.NumCPU()))
	if err != nil {
		return err
	}
	evaluation.PrintScalabilityReport(r.out, results)
	r.bench.Scalability = results
	return r.saveResults(results, "scalability_evaluation.json")
}

// runFullBenchmarkSuite runs the convergence study, concurrency comparisons
// at three scales and a scalability sweep.
func (r *runner) runFullBenchmarkSuite(ctx context.Context) error {
	fmt.Fprintln(r.out, "\n=== Running Full Benchmark Suite ===")

	fmt.Fprintln(r.out, "1. Convergence Study...")
	if err := r.runConvergence(ctx, evaluation.DefaultSampleCounts); err != nil {
		return err
	}

	fmt.Fprintln(r.out, "\n2. Concurrency Comparison Tests...")
	comparisons := make(map[string]evaluation.ConcurrencyComparison)
	testScales := []struct {
		name    string
		samples int
	}{
		{"Small", 100000},
		{"Medium", 1000000},
		{"Large", 10000000},
	}
	workers := runtime.NumCPU()
	for _, test := range testScales {
		fmt.Fprintf(r.out, "  Running %s scale test...\n", test.name)
		comparison, err := evaluation.RunConcurrencyComparison(ctx, evaluation.DefaultWorkload(test.samples), workers)
		if err != nil {
			return fmt.Errorf("%s scale: %w", test.name, err)
		}
		comparisons[test.name] = comparison
		fmt.Fprintf(r.out, "    Speedup: %.2fx, Efficiency: %.2f%%\n", comparison.SpeedupRatio, comparison.EfficiencyGain)
	}
	evaluation.PrintComparisonReport(r.out, comparisons["Medium"])
	r.bench.Comparisons = comparisons

	fmt.Fprintln(r.out, "\n3. Scalability Tests...")
	scalability, err := evaluation.RunScalabilityTest(ctx, evaluation.DefaultWorkload(5000000), workerCounts(2*workers))
	if err != nil {
		return err
	}
	evaluation.PrintScalabilityReport(r.out, scalability)
	r.bench.Scalability = scalability

	if err := r.saveResults(comparisons, "full_benchmark_comparison.json"); err != nil {
		return err
	}
	return r.saveResults(scalability, "full_benchmark_scalability.json")
}

// workerCounts is 1, 2, 4, ... up to and including limit.
func workerCounts(limit int) []int {
	counts := []int{1}
	for w := 2; w < limit; w *= 2 {
		counts = append(counts, w)
	}
	if limit > 1 {
		counts = append(counts, limit)
	}
	return counts
}

// saveResults saves any result set as indented JSON in the output directory
func (r *runner) saveResults(v any, filename string) error {
	path := filepath.Join(r.outputDir, filename)
	if err := report.WriteJSON(path, v); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Results saved to: %s\n", path)
	return nil
}
