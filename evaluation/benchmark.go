package evaluation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mc-integrator/domain"
	"mc-integrator/integrand"
	"mc-integrator/metrics"
	"mc-integrator/montecarlo"
	"mc-integrator/simulation"
)

// BenchmarkResult contains the results of a benchmark run
type BenchmarkResult struct {
	Name             string        `json:"name"`
	Workers          int           `json:"workers"`
	Samples          int           `json:"samples"`
	Duration         time.Duration `json:"duration"`
	SamplesPerSecond float64       `json:"samples_per_second"`
	Estimate         float64       `json:"estimate"`
	StdError         float64       `json:"std_error"`
	RelativeError    float64       `json:"relative_error"`
	PeakMemoryMB     float64       `json:"peak_memory_mb"`
	MaxGoroutines    int           `json:"max_goroutines"`
	CPUUtilization   float64       `json:"cpu_utilization"`
	GCPauseTimeMs    float64       `json:"gc_pause_time_ms"`
}

// ConcurrencyComparison compares parallel against single-worker sampling
type ConcurrencyComparison struct {
	ConcurrentResult BenchmarkResult `json:"concurrent_result"`
	SequentialResult BenchmarkResult `json:"sequential_result"`
	SpeedupRatio     float64         `json:"speedup_ratio"`
	EfficiencyGain   float64         `json:"efficiency_gain"`
	MemoryOverhead   float64         `json:"memory_overhead"`
}

// Workload is the integral every benchmark run computes.
type Workload struct {
	Integrand integrand.Integrand
	Interval  domain.Interval
	Samples   int
	Seed      uint64
}

// DefaultWorkload is x^2 on [0, 2].
func DefaultWorkload(samples int) Workload {
	in, _ := integrand.Lookup(integrand.DefaultName)
	return Workload{
		Integrand: in,
		Interval:  domain.Interval{A: 0, B: 2},
		Samples:   samples,
		Seed:      1,
	}
}

// RunBenchmark runs the workload once with the given number of sampling
// workers, taking memory snapshots while it runs.
func RunBenchmark(ctx context.Context, w Workload, workers int) (BenchmarkResult, error) {
	slog.Debug("running benchmark", "workers", workers, "samples", w.Samples)

	metricsCollector := metrics.NewMetricsCollector()
	sim := simulation.New(
		simulation.WithCollector(metricsCollector),
		simulation.WithLogger(slog.New(slog.DiscardHandler)),
	)

	metricsCollector.Start()
	metricsCollector.TakeSnapshot()

	done := make(chan struct{})
	snapshotTicker := time.NewTicker(100 * time.Millisecond)
	go func() {
		defer snapshotTicker.Stop()
		for {
			select {
			case <-done:
				return
			case <-snapshotTicker.C:
				metricsCollector.TakeSnapshot()
			}
		}
	}()

	report, err := sim.Run(ctx, simulation.Config{
		Integrand: w.Integrand,
		Interval:  w.Interval,
		Samples:   w.Samples,
		Sampler:   montecarlo.Sampler{Seed: w.Seed, Workers: workers},
	})
	close(done)
	metricsCollector.TakeSnapshot()
	metricsCollector.Stop()
	if err != nil {
		return BenchmarkResult{}, err
	}

	finalMetrics := metricsCollector.GetMetrics()
	elapsed := report.EstimateDuration
	return BenchmarkResult{
		Name:             fmt.Sprintf("Workers_%d", report.Workers),
		Workers:          report.Workers,
		Samples:          report.Samples,
		Duration:         elapsed,
		SamplesPerSecond: float64(report.Samples) / elapsed.Seconds(),
		Estimate:         report.Estimate,
		StdError:         report.StdError,
		RelativeError:    report.RelativeError,
		PeakMemoryMB:     float64(finalMetrics.PeakMemoryUsage) / 1024 / 1024,
		MaxGoroutines:    finalMetrics.MaxGoroutines,
		CPUUtilization:   calculateCPUUtilization(report.Workers, finalMetrics),
		GCPauseTimeMs:    float64(finalMetrics.TotalGCPauses) / 1e6,
	}, nil
}

// RunConcurrencyComparison runs the workload with one worker and with
// workers workers.
func RunConcurrencyComparison(ctx context.Context, w Workload, workers int) (ConcurrencyComparison, error) {
	concurrentResult, err := RunBenchmark(ctx, w, workers)
	if err != nil {
		return ConcurrencyComparison{}, fmt.Errorf("concurrent benchmark: %w", err)
	}
	sequentialResult, err := RunBenchmark(ctx, w, 1)
	if err != nil {
		return ConcurrencyComparison{}, fmt.Errorf("sequential benchmark: %w", err)
	}

	speedupRatio := 1.0
	if sequentialResult.SamplesPerSecond > 0 {
		speedupRatio = concurrentResult.SamplesPerSecond / sequentialResult.SamplesPerSecond
	}
	var memoryOverhead float64
	if sequentialResult.PeakMemoryMB > 0 {
		memoryOverhead = (concurrentResult.PeakMemoryMB - sequentialResult.PeakMemoryMB) / sequentialResult.PeakMemoryMB * 100
	}

	return ConcurrencyComparison{
		ConcurrentResult: concurrentResult,
		SequentialResult: sequentialResult,
		SpeedupRatio:     speedupRatio,
		EfficiencyGain:   (speedupRatio - 1) * 100,
		MemoryOverhead:   memoryOverhead,
	}, nil
}

// calculateCPUUtilization estimates CPU utilization from the worker count
func calculateCPUUtilization(workers int, m metrics.PerformanceMetrics) float64 {
	if m.NumCPU == 0 {
		return 0
	}
	return min(float64(workers)/float64(m.NumCPU)*100, 100)
}

// RunScalabilityTest runs the workload once per worker count.
func RunScalabilityTest(ctx context.Context, w Workload, workerCounts []int) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(workerCounts))
	for _, count := range workerCounts {
		result, err := RunBenchmark(ctx, w, count)
		if err != nil {
			return results, fmt.Errorf("scalability run with %d workers: %w", count, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// PrintComparisonReport prints a detailed comparison report
func PrintComparisonReport(w io.Writer, comparison ConcurrencyComparison) {
	fmt.Fprintf(w, "\n========== CONCURRENCY COMPARISON REPORT ==========\n")
	printResult(w, fmt.Sprintf("Concurrent Performance (%d workers)", comparison.ConcurrentResult.Workers), comparison.ConcurrentResult)
	printResult(w, "\nSequential Performance", comparison.SequentialResult)

	fmt.Fprintf(w, "\nComparison Results:\n")
	fmt.Fprintf(w, "  - Speedup Ratio: %.2fx\n", comparison.SpeedupRatio)
	fmt.Fprintf(w, "  - Efficiency Gain: %.2f%%\n", comparison.EfficiencyGain)
	fmt.Fprintf(w, "  - Memory Overhead: %.2f%%\n", comparison.MemoryOverhead)

	if comparison.SpeedupRatio > 1.5 {
		fmt.Fprintf(w, "  ✓ Significant throughput improvement from parallel sampling\n")
	}
	if comparison.MemoryOverhead < 50 {
		fmt.Fprintf(w, "  ✓ Per-worker accumulators keep memory flat\n")
	}
	fmt.Fprintf(w, "==================================================\n")
}

func printResult(w io.Writer, title string, r BenchmarkResult) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  - Samples/Second: %.2f\n", r.SamplesPerSecond)
	fmt.Fprintf(w, "  - Duration: %v\n", r.Duration)
	fmt.Fprintf(w, "  - Estimate: %.6f ± %.2e\n", r.Estimate, r.StdError)
	fmt.Fprintf(w, "  - Peak Memory: %.2f MB\n", r.PeakMemoryMB)
	fmt.Fprintf(w, "  - Max Goroutines: %d\n", r.MaxGoroutines)
	fmt.Fprintf(w, "  - GC Pause Time: %.2f ms\n", r.GCPauseTimeMs)
}

// PrintScalabilityReport prints one row per worker count.
func PrintScalabilityReport(w io.Writer, results []BenchmarkResult) {
	fmt.Fprintf(w, "\nScalability Analysis:\n")
	fmt.Fprintf(w, "%-10s %-15s %-15s %-15s %-15s\n", "Workers", "Samples/Sec", "Memory(MB)", "Goroutines", "Per Worker")
	fmt.Fprintf(w, "%-10s %-15s %-15s %-15s %-15s\n", "-------", "-----------", "----------", "----------", "----------")
	for _, r := range results {
		fmt.Fprintf(w, "%-10d %-15.0f %-15.2f %-15d %-15.0f\n",
			r.Workers, r.SamplesPerSecond, r.PeakMemoryMB, r.MaxGoroutines, r.SamplesPerSecond/float64(r.Workers))
	}
}
