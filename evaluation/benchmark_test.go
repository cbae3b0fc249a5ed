package evaluation

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mc-integrator/domain"
	"mc-integrator/integrand"
)

func TestRunBenchmark(t *testing.T) {
	result, err := RunBenchmark(context.Background(), DefaultWorkload(50000), 2)
	require.NoError(t, err)

	if result.SamplesPerSecond <= 0 {
		t.Errorf("Expected positive samples per second, got %.2f", result.SamplesPerSecond)
	}
	if result.PeakMemoryMB <= 0 {
		t.Errorf("Expected positive memory usage, got %.2f MB", result.PeakMemoryMB)
	}
	assert.Equal(t, 2, result.Workers)
	assert.Equal(t, 50000, result.Samples)
	assert.InDelta(t, 8.0/3.0, result.Estimate, 0.1)

	t.Logf("Benchmark completed: %.2f samples/sec, %.2f MB peak memory",
		result.SamplesPerSecond, result.PeakMemoryMB)
}

func TestRunBenchmarkPropagatesErrors(t *testing.T) {
	w := DefaultWorkload(1000)
	w.Interval = domain.Interval{A: 1, B: 0}
	_, err := RunBenchmark(context.Background(), w, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
}

func TestConcurrencyComparison(t *testing.T) {
	comparison, err := RunConcurrencyComparison(context.Background(), DefaultWorkload(20000), 4)
	require.NoError(t, err)

	if comparison.SpeedupRatio <= 0 {
		t.Errorf("Expected positive speedup ratio, got %.2f", comparison.SpeedupRatio)
	}
	assert.Equal(t, 4, comparison.ConcurrentResult.Workers)
	assert.Equal(t, 1, comparison.SequentialResult.Workers)

	var buf bytes.Buffer
	PrintComparisonReport(&buf, comparison)
	assert.Contains(t, buf.String(), "CONCURRENCY COMPARISON REPORT")
	assert.Contains(t, buf.String(), "Speedup Ratio")
}

func TestScalabilityTest(t *testing.T) {
	results, err := RunScalabilityTest(context.Background(), DefaultWorkload(10000), []int{1, 2, 4})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, want := range []int{1, 2, 4} {
		assert.Equal(t, want, results[i].Workers)
	}

	var buf bytes.Buffer
	PrintScalabilityReport(&buf, results)
	assert.Contains(t, buf.String(), "Scalability Analysis")
}

func TestConvergenceStudy(t *testing.T) {
	study, err := RunConvergenceStudy(context.Background(), DefaultWorkload(0), []int{100, 400, 1600, 6400}, 200)
	require.NoError(t, err)
	require.Len(t, study.Points, 4)
	assert.InDelta(t, 8.0/3.0, study.Reference, 1e-12)

	// standard deviation should halve every time n quadruples
	assert.InDelta(t, -0.5, study.Slope, 0.1)
	assert.Greater(t, study.RSquared, 0.9)
	for i := 1; i < len(study.Points); i++ {
		assert.Less(t, study.Points[i].StdDev, study.Points[i-1].StdDev)
	}

	var buf bytes.Buffer
	PrintConvergenceReport(&buf, study)
	assert.Contains(t, buf.String(), "CONVERGENCE STUDY")
}

func TestConvergenceStudyRejectsTinyInputs(t *testing.T) {
	_, err := RunConvergenceStudy(context.Background(), DefaultWorkload(0), []int{100, 1000}, 1)
	assert.Error(t, err)
	_, err = RunConvergenceStudy(context.Background(), DefaultWorkload(0), []int{100}, 10)
	assert.Error(t, err)
}

func TestConvergenceStudyConstantIntegrand(t *testing.T) {
	w := DefaultWorkload(0)
	w.Integrand = integrand.Poly(3)
	_, err := RunConvergenceStudy(context.Background(), w, []int{100, 1000}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not vary")
}

func BenchmarkSequentialSampling(b *testing.B) {
	w := DefaultWorkload(100000)
	for i := 0; i < b.N; i++ {
		_, _ = RunBenchmark(context.Background(), w, 1)
	}
}

func BenchmarkParallelSampling(b *testing.B) {
	w := DefaultWorkload(100000)
	for i := 0; i < b.N; i++ {
		_, _ = RunBenchmark(context.Background(), w, 4)
	}
}
