package montecarlo

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"mc-integrator/domain"
)

func square(x float64) float64 { return x * x }

// sequence replays fixed variates.
type sequence struct {
	values []float64
	i      int
}

func (s *sequence) Float64() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func TestMonteCarloIntegrate(t *testing.T) {
	tests := []struct {
		a, b float64
		n    int
		want float64
	}{
		{0, 1, 1000000, 1.0 / 3.0},  // Integral of x^2 from 0 to 1 is 1/3
		{0, 2, 1000000, 8.0 / 3.0},  // Integral of x^2 from 0 to 2 is 8/3
		{-1, 1, 1000000, 2.0 / 3.0}, // Integral of x^2 from -1 to 1 is 2/3
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("Integrating from %.2f to %.2f with %d points", tt.a, tt.b, tt.n), func(t *testing.T) {
			got, err := Estimate(context.Background(), NewSource(uint64(i+1), 0), square, tt.a, tt.b, tt.n)
			require.NoError(t, err)
			if got < tt.want*0.99 || got > tt.want*1.01 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateUsesInjectedSource(t *testing.T) {
	// x = 0 and x = 1 on [0, 2]: mean of x is 0.5, scaled by width 2
	src := &sequence{values: []float64{0, 0.5}}
	got, err := Estimate(context.Background(), src, func(x float64) float64 { return x }, 0, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
	assert.Equal(t, 2, src.i)
}

func TestEstimateSingleSample(t *testing.T) {
	res, err := Sample(context.Background(), &sequence{values: []float64{0.25}}, square, 0, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.Value) // f(1) * 4
	assert.Zero(t, res.StdError)
	assert.Zero(t, res.Variance)
	assert.Equal(t, 1, res.N)
}

func TestConvergence(t *testing.T) {
	const n = 1000000
	estimates := make([]float64, 10)
	for i := range estimates {
		v, err := Estimate(context.Background(), NewSource(uint64(100+i), 0), square, 0, 2, n)
		require.NoError(t, err)
		estimates[i] = v
	}
	assert.InDelta(t, 8.0/3.0, stat.Mean(estimates, nil), 0.01)
}

func TestVarianceDecreasesWithSampleCount(t *testing.T) {
	const trials = 400
	spread := func(n int) float64 {
		values := make([]float64, trials)
		for i := range values {
			v, err := Estimate(context.Background(), NewSource(2024, uint64(i)), square, 0, 2, n)
			require.NoError(t, err)
			values[i] = v
		}
		return stat.Variance(values, nil)
	}

	ratio := spread(1000) / spread(4000)
	assert.Greater(t, ratio, 2.8, "variance should drop about 4x")
	assert.Less(t, ratio, 5.6, "variance should drop about 4x")
}

func TestStdErrorMatchesTheory(t *testing.T) {
	// Var(X^2) for X ~ U(0,2) is 16/5 - 16/9
	res, err := Sample(context.Background(), NewSource(9, 0), square, 0, 2, 200000)
	require.NoError(t, err)
	want := 2 * math.Sqrt((16.0/5.0-16.0/9.0)/200000)
	assert.InEpsilon(t, want, res.StdError, 0.02)

	lo, hi := res.ConfidenceInterval(1.96)
	assert.Less(t, lo, res.Value)
	assert.Greater(t, hi, res.Value)
	assert.InDelta(t, 2*1.96*res.StdError, hi-lo, 1e-15)
}

func TestDeterministicUnderFixedSeed(t *testing.T) {
	ctx := context.Background()
	first, err := Estimate(ctx, NewSource(42, 0), math.Sin, 0, 3, 50000)
	require.NoError(t, err)
	second, err := Estimate(ctx, NewSource(42, 0), math.Sin, 0, 3, 50000)
	require.NoError(t, err)
	assert.Equal(t, math.Float64bits(first), math.Float64bits(second))

	other, err := Estimate(ctx, NewSource(43, 0), math.Sin, 0, 3, 50000)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestBoundaryRejection(t *testing.T) {
	ctx := context.Background()
	src := NewSource(1, 0)

	_, err := Estimate(ctx, src, square, 5, 5, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)

	_, err = Estimate(ctx, src, square, 5, 3, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)

	_, err = Estimate(ctx, src, square, 0, 2, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSampleCount)
	var sce *domain.SampleCountError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, 0, sce.N)

	_, err = Estimate(ctx, src, square, 0, 2, -5)
	assert.ErrorIs(t, err, domain.ErrInvalidSampleCount)
}

func TestNonFiniteValuePropagates(t *testing.T) {
	_, err := Estimate(context.Background(), NewSource(3, 0), math.Sqrt, -1, 1, 1000)
	require.ErrorIs(t, err, domain.ErrNonFiniteValue)
	var nfe *domain.NonFiniteError
	require.ErrorAs(t, err, &nfe)
	assert.Less(t, nfe.X, 0.0)
	assert.True(t, math.IsNaN(nfe.Y))

	_, err = Estimate(context.Background(), &sequence{values: []float64{0}}, func(x float64) float64 { return 1 / x }, 0, 1, 10)
	assert.ErrorIs(t, err, domain.ErrNonFiniteValue)
}

func TestOverflowingStatisticsFail(t *testing.T) {
	// every value is finite, but y - mean overflows between them
	alternating := func(x float64) float64 {
		if x < 0.5 {
			return 1e308
		}
		return -1e308
	}
	v, err := Estimate(context.Background(), NewSource(1, 0), alternating, 0, 1, 1000)
	require.ErrorIs(t, err, domain.ErrNonFiniteValue)
	assert.Zero(t, v)
	var nfe *domain.NonFiniteError
	require.ErrorAs(t, err, &nfe)
	assert.NotEmpty(t, nfe.Op)

	huge := func(x float64) float64 { return 1e200 * x }
	_, err = Sample(context.Background(), NewSource(1, 0), huge, 0, 1, 1000)
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "sample variance", nfe.Op)

	large := func(x float64) float64 { return 1e150 * x }
	res, err := Sample(context.Background(), NewSource(1, 0), large, 0, 1, 1000)
	require.NoError(t, err)
	assert.True(t, domain.IsFinite(res.StdError))
	assert.InDelta(t, 0.5, res.Value/1e150, 0.05)
}

func TestPanicInTargetIsNotMasked(t *testing.T) {
	boom := func(x float64) float64 { panic("boom") }
	assert.PanicsWithValue(t, "boom", func() {
		_, _ = Estimate(context.Background(), NewSource(1, 0), boom, 0, 1, 10)
	})
}

func TestEstimateDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	slow := func(x float64) float64 {
		time.Sleep(time.Microsecond)
		return x
	}
	_, err := Estimate(ctx, NewSource(1, 0), slow, 0, 1, 100000000)
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var be *domain.BudgetError
	require.ErrorAs(t, err, &be)
	assert.Positive(t, be.Evaluated)
	assert.Less(t, be.Evaluated, int64(100000000))
}

func TestEstimateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Estimate(ctx, NewSource(1, 0), square, 0, 1, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrBudgetExceeded)
}

func TestNewSourceStreamsDiffer(t *testing.T) {
	a, b := NewSource(5, 0), NewSource(5, 1)
	same := 0
	for range 100 {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	assert.Less(t, same, 5)

	c, d := NewSource(5, 1), NewSource(5, 1)
	for range 100 {
		require.Equal(t, c.Float64(), d.Float64())
	}
}

func BenchmarkEstimate(b *testing.B) {
	src := NewSource(1, 0)
	for i := 0; i < b.N; i++ {
		_, _ = Estimate(context.Background(), src, square, 0, 2, 100000)
	}
}
