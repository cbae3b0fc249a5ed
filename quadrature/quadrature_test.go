package quadrature

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate/testquad"

	"mc-integrator/domain"
)

func square(x float64) float64 { return x * x }

func TestReferenceSquare(t *testing.T) {
	for _, method := range []string{GaussLegendre, Romberg} {
		t.Run(method, func(t *testing.T) {
			res, err := Reference(context.Background(), square, 0, 2, Options{Method: method})
			require.NoError(t, err)
			assert.LessOrEqual(t, math.Abs(res.Value-8.0/3.0), res.ErrorBound)
			assert.Less(t, res.ErrorBound, 1e-9)
			assert.Equal(t, method, res.Method)
			assert.Positive(t, res.Evaluations)
		})
	}
}

func TestReferenceSinglePanelForPolynomial(t *testing.T) {
	res, err := Reference(context.Background(), square, 0, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Subintervals)
	assert.Equal(t, 31, res.Evaluations)
	assert.InDelta(t, roundoff*8.0/3.0, res.ErrorBound, 1e-15)
}

func TestReferenceKnownIntegrals(t *testing.T) {
	for _, test := range []struct {
		integral testquad.Integral
		methods  []string
	}{
		{integral: testquad.Constant(2), methods: []string{GaussLegendre, Romberg}},
		{integral: testquad.Poly(5), methods: []string{GaussLegendre, Romberg}},
		{integral: testquad.Sin(), methods: []string{GaussLegendre, Romberg}},
		{integral: testquad.XExpMinusX(), methods: []string{GaussLegendre, Romberg}},
		{integral: testquad.ExpOverX2Plus1(), methods: []string{GaussLegendre, Romberg}},
		{integral: testquad.Sqrt(), methods: []string{GaussLegendre}},
	} {
		for _, method := range test.methods {
			t.Run(test.integral.Name+"/"+method, func(t *testing.T) {
				in := test.integral
				res, err := Reference(context.Background(), in.F, in.A, in.B, Options{Method: method})
				require.NoError(t, err)
				assert.InDelta(t, in.Value, res.Value, 1e-7)
			})
		}
	}
}

func TestReferenceAdaptsToSingularity(t *testing.T) {
	res, err := Reference(context.Background(), math.Sqrt, 0, 1, Options{})
	require.NoError(t, err)
	assert.Greater(t, res.Subintervals, 1)
	assert.LessOrEqual(t, res.Subintervals, DefaultLimit)
}

func TestReferenceZeroIntegral(t *testing.T) {
	res, err := Reference(context.Background(), math.Sin, -1, 1, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Value, 1e-12)
}

func TestReferenceSubintervalLimit(t *testing.T) {
	_, err := Reference(context.Background(), math.Sqrt, 0, 1, Options{Limit: 1})
	require.ErrorIs(t, err, domain.ErrQuadratureFailure)

	var qe *domain.QuadratureError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, GaussLegendre, qe.Method)
	assert.Equal(t, 1, qe.Subintervals)
	assert.Contains(t, qe.Reason, "limit")
	assert.InDelta(t, 2.0/3.0, qe.Value, 1e-2)
	assert.Greater(t, qe.ErrorBound, qe.Tolerance)
}

func TestReferenceRombergMaxLevel(t *testing.T) {
	_, err := Reference(context.Background(), math.Sqrt, 0, 1, Options{Method: Romberg, MaxLevel: 4})
	require.ErrorIs(t, err, domain.ErrQuadratureFailure)

	var qe *domain.QuadratureError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, Romberg, qe.Method)
	assert.Equal(t, 16, qe.Subintervals)
}

func TestReferenceNonFiniteIntegrand(t *testing.T) {
	blowup := func(x float64) float64 {
		if x > 0.5 {
			return math.Inf(1)
		}
		return x
	}
	for _, method := range []string{GaussLegendre, Romberg} {
		t.Run(method, func(t *testing.T) {
			_, err := Reference(context.Background(), blowup, -1, 1, Options{Method: method})
			require.ErrorIs(t, err, domain.ErrQuadratureFailure)
			var qe *domain.QuadratureError
			require.ErrorAs(t, err, &qe)
			assert.Contains(t, qe.Reason, "not finite")
		})
	}

	_, err := Reference(context.Background(), math.Log, -1, 1, Options{})
	assert.ErrorIs(t, err, domain.ErrQuadratureFailure)
}

func TestReferenceInvalidInterval(t *testing.T) {
	_, err := Reference(context.Background(), square, 2, 2, Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
	_, err = Reference(context.Background(), square, 0, math.Inf(1), Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
}

func TestReferenceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Reference(ctx, math.Sqrt, 0, 1, Options{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Reference(ctx, math.Sqrt, 0, 1, Options{Method: Romberg})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, DefaultOptions().Validate())
	assert.NoError(t, Options{AbsTol: 0, RelTol: 1e-10}.Validate())
	assert.Error(t, Options{Method: "simpson"}.Validate())
	assert.Error(t, Options{AbsTol: -1}.Validate())
	assert.Error(t, Options{Limit: -3}.Validate())
	assert.Error(t, Options{MaxLevel: 3}.Validate())
	assert.Error(t, Options{MaxLevel: 31}.Validate())

	_, err := Reference(context.Background(), square, 0, 1, Options{Method: "simpson"})
	assert.Error(t, err)
}

func TestOptionsNormalized(t *testing.T) {
	assert.Equal(t, DefaultOptions(), Options{}.Normalized())
	assert.Equal(t, DefaultOptions(), DefaultOptions().Normalized())

	o := Options{Method: Romberg, RelTol: 1e-10}.Normalized()
	assert.Equal(t, Romberg, o.Method)
	assert.Zero(t, o.AbsTol, "a tolerance that was set keeps the other at zero")
	assert.Equal(t, 1e-10, o.RelTol)
	assert.Equal(t, DefaultLimit, o.Limit)
	assert.Equal(t, DefaultMaxLevel, o.MaxLevel)
}

func BenchmarkReference(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Reference(context.Background(), math.Sqrt, 0, 1, Options{})
	}
}
