package comparison

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mc-integrator/domain"
)

func TestRelativeError(t *testing.T) {
	tests := []struct {
		name                string
		estimate, reference float64
		want                float64
	}{
		{"exact", 8.0 / 3.0, 8.0 / 3.0, 0},
		{"over", 1.1, 1.0, 0.1},
		{"under", 0.9, 1.0, 0.1},
		{"negative reference", -1.1, -1.0, 0.1},
		{"opposite sign", 1.0, -1.0, 2.0},
		{"zero estimate", 0, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativeError(tt.estimate, tt.reference)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestRelativeErrorZeroReference(t *testing.T) {
	_, err := RelativeError(1.0, 0.0)
	require.ErrorIs(t, err, domain.ErrDivisionByZero)
	var dz *domain.DivisionByZeroError
	require.ErrorAs(t, err, &dz)
	assert.Equal(t, 1.0, dz.Estimate)

	_, err = RelativeError(0, math.Copysign(0, -1))
	assert.ErrorIs(t, err, domain.ErrDivisionByZero)

	// subnormal reference: the quotient overflows
	_, err = RelativeError(1, 1e-320)
	require.ErrorAs(t, err, &dz)
	assert.Equal(t, 1e-320, dz.Reference)
	assert.Contains(t, err.Error(), "too close to zero")

	c, err := Compare(1, 1e-320)
	require.NoError(t, err)
	assert.False(t, c.RelativeDefined)
	assert.Zero(t, c.Relative)
	assert.Equal(t, 1.0, c.Absolute)
}

func TestRelativeErrorNonFinite(t *testing.T) {
	for _, pair := range [][2]float64{
		{math.NaN(), 1},
		{1, math.Inf(1)},
		{math.Inf(-1), 0},
	} {
		_, err := RelativeError(pair[0], pair[1])
		assert.ErrorIs(t, err, domain.ErrNonFiniteValue)
	}
}

func TestCompare(t *testing.T) {
	c, err := Compare(2.7, 2.5)
	require.NoError(t, err)
	assert.True(t, c.RelativeDefined)
	assert.InDelta(t, 0.2, c.Absolute, 1e-12)
	assert.InDelta(t, 0.08, c.Relative, 1e-12)

	c, err = Compare(0.003, 0)
	require.NoError(t, err)
	assert.False(t, c.RelativeDefined)
	assert.Zero(t, c.Relative)
	assert.InDelta(t, 0.003, c.Absolute, 1e-15)

	_, err = Compare(math.NaN(), 0)
	assert.ErrorIs(t, err, domain.ErrNonFiniteValue)
}
