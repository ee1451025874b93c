package formula

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, src string) *Compiled {
	t.Helper()
	compiled, err := Compile(src)
	require.NoError(t, err)
	return compiled
}

func fp(v float64) *float64 { return &v }

func TestEvalArithmetic(t *testing.T) {
	bindings := map[string]float64{
		"area": 100, "length": 10, "width": 10, "base_price": 20, "rate": 0.5,
	}

	cases := []struct {
		src  string
		want float64
	}{
		{src: "base_price + area * rate", want: 70},
		{src: "(base_price + area) * rate", want: 60},
		{src: "-base_price + area", want: 80},
		{src: "min(area * rate, 30)", want: 30},
		{src: "max(area * rate, 30)", want: 50},
		{src: "area / width", want: 10},
		{src: "2 * length * width", want: 200},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			result, err := mustCompile(t, tc.src).Eval(bindings)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, result, 1e-9)
		})
	}
}

func TestEvalIdempotent(t *testing.T) {
	compiled := mustCompile(t, "base_price + (area * rate) / max(length, width)")
	bindings := map[string]float64{
		"area": 1728, "length": 48, "width": 36, "base_price": 10, "rate": 0.05,
	}

	first, err := compiled.Eval(bindings)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := compiled.Eval(bindings)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	compiled := mustCompile(t, "base_price / area")
	_, err := compiled.Eval(map[string]float64{"base_price": 10, "area": 0})

	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Error(), "division by zero")
	assert.Contains(t, ee.Error(), "base_price / area")
}

func TestPriceExampleScenario(t *testing.T) {
	// base_price=10, rate=0.05, 48x36 -> area 1728, price 96.40
	compiled := mustCompile(t, "base_price + area * rate")
	result, err := Price(compiled, 48, 36, 10, 0.05, 50, Bounds{})
	require.NoError(t, err)

	assert.Equal(t, 1728.0, result.AreaSqInches)
	assert.Equal(t, 96.40, result.TotalPrice)
	assert.True(t, result.WithinBounds)
	assert.Equal(t, 1728.0, result.Bindings["area"])
}

func TestPriceMinimumOrderFloor(t *testing.T) {
	compiled := mustCompile(t, "base_price + area * rate")
	result, err := Price(compiled, 5, 5, 10, 0.05, 50, Bounds{})
	require.NoError(t, err)

	// raw price 11.25 is floored at the 50.00 minimum
	assert.Equal(t, 50.00, result.TotalPrice)
}

func TestPriceRoundsHalfUp(t *testing.T) {
	compiled := mustCompile(t, "area * rate")
	result, err := Price(compiled, 1, 1, 0, 10.005, 0, Bounds{})
	require.NoError(t, err)
	assert.Equal(t, 10.01, result.TotalPrice)
}

func TestPriceBoundsViolation(t *testing.T) {
	compiled := mustCompile(t, "area * rate")

	cases := []struct {
		name   string
		bounds Bounds
		field  string
		below  bool
	}{
		{name: "area below min", bounds: Bounds{MinArea: fp(100)}, field: "area", below: true},
		{name: "area above max", bounds: Bounds{MaxArea: fp(10)}, field: "area"},
		{name: "length above max", bounds: Bounds{MaxLength: fp(4)}, field: "length"},
		{name: "width below min", bounds: Bounds{MinWidth: fp(6)}, field: "width", below: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Price(compiled, 5, 5, 0, 0.05, 0, tc.bounds)
			var bv *BoundsViolation
			require.ErrorAs(t, err, &bv)
			assert.Equal(t, tc.field, bv.Field)
			assert.Equal(t, tc.below, bv.Below)
			assert.False(t, result.WithinBounds)

			// a bounds violation is not an evaluation error
			var ee *EvalError
			assert.False(t, errors.As(err, &ee))
		})
	}
}

func TestPriceNegativeResultClampedToZero(t *testing.T) {
	compiled := mustCompile(t, "-area")
	result, err := Price(compiled, 4, 4, 0, 0, 0, Bounds{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.TotalPrice)
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, 96.40, RoundCurrency(96.4))
	assert.Equal(t, 10.01, RoundCurrency(10.005))
	assert.Equal(t, 10.00, RoundCurrency(10.0049))
}
