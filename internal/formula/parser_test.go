package formula

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAccepted(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{name: "plain arithmetic", src: "base_price + area * rate"},
		{name: "parens", src: "(base_price + area) * rate"},
		{name: "unary minus", src: "-base_price + area * rate"},
		{name: "nested unary", src: "--5 + area"},
		{name: "min call", src: "min(area * rate, 500)"},
		{name: "max call", src: "max(base_price, area * rate)"},
		{name: "nested calls", src: "max(min(area, 1000) * rate, base_price)"},
		{name: "all variables", src: "area + length + width + base_price + rate"},
		{name: "decimal literal", src: "area * 0.05 + 12.5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			compiled, err := Compile(tc.src)
			require.NoError(t, err)
			require.NotNil(t, compiled)
			assert.Equal(t, tc.src, compiled.Source)
		})
	}
}

func TestCompileRejected(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		token string
	}{
		{name: "empty", src: ""},
		{name: "blank", src: "   "},
		{name: "unknown variable", src: "area * ratee", token: "ratee"},
		{name: "dynamic eval primitive", src: "base_price + __import__('os')", token: "__import__"},
		{name: "unknown function", src: "pow(area, 2)", token: "pow"},
		{name: "exponent operator", src: "area ** 2", token: "*"},
		{name: "modulo operator", src: "area % 7", token: "%"},
		{name: "string literal", src: `area * "rate"`, token: `"`},
		{name: "assignment", src: "rate = 5", token: "="},
		{name: "attribute access", src: "area.real", token: "."},
		{name: "unbalanced open", src: "(area * rate"},
		{name: "unbalanced close", src: "area * rate)", token: ")"},
		{name: "missing operand", src: "area +"},
		{name: "dangling operator", src: "* area", token: "*"},
		{name: "min arity one", src: "min(area)"},
		{name: "min arity three", src: "min(area, 1, 2)"},
		{name: "min without call", src: "min + 2"},
		{name: "trailing garbage", src: "area rate", token: "rate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			compiled, err := Compile(tc.src)
			require.Error(t, err)
			assert.Nil(t, compiled)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T", err)
			if tc.token != "" {
				assert.Equal(t, tc.token, ce.Token)
			}
		})
	}
}

func TestCompileReportsPosition(t *testing.T) {
	_, err := Compile("area * bogus_var")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 7, ce.Pos)
	assert.Equal(t, "bogus_var", ce.Token)
}

func TestCompileCollectsReferencedVars(t *testing.T) {
	compiled, err := Compile("base_price + area * rate")
	require.NoError(t, err)
	assert.Equal(t, []string{"area", "base_price", "rate"}, compiled.Vars)
}
