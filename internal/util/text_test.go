package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Quote for felt rug", want: "quote for felt rug"},
		{name: "reply prefix", input: "Re: Quote for felt rug", want: "quote for felt rug"},
		{name: "stacked prefixes", input: "RE: FWD: Re: Quote", want: "quote"},
		{name: "numbered reply", input: "Re[2]: Quote", want: "quote"},
		{name: "whitespace collapse", input: "  Quote   for\trug ", want: "quote for rug"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeSubject(tc.input))
		})
	}
}

func TestCleanAddress(t *testing.T) {
	assert.Equal(t, "jane@example.com", CleanAddress("Jane Doe <Jane@Example.com>"))
	assert.Equal(t, "jane@example.com", CleanAddress("<jane@example.com>"))
	assert.Equal(t, "jane@example.com", CleanAddress(" jane@example.com "))
}

func TestSplitReferences(t *testing.T) {
	refs := SplitReferences("<a@x> <b@y>\t<c@z>")
	assert.Equal(t, []string{"a@x", "b@y", "c@z"}, refs)
	assert.Empty(t, SplitReferences("  "))
}

func TestFallbackThreadKey(t *testing.T) {
	key := FallbackThreadKey("Jane <jane@example.com>", "Re: Felt rug quote")
	assert.Equal(t, "jane@example.com|felt rug quote", key)
}
