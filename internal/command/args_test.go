package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "plain words",
			input:    "-O2 -g -fPIC",
			expected: []string{"-O2", "-g", "-fPIC"},
		},
		{
			name:     "collapses repeated spaces",
			input:    "  -O2   -g  ",
			expected: []string{"-O2", "-g"},
		},
		{
			name:     "double quotes group",
			input:    `-DMSG="hello world" -g`,
			expected: []string{`-DMSG="hello world"`, "-g"},
		},
		{
			name:     "single quotes group",
			input:    `'a b c' d`,
			expected: []string{`'a b c'`, "d"},
		},
		{
			name:     "quote kind nests inside the other",
			input:    `"it's fine"`,
			expected: []string{`"it's fine"`},
		},
		{
			name:     "backslash escapes space",
			input:    `a\ b c`,
			expected: []string{"a b", "c"},
		},
		{
			name:     "backslash escapes quote",
			input:    `a\"b`,
			expected: []string{`a"b`},
		},
		{
			name:     "escaped backslash",
			input:    `a\\b`,
			expected: []string{`a\b`},
		},
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "spaces only",
			input:    "   ",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Tokenize(tc.input))
		})
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	// Re-joining the tokens and tokenizing again must be a fixed point:
	// quoting differences collapse after the first pass.
	inputs := []string{
		"-O2 -g",
		`-DMSG="hello world" -I"/path with space"`,
		`'single quoted'  plain`,
		`"grouped tail" trailing`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first := Tokenize(input)
			second := Tokenize(strings.Join(first, " "))
			assert.Equal(t, first, second)
		})
	}
}

func TestStripQuotes(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{`"quoted"`, "quoted"},
		{`'quoted'`, "quoted"},
		{`"hello world"`, "hello world"},
		{`plain`, "plain"},
		{`"mismatched'`, `"mismatched'`},
		{`""`, ""},
		{`"`, `"`},
		{``, ``},
		{`"inner "quotes" kept"`, `inner "quotes" kept`},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, StripQuotes(tc.input), "input %q", tc.input)
	}
}
