package text_test

import (
	"strings"
	"testing"

	"github.com/book-expert/tts-gateway/internal/tts/text"
)

// normalizerTestCase defines a standard test case for the normalizer.
type normalizerTestCase struct {
	name     string
	input    string
	expected string
}

func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()

	tests := []normalizerTestCase{
		{name: "empty", input: "", expected: ""},
		{name: "plain text untouched", input: "Hello world", expected: "Hello world"},
		{name: "windows line endings", input: "One.\r\nTwo.", expected: "One.\nTwo."},
		{name: "smart quotes", input: "“Quoted” and ‘single’", expected: `"Quoted" and 'single'`},
		{name: "dashes and ellipsis", input: "Wait—what… ok–fine", expected: "Wait-what... ok-fine"},
		{name: "tabs and spaces collapse", input: "a\t\tb   c", expected: "a b c"},
		{name: "control characters removed", input: "bell\a here", expected: "bell here"},
		{name: "next line separates words", input: "a\u0085b", expected: "a b"},
		{name: "form feed and vertical tab", input: "one\ftwo\vthree", expected: "one two three"},
		{name: "byte order mark", input: "\ufeffHello", expected: "Hello"},
		{name: "excess blank lines", input: "A.\n\n\n\nB.", expected: "A.\n\nB."},
		{name: "devanagari kept", input: "नमस्ते  दुनिया", expected: "नमस्ते दुनिया"},
	}

	normalizer := text.NewNormalizer()

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := normalizer.Normalize(testCase.input)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

func TestNormalizer_KeepsWordCount(t *testing.T) {
	t.Parallel()

	input := "First line.\r\n\tSecond  line — with “quotes”.\n\n\nThird.\u0085Fourth\fline."
	result := text.NewNormalizer().Normalize(input)

	if len(strings.Fields(result)) != len(strings.Fields(input)) {
		t.Errorf("Expected %d words, got %d (%q)",
			len(strings.Fields(input)), len(strings.Fields(result)), result)
	}
}
