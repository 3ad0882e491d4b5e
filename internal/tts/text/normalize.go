// Package text provides the text handling used before synthesis: input
// normalization and provider-sized chunking.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

// Regex patterns for normalization.
const (
	horizontalSpacePattern = `[\t\f\v\p{Zs}]+`
	blankLinesPattern      = `\n{3,}`
)

// Punctuation and formatting constants.
const (
	emDash         = "—"
	enDash         = "–"
	figureDash     = "‒"
	ellipsis       = "..."
	ellipsisChar   = "…"
	carriageReturn = "\r\n"
	bareReturn     = "\r"
	lineFeed       = "\n"
	byteOrderMark  = "\ufeff"
)

// Normalizer cleans user supplied text without removing words, so the chunker's
// word-preservation guarantees hold on its output.
type Normalizer struct {
	horizontalSpace *regexp.Regexp
	blankLines      *regexp.Regexp
	punctuation     *strings.Replacer
}

// NewNormalizer creates a normalizer with its patterns compiled up front.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		horizontalSpace: regexp.MustCompile(horizontalSpacePattern),
		blankLines:      regexp.MustCompile(blankLinesPattern),
		punctuation: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// Normalize unifies line endings, quotes and dashes, strips control characters
// and collapses runs of horizontal whitespace.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	text = strings.TrimPrefix(text, byteOrderMark)
	text = strings.ReplaceAll(text, carriageReturn, lineFeed)
	text = strings.ReplaceAll(text, bareReturn, lineFeed)
	text = n.punctuation.Replace(text)
	text = stripControl(text)
	text = n.horizontalSpace.ReplaceAllString(text, " ")
	text = n.blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// stripControl removes control characters other than newlines and tabs.
// Whitespace controls such as NEL become a space.
func stripControl(text string) string {
	return strings.Map(func(char rune) rune {
		if char == '\n' || char == '\t' {
			return char
		}

		if unicode.IsControl(char) && unicode.IsSpace(char) {
			return ' '
		}

		if unicode.IsControl(char) {
			return -1
		}

		return char
	}, text)
}
