package voice

import (
	"unicode"

	"github.com/book-expert/tts-gateway/internal/core"
)

// DetectLanguage returns "hi" when text contains any Devanagari character and
// "en" otherwise.
func DetectLanguage(text string) string {
	for _, char := range text {
		if unicode.Is(unicode.Devanagari, char) {
			return core.LanguageHindi
		}
	}

	return core.LanguageEnglish
}

// ResolveLanguage turns the requested language into a concrete tag, detecting it
// from the text when the request says "auto".
func ResolveLanguage(requested, text string) string {
	if requested == "" || requested == core.LanguageAuto {
		return DetectLanguage(text)
	}

	return requested
}

// Resolve maps a requested voice id to a catalog voice for language. It never
// fails: unknown ids fall back to the automatic choice for the language.
func (c *Catalog) Resolve(voiceID, language string) core.VoiceDescriptor {
	if voiceID != "" && voiceID != core.VoiceAuto {
		if descriptor, ok := c.Lookup(voiceID); ok {
			return descriptor
		}
	}

	if descriptor, ok := c.canonical(language); ok {
		return descriptor
	}

	if matches := c.ByLanguage(language); len(matches) > 0 {
		return matches[0]
	}

	return c.voices[0]
}
