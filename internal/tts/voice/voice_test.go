package voice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/tts/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	catalog := voice.DefaultCatalog()

	assert.Equal(t, 8, catalog.Len())
	assert.Len(t, catalog.ByLanguage(core.LanguageEnglish), 4)
	assert.Len(t, catalog.ByLanguage(core.LanguageHindi), 4)

	_, ok := catalog.Lookup(core.VoiceAuto)
	assert.False(t, ok, "the auto sentinel must not be a catalog entry")
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "english", input: "Hello world", expected: core.LanguageEnglish},
		{name: "empty", input: "", expected: core.LanguageEnglish},
		{name: "hindi", input: "नमस्ते", expected: core.LanguageHindi},
		{name: "mixed", input: "Hello नमस्ते", expected: core.LanguageHindi},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, voice.DetectLanguage(testCase.input))
		})
	}
}

func TestResolveLanguage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, core.LanguageHindi, voice.ResolveLanguage(core.LanguageAuto, "नमस्ते"))
	assert.Equal(t, core.LanguageEnglish, voice.ResolveLanguage("", "hello"))
	assert.Equal(t, core.LanguageHindi, voice.ResolveLanguage(core.LanguageHindi, "hello"))
}

func TestCatalog_Resolve(t *testing.T) {
	t.Parallel()

	catalog := voice.DefaultCatalog()

	tests := []struct {
		name       string
		voiceID    string
		language   string
		expectedID string
	}{
		{name: "auto english", voiceID: core.VoiceAuto, language: core.LanguageEnglish, expectedID: "google-female"},
		{name: "auto hindi", voiceID: core.VoiceAuto, language: core.LanguageHindi, expectedID: "google-hindi-female"},
		{name: "empty id behaves as auto", voiceID: "", language: core.LanguageHindi, expectedID: "google-hindi-female"},
		{name: "explicit voice", voiceID: "Mike", language: core.LanguageEnglish, expectedID: "Mike"},
		{name: "explicit voice ignores language", voiceID: "Mike", language: core.LanguageHindi, expectedID: "Mike"},
		{name: "unknown voice falls back", voiceID: "nobody", language: core.LanguageHindi, expectedID: "google-hindi-female"},
		{name: "unknown language uses first entry", voiceID: core.VoiceAuto, language: "fr", expectedID: "google-female"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			resolved := catalog.Resolve(testCase.voiceID, testCase.language)
			assert.Equal(t, testCase.expectedID, resolved.ID)
		})
	}
}

func TestCatalog_ResolveWithoutCanonicalVoice(t *testing.T) {
	t.Parallel()

	catalog, err := voice.NewCatalog([]core.VoiceDescriptor{
		{ID: "a", Name: "A", Language: core.LanguageEnglish, Gender: "male", Provider: core.ProviderGoogle},
		{ID: "b", Name: "B", Language: core.LanguageHindi, Gender: "male", Provider: core.ProviderGoogle},
		{ID: "c", Name: "C", Language: core.LanguageHindi, Gender: "female", Provider: core.ProviderGoogle},
	}, map[string]string{core.LanguageHindi: "missing"})
	require.NoError(t, err)

	assert.Equal(t, "b", catalog.Resolve(core.VoiceAuto, core.LanguageHindi).ID)
	assert.Equal(t, "a", catalog.Resolve(core.VoiceAuto, "ta").ID)
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Parallel()

	_, err := voice.NewCatalog(nil, nil)
	require.ErrorIs(t, err, voice.ErrEmptyCatalog)

	_, err = voice.NewCatalog([]core.VoiceDescriptor{
		{ID: "x", Language: core.LanguageEnglish},
		{ID: "x", Language: core.LanguageEnglish},
	}, nil)
	require.ErrorIs(t, err, voice.ErrDuplicateVoice)

	_, err = voice.NewCatalog([]core.VoiceDescriptor{{ID: core.VoiceAuto, Language: core.LanguageAuto}}, nil)
	require.ErrorIs(t, err, voice.ErrInvalidVoice)
}

func TestCatalog_VoicesReturnsCopy(t *testing.T) {
	t.Parallel()

	catalog := voice.DefaultCatalog()

	voices := catalog.Voices()
	voices[0].Name = "mutated"

	original, ok := catalog.Lookup(voices[0].ID)
	require.True(t, ok)
	assert.Equal(t, "Google Female", original.Name)
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	catalogYAML := `
defaults:
  en: narrator
voices:
  - id: narrator
    name: Narrator
    language: en
    gender: male
    provider: google
`
	path := filepath.Join(t.TempDir(), "voices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	catalog, err := voice.LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, "narrator", catalog.Resolve(core.VoiceAuto, core.LanguageEnglish).ID)

	builtin, err := voice.LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, voice.DefaultCatalog().Voices(), builtin.Voices())

	_, err = voice.LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
