package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/book-expert/tts-gateway/internal/core"
)

const (
	googleTranslateURL     = "https://translate.google.com/translate_tts"
	googleTranslateService = "Google TTS"
	googleClientID         = "tw-ob"
)

// GoogleTranslate synthesizes speech through the keyless Google Translate TTS
// endpoint. It supports English and Hindi and forwards at most MaxTextChars
// characters per call.
type GoogleTranslate struct {
	config HTTPConfig
}

var _ core.Synthesizer = (*GoogleTranslate)(nil)

// NewGoogleTranslate creates the adapter. Zero config fields take defaults.
func NewGoogleTranslate(cfg HTTPConfig) *GoogleTranslate {
	return &GoogleTranslate{config: cfg.withDefaults(googleTranslateURL)}
}

// Name returns the provider tag.
func (g *GoogleTranslate) Name() string {
	return core.ProviderGoogle
}

// Synthesize fetches MP3 audio for text.
func (g *GoogleTranslate) Synthesize(
	ctx context.Context,
	text, language string,
	voice core.VoiceDescriptor,
) (*core.SynthesisResult, error) {
	langCode := core.LanguageEnglish
	if language == core.LanguageHindi {
		langCode = core.LanguageHindi
	}

	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("q", truncate(text, g.config.MaxTextChars))
	query.Set("tl", langCode)
	query.Set("client", googleClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.BaseURL+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerUserAgent, g.config.UserAgent)

	audioData, err := fetchAudio(g.config.HTTPClient, req, g.config.MinAudioBytes)
	if err != nil {
		return nil, err
	}

	return newResult(audioData, googleTranslateService, core.ProviderGoogle, language, voice), nil
}
