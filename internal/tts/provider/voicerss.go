package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/book-expert/tts-gateway/internal/core"
)

const (
	voiceRSSURL          = "https://api.voicerss.org/"
	voiceRSSService      = "VoiceRSS"
	voiceRSSDefaultVoice = "Linda"
	voiceRSSLanguage     = "en-us"
	voiceRSSCodec        = "MP3"
	voiceRSSFormat       = "44khz_16bit_stereo"
	voiceRSSErrorPrefix  = "ERROR"
)

// voiceRSSVoices maps catalog ids to VoiceRSS speaker names. The service only
// speaks English here, so Hindi catalog voices map to an English speaker.
var voiceRSSVoices = map[string]string{
	"Linda": "Linda",
	"Mike":  "Mike",
	"Heera": "Linda",
	"Priya": "Linda",
}

// VoiceRSS synthesizes English speech through the VoiceRSS API.
type VoiceRSS struct {
	config HTTPConfig
	apiKey string
}

var _ core.Synthesizer = (*VoiceRSS)(nil)

// NewVoiceRSS creates the adapter. Zero config fields take defaults.
func NewVoiceRSS(cfg HTTPConfig, apiKey string) *VoiceRSS {
	return &VoiceRSS{config: cfg.withDefaults(voiceRSSURL), apiKey: apiKey}
}

// Name returns the provider tag.
func (v *VoiceRSS) Name() string {
	return core.ProviderVoiceRSS
}

// Synthesize posts text to VoiceRSS and returns the MP3 response.
func (v *VoiceRSS) Synthesize(
	ctx context.Context,
	text, language string,
	voice core.VoiceDescriptor,
) (*core.SynthesisResult, error) {
	if language == core.LanguageHindi {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	if v.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	speaker, ok := voiceRSSVoices[voice.ID]
	if !ok {
		speaker = voiceRSSDefaultVoice
	}

	form := url.Values{}
	form.Set("key", v.apiKey)
	form.Set("src", truncate(text, v.config.MaxTextChars))
	form.Set("hl", voiceRSSLanguage)
	form.Set("v", speaker)
	form.Set("c", voiceRSSCodec)
	form.Set("f", voiceRSSFormat)
	form.Set("r", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeForm)
	req.Header.Set(headerUserAgent, v.config.UserAgent)

	audioData, err := fetchAudio(v.config.HTTPClient, req, v.config.MinAudioBytes)
	if err != nil {
		return nil, err
	}

	// VoiceRSS answers errors with status 200 and a plain-text body.
	if bytes.HasPrefix(audioData, []byte(voiceRSSErrorPrefix)) {
		return nil, fmt.Errorf("%w: %s", ErrProviderError, string(audioData[:min(len(audioData), errorBodySnippet)]))
	}

	return newResult(audioData, voiceRSSService, core.ProviderVoiceRSS, language, voice), nil
}
