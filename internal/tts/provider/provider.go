// Package provider implements the synthesis backends tried by the orchestrator:
// remote HTTP adapters and the local placeholder tone generator.
//
// Adapters report every failure (network, timeout, unexpected status, undersized
// payload, unsupported language) as an error; they never panic and never return a
// partially populated result.
package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/tts-gateway/internal/core"
)

// Default values.
const (
	DefaultTimeout       = 20 * time.Second
	DefaultMaxTextChars  = 200
	DefaultMinAudioBytes = 1000
	DefaultMaxAudioBytes = 20 * 1024 * 1024
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	errorBodySnippet = 256
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"
	contentTypeForm   = "application/x-www-form-urlencoded"
)

// Error messages.
const (
	errFmtSendRequest  = "failed to send request to %s: %w"
	errFmtNonOKStatus  = "%w: %s, body: %s"
	errFmtReadAudio    = "failed to read audio data: %w"
	errFmtAudioTooBig  = "%w: more than %d bytes"
	errFmtAudioTooTiny = "%w: %d bytes"
)

// Static errors.
var (
	ErrUnsupportedLanguage = errors.New("language not supported by provider")
	ErrNonOKStatus         = errors.New("provider returned non-OK status")
	ErrAudioTooSmall       = errors.New("audio payload too small")
	ErrAudioTooLarge       = errors.New("audio payload too large")
	ErrMissingAPIKey       = errors.New("provider API key not configured")
	ErrProviderError       = errors.New("provider reported an error")
)

// HTTPConfig holds the transport settings shared by the remote adapters.
type HTTPConfig struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	MaxTextChars  int
	MinAudioBytes int
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

func (c HTTPConfig) withDefaults(baseURL string) HTTPConfig {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}

	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.MaxTextChars <= 0 {
		c.MaxTextChars = DefaultMaxTextChars
	}

	if c.MinAudioBytes <= 0 {
		c.MinAudioBytes = DefaultMinAudioBytes
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}

	return c
}

// fetchAudio sends req and returns the response body when it is a plausible
// audio payload: status 200 and more than minBytes bytes.
func fetchAudio(client *http.Client, req *http.Request, minBytes int) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtSendRequest, req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodySnippet))

		return nil, fmt.Errorf(errFmtNonOKStatus, ErrNonOKStatus, resp.Status, string(body))
	}

	audioData, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf(errFmtReadAudio, err)
	}

	if len(audioData) > DefaultMaxAudioBytes {
		return nil, fmt.Errorf(errFmtAudioTooBig, ErrAudioTooLarge, DefaultMaxAudioBytes)
	}

	if !IsValidAudioSize(len(audioData), minBytes) {
		return nil, fmt.Errorf(errFmtAudioTooTiny, ErrAudioTooSmall, len(audioData))
	}

	return audioData, nil
}

// IsValidAudioSize reports whether a payload of size bytes is large enough to be
// real audio. Payloads of minBytes or fewer are treated as error responses.
func IsValidAudioSize(size, minBytes int) bool {
	return size > minBytes
}

// truncate limits text to maxChars characters.
func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	return string(runes[:maxChars])
}

func newResult(audioData []byte, service, provider, language string, voice core.VoiceDescriptor) *core.SynthesisResult {
	return &core.SynthesisResult{
		Audio:    audioData,
		Voice:    voice.Name,
		Language: language,
		Service:  service,
		Provider: provider,
		Success:  true,
	}
}
