package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/tts/audio"
)

const (
	placeholderService = "Voice-Specific Fallback"
	echoService        = "Text Fallback"
	echoPrefix         = "Audio for: "
	echoMaxChars       = 100

	minToneSeconds     = 2.0
	maxToneSeconds     = 8.0
	charsPerToneSecond = 30.0
	checksumChars      = 50
	checksumModulus    = 150
)

// voiceShape is the oscillator profile for a class of voices.
type voiceShape struct {
	waveform   audio.Waveform
	frequency  float64
	modulation float64
}

var (
	femaleShape  = voiceShape{waveform: audio.WAVEFORM_SINE, frequency: 440, modulation: 120}
	maleShape    = voiceShape{waveform: audio.WAVEFORM_SAWTOOTH, frequency: 180, modulation: 80}
	hindiShape   = voiceShape{waveform: audio.WAVEFORM_TRIANGLE, frequency: 350, modulation: 100}
	neutralShape = voiceShape{waveform: audio.WAVEFORM_SINE, frequency: 300, modulation: 70}
)

// Placeholder renders a deterministic tone standing in for speech when every
// remote provider has failed. It never touches the network.
type Placeholder struct {
	sampleRate int
}

var _ core.Synthesizer = (*Placeholder)(nil)

// NewPlaceholder creates a placeholder generator at the default sample rate.
func NewPlaceholder() *Placeholder {
	return &Placeholder{sampleRate: audio.DEFAULT_SAMPLE_RATE}
}

// Name returns the provider tag.
func (p *Placeholder) Name() string {
	return core.ProviderFallback
}

// Synthesize renders the placeholder tone for text and voice.
func (p *Placeholder) Synthesize(
	ctx context.Context,
	text, language string,
	voice core.VoiceDescriptor,
) (*core.SynthesisResult, error) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, ctxErr
	}

	tone := ToneFor(text, voice)
	tone.SampleRate = p.sampleRate

	wavData, err := tone.Render()
	if err != nil {
		return nil, fmt.Errorf("failed to render placeholder tone: %w", err)
	}

	return newResult(wavData, placeholderService, core.ProviderFallback, language, voice), nil
}

// ToneFor derives the placeholder tone for text spoken by voice. Female voices get
// a high sine, male voices a low sawtooth, Hindi voices a triangle. The base
// frequency is shifted by a checksum of the text so different chunks sound
// different, and the duration scales with text length between 2 and 8 seconds.
func ToneFor(text string, voice core.VoiceDescriptor) audio.Tone {
	shape := shapeFor(voice)

	duration := float64(utf8.RuneCountInString(text)) / charsPerToneSecond
	duration = max(minToneSeconds, min(duration, maxToneSeconds))

	return audio.Tone{
		Waveform:      shape.waveform,
		SampleRate:    audio.DEFAULT_SAMPLE_RATE,
		Duration:      duration,
		BaseFrequency: shape.frequency + float64(textChecksum(text)),
		Modulation:    shape.modulation,
		Amplitude:     audio.DEFAULT_AMPLITUDE,
	}
}

func shapeFor(voice core.VoiceDescriptor) voiceShape {
	switch {
	case voice.Gender == core.GenderFemale || strings.Contains(voice.Name, "Linda"):
		return femaleShape
	case voice.Gender == core.GenderMale || strings.Contains(voice.Name, "Mike"):
		return maleShape
	case voice.Language == core.LanguageHindi:
		return hindiShape
	default:
		return neutralShape
	}
}

func textChecksum(text string) int {
	sum := 0
	count := 0

	for _, r := range text {
		if count == checksumChars {
			break
		}

		sum += int(r)
		count++
	}

	return sum % checksumModulus
}

// EchoResult is the last-resort outcome when even the placeholder fails. It
// carries the text itself instead of audio and is never counted as a success.
func EchoResult(text, language string, voice core.VoiceDescriptor) core.SynthesisResult {
	return core.SynthesisResult{
		Audio:    []byte(echoPrefix + truncate(text, echoMaxChars)),
		Voice:    voice.Name,
		Language: language,
		Service:  echoService,
		Provider: core.ProviderEcho,
		Success:  false,
	}
}
