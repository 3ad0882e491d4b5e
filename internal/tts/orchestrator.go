// Package tts turns text into audio artifacts. The Orchestrator picks and runs the
// provider fallback chain for one piece of text, the Pipeline drives chunked
// narration of arbitrary-length text, and Concatenate merges the per-chunk
// artifacts into one output file.
package tts

import (
	"context"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/metrics"
	"github.com/book-expert/tts-gateway/internal/tts/provider"
	"github.com/book-expert/tts-gateway/internal/tts/voice"
	"github.com/dustin/go-humanize"
)

// DefaultShortTextThreshold is the length up to which the primary provider is
// tried first with the secondary as its fallback.
const DefaultShortTextThreshold = 500

const (
	logFmtProviderFailed    = "Provider %s failed for %d chars (%s, %s): %v"
	logFmtProviderSucceeded = "Provider %s produced %s for %d chars"
	logFmtUsingPlaceholder  = "All providers failed for %d chars, rendering placeholder tone for %s"
	logFmtPlaceholderFailed = "Placeholder synthesis failed, returning text echo: %v"
)

// OrchestratorConfig wires the synthesizers the Orchestrator chooses from.
// Secondary may be nil. A nil Placeholder defaults to provider.NewPlaceholder().
type OrchestratorConfig struct {
	Catalog            *voice.Catalog
	Primary            core.Synthesizer
	Secondary          core.Synthesizer
	Placeholder        core.Synthesizer
	ShortTextThreshold int
	Metrics            *metrics.Recorder
}

// Orchestrator resolves the voice for a request and runs the provider chain until
// one attempt succeeds. It is safe for concurrent use; all fields are read-only.
type Orchestrator struct {
	catalog            *voice.Catalog
	primary            core.Synthesizer
	secondary          core.Synthesizer
	placeholder        core.Synthesizer
	shortTextThreshold int
	metrics            *metrics.Recorder
	logger             *logger.Logger
}

var _ core.AudioGenerator = (*Orchestrator)(nil)

// NewOrchestrator creates an Orchestrator. A nil catalog uses the built-in one.
func NewOrchestrator(cfg OrchestratorConfig, log *logger.Logger) *Orchestrator {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = voice.DefaultCatalog()
	}

	placeholder := cfg.Placeholder
	if placeholder == nil {
		placeholder = provider.NewPlaceholder()
	}

	threshold := cfg.ShortTextThreshold
	if threshold <= 0 {
		threshold = DefaultShortTextThreshold
	}

	return &Orchestrator{
		catalog:            catalog,
		primary:            cfg.Primary,
		secondary:          cfg.Secondary,
		placeholder:        placeholder,
		shortTextThreshold: threshold,
		metrics:            cfg.Metrics,
		logger:             log,
	}
}

// Catalog returns the voice catalog used for resolution.
func (o *Orchestrator) Catalog() *voice.Catalog {
	return o.catalog
}

// GenerateAudio synthesizes text with the first provider that succeeds. When all
// providers fail it renders the placeholder tone, and when that fails too it
// returns the text echo, whose Success flag is false.
func (o *Orchestrator) GenerateAudio(ctx context.Context, text string, opts core.SynthesisOptions) core.SynthesisResult {
	opts = opts.WithDefaults()
	language := voice.ResolveLanguage(opts.Language, text)
	descriptor := o.catalog.Resolve(opts.Voice, language)
	textLength := utf8.RuneCountInString(text)

	for _, synthesizer := range o.plan(textLength, language, descriptor) {
		result, ok := o.attempt(ctx, synthesizer, text, language, descriptor)
		if ok {
			return *result
		}
	}

	o.logger.Warn(logFmtUsingPlaceholder, textLength, descriptor.ID)

	result, err := o.placeholder.Synthesize(ctx, text, language, descriptor)
	if err == nil && result != nil && result.Success {
		o.metrics.ObserveProviderAttempt(o.placeholder.Name(), true)

		return *result
	}

	o.metrics.ObserveProviderAttempt(o.placeholder.Name(), false)
	o.logger.Error(logFmtPlaceholderFailed, err)

	return provider.EchoResult(text, language, descriptor)
}

// plan returns the remote providers to try, in order.
func (o *Orchestrator) plan(textLength int, language string, descriptor core.VoiceDescriptor) []core.Synthesizer {
	var chain []core.Synthesizer

	switch {
	case textLength <= o.shortTextThreshold:
		chain = []core.Synthesizer{o.primary, o.secondary}
	case language == core.LanguageHindi:
		chain = []core.Synthesizer{o.primary}
	case o.secondary != nil && descriptor.Provider == o.secondary.Name():
		chain = []core.Synthesizer{o.secondary, o.primary}
	default:
		chain = []core.Synthesizer{o.primary}
	}

	plan := chain[:0]

	for _, synthesizer := range chain {
		if synthesizer != nil {
			plan = append(plan, synthesizer)
		}
	}

	return plan
}

func (o *Orchestrator) attempt(
	ctx context.Context,
	synthesizer core.Synthesizer,
	text, language string,
	descriptor core.VoiceDescriptor,
) (*core.SynthesisResult, bool) {
	result, err := synthesizer.Synthesize(ctx, text, language, descriptor)
	if err != nil || result == nil || !result.Success {
		o.metrics.ObserveProviderAttempt(synthesizer.Name(), false)
		o.logger.Warn(logFmtProviderFailed, synthesizer.Name(), utf8.RuneCountInString(text), language, descriptor.ID, err)

		return nil, false
	}

	o.metrics.ObserveProviderAttempt(synthesizer.Name(), true)
	o.logger.Info(
		logFmtProviderSucceeded,
		synthesizer.Name(),
		humanize.Bytes(uint64(len(result.Audio))),
		utf8.RuneCountInString(text),
	)

	return result, true
}
