package tts_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/metrics"
	"github.com/book-expert/tts-gateway/internal/tts"
	"github.com/book-expert/tts-gateway/internal/tts/provider"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStubFailure = errors.New("stub failure")

// callLog records the order in which stub synthesizers are invoked.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, name)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.calls...)
}

type stubSynthesizer struct {
	name  string
	audio []byte
	err   error
	log   *callLog
}

func (s *stubSynthesizer) Name() string {
	return s.name
}

func (s *stubSynthesizer) Synthesize(
	_ context.Context,
	_ string,
	language string,
	voice core.VoiceDescriptor,
) (*core.SynthesisResult, error) {
	if s.log != nil {
		s.log.add(s.name)
	}

	if s.err != nil {
		return nil, s.err
	}

	return &core.SynthesisResult{
		Audio:    s.audio,
		Voice:    voice.Name,
		Language: language,
		Service:  s.name + " service",
		Provider: s.name,
		Success:  true,
	}, nil
}

func fakeMP3(size int, fill byte) []byte {
	return append([]byte("ID3"), bytes.Repeat([]byte{fill}, size-3)...)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func failing(name string, log *callLog) *stubSynthesizer {
	return &stubSynthesizer{name: name, err: errStubFailure, log: log}
}

func succeeding(name string, log *callLog) *stubSynthesizer {
	return &stubSynthesizer{name: name, audio: fakeMP3(2048, 0xAB), log: log}
}

func TestOrchestrator_ProviderOrder(t *testing.T) {
	t.Parallel()

	longEnglish := strings.Repeat("word ", 20)
	longHindi := strings.Repeat("नमस्ते ", 20)

	tests := []struct {
		name          string
		text          string
		voice         string
		primaryFails  bool
		expectedCalls []string
		expectedProv  string
	}{
		{
			name:          "short text falls back to secondary",
			text:          "Hi",
			voice:         "auto",
			primaryFails:  true,
			expectedCalls: []string{"google", "voicerss"},
			expectedProv:  "voicerss",
		},
		{
			name:          "short text stops at primary success",
			text:          "Hi",
			voice:         "Mike",
			expectedCalls: []string{"google"},
			expectedProv:  "google",
		},
		{
			name:          "long hindi uses primary only",
			text:          longHindi,
			voice:         "Heera",
			primaryFails:  true,
			expectedCalls: []string{"google"},
			expectedProv:  core.ProviderFallback,
		},
		{
			name:          "long text with secondary voice tries secondary first",
			text:          longEnglish,
			voice:         "Linda",
			expectedCalls: []string{"voicerss"},
			expectedProv:  "voicerss",
		},
		{
			name:          "long text with primary voice tries primary only",
			text:          longEnglish,
			voice:         "google-male",
			primaryFails:  true,
			expectedCalls: []string{"google"},
			expectedProv:  core.ProviderFallback,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			calls := &callLog{}

			primary := succeeding("google", calls)
			if testCase.primaryFails {
				primary = failing("google", calls)
			}

			orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
				Primary:            primary,
				Secondary:          succeeding("voicerss", calls),
				ShortTextThreshold: 50,
			}, newTestLogger(t))

			result := orchestrator.GenerateAudio(context.Background(), testCase.text, core.SynthesisOptions{Voice: testCase.voice})

			assert.True(t, result.Success)
			assert.Equal(t, testCase.expectedProv, result.Provider)
			assert.Equal(t, testCase.expectedCalls, calls.snapshot())
		})
	}
}

func TestOrchestrator_LongSecondaryVoiceFallsBackToPrimary(t *testing.T) {
	t.Parallel()

	calls := &callLog{}

	orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
		Primary:            succeeding("google", calls),
		Secondary:          failing("voicerss", calls),
		ShortTextThreshold: 10,
	}, newTestLogger(t))

	result := orchestrator.GenerateAudio(context.Background(), "A fairly long English sentence.", core.SynthesisOptions{Voice: "Mike"})

	assert.Equal(t, "google", result.Provider)
	assert.Equal(t, []string{"voicerss", "google"}, calls.snapshot())
}

func TestOrchestrator_ResolvesVoiceAndLanguage(t *testing.T) {
	t.Parallel()

	orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
		Primary: succeeding("google", nil),
	}, newTestLogger(t))

	hindi := orchestrator.GenerateAudio(context.Background(), "नमस्ते दुनिया", core.SynthesisOptions{})
	assert.Equal(t, "hi", hindi.Language)
	assert.Equal(t, "Google Hindi Female", hindi.Voice)

	unknown := orchestrator.GenerateAudio(context.Background(), "Hello", core.SynthesisOptions{Voice: "nobody", Language: "en"})
	assert.Equal(t, "en", unknown.Language)
	assert.Equal(t, "Google Female", unknown.Voice)
}

func TestOrchestrator_PlaceholderWhenAllProvidersFail(t *testing.T) {
	t.Parallel()

	recorder := metrics.New()

	orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
		Primary:   failing("google", nil),
		Secondary: failing("voicerss", nil),
		Metrics:   recorder,
	}, newTestLogger(t))

	opts := core.SynthesisOptions{Voice: "Mike", Language: "en"}

	first := orchestrator.GenerateAudio(context.Background(), "Hello world", opts)
	second := orchestrator.GenerateAudio(context.Background(), "Hello world", opts)

	assert.True(t, first.Success)
	assert.Equal(t, core.ProviderFallback, first.Provider)
	assert.Equal(t, "Voice-Specific Fallback", first.Service)
	assert.Equal(t, first.Audio, second.Audio)

	assert.InDelta(t, 2, testutil.ToFloat64(recorder.ProviderAttempts.WithLabelValues("google", "error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(recorder.ProviderAttempts.WithLabelValues("fallback", "success")), 0)
}

func TestOrchestrator_EchoWhenPlaceholderFails(t *testing.T) {
	t.Parallel()

	orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
		Primary:     failing("google", nil),
		Secondary:   failing("voicerss", nil),
		Placeholder: failing("fallback", nil),
	}, newTestLogger(t))

	result := orchestrator.GenerateAudio(context.Background(), "Hello world", core.SynthesisOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, core.ProviderEcho, result.Provider)
	assert.Equal(t, "Audio for: Hello world", string(result.Audio))
}

func TestOrchestrator_NilSecondary(t *testing.T) {
	t.Parallel()

	orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
		Primary: failing("google", nil),
	}, newTestLogger(t))

	result := orchestrator.GenerateAudio(context.Background(), "Hello", core.SynthesisOptions{})

	assert.True(t, result.Success)
	assert.Equal(t, core.ProviderFallback, result.Provider)
}

func TestOrchestrator_UsesRealPlaceholder(t *testing.T) {
	t.Parallel()

	orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
		Primary: failing("google", nil),
	}, newTestLogger(t))

	result := orchestrator.GenerateAudio(context.Background(), "Hello", core.SynthesisOptions{Voice: "google-female"})

	expected, err := provider.NewPlaceholder().Synthesize(
		context.Background(), "Hello", "en", orchestrator.Catalog().Resolve("google-female", "en"),
	)
	require.NoError(t, err)

	assert.Equal(t, expected.Audio, result.Audio)
}
