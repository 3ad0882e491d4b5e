// Package worker provides a NATS worker that narrates texts published by the
// rest of the book pipeline.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultHandleTimeout bounds one narration, including provider pacing.
const DefaultHandleTimeout = 10 * time.Minute

const (
	logFmtSubscribed     = "NATS worker listening on %s"
	logFmtParseFailed    = "Failed to parse event: %v"
	logFmtJobFailed      = "Failed to narrate text for workflow %s: %v"
	logFmtReplyFailed    = "Failed to publish reply event for workflow %s: %v"
	logFmtJobDone        = "Workflow %s page %d narrated into %s (%d/%d chunks)"
	errFmtSubscribe      = "failed to subscribe to subject %s: %w"
	errFmtDownloadText   = "failed to download text data for key '%s': %w"
	errFmtNarrate        = "failed to narrate text: %w"
	errFmtReadArtifact   = "failed to read narration output '%s': %w"
	errFmtUploadAudio    = "failed to upload audio data for key '%s': %w"
	errFmtMissingTextKey = "%w: event %s has no text key"
)

// Static errors.
var (
	ErrMissingDependency = errors.New("worker dependency cannot be nil")
	ErrMissingSubject    = errors.New("worker subject cannot be empty")
	ErrEmptyText         = errors.New("downloaded text is empty")
	ErrMissingTextKey    = errors.New("missing text key")
)

// Config holds the worker's subscription settings.
type Config struct {
	Subject string
	// QueueGroup spreads messages across gateway instances when set.
	QueueGroup string
	// Timeout bounds one message; zero means DefaultHandleTimeout.
	Timeout time.Duration
}

// NatsWorker listens for TextProcessedEvents and replies with an
// AudioChunkCreatedEvent once the narration is uploaded.
type NatsWorker struct {
	natsConnection *nats.Conn
	config         Config
	textStore      core.ObjectStore
	audioStore     core.ObjectStore
	narrator       core.Narrator
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	cfg Config,
	textStore core.ObjectStore,
	audioStore core.ObjectStore,
	narrator core.Narrator,
	log *logger.Logger,
) (*NatsWorker, error) {
	if natsConnection == nil || textStore == nil || audioStore == nil || narrator == nil || log == nil {
		return nil, ErrMissingDependency
	}

	if cfg.Subject == "" {
		return nil, ErrMissingSubject
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHandleTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		config:         cfg,
		textStore:      textStore,
		audioStore:     audioStore,
		narrator:       narrator,
		log:            log,
	}, nil
}

// Run subscribes and blocks until ctx is canceled, then drains.
func (w *NatsWorker) Run(ctx context.Context) error {
	var (
		sub *nats.Subscription
		err error
	)

	if w.config.QueueGroup != "" {
		sub, err = w.natsConnection.QueueSubscribe(w.config.Subject, w.config.QueueGroup, w.handleMessage)
	} else {
		sub, err = w.natsConnection.Subscribe(w.config.Subject, w.handleMessage)
	}

	if err != nil {
		return fmt.Errorf(errFmtSubscribe, w.config.Subject, err)
	}

	w.log.System(logFmtSubscribed, w.config.Subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.Timeout)
	defer cancel()

	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error(logFmtParseFailed, err)

		return
	}

	audioKey, err := w.narrate(ctx, event)
	if err != nil {
		w.log.Error(logFmtJobFailed, event.Header.WorkflowID, err)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = publishReply(msg, replyEvent)
	if err != nil {
		w.log.Error(logFmtReplyFailed, event.Header.WorkflowID, err)
	}
}

// narrate downloads the text, runs the pipeline and uploads the artifact,
// returning the audio key.
func (w *NatsWorker) narrate(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	if event.TextKey == "" {
		return "", fmt.Errorf(errFmtMissingTextKey, ErrMissingTextKey, event.Header.EventID)
	}

	textData, err := w.textStore.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf(errFmtDownloadText, event.TextKey, err)
	}

	text := string(textData)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: key '%s'", ErrEmptyText, event.TextKey)
	}

	opts := core.SynthesisOptions{Voice: event.Voice, Language: core.LanguageAuto}.WithDefaults()

	result, err := w.narrator.Run(ctx, text, opts)
	if err != nil {
		return "", fmt.Errorf(errFmtNarrate, err)
	}

	audioData, err := os.ReadFile(result.FilePath)
	if err != nil {
		return "", fmt.Errorf(errFmtReadArtifact, result.FilePath, err)
	}

	audioKey := uuid.NewString() + filepath.Ext(result.FileName)

	err = w.audioStore.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf(errFmtUploadAudio, audioKey, err)
	}

	w.log.Info(logFmtJobDone, event.Header.WorkflowID, event.PageNumber, audioKey,
		result.ChunksProcessed, result.TotalChunks)

	return audioKey, nil
}

func publishReply(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}
