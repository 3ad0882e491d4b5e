// main package for the tts-gateway service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/artifacts"
	"github.com/book-expert/tts-gateway/internal/config"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/metrics"
	"github.com/book-expert/tts-gateway/internal/objectstore"
	"github.com/book-expert/tts-gateway/internal/server"
	"github.com/book-expert/tts-gateway/internal/tts"
	"github.com/book-expert/tts-gateway/internal/tts/provider"
	"github.com/book-expert/tts-gateway/internal/tts/voice"
	"github.com/book-expert/tts-gateway/internal/worker"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

const (
	bootstrapLogFile = "tts-gateway-bootstrap.log"
	serviceLogFile   = "tts-gateway.log"
	natsClientName   = "tts-gateway"
	natsQueueGroup   = "tts-gateway"
)

const (
	logFmtEnvFileSkipped  = "No .env file loaded: %v"
	logFmtConfigFallback  = "Configurator unavailable, using environment only: %v"
	logFmtCatalogLoaded   = "Voice catalog ready with %d voices"
	logFmtSecondaryOff    = "VoiceRSS disabled: %s is not set"
	logFmtInitialized     = "TTS gateway initialized. Outputs in %s"
	logFmtNATSConnected   = "Connected to NATS at %s"
	logFmtComponentFailed = "%s stopped with error: %v"
	logFmtStopped         = "TTS gateway stopped"
	envVoiceRSSKey        = "VOICERSS_API_KEY"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

// loadConfig prefers the configurator and falls back to the environment when
// no project TOML is reachable.
func loadConfig(log *logger.Logger) (*config.Config, error) {
	envErr := godotenv.Load()
	if envErr != nil {
		log.Info(logFmtEnvFileSkipped, envErr)
	}

	cfg, err := config.Load(log)
	if err == nil {
		return cfg, nil
	}

	log.Warn(logFmtConfigFallback, err)

	cfg, err = config.FromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// services are the long-lived components shared by the HTTP API and the worker.
type services struct {
	recorder     *metrics.Recorder
	orchestrator *tts.Orchestrator
	pipeline     *tts.Pipeline
	catalog      *voice.Catalog
	outputs      *artifacts.Store
}

func buildServices(cfg *config.Config, log *logger.Logger) (*services, error) {
	catalog, err := voice.LoadCatalog(cfg.Voices.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load voice catalog: %w", err)
	}

	log.Info(logFmtCatalogLoaded, catalog.Len())

	httpConfig := provider.HTTPConfig{
		UserAgent:     cfg.Providers.UserAgent,
		Timeout:       cfg.ProviderTimeout(),
		MaxTextChars:  cfg.Providers.MaxTextChars,
		MinAudioBytes: cfg.Pipeline.MinAudioBytes,
	}

	googleConfig := httpConfig
	googleConfig.BaseURL = cfg.Providers.GoogleURL

	var secondary core.Synthesizer

	if cfg.Providers.VoiceRSSAPIKey != "" {
		voiceRSSConfig := httpConfig
		voiceRSSConfig.BaseURL = cfg.Providers.VoiceRSSURL
		secondary = provider.NewVoiceRSS(voiceRSSConfig, cfg.Providers.VoiceRSSAPIKey)
	} else {
		log.Warn(logFmtSecondaryOff, envVoiceRSSKey)
	}

	recorder := metrics.New()

	orchestrator := tts.NewOrchestrator(tts.OrchestratorConfig{
		Catalog:            catalog,
		Primary:            provider.NewGoogleTranslate(googleConfig),
		Secondary:          secondary,
		ShortTextThreshold: cfg.Pipeline.ShortTextThreshold,
		Metrics:            recorder,
	}, log)

	outputs, err := artifacts.NewStore(cfg.Paths.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open output directory: %w", err)
	}

	pipeline, err := tts.NewPipeline(orchestrator, outputs, tts.PipelineConfig{
		TempDir:         cfg.Paths.TempDir,
		ChunkSize:       cfg.Pipeline.ChunkSize,
		DirectThreshold: cfg.Pipeline.DirectThreshold,
		ChunkDelay:      cfg.ChunkDelay(),
		MinAudioBytes:   cfg.Pipeline.MinAudioBytes,
		NormalizeText:   cfg.NormalizeText(),
		Metrics:         recorder,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &services{
		recorder:     recorder,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		catalog:      catalog,
		outputs:      outputs,
	}, nil
}

// newWorker connects to NATS and binds the text and audio buckets. The
// returned connection must be closed by the caller.
func newWorker(cfg *config.Config, svc *services, log *logger.Logger) (*worker.NatsWorker, *nats.Conn, error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name(natsClientName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	log.Info(logFmtNATSConnected, cfg.NATS.URL)

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	textStore, err := objectstore.New(jetstreamContext, cfg.NATS.TextBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, err
	}

	audioStore, err := objectstore.New(jetstreamContext, cfg.NATS.AudioBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, err
	}

	natsWorker, err := worker.NewNatsWorker(natsConnection, worker.Config{
		Subject:    cfg.NATS.SynthesisSubject,
		QueueGroup: natsQueueGroup,
	}, textStore, audioStore, svc.pipeline, log)
	if err != nil {
		natsConnection.Close()

		return nil, nil, err
	}

	return natsWorker, natsConnection, nil
}

type component struct {
	name string
	run  func(ctx context.Context) error
}

// runComponents runs every component until ctx is canceled or one of them
// fails, then cancels the rest and waits for them.
func runComponents(ctx context.Context, log *logger.Logger, components []component) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(components))

	for _, comp := range components {
		go func() {
			err := comp.run(ctx)
			if err != nil {
				log.Error(logFmtComponentFailed, comp.name, err)
				cancel()
			}

			results <- err
		}()
	}

	var errs []error

	for range components {
		errs = append(errs, <-results)
	}

	return errors.Join(errs...)
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	cfg, err := loadConfig(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return err
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return err
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	svc, err := buildServices(cfg, finalLog)
	if err != nil {
		finalLog.Error("Failed to initialize services: %v", err)

		return err
	}

	api, err := server.New(server.Dependencies{
		Narrator:  svc.pipeline,
		Generator: svc.orchestrator,
		Catalog:   svc.catalog,
		Store:     svc.outputs,
		Metrics:   svc.recorder,
	}, server.Config{
		ListenAddr:     cfg.Server.ListenAddr,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ServiceName:    cfg.Server.ServiceName,
	}, finalLog)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	components := []component{{name: "http server", run: api.Run}}

	if cfg.NATS.Enabled {
		natsWorker, natsConnection, workerErr := newWorker(cfg, svc, finalLog)
		if workerErr != nil {
			finalLog.Error("Failed to start NATS worker: %v", workerErr)

			return workerErr
		}
		defer natsConnection.Close()

		components = append(components, component{name: "nats worker", run: natsWorker.Run})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	finalLog.System(logFmtInitialized, svc.outputs.Dir())

	err = runComponents(ctx, finalLog, components)

	finalLog.System(logFmtStopped)

	return err
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
