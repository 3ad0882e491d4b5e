// Package config provides the configuration structure for the tts-gateway.
//
// Values come from the project TOML served by the configurator, are then
// overridden by environment variables, and finally fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
)

// Defaults.
const (
	DefaultListenAddr         = ":5000"
	DefaultMaxUploadBytes     = 10 << 20
	DefaultServiceName        = "TTS Gateway"
	DefaultChunkSize          = 200
	DefaultDirectThreshold    = 200
	DefaultShortTextThreshold = 500
	DefaultChunkDelayMS       = 300
	DefaultMinAudioBytes      = 1000
	DefaultTimeoutSeconds     = 20
	DefaultMaxTextChars       = 200
	DefaultGoogleURL          = "https://translate.google.com/translate_tts"
	DefaultVoiceRSSURL        = "https://api.voicerss.org/"
	DefaultNATSURL            = "nats://127.0.0.1:4222"
	DefaultSynthesisSubject   = "text.processed"
	DefaultTextBucket         = "TEXT_FILES"
	DefaultAudioBucket        = "AUDIO_FILES"
	DefaultLogsDir            = "logs"
	DefaultOutputDir          = "outputs"
)

// Static errors.
var (
	ErrInvalidChunkSize = errors.New("chunk_size must be positive")
	ErrInvalidDelay     = errors.New("chunk_delay_ms cannot be negative")
)

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	ListenAddr     string `toml:"listen_addr"      env:"TTS_LISTEN_ADDR"`
	MaxUploadBytes int64  `toml:"max_upload_bytes" env:"TTS_MAX_UPLOAD_BYTES"`
	ServiceName    string `toml:"service_name"     env:"TTS_SERVICE_NAME"`
}

// PipelineConfig holds chunking and pacing settings.
type PipelineConfig struct {
	ChunkSize          int   `toml:"chunk_size"           env:"TTS_CHUNK_SIZE"`
	DirectThreshold    int   `toml:"direct_threshold"     env:"TTS_DIRECT_THRESHOLD"`
	ShortTextThreshold int   `toml:"short_text_threshold" env:"TTS_SHORT_TEXT_THRESHOLD"`
	ChunkDelayMS       *int  `toml:"chunk_delay_ms"       env:"TTS_CHUNK_DELAY_MS"`
	MinAudioBytes      int   `toml:"min_audio_bytes"      env:"TTS_MIN_AUDIO_BYTES"`
	NormalizeText      *bool `toml:"normalize_text"       env:"TTS_NORMALIZE_TEXT"`
}

// ProvidersConfig holds the upstream speech provider settings.
type ProvidersConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds" env:"TTS_PROVIDER_TIMEOUT_SECONDS"`
	MaxTextChars   int    `toml:"max_text_chars"  env:"TTS_PROVIDER_MAX_TEXT_CHARS"`
	UserAgent      string `toml:"user_agent"      env:"TTS_PROVIDER_USER_AGENT"`
	GoogleURL      string `toml:"google_url"      env:"TTS_GOOGLE_URL"`
	VoiceRSSURL    string `toml:"voicerss_url"    env:"TTS_VOICERSS_URL"`
	VoiceRSSAPIKey string `toml:"voicerss_api_key" env:"VOICERSS_API_KEY"`
}

// VoicesConfig points at an optional YAML voice catalog.
type VoicesConfig struct {
	CatalogPath string `toml:"catalog_path" env:"TTS_VOICE_CATALOG"`
}

// NATSConfig holds the configuration for the optional NATS worker.
type NATSConfig struct {
	Enabled          bool   `toml:"enabled"           env:"TTS_NATS_ENABLED"`
	URL              string `toml:"url"               env:"NATS_URL"`
	SynthesisSubject string `toml:"synthesis_subject" env:"TTS_NATS_SUBJECT"`
	TextBucket       string `toml:"text_bucket"       env:"TTS_NATS_TEXT_BUCKET"`
	AudioBucket      string `toml:"audio_bucket"      env:"TTS_NATS_AUDIO_BUCKET"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir" env:"TTS_LOGS_DIR"`
	OutputDir   string `toml:"output_dir"    env:"TTS_OUTPUT_DIR"`
	TempDir     string `toml:"temp_dir"      env:"TTS_TEMP_DIR"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Providers ProvidersConfig `toml:"providers"`
	Voices    VoicesConfig    `toml:"voices"`
	NATS      NATSConfig      `toml:"nats"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load reads the project TOML through the configurator, applies environment
// overrides and fills defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// FromEnvironment builds the configuration from environment variables and
// defaults only.
func FromEnvironment() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills every zero value with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.ListenAddr, DefaultListenAddr)
	setDefault(&c.Server.MaxUploadBytes, DefaultMaxUploadBytes)
	setDefault(&c.Server.ServiceName, DefaultServiceName)

	setDefault(&c.Pipeline.ChunkSize, DefaultChunkSize)
	setDefault(&c.Pipeline.DirectThreshold, min(DefaultDirectThreshold, c.Pipeline.ChunkSize))
	setDefault(&c.Pipeline.ShortTextThreshold, DefaultShortTextThreshold)
	setDefault(&c.Pipeline.MinAudioBytes, DefaultMinAudioBytes)

	if c.Pipeline.ChunkDelayMS == nil {
		delay := DefaultChunkDelayMS
		c.Pipeline.ChunkDelayMS = &delay
	}

	if c.Pipeline.NormalizeText == nil {
		enabled := true
		c.Pipeline.NormalizeText = &enabled
	}

	setDefault(&c.Providers.TimeoutSeconds, DefaultTimeoutSeconds)
	setDefault(&c.Providers.MaxTextChars, DefaultMaxTextChars)
	setDefault(&c.Providers.GoogleURL, DefaultGoogleURL)
	setDefault(&c.Providers.VoiceRSSURL, DefaultVoiceRSSURL)

	setDefault(&c.NATS.URL, DefaultNATSURL)
	setDefault(&c.NATS.SynthesisSubject, DefaultSynthesisSubject)
	setDefault(&c.NATS.TextBucket, DefaultTextBucket)
	setDefault(&c.NATS.AudioBucket, DefaultAudioBucket)

	setDefault(&c.Paths.BaseLogsDir, DefaultLogsDir)
	setDefault(&c.Paths.OutputDir, DefaultOutputDir)
	setDefault(&c.Paths.TempDir, filepath.Join(os.TempDir(), "tts-gateway"))
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.Pipeline.ChunkSize)
	}

	if c.Pipeline.ChunkDelayMS != nil && *c.Pipeline.ChunkDelayMS < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDelay, *c.Pipeline.ChunkDelayMS)
	}

	return nil
}

// ChunkDelay is the pause between chunk syntheses. Zero disables pacing.
func (c *Config) ChunkDelay() time.Duration {
	if c.Pipeline.ChunkDelayMS == nil {
		return DefaultChunkDelayMS * time.Millisecond
	}

	return time.Duration(*c.Pipeline.ChunkDelayMS) * time.Millisecond
}

// ProviderTimeout is the per-request timeout for upstream providers.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// NormalizeText reports whether intake normalization is enabled.
func (c *Config) NormalizeText() bool {
	return c.Pipeline.NormalizeText == nil || *c.Pipeline.NormalizeText
}

func setDefault[T comparable](field *T, fallback T) {
	var zero T
	if *field == zero {
		*field = fallback
	}
}
