package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/artifacts"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/metrics"
	"github.com/book-expert/tts-gateway/internal/tts/audio"
	"github.com/book-expert/tts-gateway/internal/tts/provider"
	"github.com/book-expert/tts-gateway/internal/tts/text"
	"github.com/book-expert/tts-gateway/internal/tts/ttsutils"
	"golang.org/x/time/rate"
)

// Pipeline defaults.
const (
	DefaultChunkDelay      = 300 * time.Millisecond
	DefaultDirectThreshold = text.DefaultChunkSize
)

// Static errors.
var (
	ErrTextEmpty           = errors.New("text cannot be empty")
	ErrAllChunksFailed     = errors.New("all chunks failed to synthesize")
	ErrConcatenationFailed = errors.New("failed to concatenate audio chunks")
	ErrNoGenerator         = errors.New("audio generator cannot be nil")
	ErrNoStore             = errors.New("artifact store cannot be nil")
)

const (
	logFmtDirectStart      = "Direct synthesis for %d chars"
	logFmtChunkedStart     = "Chunked synthesis: %d chars in %d chunks"
	logFmtChunkFailed      = "Chunk %d/%d failed: %s"
	logFmtChunkWriteFailed = "Chunk %d/%d could not be stored: %v"
	logFmtChunkProcessed   = "Processed chunk %d/%d via %s"
	logFmtCompleted        = "Generated %s (%s) from %d/%d chunks"
	logFmtCleanupFailed    = "Failed to remove temporary chunk %s: %v"
	errFmtPipeline         = "pipeline failed after %d/%d chunks: %v"
	errFmtPrepareTempDir   = "failed to prepare temporary directory: %w"
	errFmtPacing           = "chunk pacing interrupted: %w"
	errFmtStoreOutput      = "failed to store output: %w"
	reasonNoAudio          = "no audio generated"
)

// PipelineError reports a narration that produced no output. It unwraps to
// ErrAllChunksFailed or ErrConcatenationFailed.
type PipelineError struct {
	ChunksProcessed int
	TotalChunks     int
	Err             error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf(errFmtPipeline, e.ChunksProcessed, e.TotalChunks, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// PipelineConfig controls chunking, pacing and artifact placement.
type PipelineConfig struct {
	// TempDir holds per-chunk artifacts for the lifetime of one request.
	TempDir string
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int
	// DirectThreshold is the length up to which text skips chunking.
	DirectThreshold int
	// ChunkDelay is the minimum spacing between chunk synthesis calls.
	ChunkDelay    time.Duration
	MinAudioBytes int
	NormalizeText bool
	Metrics       *metrics.Recorder
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.TempDir == "" {
		c.TempDir = filepath.Join(os.TempDir(), "tts-gateway")
	}

	if c.ChunkSize <= 0 {
		c.ChunkSize = text.DefaultChunkSize
	}

	if c.DirectThreshold <= 0 {
		c.DirectThreshold = min(DefaultDirectThreshold, c.ChunkSize)
	}

	if c.ChunkDelay < 0 {
		c.ChunkDelay = 0
	}

	if c.MinAudioBytes <= 0 {
		c.MinAudioBytes = provider.DefaultMinAudioBytes
	}

	return c
}

// Pipeline narrates arbitrary-length text into a single artifact. Chunks are
// synthesized strictly in order; concurrent Run calls are independent.
type Pipeline struct {
	generator  core.AudioGenerator
	store      *artifacts.Store
	normalizer *text.Normalizer
	config     PipelineConfig
	logger     *logger.Logger
}

var _ core.Narrator = (*Pipeline)(nil)

// NewPipeline creates a Pipeline writing finished artifacts into store.
func NewPipeline(
	generator core.AudioGenerator,
	store *artifacts.Store,
	cfg PipelineConfig,
	log *logger.Logger,
) (*Pipeline, error) {
	if generator == nil {
		return nil, ErrNoGenerator
	}

	if store == nil {
		return nil, ErrNoStore
	}

	cfg = cfg.withDefaults()

	dirErr := ttsutils.EnsureDir(cfg.TempDir)
	if dirErr != nil {
		return nil, fmt.Errorf(errFmtPrepareTempDir, dirErr)
	}

	pipeline := &Pipeline{
		generator: generator,
		store:     store,
		config:    cfg,
		logger:    log,
	}

	if cfg.NormalizeText {
		pipeline.normalizer = text.NewNormalizer()
	}

	return pipeline, nil
}

// Run narrates input. Text up to the direct threshold is synthesized in one call;
// longer text is chunked, synthesized chunk by chunk and concatenated. The run
// fails only when no chunk produced audio or the artifacts could not be merged.
func (p *Pipeline) Run(ctx context.Context, input string, opts core.SynthesisOptions) (*core.PipelineResult, error) {
	if p.normalizer != nil {
		input = p.normalizer.Normalize(input)
	}

	if strings.TrimSpace(input) == "" {
		return nil, ErrTextEmpty
	}

	opts = opts.WithDefaults()
	start := time.Now()
	textLength := utf8.RuneCountInString(input)

	if textLength <= p.config.DirectThreshold {
		result, err := p.runDirect(ctx, input, textLength, opts)
		p.config.Metrics.ObservePipeline(metrics.PathDirect, err == nil, time.Since(start), fileSize(result))

		return result, err
	}

	result, err := p.runChunked(ctx, input, textLength, opts)
	p.config.Metrics.ObservePipeline(metrics.PathChunked, err == nil, time.Since(start), fileSize(result))

	return result, err
}

func (p *Pipeline) runDirect(
	ctx context.Context,
	input string,
	textLength int,
	opts core.SynthesisOptions,
) (*core.PipelineResult, error) {
	p.logger.Info(logFmtDirectStart, textLength)

	synthesis := p.generator.GenerateAudio(ctx, input, opts)
	p.config.Metrics.ObserveChunk(synthesis.Success)

	if !synthesis.Success {
		return nil, &PipelineError{ChunksProcessed: 0, TotalChunks: 1, Err: ErrAllChunksFailed}
	}

	name := ttsutils.NewArtifactName(ttsutils.PrefixDirect, audio.SniffFormat(synthesis.Audio).Extension())

	size, err := p.store.Write(name, synthesis.Audio)
	if err != nil {
		return nil, fmt.Errorf(errFmtStoreOutput, err)
	}

	path, err := p.store.Path(name)
	if err != nil {
		return nil, fmt.Errorf(errFmtStoreOutput, err)
	}

	p.logger.Info(logFmtCompleted, name, ttsutils.FormatFileSize(size), 1, 1)

	return &core.PipelineResult{
		FilePath:        path,
		FileName:        name,
		FileSize:        size,
		ChunksProcessed: 1,
		TotalChunks:     1,
		TextLength:      textLength,
		VoiceInfo:       synthesis.VoiceInfo(),
	}, nil
}

// chunkRun is the per-request state of a chunked narration.
type chunkRun struct {
	tempFiles []string
	processed int
	voiceInfo *core.VoiceInfo
	format    audio.Format
}

func (p *Pipeline) runChunked(
	ctx context.Context,
	input string,
	textLength int,
	opts core.SynthesisOptions,
) (*core.PipelineResult, error) {
	chunks := text.Chunk(input, p.config.ChunkSize)
	total := len(chunks)

	p.logger.Info(logFmtChunkedStart, textLength, total)

	run := &chunkRun{}
	defer p.cleanup(run)

	limiter := newChunkLimiter(p.config.ChunkDelay)

	for _, chunk := range chunks {
		waitErr := limiter.Wait(ctx)
		if waitErr != nil {
			return nil, &PipelineError{
				ChunksProcessed: run.processed,
				TotalChunks:     total,
				Err:             fmt.Errorf(errFmtPacing, waitErr),
			}
		}

		p.processChunk(ctx, run, chunk, total, opts)
	}

	if run.processed == 0 {
		return nil, &PipelineError{ChunksProcessed: 0, TotalChunks: total, Err: ErrAllChunksFailed}
	}

	name := ttsutils.NewArtifactName(ttsutils.PrefixChunked, run.format.Extension())
	outputPath, pathErr := p.store.Path(name)
	if pathErr != nil {
		return nil, &PipelineError{
			ChunksProcessed: run.processed,
			TotalChunks:     total,
			Err:             fmt.Errorf("%w: %w", ErrConcatenationFailed, pathErr),
		}
	}

	size, concatErr := Concatenate(run.tempFiles, outputPath, p.config.MinAudioBytes)
	if concatErr != nil {
		return nil, &PipelineError{
			ChunksProcessed: run.processed,
			TotalChunks:     total,
			Err:             fmt.Errorf("%w: %w", ErrConcatenationFailed, concatErr),
		}
	}

	p.logger.Info(logFmtCompleted, name, ttsutils.FormatFileSize(size), run.processed, total)

	return &core.PipelineResult{
		FilePath:        outputPath,
		FileName:        name,
		FileSize:        size,
		ChunksProcessed: run.processed,
		TotalChunks:     total,
		TextLength:      textLength,
		VoiceInfo:       *run.voiceInfo,
	}, nil
}

// processChunk synthesizes one chunk and stores it as a temporary artifact. A
// failed chunk is logged and skipped.
func (p *Pipeline) processChunk(
	ctx context.Context,
	run *chunkRun,
	chunk core.TextChunk,
	total int,
	opts core.SynthesisOptions,
) {
	number := chunk.Index + 1

	synthesis := p.generator.GenerateAudio(ctx, chunk.Content, opts)
	if !synthesis.Success {
		p.config.Metrics.ObserveChunk(false)
		p.logger.Warn(logFmtChunkFailed, number, total, reasonNoAudio)

		return
	}

	format := audio.SniffFormat(synthesis.Audio)
	tempPath := filepath.Join(p.config.TempDir, ttsutils.NewChunkName(chunk.Index, format.Extension()))

	writeErr := os.WriteFile(tempPath, synthesis.Audio, filePermissions)
	if writeErr != nil {
		p.config.Metrics.ObserveChunk(false)
		p.logger.Warn(logFmtChunkWriteFailed, number, total, writeErr)

		return
	}

	run.tempFiles = append(run.tempFiles, tempPath)
	run.processed++

	if run.voiceInfo == nil {
		info := synthesis.VoiceInfo()
		run.voiceInfo = &info
		run.format = format
	}

	p.config.Metrics.ObserveChunk(true)
	p.logger.Info(logFmtChunkProcessed, number, total, synthesis.Provider)
}

func (p *Pipeline) cleanup(run *chunkRun) {
	for _, path := range run.tempFiles {
		removeErr := os.Remove(path)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			p.logger.Warn(logFmtCleanupFailed, path, removeErr)
		}
	}
}

// newChunkLimiter paces chunk calls at most once per delay. The first call
// passes immediately.
func newChunkLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(delay), 1)
}

func fileSize(result *core.PipelineResult) int64 {
	if result == nil {
		return 0
	}

	return result.FileSize
}
