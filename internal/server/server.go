// Package server exposes the narration pipeline, the voice catalog and the output
// directory over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/artifacts"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/metrics"
	"github.com/book-expert/tts-gateway/internal/tts/voice"
)

// Defaults.
const (
	DefaultListenAddr     = ":5000"
	DefaultMaxUploadBytes = 10 << 20
	DefaultServiceName    = "TTS Gateway"
	OutputsPrefix         = "/outputs/"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	timestampLayout   = "2006-01-02T15:04:05.000Z07:00"
)

const (
	logFmtListening      = "HTTP server listening on %s"
	logFmtShuttingDown   = "Shutting down HTTP server"
	logFmtResponseFailed = "Failed to write %s response: %v"
	errFmtListen         = "http server failed: %w"
	errFmtShutdown       = "http server shutdown failed: %w"
)

// Static errors.
var (
	ErrMissingDependency = errors.New("server dependency cannot be nil")
)

// Dependencies are the collaborators the handlers call into.
type Dependencies struct {
	Narrator  core.Narrator
	Generator core.AudioGenerator
	Catalog   *voice.Catalog
	Store     *artifacts.Store
	// Metrics is optional; /metrics answers 404 without it.
	Metrics *metrics.Recorder
}

// Config holds the HTTP settings.
type Config struct {
	ListenAddr     string
	MaxUploadBytes int64
	ServiceName    string
}

// Server is the HTTP API.
type Server struct {
	deps    Dependencies
	config  Config
	logger  *logger.Logger
	handler http.Handler
}

// New builds the server and its routes.
func New(deps Dependencies, cfg Config, log *logger.Logger) (*Server, error) {
	if deps.Narrator == nil || deps.Generator == nil || deps.Catalog == nil || deps.Store == nil {
		return nil, ErrMissingDependency
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}

	server := &Server{deps: deps, config: cfg, logger: log}
	server.handler = withCORS(server.routes())

	return server, nil
}

// Handler returns the root handler, including CORS handling.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		s.logger.System(logFmtListening, s.config.ListenAddr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf(errFmtListen, err)
	case <-ctx.Done():
	}

	s.logger.Info(logFmtShuttingDown)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf(errFmtShutdown, shutdownErr)
	}

	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/voices", s.handleVoices)
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("DELETE /api/files/{filename}", s.handleDeleteFile)
	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("POST /api/test", s.handleTest)
	mux.Handle("GET "+OutputsPrefix, http.StripPrefix(OutputsPrefix, http.FileServer(http.Dir(s.deps.Store.Dir()))))
	mux.Handle("GET /metrics", s.deps.Metrics.Handler())

	return mux
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(payload)
	if encodeErr != nil {
		s.logger.Warn(logFmtResponseFailed, http.StatusText(status), encodeErr)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, response ErrorResponse) {
	response.Success = false
	s.writeJSON(w, status, response)
}

func downloadURL(name string) string {
	return OutputsPrefix + name
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
