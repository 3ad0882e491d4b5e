// Package metrics exposes Prometheus instrumentation for the gateway.
//
// A nil *Recorder is valid and records nothing, so components can be built
// without metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tts_gateway"

// Label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	PathDirect  = "direct"
	PathChunked = "chunked"
)

// Recorder owns a private registry with the gateway collectors.
type Recorder struct {
	registry *prometheus.Registry

	ProviderAttempts *prometheus.CounterVec
	ChunksTotal      *prometheus.CounterVec
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	OutputBytes      prometheus.Counter
}

// New creates a Recorder and registers its collectors together with the Go
// runtime and process collectors.
func New() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		ProviderAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Total number of synthesis attempts per provider",
			},
			[]string{"provider", "status"},
		),
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_total",
				Help:      "Total number of text chunks synthesized",
			},
			[]string{"status"},
		),
		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of narration requests",
			},
			[]string{"path", "status"},
		),
		PipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Histogram of narration duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"path"},
		),
		OutputBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_bytes_total",
				Help:      "Total bytes of audio written to the output directory",
			},
		),
	}

	recorder.registry.MustRegister(
		recorder.ProviderAttempts,
		recorder.ChunksTotal,
		recorder.PipelineRuns,
		recorder.PipelineDuration,
		recorder.OutputBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return recorder
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveProviderAttempt counts one adapter attempt.
func (r *Recorder) ObserveProviderAttempt(provider string, ok bool) {
	if r == nil {
		return
	}

	r.ProviderAttempts.WithLabelValues(provider, status(ok)).Inc()
}

// ObserveChunk counts one chunk outcome.
func (r *Recorder) ObserveChunk(ok bool) {
	if r == nil {
		return
	}

	r.ChunksTotal.WithLabelValues(status(ok)).Inc()
}

// ObservePipeline records a finished narration.
func (r *Recorder) ObservePipeline(path string, ok bool, elapsed time.Duration, outputBytes int64) {
	if r == nil {
		return
	}

	r.PipelineRuns.WithLabelValues(path, status(ok)).Inc()
	r.PipelineDuration.WithLabelValues(path).Observe(elapsed.Seconds())

	if ok && outputBytes > 0 {
		r.OutputBytes.Add(float64(outputBytes))
	}
}

func status(ok bool) string {
	if ok {
		return StatusSuccess
	}

	return StatusError
}
