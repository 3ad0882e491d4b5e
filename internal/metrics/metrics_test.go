package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/tts-gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	t.Parallel()

	recorder := metrics.New()

	recorder.ObserveProviderAttempt("google", true)
	recorder.ObserveProviderAttempt("google", false)
	recorder.ObserveProviderAttempt("google", false)
	recorder.ObserveChunk(true)
	recorder.ObservePipeline(metrics.PathChunked, true, time.Second, 4096)

	assert.InDelta(t, 1, testutil.ToFloat64(recorder.ProviderAttempts.WithLabelValues("google", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(recorder.ProviderAttempts.WithLabelValues("google", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(recorder.ChunksTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(recorder.PipelineRuns.WithLabelValues("chunked", "success")), 0)
	assert.InDelta(t, 4096, testutil.ToFloat64(recorder.OutputBytes), 0)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()

	var recorder *metrics.Recorder

	assert.NotPanics(t, func() {
		recorder.ObserveProviderAttempt("google", true)
		recorder.ObserveChunk(false)
		recorder.ObservePipeline(metrics.PathDirect, false, time.Second, 0)
	})
}

func TestRecorder_Handler(t *testing.T) {
	t.Parallel()

	recorder := metrics.New()
	recorder.ObserveChunk(true)

	server := httptest.NewServer(recorder.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tts_gateway_chunks_total")
}
