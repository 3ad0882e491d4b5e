package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-gateway/internal/artifacts"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/metrics"
	"github.com/book-expert/tts-gateway/internal/server"
	"github.com/book-expert/tts-gateway/internal/tts"
	"github.com/book-expert/tts-gateway/internal/tts/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProviderDown = errors.New("provider down")

type stubSynthesizer struct {
	name string
	err  error
}

func (s stubSynthesizer) Name() string {
	return s.name
}

func (s stubSynthesizer) Synthesize(
	_ context.Context,
	_ string,
	language string,
	descriptor core.VoiceDescriptor,
) (*core.SynthesisResult, error) {
	if s.err != nil {
		return nil, s.err
	}

	return &core.SynthesisResult{
		Audio:    append([]byte("ID3"), bytes.Repeat([]byte{0x55}, 4093)...),
		Voice:    descriptor.Name,
		Language: language,
		Service:  "Stub TTS",
		Provider: s.name,
		Success:  true,
	}, nil
}

type testEnv struct {
	server *httptest.Server
	store  *artifacts.Store
}

func newTestEnv(t *testing.T, cfg tts.OrchestratorConfig) testEnv {
	t.Helper()

	root := t.TempDir()

	log, err := logger.New(root, "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	store, err := artifacts.NewStore(filepath.Join(root, "outputs"))
	require.NoError(t, err)

	recorder := metrics.New()
	cfg.Metrics = recorder
	orchestrator := tts.NewOrchestrator(cfg, log)

	pipeline, err := tts.NewPipeline(orchestrator, store, tts.PipelineConfig{
		TempDir: filepath.Join(root, "temp"),
		Metrics: recorder,
	}, log)
	require.NoError(t, err)

	api, err := server.New(server.Dependencies{
		Narrator:  pipeline,
		Generator: orchestrator,
		Catalog:   voice.DefaultCatalog(),
		Store:     store,
		Metrics:   recorder,
	}, server.Config{MaxUploadBytes: 64 << 10}, log)
	require.NoError(t, err)

	httpServer := httptest.NewServer(api.Handler())
	t.Cleanup(httpServer.Close)

	return testEnv{server: httpServer, store: store}
}

func healthyConfig() tts.OrchestratorConfig {
	return tts.OrchestratorConfig{Primary: stubSynthesizer{name: "google"}}
}

func (e testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, e.server.URL+path, body)
	require.NoError(t, err)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e testEnv) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	return e.do(t, http.MethodPost, path, "application/json", bytes.NewReader(data))
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var target T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&target))

	return target
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := server.New(server.Dependencies{}, server.Config{}, nil)
	require.ErrorIs(t, err, server.ErrMissingDependency)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	resp := env.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	health := decode[server.HealthResponse](t, resp)
	assert.Equal(t, "OK", health.Status)
	assert.Equal(t, server.DefaultServiceName, health.Service)
	assert.Equal(t, env.store.Dir(), health.Outputs.Directory)
	assert.Zero(t, health.Outputs.FileCount)
	assert.NotEmpty(t, health.Features)
	assert.NotEmpty(t, health.Timestamp)
}

func TestVoices(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	resp := env.do(t, http.MethodGet, "/api/voices", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	voices := decode[server.VoicesResponse](t, resp)
	assert.True(t, voices.Success)
	assert.Len(t, voices.Voices.English, 4)
	assert.Len(t, voices.Voices.Hindi, 4)
	require.Len(t, voices.Voices.Special, 1)
	assert.Equal(t, "auto", voices.Voices.Special[0].ID)
	assert.Equal(t, 9, voices.TotalVoices)
}

func TestProcess_ShortJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	resp := env.postJSON(t, "/api/process", server.ProcessRequest{Text: "Hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[server.ProcessResponse](t, resp)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ChunksProcessed)
	assert.Equal(t, 1, result.TotalChunks)
	assert.Equal(t, 100, result.SuccessRate)
	assert.Equal(t, 2, result.TextLength)
	assert.Equal(t, int64(4096), result.FileSize)
	assert.Equal(t, "4.1 kB", result.FileSizeHuman)
	assert.Equal(t, "0 seconds", result.EstimatedDuration)
	assert.Equal(t, "google", result.VoiceInfo.Provider)
	assert.Equal(t, "Google Female", result.VoiceInfo.Voice)
	assert.Equal(t, "Audio generated successfully with Google Female!", result.Message)
	assert.True(t, strings.HasPrefix(result.DownloadURL, "/outputs/audio_"))

	download := env.do(t, http.MethodGet, result.DownloadURL, "", nil)
	require.Equal(t, http.StatusOK, download.StatusCode)

	data, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Len(t, data, 4096)

	files := decode[server.FilesResponse](t, env.do(t, http.MethodGet, "/api/files", "", nil))
	require.Equal(t, 1, files.TotalFiles)
	assert.Equal(t, result.FileName, files.Files[0].Name)
	assert.Equal(t, result.DownloadURL, files.Files[0].DownloadURL)
}

func TestProcess_LongTextFallsBackToPlaceholder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, tts.OrchestratorConfig{Primary: stubSynthesizer{name: "google", err: errProviderDown}})

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)

	resp := env.postJSON(t, "/api/process", server.ProcessRequest{Text: text, Voice: "Mike", Language: "en"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[server.ProcessResponse](t, resp)
	assert.Greater(t, result.TotalChunks, 1)
	assert.Equal(t, result.TotalChunks, result.ChunksProcessed)
	assert.Equal(t, "fallback", result.VoiceInfo.Provider)
	assert.True(t, strings.HasPrefix(result.FileName, "long_audio_"))
	assert.True(t, strings.HasSuffix(result.FileName, ".wav"))
}

func TestProcess_InputErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	resp := env.postJSON(t, "/api/process", server.ProcessRequest{Text: "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[server.ErrorResponse](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, "Please provide text content", body.Error)
	assert.NotEmpty(t, body.Suggestion)

	resp = env.postJSON(t, "/api/process", server.ProcessRequest{Text: "Hello", Language: "fr"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/process", "application/json", strings.NewReader("{not json"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	files, err := env.store.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestProcess_FormEncoded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	resp := env.do(t, http.MethodPost, "/api/process", "application/x-www-form-urlencoded",
		strings.NewReader("text=Hello+there&voice=Mike&language=en"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[server.ProcessResponse](t, resp)
	assert.Equal(t, "Mike (Male)", result.VoiceInfo.Voice)
}

func multipartBody(t *testing.T, fileName, contentType, content string, fields map[string]string) (string, *bytes.Buffer) {
	t.Helper()

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)

	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return writer.FormDataContentType(), &body
}

func TestProcess_TextFileUpload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	contentType, body := multipartBody(t, "story.txt", "application/octet-stream", "Once upon a time.",
		map[string]string{"text": "ignored", "voice": "auto"})

	resp := env.do(t, http.MethodPost, "/api/process", contentType, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[server.ProcessResponse](t, resp)
	assert.Equal(t, len("Once upon a time."), result.TextLength)
}

func TestProcess_RejectsNonTextUpload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	contentType, body := multipartBody(t, "photo.png", "image/png", "\x89PNG", nil)

	resp := env.do(t, http.MethodPost, "/api/process", contentType, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	result := decode[server.ErrorResponse](t, resp)
	assert.Contains(t, result.Error, "unsupported file type")
}

func TestProcess_TotalFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, tts.OrchestratorConfig{
		Primary:     stubSynthesizer{name: "google", err: errProviderDown},
		Placeholder: stubSynthesizer{name: "fallback", err: errProviderDown},
	})

	resp := env.postJSON(t, "/api/process", server.ProcessRequest{Text: "Hello"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	result := decode[server.ErrorResponse](t, resp)
	assert.False(t, result.Success)
	assert.Equal(t, "Audio generation failed", result.Error)
	assert.Equal(t, "Narration failed after 0 of 1 chunks", result.Message)
	assert.Equal(t, "Please try again with different text or voice", result.Suggestion)
}

func TestProcess_FailureHidesInternalPaths(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, tts.OrchestratorConfig{})
	require.NoError(t, os.RemoveAll(env.store.Dir()))

	resp := env.postJSON(t, "/api/process", server.ProcessRequest{Text: strings.Repeat("A sentence that needs chunking. ", 20)})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	result := decode[server.ErrorResponse](t, resp)
	assert.Equal(t, "Audio generation failed", result.Error)
	assert.Regexp(t, `^Narration failed after (\d+) of (\d+) chunks$`, result.Message)
	assert.NotContains(t, result.Message, "/")
	assert.NotContains(t, result.Message, ".wav")
}

func TestTestEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	resp := env.do(t, http.MethodPost, "/api/test", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[server.TestResponse](t, resp)
	assert.True(t, result.Success)
	assert.Equal(t, "This is a test to verify voice tones work properly.", result.TestText)
	assert.Equal(t, "google", result.Provider)
	assert.True(t, strings.HasPrefix(result.FileName, "test_"))

	stats, err := env.store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileCount)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	_, err := env.store.Write("audio_1.mp3", []byte("data"))
	require.NoError(t, err)

	resp := env.do(t, http.MethodDelete, "/api/files/audio_1.mp3", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/files/audio_1.mp3", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	for _, path := range []string{"/api/files/a..b.mp3", "/api/files/dir%5Cfile.mp3"} {
		resp = env.do(t, http.MethodDelete, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	resp := env.do(t, http.MethodOptions, "/api/process", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, healthyConfig())

	env.postJSON(t, "/api/process", server.ProcessRequest{Text: "Hi"})

	resp := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tts_gateway_pipeline_runs_total{path="direct",status="success"} 1`)
}
