// Package apiclient is a typed client for the gateway's HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/book-expert/tts-gateway/internal/server"
)

// API endpoints and paths.
const (
	apiHealth  = "/api/health"
	apiVoices  = "/api/voices"
	apiFiles   = "/api/files"
	apiProcess = "/api/process"
	apiTest    = "/api/test"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
)

// DefaultTimeout covers a long narration with per-chunk pacing.
const DefaultTimeout = 5 * time.Minute

// Error messages.
const (
	errFmtServiceError     = "gateway error (%s): %s"
	errFmtServiceErrorHint = "gateway error (%s): %s (%s)"
	errFmtServiceNonOK     = "gateway returned non-OK status: %s, body: %s"
	errFmtSend             = "failed to send request to gateway at %s: %w"
	errFmtDecode           = "failed to decode %s response: %w"
	errFmtCreateRequest    = "failed to create request: %w"
)

// Static errors.
var (
	ErrTextEmpty        = errors.New("text cannot be empty")
	ErrEmptyDownload    = errors.New("downloaded audio is empty")
	ErrRemoteDownload   = errors.New("download URL points to a different host")
	ErrRequestRejected  = errors.New("gateway rejected the request")
	ErrServiceUnhealthy = errors.New("gateway reported an unhealthy status")
)

// Client talks to a running gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for baseURL, e.g. "http://localhost:5000".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health fetches the service status and output directory summary.
func (c *Client) Health(ctx context.Context) (*server.HealthResponse, error) {
	var health server.HealthResponse

	err := c.doJSON(ctx, http.MethodGet, apiHealth, nil, &health)
	if err != nil {
		return nil, err
	}

	if health.Status != "OK" {
		return &health, fmt.Errorf("%w: %s", ErrServiceUnhealthy, health.Status)
	}

	return &health, nil
}

// Voices lists the voice catalog grouped by language.
func (c *Client) Voices(ctx context.Context) (*server.VoicesResponse, error) {
	var voices server.VoicesResponse

	err := c.doJSON(ctx, http.MethodGet, apiVoices, nil, &voices)
	if err != nil {
		return nil, err
	}

	return &voices, nil
}

// Files lists generated artifacts, newest first.
func (c *Client) Files(ctx context.Context) (*server.FilesResponse, error) {
	var files server.FilesResponse

	err := c.doJSON(ctx, http.MethodGet, apiFiles, nil, &files)
	if err != nil {
		return nil, err
	}

	return &files, nil
}

// Delete removes one artifact by name.
func (c *Client) Delete(ctx context.Context, name string) error {
	var response server.MessageResponse

	return c.doJSON(ctx, http.MethodDelete, apiFiles+"/"+url.PathEscape(name), nil, &response)
}

// Process narrates the request text and returns the artifact description.
func (c *Client) Process(ctx context.Context, req server.ProcessRequest) (*server.ProcessResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextEmpty
	}

	var result server.ProcessResponse

	err := c.doJSON(ctx, http.MethodPost, apiProcess, req, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Test synthesizes a short sample. Empty text uses the server's default sentence.
func (c *Client) Test(ctx context.Context, req server.ProcessRequest) (*server.TestResponse, error) {
	var result server.TestResponse

	err := c.doJSON(ctx, http.MethodPost, apiTest, req, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Download streams the artifact at downloadURL, as returned by Process, into w.
func (c *Client) Download(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	target, err := c.resolve(downloadURL)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf(errFmtCreateRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf(errFmtSend, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, parseErrorResponse(resp)
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to read audio data: %w", err)
	}

	if written == 0 {
		return 0, ErrEmptyDownload
	}

	return written, nil
}

// resolve accepts a path relative to the gateway or an absolute URL on the
// same host.
func (c *Client) resolve(downloadURL string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}

	ref, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("invalid download URL %q: %w", downloadURL, err)
	}

	if ref.IsAbs() && ref.Host != base.Host {
		return "", fmt.Errorf("%w: %s", ErrRemoteDownload, ref.Host)
	}

	return base.ResolveReference(ref).String(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, target any) error {
	body := io.Reader(http.NoBody)

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf(errFmtCreateRequest, err)
	}

	req.Header.Set(headerAccept, contentTypeJSON)

	if payload != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(errFmtSend, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseErrorResponse(resp)
	}

	err = json.NewDecoder(resp.Body).Decode(target)
	if err != nil {
		return fmt.Errorf(errFmtDecode, path, err)
	}

	return nil
}

// parseErrorResponse decodes the gateway's JSON error body, falling back to
// the raw body when it is not JSON.
func parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var errorResp server.ErrorResponse

	err := json.Unmarshal(raw, &errorResp)
	if err == nil && errorResp.Error != "" {
		if errorResp.Suggestion != "" {
			return fmt.Errorf("%w: "+errFmtServiceErrorHint,
				ErrRequestRejected, resp.Status, errorResp.Error, errorResp.Suggestion)
		}

		return fmt.Errorf("%w: "+errFmtServiceError, ErrRequestRejected, resp.Status, errorResp.Error)
	}

	return fmt.Errorf("%w: "+errFmtServiceNonOK, ErrRequestRejected, resp.Status, string(raw))
}
