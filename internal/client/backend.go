// Package client implements the on-device side of the assistant: a thin
// HTTP client for the backend API and the voice processor loop that drives
// capture, transcription, generation, and playback.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrRequestTimeout is returned when a backend call exceeds the
	// client's deadline.
	ErrRequestTimeout = errors.New("backend request timed out")

	// ErrInvalidAudioPayload is returned for a zero-length audio upload
	// before any network traffic happens.
	ErrInvalidAudioPayload = errors.New("invalid audio payload")
)

// defaultTimeout bounds each backend call. Transcription of a long
// utterance is the slowest operation and comfortably fits.
const defaultTimeout = 30 * time.Second

// Backend is an HTTP client for the assistant's backend API.
type Backend struct {
	baseURL    string
	httpClient *http.Client
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) BackendOption {
	return func(b *Backend) {
		b.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *Backend) {
		b.httpClient = c
	}
}

// NewBackend creates a client for the backend at baseURL
// (e.g. "http://localhost:8000").
func NewBackend(baseURL string, opts ...BackendOption) *Backend {
	b := &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Transcribe uploads a WAV utterance to POST /api/stt and returns the
// transcript. An empty payload is rejected locally.
func (b *Backend) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", ErrInvalidAudioPayload
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("client: build upload: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("client: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("client: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/stt", &buf)
	if err != nil {
		return "", fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Text string `json:"text"`
	}
	if err := b.do(req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// Generate asks POST /api/generate for a reply to the user's command.
func (b *Backend) Generate(ctx context.Context, userInput string, extra map[string]any) (string, error) {
	payload := map[string]any{"user_input": userInput}
	if len(extra) > 0 {
		payload["context"] = extra
	}

	req, err := b.jsonRequest(ctx, "/api/generate", payload)
	if err != nil {
		return "", err
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := b.do(req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Synthesize asks POST /api/tts to render text and returns the WAV bytes.
func (b *Backend) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	payload := map[string]any{"text": text}
	if voice != "" {
		payload["voice"] = voice
	}

	req, err := b.jsonRequest(ctx, "/api/tts", payload)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, b.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read audio: %w", err)
	}
	return wav, nil
}

// Status fetches GET /api/status: capability availability, sanitized
// configuration, and system stats as the backend reports them.
func (b *Backend) Status(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/status", nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	var out map[string]any
	if err := b.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateConfig sets a single dot-path configuration key on the backend via
// POST /api/config. The backend reinitializes the owning capability.
func (b *Backend) UpdateConfig(ctx context.Context, key string, value any) error {
	req, err := b.jsonRequest(ctx, "/api/config", map[string]any{"key": key, "value": value})
	if err != nil {
		return err
	}
	var out map[string]any
	return b.do(req, &out)
}

// Health probes GET /health, returning nil when the backend is reachable.
func (b *Backend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return b.classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// jsonRequest builds a POST request with a JSON body.
func (b *Backend) jsonRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes a request and decodes a JSON response into out.
func (b *Backend) do(req *http.Request, out any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return b.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// classify maps transport errors onto the package sentinels.
func (b *Backend) classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}
	return fmt.Errorf("client: request failed: %w", err)
}

// apiError extracts the backend's error body for a non-200 response.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("client: backend status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("client: backend status %d", resp.StatusCode)
}
