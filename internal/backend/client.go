package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"escucha/internal/config"
	"escucha/internal/logging"
	"escucha/internal/notes"
	"escucha/internal/services"
	"escucha/internal/transcripts"
)

// HTTPDoer describes the HTTP client used by the backend sync client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Syncer pushes local state to the dashboard persistence API.
type Syncer interface {
	PushTranscriptSession(ctx context.Context, session *transcripts.TranscriptSession) error
	DeleteTranscriptSession(ctx context.Context, id string) error
	PushNote(ctx context.Context, note *notes.QuickNote) error
	DeleteNote(ctx context.Context, id string) error
}

// NewConfiguredSyncer returns an HTTP syncer when the backend is enabled and
// configured, otherwise a no-op implementation.
func NewConfiguredSyncer(cfg *config.Config, logger *slog.Logger) Syncer {
	if cfg == nil || !cfg.Backend.Enabled {
		return noopSyncer{}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if baseURL == "" {
		return noopSyncer{}
	}
	return NewClient(baseURL, cfg.Backend.APIToken, requestTimeout(cfg), http.DefaultClient, logger)
}

func requestTimeout(cfg *config.Config) time.Duration {
	if cfg.Backend.RequestTimeout <= 0 {
		return 0
	}
	return time.Duration(cfg.Backend.RequestTimeout) * time.Second
}

type noopSyncer struct{}

func (noopSyncer) PushTranscriptSession(context.Context, *transcripts.TranscriptSession) error {
	return nil
}
func (noopSyncer) DeleteTranscriptSession(context.Context, string) error { return nil }
func (noopSyncer) PushNote(context.Context, *notes.QuickNote) error      { return nil }
func (noopSyncer) DeleteNote(context.Context, string) error              { return nil }

// Client talks to the dashboard persistence API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	client  HTTPDoer
	logger  *slog.Logger
}

// NewClient constructs an HTTP-backed syncer.
func NewClient(baseURL, token string, timeout time.Duration, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		timeout: timeout,
		client:  doer,
		logger:  logging.NewComponentLogger(logger, "backend"),
	}
}

// PushTranscriptSession upserts a transcript session on the dashboard.
func (c *Client) PushTranscriptSession(ctx context.Context, session *transcripts.TranscriptSession) error {
	if session == nil || session.ID == "" {
		return services.Wrap(services.ErrValidation, "backend", "push-transcript",
			"session id is required", nil)
	}
	url := fmt.Sprintf("%s/api/transcripciones/%s", c.baseURL, session.ID)
	return c.send(ctx, http.MethodPut, url, encodeTranscriptSession(session), nil)
}

// DeleteTranscriptSession removes a transcript session from the dashboard.
func (c *Client) DeleteTranscriptSession(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/api/transcripciones/%s", c.baseURL, id)
	return c.send(ctx, http.MethodDelete, url, nil, nil)
}

// PushNote upserts a quick note on the dashboard.
func (c *Client) PushNote(ctx context.Context, note *notes.QuickNote) error {
	if note == nil || note.ID == "" {
		return services.Wrap(services.ErrValidation, "backend", "push-note",
			"note id is required", nil)
	}
	url := fmt.Sprintf("%s/api/notas-rapidas/%s", c.baseURL, note.ID)
	return c.send(ctx, http.MethodPut, url, encodeQuickNote(note), nil)
}

// DeleteNote removes a quick note from the dashboard.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/api/notas-rapidas/%s", c.baseURL, id)
	return c.send(ctx, http.MethodDelete, url, nil, nil)
}

func (c *Client) send(ctx context.Context, method, url string, payload, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return services.Wrap(services.ErrValidation, "backend", "encode",
				"encode request body", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return services.Wrap(services.ErrValidation, "backend", "request",
			"build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "backend", "request",
			fmt.Sprintf("%s %s", method, url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrExternal
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "backend", "request",
			fmt.Sprintf("%s %s returned %d: %s", method, url, resp.StatusCode,
				strings.TrimSpace(string(detail))), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return services.Wrap(services.ErrExternal, "backend", "decode",
				"decode response body", err)
		}
	}
	return nil
}
