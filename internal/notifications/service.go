package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"escucha/internal/config"
)

const userAgent = "Escucha-Go/0.1.0"

// Service defines the notification surface exposed to capture and
// conversion components.
type Service interface {
	NotifyCaptureCompleted(ctx context.Context, parentSessionID string, words int, duration time.Duration) error
	NotifyRiskEscalated(ctx context.Context, sessionID, level string) error
	NotifyConversionCompleted(ctx context.Context, kind, artifactID string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		capture:    cfg.Notifications.Capture,
		conversion: cfg.Notifications.Conversion,
		risk:       cfg.Notifications.Risk,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	capture    bool
	conversion bool
	risk       bool
	errors     bool
}

func (n *ntfyService) NotifyCaptureCompleted(ctx context.Context, parentSessionID string, words int, duration time.Duration) error {
	if !n.capture {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:   "Escucha - Capture Complete",
		message: fmt.Sprintf("🎙️ Transcript captured for session %s: %d words in %s", strings.TrimSpace(parentSessionID), words, duration),
		tags:    []string{"escucha", "capture", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRiskEscalated(ctx context.Context, sessionID, level string) error {
	if !n.risk {
		return nil
	}
	level = strings.TrimSpace(level)
	priority := ""
	if level == "red" {
		priority = "high"
	}
	data := payload{
		title:    "Escucha - Risk Escalated",
		message:  fmt.Sprintf("🚨 Session %s risk set to %s", strings.TrimSpace(sessionID), level),
		tags:     []string{"escucha", "risk", level},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, kind, artifactID string) error {
	if !n.conversion {
		return nil
	}
	data := payload{
		title:   "Escucha - Note Converted",
		message: fmt.Sprintf("✅ Note converted to %s (%s)", strings.TrimSpace(kind), strings.TrimSpace(artifactID)),
		tags:    []string{"escucha", "conversion", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Escucha - Error",
		message:  builder.String(),
		tags:     []string{"escucha", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Escucha - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"escucha", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCaptureCompleted(context.Context, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRiskEscalated(context.Context, string, string) error { return nil }

func (noopService) NotifyConversionCompleted(context.Context, string, string) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
