package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"postforge/internal/config"
)

const userAgent = "Postforge-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventBatchStarted     Event = "batch_started"
	EventBatchCompleted   Event = "batch_completed"
	EventItemFailed       Event = "item_failed"
	EventAdapterUnhealthy Event = "adapter_unhealthy"
	EventError            Event = "error"
	EventTest             Event = "test"
)

// Payload carries event specific values.
type Payload map[string]any

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		batch:    cfg.Notifications.Batch,
		failures: cfg.Notifications.Failures,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	batch    bool
	failures bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil {
		return nil
	}
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchStarted:
		return message{}, false
	case EventBatchCompleted:
		if !n.batch {
			return message{}, false
		}
		total := payloadInt(payload, "total")
		failed := payloadInt(payload, "failed")
		succeeded := payloadInt(payload, "succeeded")
		duration := payloadDuration(payload, "duration")
		if total == 0 {
			return message{}, false
		}
		if failed == 0 {
			return message{
				title: "Postforge - Batch Complete",
				body:  fmt.Sprintf("Enhanced %d of %d posts in %s", succeeded, total, duration),
				tags:  []string{"postforge", "batch", "completed"},
			}, true
		}
		return message{
			title: "Postforge - Batch Complete (with errors)",
			body:  fmt.Sprintf("%d succeeded, %d failed in %s", succeeded, failed, duration),
			tags:  []string{"postforge", "batch", "failed"},
		}, true
	case EventItemFailed:
		if !n.failures {
			return message{}, false
		}
		label := payloadString(payload, "item")
		stage := payloadString(payload, "stage")
		reason := payloadString(payload, "reason")
		var b strings.Builder
		b.WriteString("❌ ")
		b.WriteString(defaultText(label, "item"))
		if stage != "" {
			b.WriteString(" failed at ")
			b.WriteString(stage)
		} else {
			b.WriteString(" failed")
		}
		if reason != "" {
			b.WriteString(" (")
			b.WriteString(reason)
			b.WriteString(")")
		}
		if detail := payloadString(payload, "message"); detail != "" {
			b.WriteString(": ")
			b.WriteString(detail)
		}
		return message{
			title:    "Postforge - Item Failed",
			body:     b.String(),
			tags:     []string{"postforge", "item", "failed"},
			priority: "high",
		}, true
	case EventAdapterUnhealthy:
		return message{
			title:    "Postforge - Adapter Unavailable",
			body:     fmt.Sprintf("⚠️ %s unavailable: %s", defaultText(payloadString(payload, "adapter"), "adapter"), defaultText(payloadString(payload, "detail"), "unknown")),
			tags:     []string{"postforge", "adapter", "alert"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		b.WriteString(defaultText(payloadString(payload, "error"), "unknown"))
		return message{
			title:    "Postforge - Error",
			body:     b.String(),
			tags:     []string{"postforge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Postforge - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"postforge", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

func payloadDuration(payload Payload, key string) string {
	d, _ := payload[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func defaultText(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
