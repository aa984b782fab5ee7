package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"postforge/internal/config"
	"postforge/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventBatchCompleted, notifications.Payload{"total": 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "batch completed",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"total":     3,
				"succeeded": 3,
				"failed":    0,
				"duration":  90 * time.Second,
			},
			expectTitle:   "Postforge - Batch Complete",
			expectMessage: "Enhanced 3 of 3 posts in 1m30s",
			expectTags:    "postforge,batch,completed",
		},
		{
			name:  "batch completed with errors",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"total":     3,
				"succeeded": 2,
				"failed":    1,
				"duration":  4 * time.Second,
			},
			expectTitle:   "Postforge - Batch Complete (with errors)",
			expectMessage: "2 succeeded, 1 failed in 4s",
			expectTags:    "postforge,batch,failed",
		},
		{
			name:  "item failed",
			event: notifications.EventItemFailed,
			payload: notifications.Payload{
				"item":    "post 42 (best running shoes)",
				"stage":   "SEO-Finalization",
				"reason":  "FormatError",
				"message": "reply is not valid JSON",
			},
			expectTitle:    "Postforge - Item Failed",
			expectMessage:  "❌ post 42 (best running shoes) failed at SEO-Finalization (FormatError): reply is not valid JSON",
			expectTags:     "postforge,item,failed",
			expectPriority: "high",
		},
		{
			name:  "adapter unhealthy",
			event: notifications.EventAdapterUnhealthy,
			payload: notifications.Payload{
				"adapter": "documents",
				"detail":  "connection refused",
			},
			expectTitle:    "Postforge - Adapter Unavailable",
			expectMessage:  "⚠️ documents unavailable: connection refused",
			expectTags:     "postforge,adapter,alert",
			expectPriority: "high",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "batch",
				"error":   "queue unreadable",
			},
			expectTitle:    "Postforge - Error",
			expectMessage:  "❌ Error with batch: queue unreadable",
			expectTags:     "postforge,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Failures = false

	svc := notifications.NewService(&cfg)
	cases := []struct {
		event   notifications.Event
		payload notifications.Payload
	}{
		{notifications.EventBatchStarted, notifications.Payload{"total": 2}},
		{notifications.EventItemFailed, notifications.Payload{"item": "post 1"}},
		{notifications.EventBatchCompleted, notifications.Payload{"total": 0}},
		{notifications.Event("unknown"), nil},
	}

	for _, tc := range cases {
		if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", tc.event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for forbidden response")
	}
}
