package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"model": "served-model", "choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": `{"ok":true}`}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestGenerateSendsStageParameters(t *testing.T) {
	var captured chatCompletionRequest
	var rawBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.Unmarshal(body, &captured)
		_ = json.Unmarshal(body, &rawBody)
		writeCompletion(t, w, map[string]any{
			"finish_reason": "stop",
			"message":       map[string]any{"content": "<p>enhanced</p>"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "default-model"})
	gen, err := client.Generate(context.Background(), "rewrite this", Params{
		System:      "you are an editor",
		Model:       "stage-model",
		Temperature: 0.4,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if gen.Text != "<p>enhanced</p>" || gen.FinishReason != FinishStop {
		t.Fatalf("unexpected generation %+v", gen)
	}
	if gen.Truncated() {
		t.Fatal("expected stop finish to not be truncated")
	}
	if gen.Model != "served-model" {
		t.Fatalf("expected served model to be reported, got %q", gen.Model)
	}
	if captured.Model != "stage-model" || captured.Temperature != 0.4 {
		t.Fatalf("unexpected request params: %+v", captured)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "rewrite this" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	if _, ok := rawBody["max_tokens"]; ok {
		t.Fatalf("expected max_tokens to be omitted when zero, got %v", rawBody["max_tokens"])
	}
	if _, ok := rawBody["response_format"]; ok {
		t.Fatalf("expected no response_format for raw generation")
	}
}

func TestGenerateReturnsTruncatedWithoutRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeCompletion(t, w, map[string]any{
			"finish_reason": "length",
			"message":       map[string]any{"content": "<p>partial"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}, WithSleeper(func(time.Duration) {}))
	gen, err := client.Generate(context.Background(), "prompt", Params{MaxTokens: 10})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !gen.Truncated() {
		t.Fatalf("expected truncated generation, got %+v", gen)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestGenerateEmptyTruncatedCompletionIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"finish_reason": "max_tokens", "message": map[string]any{"content": ""}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	gen, err := client.Generate(context.Background(), "prompt", Params{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !gen.Truncated() || gen.Text != "" {
		t.Fatalf("expected empty truncated generation, got %+v", gen)
	}
}

func TestGenerateEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Generate(context.Background(), "prompt", Params{})
	if err == nil {
		t.Fatal("expected generate to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestGenerateLegacyTextAndDelta(t *testing.T) {
	for name, choice := range map[string]map[string]any{
		"text":  {"finish_reason": "stop", "text": "<p>legacy</p>"},
		"delta": {"finish_reason": "", "delta": map[string]any{"content": "<p>legacy</p>"}},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, choice)
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
			gen, err := client.Generate(context.Background(), "prompt", Params{})
			if err != nil {
				t.Fatalf("Generate returned error: %v", err)
			}
			if gen.Text != "<p>legacy</p>" {
				t.Fatalf("unexpected text %q", gen.Text)
			}
		})
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		writeCompletion(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": "ok"}})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	gen, err := client.Generate(context.Background(), "prompt", Params{})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if gen.Text != "ok" {
		t.Fatalf("unexpected text %q", gen.Text)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}, WithSleeper(func(time.Duration) {}))
	_, err := client.Generate(context.Background(), "prompt", Params{})
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestGenerateRequiresAPIKeyAndPrompt(t *testing.T) {
	client := NewClient(Config{Model: "demo"})
	if _, err := client.Generate(context.Background(), "prompt", Params{}); err == nil {
		t.Fatal("expected missing api key error")
	}
	client = NewClient(Config{APIKey: "k"})
	if _, err := client.Generate(context.Background(), "   ", Params{}); err == nil {
		t.Fatal("expected missing prompt error")
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, expected := range want {
		if got := client.backoffDelay(i + 1); got != expected {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, expected)
		}
	}
}
