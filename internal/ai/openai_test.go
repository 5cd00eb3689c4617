package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestOpenAIClient(baseURL, apiKey string, timeout time.Duration) *OpenAIClient {
	return NewOpenAIClient(Options{APIKey: apiKey, BaseURL: baseURL, Model: "gpt-4o-mini", Temperature: 0.4}, timeout)
}

// TestOpenAIChatSuccess проверяет тело запроса и разбор ответа.
func TestOpenAIChatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-1234" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var body openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "gpt-4o-mini" || body.Temperature != 0.4 || len(body.Messages) != 2 {
			t.Errorf("unexpected request body %+v", body)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"summary\":\"ok\"}"}}]}`))
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL, "  Bearer \"sk-test-1234\" ", time.Second)
	content, raw, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "coach"},
		{Role: "user", Content: "data"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if content != `{"summary":"ok"}` {
		t.Fatalf("unexpected content %q", content)
	}
	if len(raw) == 0 {
		t.Fatal("expected raw response")
	}
}

// TestOpenAIChatMissingKey проверяет, что без ключа сеть не вызывается.
func TestOpenAIChatMissingKey(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	_, _, err := newTestOpenAIClient(server.URL, "   ", time.Second).Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}

	_, _, err = newTestOpenAIClient(server.URL, "pk-live-abc", time.Second).Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
	if !errors.Is(err, ErrInvalidCredentialShape) {
		t.Fatalf("expected ErrInvalidCredentialShape, got %v", err)
	}

	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

// TestOpenAIChatUnauthorized проверяет классификацию 401.
func TestOpenAIChatUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided: sk-***abcd","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	_, _, err := newTestOpenAIClient(server.URL, "sk-test", time.Second).Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
	if !errors.Is(err, ErrInvalidOrRevokedCredential) {
		t.Fatalf("expected ErrInvalidOrRevokedCredential, got %v", err)
	}
}

// TestOpenAIChatUpstreamFailure проверяет, что тело ошибки не попадает в сообщение.
func TestOpenAIChatUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota, billing account 42","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer server.Close()

	_, _, err := newTestOpenAIClient(server.URL, "sk-test", time.Second).Chat(context.Background(), []Message{{Role: "user", Content: "x"}})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusTooManyRequests || upstream.Code != "insufficient_quota" || upstream.Type != "insufficient_quota" {
		t.Fatalf("unexpected upstream error %+v", upstream)
	}
	if err.Error() != "summarization request failed (429): insufficient_quota" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if errors.Is(err, ErrInvalidOrRevokedCredential) {
		t.Fatal("429 must not match ErrInvalidOrRevokedCredential")
	}
}

// TestOpenAIChatTimeout проверяет, что таймаут превращается в 504.
func TestOpenAIChatTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	_, _, err := newTestOpenAIClient(server.URL, "sk-test", 50*time.Millisecond).Chat(context.Background(), []Message{{Role: "user", Content: "x"}})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusGatewayTimeout || upstream.Code != "timeout" {
		t.Fatalf("unexpected upstream error %+v", upstream)
	}
}

// TestOpenAIChatNoChoices проверяет пустой ответ без ошибки.
func TestOpenAIChatNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	content, _, err := newTestOpenAIClient(server.URL, "sk-test", time.Second).Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
	if err != nil || content != "" {
		t.Fatalf("expected empty content without error, got %q, %v", content, err)
	}
}

// TestErrorCode проверяет разбор строкового и числового кода.
func TestErrorCode(t *testing.T) {
	if got := errorCode(json.RawMessage(`"rate_limit_exceeded"`)); got != "rate_limit_exceeded" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := errorCode(json.RawMessage(`429`)); got != "429" {
		t.Fatalf("unexpected code %q", got)
	}
	if got := errorCode(json.RawMessage(`null`)); got != "" {
		t.Fatalf("unexpected code %q", got)
	}
}
