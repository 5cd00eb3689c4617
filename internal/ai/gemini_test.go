package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/genai"
)

// TestSplitGeminiMessages проверяет разделение системных и пользовательских сообщений.
func TestSplitGeminiMessages(t *testing.T) {
	system, contents := splitGeminiMessages([]Message{
		{Role: "system", Content: "coach"},
		{Role: "user", Content: "data"},
		{Role: "assistant", Content: "ok"},
		{Role: "user", Content: "   "},
	})

	if system == nil || len(system.Parts) != 1 || system.Parts[0].Text != "coach" {
		t.Fatalf("unexpected system instruction %+v", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Fatalf("unexpected roles %s, %s", contents[0].Role, contents[1].Role)
	}
}

// TestGeminiChatMissingKey проверяет отказ без ключа.
func TestGeminiChatMissingKey(t *testing.T) {
	client := NewGeminiClient(Options{Model: "gemini-1.5-flash"}, time.Second)
	_, _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

// TestClassifyGeminiError проверяет маппинг ошибок SDK.
func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(genai.APIError{Code: http.StatusBadRequest, Message: "API key not valid. Please pass a valid API key.", Status: "INVALID_ARGUMENT"})
	if !errors.Is(err, ErrInvalidOrRevokedCredential) {
		t.Fatalf("expected ErrInvalidOrRevokedCredential, got %v", err)
	}

	err = classifyGeminiError(genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusTooManyRequests || upstream.Code != "RESOURCE_EXHAUSTED" {
		t.Fatalf("unexpected error %v", err)
	}

	err = classifyGeminiError(context.DeadlineExceeded)
	if !errors.As(err, &upstream) || upstream.Status != http.StatusGatewayTimeout {
		t.Fatalf("expected timeout upstream error, got %v", err)
	}
}
