package ai

import (
	"errors"
	"testing"
)

// TestSanitizeAPIKey проверяет очистку ключа.
func TestSanitizeAPIKey(t *testing.T) {
	cases := map[string]string{
		"  sk-abc  ":          "sk-abc",
		"\uFEFFsk-abc":        "sk-abc",
		"\uFEFF sk-abc ":      "sk-abc",
		"Bearer sk-abc":       "sk-abc",
		"bearer   sk-abc":     "sk-abc",
		`"sk-abc"`:            "sk-abc",
		"'sk-abc'":            "sk-abc",
		" BEARER 'sk-proj-1'": "sk-proj-1",
		"":                    "",
	}

	for input, want := range cases {
		if got := SanitizeAPIKey(input); got != want {
			t.Fatalf("sanitize %q: expected %q, got %q", input, want, got)
		}
	}
}

// TestCheckOpenAIKey проверяет различие отсутствующего и неверного ключа.
func TestCheckOpenAIKey(t *testing.T) {
	if _, err := CheckOpenAIKey(""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}

	if key, err := CheckOpenAIKey("\uFEFF sk-abc"); err != nil || key != "sk-abc" {
		t.Fatalf("expected key after BOM and space, got %q, %v", key, err)
	}

	if _, err := CheckOpenAIKey("session-token"); !errors.Is(err, ErrInvalidCredentialShape) {
		t.Fatalf("expected ErrInvalidCredentialShape, got %v", err)
	}

	key, err := CheckOpenAIKey("Bearer sk-proj-xyz")
	if err != nil || key != "sk-proj-xyz" {
		t.Fatalf("expected sk-proj-xyz, got %q (%v)", key, err)
	}
}

// TestDescribeKey проверяет диагностику без раскрытия ключа.
func TestDescribeKey(t *testing.T) {
	status := DescribeKey("sk-test-9876", "gpt-4o-mini")
	if !status.HasKey || !status.StartsWithSk || status.Length != 12 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Last4 == nil || *status.Last4 != "9876" {
		t.Fatalf("unexpected last4 %v", status.Last4)
	}

	empty := DescribeKey("", "gpt-4o-mini")
	if empty.HasKey || empty.Last4 != nil {
		t.Fatalf("unexpected status %+v", empty)
	}
}
