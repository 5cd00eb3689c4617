package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrMissingCredential          = errors.New("api key is missing")
	ErrInvalidCredentialShape     = errors.New("api key does not look like a valid key")
	ErrInvalidOrRevokedCredential = errors.New("api key was rejected by the provider")
)

// UpstreamError описывает неуспешный ответ провайдера без тела ответа.
type UpstreamError struct {
	Provider string
	Status   int
	Code     string
	Type     string
	Err      error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("summarization request failed (%d)", e.Status)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes a 401 upstream response match ErrInvalidOrRevokedCredential.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrInvalidOrRevokedCredential && e.Status == http.StatusUnauthorized
}

func transportError(provider string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &UpstreamError{Provider: provider, Status: http.StatusGatewayTimeout, Code: "timeout", Err: err}
	}

	return &UpstreamError{Provider: provider, Status: http.StatusBadGateway, Code: "unavailable", Err: err}
}
