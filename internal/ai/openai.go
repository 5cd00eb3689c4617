package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient calls an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error *struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient создает клиент chat completions с таймаутом на весь запрос.
func NewOpenAIClient(opts Options, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: resolveTemperature(opts.Temperature),
		maxTokens:   opts.MaxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Chat отправляет сообщения и возвращает содержимое первого ответа и сырой ответ API.
// Ключ проверяется до любого сетевого вызова.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	apiKey, err := CheckOpenAIKey(c.apiKey)
	if err != nil {
		return "", nil, err
	}

	reqBody := openAIChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   resolveMaxTokens(c.maxTokens),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", nil, err
	}

	request.Header.Set("Authorization", "Bearer "+apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", nil, transportError(ProviderOpenAI, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", nil, transportError(ProviderOpenAI, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		upstream := &UpstreamError{Provider: ProviderOpenAI, Status: response.StatusCode}
		var apiErr openAIErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
			upstream.Code = errorCode(apiErr.Error.Code)
			upstream.Type = apiErr.Error.Type
		}
		return "", body, upstream
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", body, &UpstreamError{Provider: ProviderOpenAI, Status: http.StatusBadGateway, Code: "invalid_response", Err: err}
	}

	if len(parsed.Choices) == 0 {
		return "", body, nil
	}

	return parsed.Choices[0].Message.Content, body, nil
}

// errorCode accepts both string and numeric "code" values.
func errorCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return code
	}

	return strings.TrimSpace(string(raw))
}
