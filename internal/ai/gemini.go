package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient создает клиент Gemini с заданными параметрами.
func NewGeminiClient(opts Options, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
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

// Chat отправляет сообщения в Gemini и возвращает текст ответа и сериализованный ответ SDK.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (string, []byte, error) {
	apiKey := SanitizeAPIKey(c.apiKey)
	if apiKey == "" {
		return "", nil, ErrMissingCredential
	}

	system, contents := splitGeminiMessages(messages)
	if len(contents) == 0 {
		return "", nil, errors.New("gemini request has no user content")
	}

	client, err := c.ensureClient(ctx, apiKey)
	if err != nil {
		return "", nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(c.temperature)),
		MaxOutputTokens:  int32(resolveMaxTokens(c.maxTokens)),
		ResponseMIMEType: "application/json",
	}
	if system != nil {
		config.SystemInstruction = system
	}

	response, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", nil, classifyGeminiError(err)
	}

	raw, _ := json.Marshal(response)
	return response.Text(), raw, nil
}

func (c *GeminiClient) ensureClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c.client = client
	return client, nil
}

func splitGeminiMessages(messages []Message) (*genai.Content, []*genai.Content) {
	systemParts := make([]*genai.Part, 0)
	contents := make([]*genai.Content, 0, len(messages))

	for _, message := range messages {
		role := strings.ToLower(strings.TrimSpace(message.Role))
		text := strings.TrimSpace(message.Content)
		if text == "" {
			continue
		}

		switch role {
		case "system":
			systemParts = append(systemParts, &genai.Part{Text: text})
		case "assistant", "model":
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: text}}})
		}
	}

	if len(systemParts) == 0 {
		return nil, contents
	}

	return &genai.Content{Parts: systemParts}, contents
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiUpstreamError(apiErr)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return geminiUpstreamError(*apiErrPtr)
	}

	return transportError(ProviderGemini, err)
}

func geminiUpstreamError(apiErr genai.APIError) error {
	status := apiErr.Code
	// Gemini answers invalid keys with 400 API_KEY_INVALID.
	if status == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key not valid") {
		status = http.StatusUnauthorized
	}
	if status == 0 {
		status = http.StatusBadGateway
	}

	return &UpstreamError{Provider: ProviderGemini, Status: status, Code: apiErr.Status}
}
