package ai

import "context"

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultMaxTokens   = 4096
	defaultTemperature = 0.4
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client отправляет диалог в модель и возвращает текст первого ответа и сырое тело.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, []byte, error)
}

// Options общие параметры клиентов провайдеров.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

func resolveTemperature(value float64) float64 {
	if value > 0 {
		return value
	}

	return defaultTemperature
}
