package ai

import "strings"

const openAIKeyPrefix = "sk-"

// KeyStatus описывает ключ без раскрытия его значения.
type KeyStatus struct {
	HasKey       bool    `json:"hasKey"`
	StartsWithSk bool    `json:"startsWithSk"`
	Length       int     `json:"length"`
	Last4        *string `json:"last4"`
	Model        string  `json:"model"`
}

// SanitizeAPIKey очищает ключ, скопированный вместе с BOM, "Bearer " или кавычками.
func SanitizeAPIKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.TrimSpace(strings.TrimPrefix(key, "\uFEFF"))

	if len(key) >= 7 && strings.EqualFold(key[:7], "bearer ") {
		key = strings.TrimSpace(key[7:])
	}

	key = strings.TrimPrefix(key, `"`)
	key = strings.TrimSuffix(key, `"`)
	key = strings.TrimPrefix(key, "'")
	key = strings.TrimSuffix(key, "'")

	return key
}

// CheckOpenAIKey возвращает очищенный ключ OpenAI или ошибку его отсутствия/формы.
func CheckOpenAIKey(raw string) (string, error) {
	key := SanitizeAPIKey(raw)
	if key == "" {
		return "", ErrMissingCredential
	}

	if !strings.HasPrefix(key, openAIKeyPrefix) {
		return "", ErrInvalidCredentialShape
	}

	return key, nil
}

// DescribeKey собирает диагностику ключа для отладочного эндпоинта.
func DescribeKey(raw, model string) KeyStatus {
	key := SanitizeAPIKey(raw)
	status := KeyStatus{
		HasKey:       key != "",
		StartsWithSk: strings.HasPrefix(key, openAIKeyPrefix),
		Length:       len(key),
		Model:        model,
	}

	if key != "" {
		last4 := key
		if len(key) > 4 {
			last4 = key[len(key)-4:]
		}
		status.Last4 = &last4
	}

	return status
}
