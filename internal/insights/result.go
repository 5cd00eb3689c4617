package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const DefaultDisclaimer = "Educational only; not financial advice."

type ActionPlan struct {
	WeeklyGoals    []string          `json:"weeklyGoals"`
	SpendingLimits map[string]string `json:"spendingLimits"`
	QuickWins      []string          `json:"quickWins"`
}

type InsightResult struct {
	Summary     string     `json:"summary"`
	Highlights  []string   `json:"highlights"`
	Suggestions []string   `json:"suggestions"`
	Watchouts   []string   `json:"watchouts"`
	ActionPlan  ActionPlan `json:"actionPlan"`
	Disclaimer  string     `json:"disclaimer"`
}

type DecodeKind int

const (
	DecodeStrict DecodeKind = iota
	DecodeFallback
)

func (k DecodeKind) String() string {
	if k == DecodeStrict {
		return "strict"
	}
	return "fallback"
}

// Decoded is either a fully typed result (DecodeStrict) or the degraded form
// wrapping the raw text (DecodeFallback). Reason is set only for fallbacks.
type Decoded struct {
	Kind   DecodeKind
	Result InsightResult
	Reason error
}

// FallbackResult оборачивает сырой текст модели в результат без списков.
func FallbackResult(text string) InsightResult {
	return InsightResult{
		Summary:     text,
		Highlights:  []string{},
		Suggestions: []string{},
		Watchouts:   []string{},
		ActionPlan: ActionPlan{
			WeeklyGoals:    []string{},
			SpendingLimits: map[string]string{},
			QuickWins:      []string{},
		},
		Disclaimer: DefaultDisclaimer,
	}
}

// DecodeInsights строго разбирает ответ модели; при любом несоответствии схеме
// возвращает деградированный результат.
func DecodeInsights(text string) Decoded {
	result, err := decodeStrict(text)
	if err != nil {
		return Decoded{Kind: DecodeFallback, Result: FallbackResult(text), Reason: err}
	}

	return Decoded{Kind: DecodeStrict, Result: result}
}

func decodeStrict(text string) (InsightResult, error) {
	payload := unwrapJSON(text)
	if payload == "" {
		return InsightResult{}, errors.New("response is empty")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return InsightResult{}, fmt.Errorf("response is not a json object: %w", err)
	}

	var result InsightResult
	var err error

	summary, ok := fields["summary"]
	if !ok {
		return InsightResult{}, errors.New("summary is required")
	}
	if err = json.Unmarshal(summary, &result.Summary); err != nil {
		return InsightResult{}, fmt.Errorf("summary: %w", err)
	}

	if result.Highlights, err = stringList(fields, "highlights"); err != nil {
		return InsightResult{}, err
	}
	if result.Suggestions, err = stringList(fields, "suggestions"); err != nil {
		return InsightResult{}, err
	}
	if result.Watchouts, err = stringList(fields, "watchouts"); err != nil {
		return InsightResult{}, err
	}
	if result.ActionPlan, err = decodeActionPlan(fields["actionPlan"]); err != nil {
		return InsightResult{}, err
	}

	if raw, ok := fields["disclaimer"]; ok && !isNull(raw) {
		if err = json.Unmarshal(raw, &result.Disclaimer); err != nil {
			return InsightResult{}, fmt.Errorf("disclaimer: %w", err)
		}
	}
	if strings.TrimSpace(result.Disclaimer) == "" {
		result.Disclaimer = DefaultDisclaimer
	}

	return result, nil
}

func decodeActionPlan(raw json.RawMessage) (ActionPlan, error) {
	plan := ActionPlan{
		WeeklyGoals:    []string{},
		SpendingLimits: map[string]string{},
		QuickWins:      []string{},
	}
	if len(raw) == 0 || isNull(raw) {
		return plan, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return plan, fmt.Errorf("actionPlan: %w", err)
	}

	var err error
	if plan.WeeklyGoals, err = stringList(fields, "weeklyGoals"); err != nil {
		return plan, err
	}
	if plan.QuickWins, err = stringList(fields, "quickWins"); err != nil {
		return plan, err
	}

	limits, ok := fields["spendingLimits"]
	if !ok || isNull(limits) {
		return plan, nil
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(limits, &values); err != nil {
		return plan, fmt.Errorf("spendingLimits: %w", err)
	}

	for category, value := range values {
		limit, err := limitString(value)
		if err != nil {
			return plan, fmt.Errorf("spendingLimits.%s: %w", category, err)
		}
		plan.SpendingLimits[category] = limit
	}

	return plan, nil
}

func stringList(fields map[string]json.RawMessage, key string) ([]string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return []string{}, nil
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if values == nil {
		values = []string{}
	}

	return values, nil
}

// limitString accepts "$50/week" as well as bare numbers like 50.
func limitString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("limit must be a string or a number")
	}

	return strconv.FormatFloat(n, 'f', -1, 64), nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// unwrapJSON возвращает тело ответа без пробелов по краям. Если весь ответ
// обернут в один блок ```json ... ```, возвращается содержимое блока.
// Текст вокруг JSON не вырезается: такой ответ не проходит строгий разбор.
func unwrapJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}

	inner := trimmed[3 : len(trimmed)-3]
	if strings.Contains(inner, "```") {
		return trimmed
	}

	newline := strings.IndexByte(inner, '\n')
	if newline == -1 {
		return trimmed
	}
	if lang := strings.TrimSpace(inner[:newline]); lang != "" && !strings.EqualFold(lang, "json") {
		return trimmed
	}

	return strings.TrimSpace(inner[newline+1:])
}
