package insights

import (
	"bytes"
	"encoding/json"

	"example.com/budget-tracker/backend/internal/money"
)

type Tone string

const (
	ToneIncome  Tone = "income"
	ToneExpense Tone = "expense"

	defaultTransactionName = "Transaction"
	defaultCategory        = "Uncategorized"
)

// Transaction is the canonical shape every pipeline stage works with.
// Amount is always finite.
type Transaction struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Tone     Tone    `json:"tone,omitempty"`
	Amount   float64 `json:"amount"`
}

// NormalizeTransactions разбирает JSON-массив произвольных записей.
// Все, что не является массивом, дает пустой список.
func NormalizeTransactions(raw json.RawMessage) []Transaction {
	if len(raw) == 0 {
		return []Transaction{}
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var items []any
	if err := decoder.Decode(&items); err != nil {
		return []Transaction{}
	}

	return Normalize(items)
}

// Normalize приводит записи к каноническому виду и отбрасывает записи без суммы.
func Normalize(items []any) []Transaction {
	out := make([]Transaction, 0, len(items))

	for _, item := range items {
		record, _ := item.(map[string]any)

		amount, ok := money.Parse(record["amount"])
		if !ok {
			continue
		}

		out = append(out, Transaction{
			Name:     stringOr(record["name"], defaultTransactionName),
			Category: stringOr(record["cat"], defaultCategory),
			Date:     stringOr(record["date"], ""),
			Tone:     parseTone(record["tone"]),
			Amount:   amount,
		})
	}

	return out
}

func stringOr(value any, fallback string) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fallback
}

func parseTone(value any) Tone {
	s, _ := value.(string)
	switch Tone(s) {
	case ToneIncome, ToneExpense:
		return Tone(s)
	default:
		return ""
	}
}
