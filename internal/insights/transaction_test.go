package insights

import (
	"encoding/json"
	"math"
	"testing"
)

// TestNormalizeTransactions проверяет значения по умолчанию, тон и отбрасывание записей.
func TestNormalizeTransactions(t *testing.T) {
	raw := json.RawMessage(`[
		{"name": "Coffee", "cat": "Food", "date": "2024-05-01", "tone": "expense", "amount": "-$4.50"},
		{"name": 42, "cat": null, "tone": "gift", "amount": 12},
		{"amount": "abc"},
		"not an object",
		{"amount": "1,200"}
	]`)

	got := NormalizeTransactions(raw)
	if len(got) != 3 {
		t.Fatalf("expected 3 transactions, got %d: %+v", len(got), got)
	}

	first := got[0]
	if first.Name != "Coffee" || first.Category != "Food" || first.Date != "2024-05-01" || first.Tone != ToneExpense || first.Amount != -4.5 {
		t.Fatalf("unexpected first transaction: %+v", first)
	}

	second := got[1]
	if second.Name != defaultTransactionName || second.Category != defaultCategory || second.Date != "" || second.Tone != "" || second.Amount != 12 {
		t.Fatalf("unexpected second transaction: %+v", second)
	}

	if got[2].Amount != 1200 {
		t.Fatalf("expected 1200, got %v", got[2].Amount)
	}
}

// TestNormalizeTransactionsNotArray проверяет, что не-массив дает пустой список.
func TestNormalizeTransactionsNotArray(t *testing.T) {
	inputs := []string{``, `{}`, `"x"`, `null`, `[`, `42`}

	for _, input := range inputs {
		got := NormalizeTransactions(json.RawMessage(input))
		if got == nil || len(got) != 0 {
			t.Fatalf("input %q: expected empty slice, got %#v", input, got)
		}
	}
}

// TestNormalizeFiniteAmounts проверяет, что длина не растет и суммы конечны.
func TestNormalizeFiniteAmounts(t *testing.T) {
	items := []any{
		map[string]any{"amount": math.NaN()},
		map[string]any{"amount": math.Inf(1)},
		map[string]any{"amount": "--5"},
		map[string]any{"amount": true},
		map[string]any{"amount": 3.25},
		nil,
	}

	got := Normalize(items)
	if len(got) > len(items) {
		t.Fatalf("output longer than input: %d > %d", len(got), len(items))
	}
	for _, tx := range got {
		if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
			t.Fatalf("non-finite amount in %+v", tx)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %+v", got)
	}
	if got[0].Amount != -5 || got[1].Amount != 3.25 {
		t.Fatalf("unexpected amounts: %+v", got)
	}
}

// TestTransactionJSON проверяет, что пустой тон не сериализуется.
func TestTransactionJSON(t *testing.T) {
	payload, err := json.Marshal(Transaction{Name: "a", Category: "b", Amount: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"name":"a","category":"b","date":"","amount":1}`
	if string(payload) != want {
		t.Fatalf("expected %s, got %s", want, payload)
	}
}
