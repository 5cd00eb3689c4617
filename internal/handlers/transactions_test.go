package handlers

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/budget-tracker/backend/internal/models"
)

// TestTransactionInputFromRequest проверяет разбор суммы, тона и категории по умолчанию.
func TestTransactionInputFromRequest(t *testing.T) {
	tone := "expense"
	input, err := transactionInputFromRequest(TransactionRequest{
		Name:   "  Coffee ",
		Amount: "-$4.505",
		Tone:   &tone,
		Date:   "2024-05-01",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if input.Name != "Coffee" || input.Category != defaultTransactionCategory {
		t.Fatalf("unexpected input: %+v", input)
	}
	if input.Amount != -4.51 {
		t.Fatalf("expected -4.51, got %v", input.Amount)
	}
	if input.Tone == nil || *input.Tone != models.ToneExpense {
		t.Fatalf("unexpected tone: %v", input.Tone)
	}
	if input.OccurredOn.Format(models.DateLayout) != "2024-05-01" {
		t.Fatalf("unexpected date: %v", input.OccurredOn)
	}
}

// TestTransactionInputFromRequestNumeric проверяет числовую сумму без тона.
func TestTransactionInputFromRequestNumeric(t *testing.T) {
	input, err := transactionInputFromRequest(TransactionRequest{
		Name:     "Salary",
		Category: "Work",
		Amount:   1500.0,
		Date:     "2024-05-01",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if input.Amount != 1500 || input.Tone != nil || input.Category != "Work" {
		t.Fatalf("unexpected input: %+v", input)
	}
}

// TestTransactionInputFromRequestInvalid проверяет ошибки разбора.
func TestTransactionInputFromRequestInvalid(t *testing.T) {
	cases := []TransactionRequest{
		{Name: "x", Amount: "abc", Date: "2024-05-01"},
		{Name: "x", Amount: nil, Date: "2024-05-01"},
		{Name: "x", Amount: true, Date: "2024-05-01"},
		{Name: "x", Amount: 5.0, Date: "01.05.2024"},
		{Name: "   ", Amount: 5.0, Date: "2024-05-01"},
	}

	for _, req := range cases {
		if _, err := transactionInputFromRequest(req); err == nil {
			t.Fatalf("expected error for %+v", req)
		}
	}
}

// TestWriteTransactionsCSV проверяет формат CSV-выгрузки.
func TestWriteTransactionsCSV(t *testing.T) {
	income := models.ToneIncome
	id := uuid.New()
	items := []models.Transaction{
		{ID: id, Name: "Salary, May", Category: "Work", Amount: 1500, Tone: &income, OccurredOn: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), Name: "Coffee", Category: "Food", Amount: -4.5, OccurredOn: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeTransactionsCSV(writer, items); err != nil {
		t.Fatalf("write: %v", err)
	}
	writer.Flush()

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}

	first := records[1]
	if first[0] != id.String() || first[1] != "2024-05-01" || first[2] != "Salary, May" || first[4] != "income" || first[5] != "1500.00" {
		t.Fatalf("unexpected first row: %v", first)
	}
	if second := records[2]; second[4] != "" || second[5] != "-4.50" {
		t.Fatalf("unexpected second row: %v", second)
	}
}

// TestToInsightTransactions проверяет перенос сохраненных транзакций в снимок.
func TestToInsightTransactions(t *testing.T) {
	expense := models.ToneExpense
	stored := []models.Transaction{
		{Category: "Food", Amount: 25.5, Tone: &expense},
		{Category: "Food", Amount: -10},
		{Category: "Salary", Amount: 100},
	}

	snapshot := computeStoredSnapshot(stored)
	if snapshot.Income != 100 || snapshot.Expenses != 35.5 || snapshot.Net != 64.5 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}
