package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/backend/internal/auth"
	"example.com/budget-tracker/backend/internal/models"
	"example.com/budget-tracker/backend/internal/money"
)

type TransactionExport struct {
	ExportedAt   string                `json:"exported_at"`
	Transactions []TransactionResponse `json:"transactions"`
}

// ExportJSON выгружает транзакции пользователя в JSON-файл.
func (h *TransactionHandler) ExportJSON(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	items, err := h.Transactions.List(c.Request().Context(), userID, filter)
	if err != nil {
		return serverError(c)
	}

	response := TransactionExport{
		ExportedAt:   time.Now().UTC().Format(timeLayout),
		Transactions: make([]TransactionResponse, 0, len(items)),
	}
	for _, item := range items {
		response.Transactions = append(response.Transactions, toTransactionResponse(item))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\"transactions.json\"")
	return c.JSON(http.StatusOK, response)
}

// ExportCSV выгружает транзакции пользователя в CSV-файл.
func (h *TransactionHandler) ExportCSV(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	items, err := h.Transactions.List(c.Request().Context(), userID, filter)
	if err != nil {
		return serverError(c)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeTransactionsCSV(writer, items); err != nil {
		return serverError(c)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\"transactions.csv\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeTransactionsCSV(writer *csv.Writer, items []models.Transaction) error {
	header := []string{
		"id",
		"date",
		"name",
		"category",
		"tone",
		"amount",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, item := range items {
		tone := ""
		if item.Tone != nil {
			tone = string(*item.Tone)
		}

		record := []string{
			item.ID.String(),
			item.OccurredOn.Format(models.DateLayout),
			item.Name,
			item.Category,
			tone,
			money.FormatFixed(item.Amount),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
