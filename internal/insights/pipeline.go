package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"example.com/budget-tracker/backend/internal/ai"
)

const DefaultPeriodDays = 14

var (
	ErrMalformedRequest      = errors.New("invalid request. Expected JSON body with a transactions array")
	ErrNotEnoughTransactions = errors.New("not enough transactions to generate insights")
	ErrRefreshInProgress     = errors.New("insights refresh already in progress")
)

type Request struct {
	UserID       uuid.UUID
	PeriodDays   int
	Transactions json.RawMessage
}

// Envelope is what the pipeline returns and what the cache stores.
type Envelope struct {
	PeriodDays  int           `json:"periodDays"`
	Snapshot    Snapshot      `json:"snapshot"`
	Insights    InsightResult `json:"insights"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// Generator runs the full pipeline once.
type Generator interface {
	Generate(ctx context.Context, req Request) (Envelope, error)
}

// Attempt описывает одну попытку обращения к модели для аудита.
type Attempt struct {
	UserID          uuid.UUID
	Provider        string
	Model           string
	Prompt          string
	RequestPayload  []byte
	ResponsePayload []byte
	Success         bool
	Fallback        bool
	ErrorMessage    string
}

type AuditRecorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

type Pipeline struct {
	client   ai.Client
	provider string
	model    string
	audit    AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipeline создает конвейер. audit может быть nil.
func NewPipeline(client ai.Client, provider, model string, audit AuditRecorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		client:   client,
		provider: provider,
		model:    model,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// ParseRequest разбирает тело запроса: JSON-объект с массивом transactions.
func ParseRequest(body []byte) (Request, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload struct {
		PeriodDays   any             `json:"periodDays"`
		Transactions json.RawMessage `json:"transactions"`
	}
	if err := decoder.Decode(&payload); err != nil {
		return Request{}, ErrMalformedRequest
	}

	trimmed := bytes.TrimSpace(payload.Transactions)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Request{}, ErrMalformedRequest
	}

	return Request{
		PeriodDays:   resolvePeriodDays(payload.PeriodDays),
		Transactions: trimmed,
	}, nil
}

func resolvePeriodDays(value any) int {
	number, ok := value.(json.Number)
	if !ok {
		return DefaultPeriodDays
	}

	days, err := number.Float64()
	if err != nil || days < 1 {
		return DefaultPeriodDays
	}

	return int(days)
}

// Generate нормализует транзакции, считает снимок, запрашивает модель и разбирает ответ.
// Неразборчивый ответ модели не является ошибкой.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Envelope, error) {
	periodDays := req.PeriodDays
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}

	transactions := NormalizeTransactions(req.Transactions)
	snapshot := ComputeSnapshot(transactions)

	messages, prompt, err := BuildPrompt(periodDays, snapshot, transactions)
	if err != nil {
		return Envelope{}, fmt.Errorf("build prompt: %w", err)
	}

	attempt := Attempt{
		UserID:   req.UserID,
		Provider: p.provider,
		Model:    p.model,
		Prompt:   prompt,
	}
	attempt.RequestPayload, _ = json.Marshal(snapshot)

	content, _, err := p.client.Chat(ctx, messages)
	if err != nil {
		p.logFailure(ctx, err)
		attempt.ErrorMessage = err.Error()
		p.record(ctx, attempt)
		return Envelope{}, err
	}

	decoded := DecodeInsights(content)
	if decoded.Kind == DecodeFallback {
		p.logger.WarnContext(ctx, "insights response fallback used",
			slog.String("provider", p.provider),
			slog.String("model", p.model),
			slog.String("reason", decoded.Reason.Error()),
		)
	}

	envelope := Envelope{
		PeriodDays:  periodDays,
		Snapshot:    snapshot,
		Insights:    decoded.Result,
		GeneratedAt: p.now().UTC(),
	}

	attempt.Success = true
	attempt.Fallback = decoded.Kind == DecodeFallback
	attempt.ResponsePayload, _ = json.Marshal(decoded.Result)
	p.record(ctx, attempt)

	return envelope, nil
}

func (p *Pipeline) logFailure(ctx context.Context, err error) {
	var upstream *ai.UpstreamError
	if errors.As(err, &upstream) {
		p.logger.ErrorContext(ctx, "summarization request failed",
			slog.String("provider", upstream.Provider),
			slog.Int("status", upstream.Status),
			slog.String("code", upstream.Code),
			slog.String("type", upstream.Type),
			slog.String("model", p.model),
		)
		return
	}

	p.logger.WarnContext(ctx, "summarization request rejected",
		slog.String("provider", p.provider),
		slog.String("model", p.model),
		slog.String("error", err.Error()),
	)
}

func (p *Pipeline) record(ctx context.Context, attempt Attempt) {
	if p.audit == nil {
		return
	}

	if err := p.audit.RecordAttempt(ctx, attempt); err != nil {
		p.logger.WarnContext(ctx, "failed to record ai request", slog.String("error", err.Error()))
	}
}
