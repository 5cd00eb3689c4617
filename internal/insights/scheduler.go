package insights

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRefreshInterval = 14 * 24 * time.Hour
	DefaultMinTransactions = 8
)

type SchedulerConfig struct {
	RefreshInterval time.Duration
	MinTransactions int
	PeriodDays      int
}

// View is what a caller gets when it opens the insights summary.
type View struct {
	Payload   *Envelope `json:"payload"`
	CachedAt  int64     `json:"cachedAt"`
	Refreshed bool      `json:"refreshed"`
	Stale     bool      `json:"stale"`
	// Suppressed is set when there are too few transactions to generate anything.
	Suppressed bool `json:"suppressed"`
}

// Scheduler decides when cached insights are regenerated. The busy flag is
// advisory and per cache key; concurrent writers race and the last one wins.
type Scheduler struct {
	generator Generator
	cache     Cache
	logger    *slog.Logger
	now       func() time.Time

	interval        time.Duration
	minTransactions int
	periodDays      int

	mu   sync.Mutex
	busy map[string]bool
}

func NewScheduler(generator Generator, cache Cache, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.MinTransactions <= 0 {
		cfg.MinTransactions = DefaultMinTransactions
	}
	if cfg.PeriodDays <= 0 {
		cfg.PeriodDays = DefaultPeriodDays
	}

	return &Scheduler{
		generator:       generator,
		cache:           cache,
		logger:          logger,
		now:             time.Now,
		interval:        cfg.RefreshInterval,
		minTransactions: cfg.MinTransactions,
		periodDays:      cfg.PeriodDays,
		busy:            make(map[string]bool),
	}
}

// Mount отдает закэшированные инсайты и при необходимости тихо обновляет их.
func (s *Scheduler) Mount(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (View, error) {
	key := CacheKey(userID)

	record, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read insights cache", slog.String("error", err.Error()))
		record, found = CacheRecord{}, false
	}

	view := View{Payload: record.Payload, CachedAt: record.GeneratedAt}

	shouldRefresh := !found ||
		record.GeneratedAt == 0 ||
		s.now().UnixMilli()-record.GeneratedAt >= s.interval.Milliseconds() ||
		record.Payload == nil
	view.Stale = found && shouldRefresh

	if len(NormalizeTransactions(raw)) < s.minTransactions {
		view.Suppressed = true
		if record.Payload == nil && found {
			if err := s.cache.Clear(ctx, key); err != nil {
				return view, err
			}
			view.CachedAt = 0
			view.Stale = false
		}
		return view, nil
	}

	if !shouldRefresh {
		return view, nil
	}

	if envelope := s.RefreshQuietly(ctx, userID, raw); envelope != nil {
		view.Payload = envelope
		view.CachedAt = envelope.GeneratedAt.UnixMilli()
		view.Refreshed = true
		view.Stale = false
	}

	return view, nil
}

// Refresh запускает генерацию вручную, минуя проверку устаревания.
// Кэш меняется только при успехе.
func (s *Scheduler) Refresh(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (Envelope, error) {
	if len(NormalizeTransactions(raw)) < s.minTransactions {
		return Envelope{}, ErrNotEnoughTransactions
	}

	key := CacheKey(userID)
	if !s.acquire(key) {
		return Envelope{}, ErrRefreshInProgress
	}
	defer s.release(key)

	envelope, err := s.generator.Generate(ctx, Request{
		UserID:       userID,
		PeriodDays:   s.periodDays,
		Transactions: raw,
	})
	if err != nil {
		return Envelope{}, err
	}

	record := CacheRecord{Payload: &envelope, GeneratedAt: envelope.GeneratedAt.UnixMilli()}
	if err := s.cache.Put(ctx, key, record); err != nil {
		s.logger.WarnContext(ctx, "failed to write insights cache", slog.String("error", err.Error()))
	}

	return envelope, nil
}

// RefreshQuietly is Refresh with errors logged and dropped.
func (s *Scheduler) RefreshQuietly(ctx context.Context, userID uuid.UUID, raw json.RawMessage) *Envelope {
	envelope, err := s.Refresh(ctx, userID, raw)
	if err != nil {
		s.logger.InfoContext(ctx, "automatic insights refresh skipped",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return &envelope
}

func (s *Scheduler) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy[key] {
		return false
	}
	s.busy[key] = true
	return true
}

func (s *Scheduler) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.busy, key)
}
