package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeGenerator struct {
	calls    int
	err      error
	now      time.Time
	block    chan struct{}
	started  chan struct{}
	requests []Request
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (Envelope, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return Envelope{}, f.err
	}

	return Envelope{
		PeriodDays:  req.PeriodDays,
		Snapshot:    ComputeSnapshot(NormalizeTransactions(req.Transactions)),
		Insights:    FallbackResult(fmt.Sprintf("run %d", f.calls)),
		GeneratedAt: f.now,
	}, nil
}

func rawTransactions(n int) json.RawMessage {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"name": "t%d", "cat": "Food", "amount": "-$%d.00"}`, i, i+1)
	}
	return json.RawMessage("[" + strings.Join(items, ",") + "]")
}

func newTestScheduler(gen Generator, cache Cache, now time.Time) *Scheduler {
	s := NewScheduler(gen, cache, SchedulerConfig{}, discardLogger())
	s.now = func() time.Time { return now }
	return s
}

func seedCache(t *testing.T, cache Cache, userID uuid.UUID, at time.Time, withPayload bool) {
	t.Helper()

	record := CacheRecord{GeneratedAt: at.UnixMilli()}
	if withPayload {
		record.Payload = &Envelope{PeriodDays: 14, Insights: FallbackResult("cached"), GeneratedAt: at}
	}
	if err := cache.Put(context.Background(), CacheKey(userID), record); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

// TestMountBelowThresholdNoCache проверяет, что при малом числе транзакций модель не вызывается.
func TestMountBelowThresholdNoCache(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{now: now}
	scheduler := newTestScheduler(gen, NewKVCache(NewMemoryStore()), now)

	view, err := scheduler.Mount(context.Background(), uuid.New(), rawTransactions(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generator calls, got %d", gen.calls)
	}
	if view.Payload != nil || !view.Suppressed {
		t.Fatalf("unexpected view: %+v", view)
	}
}

// TestMountBelowThresholdClearsTimestamp проверяет очистку кэша без payload.
func TestMountBelowThresholdClearsTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := NewKVCache(NewMemoryStore())
	userID := uuid.New()
	seedCache(t, cache, userID, now.Add(-time.Hour), false)

	scheduler := newTestScheduler(&fakeGenerator{now: now}, cache, now)
	if _, err := scheduler.Mount(context.Background(), userID, rawTransactions(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, found, _ := cache.Get(context.Background(), CacheKey(userID)); found {
		t.Fatal("expected cache to be cleared")
	}
}

// TestMountBelowThresholdKeepsPayload проверяет, что существующий кэш сохраняется для показа.
func TestMountBelowThresholdKeepsPayload(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := NewKVCache(NewMemoryStore())
	userID := uuid.New()
	seedCache(t, cache, userID, now.Add(-30*24*time.Hour), true)

	gen := &fakeGenerator{now: now}
	scheduler := newTestScheduler(gen, cache, now)
	view, err := scheduler.Mount(context.Background(), userID, rawTransactions(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gen.calls != 0 {
		t.Fatalf("expected no generator calls, got %d", gen.calls)
	}
	if view.Payload == nil || view.Payload.Insights.Summary != "cached" || !view.Stale {
		t.Fatalf("expected stale cached payload, got %+v", view)
	}
}

// TestMountStaleCacheRefreshesOnce проверяет автообновление кэша старше 14 дней.
func TestMountStaleCacheRefreshesOnce(t *testing.T) {
	now := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)
	cache := NewKVCache(NewMemoryStore())
	userID := uuid.New()
	seedCache(t, cache, userID, now.Add(-15*24*time.Hour), true)

	gen := &fakeGenerator{now: now}
	scheduler := newTestScheduler(gen, cache, now)

	view, err := scheduler.Mount(context.Background(), userID, rawTransactions(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one refresh, got %d", gen.calls)
	}
	if !view.Refreshed || view.Payload == nil || view.Payload.Insights.Summary != "run 1" || view.CachedAt != now.UnixMilli() {
		t.Fatalf("unexpected view: %+v", view)
	}
	if gen.requests[0].UserID != userID || gen.requests[0].PeriodDays != DefaultPeriodDays {
		t.Fatalf("unexpected request: %+v", gen.requests[0])
	}

	// The fresh record must not trigger another refresh.
	if _, err := scheduler.Mount(context.Background(), userID, rawTransactions(8)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected no second refresh, got %d calls", gen.calls)
	}
}

// TestMountFreshCache проверяет, что свежий кэш отдается без обращения к модели.
func TestMountFreshCache(t *testing.T) {
	now := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)
	cache := NewKVCache(NewMemoryStore())
	seedCache(t, cache, uuid.Nil, now.Add(-13*24*time.Hour), true)

	gen := &fakeGenerator{now: now}
	view, err := newTestScheduler(gen, cache, now).Mount(context.Background(), uuid.Nil, rawTransactions(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 0 || view.Stale || view.Refreshed || view.Payload == nil {
		t.Fatalf("unexpected view %+v with %d calls", view, gen.calls)
	}
}

// TestMountFailurePreservesCache проверяет, что ошибка автообновления не трогает кэш.
func TestMountFailurePreservesCache(t *testing.T) {
	now := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)
	cache := NewKVCache(NewMemoryStore())
	userID := uuid.New()
	old := now.Add(-20 * 24 * time.Hour)
	seedCache(t, cache, userID, old, true)

	gen := &fakeGenerator{now: now, err: errors.New("upstream down")}
	view, err := newTestScheduler(gen, cache, now).Mount(context.Background(), userID, rawTransactions(9))
	if err != nil {
		t.Fatalf("automatic refresh must not surface errors: %v", err)
	}
	if view.Refreshed || view.Payload == nil || view.Payload.Insights.Summary != "cached" {
		t.Fatalf("unexpected view: %+v", view)
	}

	record, found, _ := cache.Get(context.Background(), CacheKey(userID))
	if !found || record.GeneratedAt != old.UnixMilli() {
		t.Fatalf("cache should be untouched, got %+v", record)
	}
}

// TestRefreshManual проверяет ручное обновление: порог, ошибки и запись в кэш.
func TestRefreshManual(t *testing.T) {
	now := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)
	cache := NewKVCache(NewMemoryStore())
	userID := uuid.New()
	seedCache(t, cache, userID, now.Add(-time.Hour), true)

	gen := &fakeGenerator{now: now}
	scheduler := newTestScheduler(gen, cache, now)

	if _, err := scheduler.Refresh(context.Background(), userID, rawTransactions(4)); !errors.Is(err, ErrNotEnoughTransactions) {
		t.Fatalf("expected ErrNotEnoughTransactions, got %v", err)
	}

	envelope, err := scheduler.Refresh(context.Background(), userID, rawTransactions(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 || envelope.Insights.Summary != "run 1" {
		t.Fatalf("unexpected refresh result %+v (%d calls)", envelope, gen.calls)
	}

	record, _, _ := cache.Get(context.Background(), CacheKey(userID))
	if record.GeneratedAt != now.UnixMilli() || record.Payload.Insights.Summary != "run 1" {
		t.Fatalf("cache not updated: %+v", record)
	}

	gen.err = errors.New("boom")
	if _, err := scheduler.Refresh(context.Background(), userID, rawTransactions(8)); err == nil || err.Error() != "boom" {
		t.Fatalf("expected surfaced error, got %v", err)
	}
	record, _, _ = cache.Get(context.Background(), CacheKey(userID))
	if record.Payload.Insights.Summary != "run 1" {
		t.Fatalf("failed refresh must keep last good record, got %+v", record)
	}
}

// TestRefreshInProgress проверяет флаг занятости для одного ключа.
func TestRefreshInProgress(t *testing.T) {
	now := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{now: now, block: make(chan struct{}), started: make(chan struct{})}
	scheduler := newTestScheduler(gen, NewKVCache(NewMemoryStore()), now)
	userID := uuid.New()

	done := make(chan error, 1)
	go func() {
		_, err := scheduler.Refresh(context.Background(), userID, rawTransactions(8))
		done <- err
	}()
	<-gen.started

	if _, err := scheduler.Refresh(context.Background(), userID, rawTransactions(8)); !errors.Is(err, ErrRefreshInProgress) {
		t.Fatalf("expected ErrRefreshInProgress, got %v", err)
	}

	close(gen.block)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
