package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

const (
	cachePayloadKey   = "bt_biweekly_insights"
	cacheTimestampKey = "bt_biweekly_insights_at"
)

var ErrKeyNotFound = errors.New("key not found")

// CacheRecord is one cached result. A nil Payload with a non-zero
// GeneratedAt means only the timestamp survived.
type CacheRecord struct {
	Payload     *Envelope
	GeneratedAt int64
}

type Cache interface {
	Get(ctx context.Context, key string) (CacheRecord, bool, error)
	Put(ctx context.Context, key string, record CacheRecord) error
	Clear(ctx context.Context, key string) error
}

// KVStore is a string key/value store. Get returns ErrKeyNotFound for missing keys.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// CacheKey возвращает ключ области кэша: пользователь или глобальный ключ для анонимов.
func CacheKey(userID uuid.UUID) string {
	if userID == uuid.Nil {
		return ""
	}

	return userID.String()
}

func scoped(base, key string) string {
	if key == "" {
		return base
	}

	return base + ":" + key
}

// KVCache stores the envelope and its timestamp under two separate keys.
type KVCache struct {
	store KVStore
}

func NewKVCache(store KVStore) *KVCache {
	return &KVCache{store: store}
}

// Get читает запись. Поврежденный payload или timestamp считается отсутствующим.
func (c *KVCache) Get(ctx context.Context, key string) (CacheRecord, bool, error) {
	var record CacheRecord

	rawPayload, err := c.store.Get(ctx, scoped(cachePayloadKey, key))
	switch {
	case err == nil:
		var envelope Envelope
		if json.Unmarshal([]byte(rawPayload), &envelope) == nil {
			record.Payload = &envelope
		}
	case !errors.Is(err, ErrKeyNotFound):
		return CacheRecord{}, false, fmt.Errorf("read cached insights: %w", err)
	}

	rawAt, err := c.store.Get(ctx, scoped(cacheTimestampKey, key))
	switch {
	case err == nil:
		if at, parseErr := strconv.ParseInt(rawAt, 10, 64); parseErr == nil && at > 0 {
			record.GeneratedAt = at
		}
	case !errors.Is(err, ErrKeyNotFound):
		return CacheRecord{}, false, fmt.Errorf("read cached insights timestamp: %w", err)
	}

	return record, record.Payload != nil || record.GeneratedAt != 0, nil
}

func (c *KVCache) Put(ctx context.Context, key string, record CacheRecord) error {
	if record.Payload != nil {
		payload, err := json.Marshal(record.Payload)
		if err != nil {
			return fmt.Errorf("encode insights: %w", err)
		}
		if err := c.store.Set(ctx, scoped(cachePayloadKey, key), string(payload)); err != nil {
			return fmt.Errorf("write cached insights: %w", err)
		}
	}

	if err := c.store.Set(ctx, scoped(cacheTimestampKey, key), strconv.FormatInt(record.GeneratedAt, 10)); err != nil {
		return fmt.Errorf("write cached insights timestamp: %w", err)
	}

	return nil
}

func (c *KVCache) Clear(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, scoped(cachePayloadKey, key)); err != nil {
		return fmt.Errorf("clear cached insights: %w", err)
	}
	if err := c.store.Delete(ctx, scoped(cacheTimestampKey, key)); err != nil {
		return fmt.Errorf("clear cached insights timestamp: %w", err)
	}

	return nil
}

// MemoryStore is an in-process KVStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}

	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
