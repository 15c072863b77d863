// Package cache хранит ответы на запросы с ключом идемпотентности:
// в Redis для нескольких экземпляров сервиса или в памяти процесса.
package cache

import (
	"context"
	"sync"
	"time"
)

// StoredResponse сохраненный ответ на запрос с ключом идемпотентности
type StoredResponse struct {
	Pending     bool   `json:"pending"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore хранилище ответов по ключу идемпотентности
type IdempotencyStore interface {
	// Reserve атомарно занимает ключ; false, если ключ уже существует
	Reserve(ctx context.Context, key string) (bool, error)
	// Load возвращает nil без ошибки, если ключа нет
	Load(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, resp StoredResponse) error
	Release(ctx context.Context, key string) error
}

type memoryEntry struct {
	resp      StoredResponse
	expiresAt time.Time
}

// MemoryIdempotencyStore хранилище ключей в памяти процесса
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	s.entries[key] = memoryEntry{resp: StoredResponse{Pending: true}, expiresAt: now.Add(s.ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) Load(_ context.Context, key string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, nil
	}
	resp := entry.resp
	return &resp, nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, key string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{resp: resp, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Purge удаляет истекшие ключи и возвращает их число
func (s *MemoryIdempotencyStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
