package session

import (
	"context"
	"sync"
	"time"

	"github.com/kmkrofficial/signature/internal/core"
)

var _ Store = (*InMemoryStore)(nil)

type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]Record),
	}
}

func (s *InMemoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *InMemoryStore) Touch(_ context.Context, id string, now time.Time, idle time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if core.IsExpired(rec.LastActivity, now, idle) {
		return &rec, ErrExpired
	}
	rec.LastActivity = later(rec.LastActivity, now)
	s.records[id] = rec
	return &rec, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time, idle time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.records {
		if core.IsExpired(rec.LastActivity, now, idle) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
