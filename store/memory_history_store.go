package store

import (
	"context"
	"sync"
	"time"

	"userhistory/api/models"
)

// MemoryHistoryStore keeps histories in process memory.
// Histories are lost on restart and not shared between instances; use Redis in production.
type MemoryHistoryStore struct {
	mu        sync.Mutex
	histories map[string]*models.History
	// touched is the server time of the last write per token. Visit timestamps come from
	// the client and are not trusted for expiry.
	touched map[string]time.Time
	now     func() time.Time
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{
		histories: make(map[string]*models.History),
		touched:   make(map[string]time.Time),
		now:       time.Now,
	}
}

func (s *MemoryHistoryStore) Get(_ context.Context, token string) (*models.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.histories[token].Clone(), nil
}

func (s *MemoryHistoryStore) Set(_ context.Context, token string, h *models.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		s.forget(token)
		return nil
	}
	s.histories[token] = h.Clone()
	s.touched[token] = s.now()
	return nil
}

func (s *MemoryHistoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forget(token)
	return nil
}

func (s *MemoryHistoryStore) Append(_ context.Context, token string, seed, visit models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[token]
	if !ok {
		h = &models.History{Referrer: seed}
		s.histories[token] = h
	}
	h.Pages = append(h.Pages, visit)
	s.touched[token] = s.now()
	return nil
}

func (s *MemoryHistoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token := range s.histories {
		if s.touched[token].Before(cutoff) {
			s.forget(token)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryHistoryStore) forget(token string) {
	delete(s.histories, token)
	delete(s.touched, token)
}
