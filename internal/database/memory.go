package database

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alias1177/AgriPredictor/models"
)

// MemoryStore keeps predictions and subscribers in process memory. It is
// used when no database is configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	predictions []models.Prediction
	subscribers []int64
	now         func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

// Create appends a prediction, assigning its ID and creation time when unset
func (s *MemoryStore) Create(_ context.Context, p *models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.predictions = append(s.predictions, *p)
	return nil
}

// ListRecent returns up to limit predictions, newest first
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]models.Prediction, error) {
	s.mu.RLock()
	out := slices.Clone(s.predictions)
	s.mu.RUnlock()

	// Stable sort keeps insertion order for equal timestamps, so reverse first
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b models.Prediction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []models.Prediction{}
	}
	return out, nil
}

// AddSubscriber registers a chat for broadcasts
func (s *MemoryStore) AddSubscriber(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.subscribers, chatID) {
		s.subscribers = append(s.subscribers, chatID)
	}
	return nil
}

// RemoveSubscriber unregisters a chat
func (s *MemoryStore) RemoveSubscriber(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = slices.DeleteFunc(s.subscribers, func(id int64) bool { return id == chatID })
	return nil
}

// ListSubscribers returns every registered chat
func (s *MemoryStore) ListSubscribers(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.subscribers), nil
}
