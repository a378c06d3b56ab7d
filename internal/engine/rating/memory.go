package rating

import (
	"context"
	"sync"
	"time"

	"beautymatch/internal/models"
)

// MemoryStore is an in-process Store. It backs tests and single-node
// deployments that do not need a shared rating store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.RatingRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.RatingRecord)}
}

func (s *MemoryStore) Load(_ context.Context, stylistID string) (models.RatingRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[stylistID]
	return rec, ok, nil
}

func (s *MemoryStore) Init(_ context.Context, stylistID string, rating int) (models.RatingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[stylistID]; ok {
		return rec, nil
	}
	rec := models.RatingRecord{
		StylistID: stylistID,
		Rating:    rating,
		UpdatedAt: time.Now().UTC(),
	}
	s.records[stylistID] = rec
	return rec, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, stylistID string, expected, next int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[stylistID]
	if !ok || rec.Rating != expected {
		return false, nil
	}
	rec.Rating = next
	rec.UpdatedAt = time.Now().UTC()
	s.records[stylistID] = rec
	return true, nil
}
