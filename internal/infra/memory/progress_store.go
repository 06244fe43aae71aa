package memory

import (
	"context"
	"sort"
	"sync"

	"arena-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressRepository.
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[string]domain.UserProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{progress: make(map[string]domain.UserProgress)}
}

func (s *ProgressStore) Get(_ context.Context, userID string) (domain.UserProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[userID]
	return p, ok, nil
}

func (s *ProgressStore) Save(_ context.Context, progress domain.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progress.UserID] = progress
	return nil
}

func (s *ProgressStore) Top(_ context.Context, limit int) ([]domain.UserProgress, error) {
	s.mu.RLock()
	all := make([]domain.UserProgress, 0, len(s.progress))
	for _, p := range s.progress {
		all = append(all, p)
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].XPPoints > all[j].XPPoints })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
