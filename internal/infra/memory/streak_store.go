package memory

import (
	"context"
	"sync"

	"arena-service/internal/domain"
)

// StreakStore is an in-memory implementation of app.StreakRepository.
type StreakStore struct {
	mu      sync.RWMutex
	streaks map[string]domain.UserStreak
}

func NewStreakStore() *StreakStore {
	return &StreakStore{streaks: make(map[string]domain.UserStreak)}
}

func (s *StreakStore) Get(_ context.Context, userID string) (domain.UserStreak, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	streak, ok := s.streaks[userID]
	return streak, ok, nil
}

func (s *StreakStore) Save(_ context.Context, streak domain.UserStreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[streak.UserID] = streak
	return nil
}
