package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"arena-service/internal/domain"
)

// ResultStore is an in-memory, append-only implementation of
// app.ResultRepository.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.ArenaResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Append(_ context.Context, result domain.ArenaResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *ResultStore) ScoresSince(_ context.Context, since time.Time) ([]domain.UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int)
	var order []string
	for _, r := range s.results {
		if r.PlayedAt.Before(since) {
			continue
		}
		if _, seen := totals[r.UserID]; !seen {
			order = append(order, r.UserID)
		}
		totals[r.UserID] += r.Score
	}

	scores := make([]domain.UserScore, 0, len(order))
	for _, userID := range order {
		scores = append(scores, domain.UserScore{UserID: userID, Score: totals[userID]})
	}
	return scores, nil
}

func (s *ResultStore) TopByAccuracy(_ context.Context, topic string, limit int) ([]domain.ArenaResult, error) {
	s.mu.RLock()
	matched := make([]domain.ArenaResult, 0, len(s.results))
	for _, r := range s.results {
		if topic == "" || strings.EqualFold(r.Topic, topic) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Accuracy > matched[j].Accuracy })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
