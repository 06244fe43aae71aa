package app

import (
	"context"
	"sort"
	"time"

	"arena-service/internal/domain"
)

// UserDirectory resolves display info for leaderboard enrichment. Identity
// resolution is otherwise out of scope for this service.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (domain.UserIdentity, error)
}

// LeaderboardService projects ranked XP views from persisted results.
type LeaderboardService struct {
	progress ProgressRepository
	results  ResultRepository
	users    UserDirectory
	size     int
	now      func() time.Time
}

func NewLeaderboardService(progress ProgressRepository, results ResultRepository, users UserDirectory, size int) *LeaderboardService {
	if size <= 0 {
		size = 50
	}
	return &LeaderboardService{progress: progress, results: results, users: users, size: size, now: time.Now}
}

// Rank returns the top users by XP for the given window. Windowed ranks sum
// per-session result scores since the window start; all-time reads the
// already-aggregated running totals. Ties keep iteration order.
func (l *LeaderboardService) Rank(ctx context.Context, window domain.TimeWindow) ([]domain.LeaderboardEntry, error) {
	var scores []domain.UserScore
	switch window {
	case domain.WindowAllTime:
		top, err := l.progress.Top(ctx, l.size)
		if err != nil {
			return nil, err
		}
		for _, p := range top {
			scores = append(scores, domain.UserScore{UserID: p.UserID, Score: p.XPPoints})
		}
	case domain.WindowWeek, domain.WindowMonth:
		since := l.windowStart(window)
		var err error
		scores, err = l.results.ScoresSince(ctx, since)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.ErrInvalidTimeWindow
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if len(scores) > l.size {
		scores = scores[:l.size]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for i, s := range scores {
		identity := l.resolve(ctx, s.UserID)
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      s.UserID,
			DisplayName: identity.DisplayName,
			AvatarURL:   identity.AvatarURL,
			XP:          s.Score,
			Badge:       badgeForRank(i + 1),
		})
	}
	return entries, nil
}

// TopByTopic returns the highest-accuracy sessions for a topic, the
// per-topic view the arena result screen shows.
func (l *LeaderboardService) TopByTopic(ctx context.Context, topic string) ([]domain.ArenaResult, error) {
	limit := l.size
	if limit > 10 {
		limit = 10
	}
	return l.results.TopByAccuracy(ctx, topic, limit)
}

func (l *LeaderboardService) windowStart(window domain.TimeWindow) time.Time {
	now := l.now()
	if window == domain.WindowWeek {
		return now.AddDate(0, 0, -7)
	}
	return now.AddDate(0, -1, 0)
}

func (l *LeaderboardService) resolve(ctx context.Context, userID string) domain.UserIdentity {
	identity, err := l.users.Resolve(ctx, userID)
	if err != nil || identity.DisplayName == "" {
		return domain.UserIdentity{UserID: userID, DisplayName: userID}
	}
	return identity
}

func badgeForRank(rank int) string {
	switch rank {
	case 1:
		return "💎"
	case 2:
		return "⭐"
	case 3:
		return "🔥"
	default:
		return "✨"
	}
}
