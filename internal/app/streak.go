package app

import (
	"context"
	"time"

	"arena-service/internal/domain"
)

// StreakRepository persists per-user streak records.
type StreakRepository interface {
	Get(ctx context.Context, userID string) (domain.UserStreak, bool, error)
	Save(ctx context.Context, streak domain.UserStreak) error
}

// StreakService maintains daily activity streaks. Writes are authoritative;
// reads apply lazy expiry without persisting, so a lapsed streak shows as zero
// immediately but is only zeroed in storage on the next completion.
type StreakService struct {
	repo StreakRepository
	now  func() time.Time
}

func NewStreakService(repo StreakRepository) *StreakService {
	return &StreakService{repo: repo, now: time.Now}
}

// NewStreakServiceWithClock is test-only for deterministic calendar dates.
func NewStreakServiceWithClock(repo StreakRepository, now func() time.Time) *StreakService {
	return &StreakService{repo: repo, now: now}
}

// RecordCompletion registers one qualifying completion for the user and
// returns the updated streak. Same-day repeats only bump the lesson counter;
// a consecutive-day completion extends the streak; a gap resets it while the
// longest streak keeps its historical maximum.
func (s *StreakService) RecordCompletion(ctx context.Context, userID string) (domain.UserStreak, error) {
	today := dateOnly(s.now())

	streak, found, err := s.repo.Get(ctx, userID)
	if err != nil {
		return domain.UserStreak{}, err
	}
	if !found {
		streak = domain.UserStreak{UserID: userID, CreatedAt: s.now()}
	}

	lastActive := dateOnly(streak.LastActiveDate)
	switch {
	case streak.LastActiveDate.IsZero():
		streak.CurrentStreak = 1
		streak.LongestStreak = 1
		streak.LastActiveDate = today
		streak.TotalLessonsCompleted = 1
	case lastActive.Equal(today):
		streak.TotalLessonsCompleted++
	case daysBetween(lastActive, today) == 1:
		streak.CurrentStreak++
		if streak.CurrentStreak > streak.LongestStreak {
			streak.LongestStreak = streak.CurrentStreak
		}
		streak.LastActiveDate = today
		streak.TotalLessonsCompleted++
	default:
		streak.CurrentStreak = 1
		streak.LastActiveDate = today
		streak.TotalLessonsCompleted++
	}
	streak.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, streak); err != nil {
		return domain.UserStreak{}, err
	}
	return streak, nil
}

// GetStreak returns the user's streak for display. A record more than one day
// stale reports a current streak of zero; the stored value is untouched and
// gets corrected on the next RecordCompletion.
func (s *StreakService) GetStreak(ctx context.Context, userID string) (domain.UserStreak, error) {
	streak, found, err := s.repo.Get(ctx, userID)
	if err != nil {
		return domain.UserStreak{}, err
	}
	if !found {
		return domain.UserStreak{UserID: userID}, nil
	}

	today := dateOnly(s.now())
	if !streak.LastActiveDate.IsZero() && daysBetween(dateOnly(streak.LastActiveDate), today) > 1 {
		streak.CurrentStreak = 0
	}
	return streak, nil
}

// dateOnly truncates to the calendar date in UTC so day arithmetic is exact
// across DST shifts.
func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
