package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arena-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StreakRepository persists user streak records in Postgres.
type StreakRepository struct {
	pool *pgxpool.Pool
}

func NewStreakRepository(pool *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{pool: pool}
}

func (r *StreakRepository) Get(ctx context.Context, userID string) (domain.UserStreak, bool, error) {
	s := domain.UserStreak{UserID: userID}
	var lastActive *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT current_streak, longest_streak, last_active_date, total_lessons_completed, created_at, updated_at
		 FROM user_streaks WHERE user_id=$1`, userID).
		Scan(&s.CurrentStreak, &s.LongestStreak, &lastActive, &s.TotalLessonsCompleted, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStreak{}, false, nil
	}
	if err != nil {
		return domain.UserStreak{}, false, fmt.Errorf("get streak: %w", err)
	}
	if lastActive != nil {
		s.LastActiveDate = *lastActive
	}
	return s, true, nil
}

func (r *StreakRepository) Save(ctx context.Context, s domain.UserStreak) error {
	var lastActive *time.Time
	if !s.LastActiveDate.IsZero() {
		lastActive = &s.LastActiveDate
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_active_date, total_lessons_completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
			current_streak=EXCLUDED.current_streak,
			longest_streak=EXCLUDED.longest_streak,
			last_active_date=EXCLUDED.last_active_date,
			total_lessons_completed=EXCLUDED.total_lessons_completed,
			updated_at=EXCLUDED.updated_at`,
		s.UserID, s.CurrentStreak, s.LongestStreak, lastActive, s.TotalLessonsCompleted, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
