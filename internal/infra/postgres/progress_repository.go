package postgres

import (
	"context"
	"errors"
	"fmt"

	"arena-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressRepository persists user aggregate progress in Postgres.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

func (r *ProgressRepository) Get(ctx context.Context, userID string) (domain.UserProgress, bool, error) {
	p := domain.UserProgress{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT total_questions, correct_answers, xp_points, COALESCE(last_played, to_timestamp(0))
		 FROM user_progress WHERE user_id=$1`, userID).
		Scan(&p.TotalQuestions, &p.CorrectAnswers, &p.XPPoints, &p.LastPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProgress{}, false, nil
	}
	if err != nil {
		return domain.UserProgress{}, false, fmt.Errorf("get progress: %w", err)
	}
	return p, true, nil
}

func (r *ProgressRepository) Save(ctx context.Context, p domain.UserProgress) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_progress (user_id, total_questions, correct_answers, xp_points, last_played)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			total_questions=EXCLUDED.total_questions,
			correct_answers=EXCLUDED.correct_answers,
			xp_points=EXCLUDED.xp_points,
			last_played=EXCLUDED.last_played`,
		p.UserID, p.TotalQuestions, p.CorrectAnswers, p.XPPoints, p.LastPlayed)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (r *ProgressRepository) Top(ctx context.Context, limit int) ([]domain.UserProgress, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, total_questions, correct_answers, xp_points, COALESCE(last_played, to_timestamp(0))
		 FROM user_progress ORDER BY xp_points DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top progress: %w", err)
	}
	defer rows.Close()

	var top []domain.UserProgress
	for rows.Next() {
		var p domain.UserProgress
		if err := rows.Scan(&p.UserID, &p.TotalQuestions, &p.CorrectAnswers, &p.XPPoints, &p.LastPlayed); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		top = append(top, p)
	}
	return top, rows.Err()
}
