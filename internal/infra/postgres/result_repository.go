package postgres

import (
	"context"
	"fmt"
	"time"

	"arena-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultRepository stores the append-only arena result rows.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func (r *ResultRepository) Append(ctx context.Context, result domain.ArenaResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO arena_results (id, user_id, topic, difficulty, score, total_questions, accuracy, time_taken, played_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.UserID, result.Topic, result.Difficulty, result.Score,
		result.TotalQuestions, result.Accuracy, result.TimeTaken, result.PlayedAt)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (r *ResultRepository) ScoresSince(ctx context.Context, since time.Time) ([]domain.UserScore, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, COALESCE(SUM(score), 0) FROM arena_results
		 WHERE played_at >= $1 GROUP BY user_id`, since)
	if err != nil {
		return nil, fmt.Errorf("scores since: %w", err)
	}
	defer rows.Close()

	var scores []domain.UserScore
	for rows.Next() {
		var s domain.UserScore
		if err := rows.Scan(&s.UserID, &s.Score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *ResultRepository) TopByAccuracy(ctx context.Context, topic string, limit int) ([]domain.ArenaResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, topic, difficulty, score, total_questions, accuracy, time_taken, played_at
		 FROM arena_results
		 WHERE $1 = '' OR lower(topic) = lower($1)
		 ORDER BY accuracy DESC LIMIT $2`, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("top by accuracy: %w", err)
	}
	defer rows.Close()

	var results []domain.ArenaResult
	for rows.Next() {
		var res domain.ArenaResult
		if err := rows.Scan(&res.ID, &res.UserID, &res.Topic, &res.Difficulty, &res.Score,
			&res.TotalQuestions, &res.Accuracy, &res.TimeTaken, &res.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
