package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"arena-service/internal/domain"
	"github.com/google/uuid"
)

const (
	// XP awarded per correctly answered question.
	xpPerCorrect = 10
	// Flat bonus for a perfect session, all answers correct.
	perfectBonus = 50
)

// QuestionBank serves reference question data.
type QuestionBank interface {
	// Sample returns up to count shuffled, non-repeating questions for a
	// topic/difficulty pair.
	Sample(ctx context.Context, topic, difficulty string, count int) ([]domain.Question, error)
	// Question looks up a single record; domain.ErrQuestionNotFound on miss.
	Question(ctx context.Context, id int64) (domain.Question, error)
}

// ProgressRepository persists per-user aggregate progress.
type ProgressRepository interface {
	Get(ctx context.Context, userID string) (domain.UserProgress, bool, error)
	Save(ctx context.Context, progress domain.UserProgress) error
	Top(ctx context.Context, limit int) ([]domain.UserProgress, error)
}

// ResultRepository is the append-only store of per-session arena results.
type ResultRepository interface {
	Append(ctx context.Context, result domain.ArenaResult) error
	// ScoresSince aggregates result scores per user for rows played at or
	// after the given instant. Order is unspecified.
	ScoresSince(ctx context.Context, since time.Time) ([]domain.UserScore, error)
	TopByAccuracy(ctx context.Context, topic string, limit int) ([]domain.ArenaResult, error)
}

// SessionMeta carries the per-session context recorded alongside a result row.
type SessionMeta struct {
	Topic      string
	Difficulty string
	TimeTaken  int
}

// ScoringService evaluates submitted answer sets, accrues XP, and records
// results. Repeated submission of the same answers accrues XP again; the
// engine does not deduplicate sessions.
type ScoringService struct {
	bank     QuestionBank
	progress ProgressRepository
	results  ResultRepository
	streaks  *StreakService
	now      func() time.Time
	newID    func() string
}

func NewScoringService(bank QuestionBank, progress ProgressRepository, results ResultRepository, streaks *StreakService) *ScoringService {
	return &ScoringService{
		bank:     bank,
		progress: progress,
		results:  results,
		streaks:  streaks,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewScoringServiceWithClock is test-only for deterministic timestamps.
func NewScoringServiceWithClock(bank QuestionBank, progress ProgressRepository, results ResultRepository, streaks *StreakService, now func() time.Time) *ScoringService {
	svc := NewScoringService(bank, progress, results, streaks)
	svc.now = now
	return svc
}

// Evaluate grades the submitted answers against the question bank, updates the
// user's aggregate progress, appends an arena result row, and records a streak
// completion. Unknown question IDs are skipped; they still count toward the
// session total, so a session with an unknown ID cannot earn the perfect
// bonus. Storage failures surface to the caller rather than losing XP.
func (s *ScoringService) Evaluate(ctx context.Context, userID string, answers map[int64]string, meta SessionMeta) (domain.Evaluation, error) {
	correct := 0
	total := len(answers)

	for questionID, answerText := range answers {
		question, err := s.bank.Question(ctx, questionID)
		if errors.Is(err, domain.ErrQuestionNotFound) {
			continue
		}
		if err != nil {
			return domain.Evaluation{}, err
		}
		if strings.EqualFold(question.CorrectAnswer, answerText) {
			correct++
		}
	}

	xpEarned := correct * xpPerCorrect
	if total > 0 && correct == total {
		xpEarned += perfectBonus
	}

	progress, found, err := s.progress.Get(ctx, userID)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if !found {
		progress = domain.UserProgress{UserID: userID}
	}
	progress.TotalQuestions += total
	progress.CorrectAnswers += correct
	progress.XPPoints += xpEarned
	progress.LastPlayed = s.now()
	if err := s.progress.Save(ctx, progress); err != nil {
		return domain.Evaluation{}, err
	}

	accuracy := 0.0
	if total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	result := domain.ArenaResult{
		ID:             s.newID(),
		UserID:         userID,
		Topic:          meta.Topic,
		Difficulty:     meta.Difficulty,
		Score:          xpEarned,
		TotalQuestions: total,
		Accuracy:       accuracy,
		TimeTaken:      meta.TimeTaken,
		PlayedAt:       s.now(),
	}
	if err := s.results.Append(ctx, result); err != nil {
		return domain.Evaluation{}, err
	}

	if _, err := s.streaks.RecordCompletion(ctx, userID); err != nil {
		return domain.Evaluation{}, err
	}

	return domain.Evaluation{
		CorrectAnswers: correct,
		TotalQuestions: total,
		XPEarned:       xpEarned,
		NewXPTotal:     progress.XPPoints,
	}, nil
}

// Progress returns a user's aggregate stats; found is false before the first
// scoring event.
func (s *ScoringService) Progress(ctx context.Context, userID string) (domain.UserProgress, bool, error) {
	return s.progress.Get(ctx, userID)
}
