package app_test

import (
	"context"
	"testing"
	"time"

	"arena-service/internal/app"
	"arena-service/internal/domain"
	"arena-service/internal/infra/memory"
)

func TestEvaluateEmptyAnswerSet(t *testing.T) {
	ctx := context.Background()
	fix := newScoringFixture(t)

	if err := fix.progress.Save(ctx, domain.UserProgress{UserID: "u1", XPPoints: 30}); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	eval, err := fix.scoring.Evaluate(ctx, "u1", map[int64]string{}, app.SessionMeta{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.CorrectAnswers != 0 || eval.TotalQuestions != 0 || eval.XPEarned != 0 {
		t.Fatalf("expected zeroed evaluation, got %+v", eval)
	}
	if eval.NewXPTotal != 30 {
		t.Fatalf("expected existing XP preserved, got %d", eval.NewXPTotal)
	}

	rows, err := fix.results.TopByAccuracy(ctx, "", 10)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(rows) != 1 || rows[0].Accuracy != 0 {
		t.Fatalf("expected one result row with zero accuracy, got %+v", rows)
	}
}

func TestEvaluatePerfectSessionEarnsBonus(t *testing.T) {
	ctx := context.Background()
	fix := newScoringFixture(t)

	answers := map[int64]string{
		1: "hash map", // case-insensitive match
		2: "O(log n)",
		3: "Queue",
		4: "Dijkstra",
	}
	eval, err := fix.scoring.Evaluate(ctx, "u1", answers, app.SessionMeta{Topic: "dsa", Difficulty: "easy"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.CorrectAnswers != 4 || eval.TotalQuestions != 4 {
		t.Fatalf("expected 4/4, got %d/%d", eval.CorrectAnswers, eval.TotalQuestions)
	}
	if eval.XPEarned != 90 {
		t.Fatalf("expected 4*10+50=90 XP, got %d", eval.XPEarned)
	}
	if eval.NewXPTotal != 90 {
		t.Fatalf("expected running total 90, got %d", eval.NewXPTotal)
	}

	progress, found, err := fix.progress.Get(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("progress missing: found=%v err=%v", found, err)
	}
	if progress.TotalQuestions != 4 || progress.CorrectAnswers != 4 || progress.XPPoints != 90 {
		t.Fatalf("unexpected aggregate %+v", progress)
	}
	if progress.LastPlayed.IsZero() {
		t.Fatal("lastPlayed not set")
	}
}

func TestEvaluateSkipsUnknownQuestions(t *testing.T) {
	ctx := context.Background()
	fix := newScoringFixture(t)

	answers := map[int64]string{
		1:   "Hash map",
		999: "whatever",
	}
	eval, err := fix.scoring.Evaluate(ctx, "u1", answers, app.SessionMeta{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// Unknown IDs still count toward the total, so no perfect bonus.
	if eval.CorrectAnswers != 1 || eval.TotalQuestions != 2 || eval.XPEarned != 10 {
		t.Fatalf("expected 1/2 for 10 XP, got %+v", eval)
	}
}

func TestEvaluateAccruesOnRepeatSubmission(t *testing.T) {
	ctx := context.Background()
	fix := newScoringFixture(t)

	answers := map[int64]string{1: "Hash map"}
	first, err := fix.scoring.Evaluate(ctx, "u1", answers, app.SessionMeta{})
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	second, err := fix.scoring.Evaluate(ctx, "u1", answers, app.SessionMeta{})
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if second.NewXPTotal != first.NewXPTotal*2 {
		t.Fatalf("expected additive accrual, got first=%d second=%d", first.NewXPTotal, second.NewXPTotal)
	}
}

func TestEvaluateRecordsStreakCompletion(t *testing.T) {
	ctx := context.Background()
	fix := newScoringFixture(t)

	if _, err := fix.scoring.Evaluate(ctx, "u1", map[int64]string{1: "Hash map"}, app.SessionMeta{}); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	streak, err := fix.streaks.GetStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("get streak: %v", err)
	}
	if streak.CurrentStreak != 1 || streak.TotalLessonsCompleted != 1 {
		t.Fatalf("expected streak started by scoring, got %+v", streak)
	}
}

type scoringFixture struct {
	scoring  *app.ScoringService
	streaks  *app.StreakService
	progress *memory.ProgressStore
	results  *memory.ResultStore
}

func newScoringFixture(t *testing.T) *scoringFixture {
	t.Helper()
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader(bankQuestions()), 5*time.Minute)
	progress := memory.NewProgressStore()
	results := memory.NewResultStore()
	streaks := app.NewStreakService(memory.NewStreakStore())
	return &scoringFixture{
		scoring:  app.NewScoringService(bank, progress, results, streaks),
		streaks:  streaks,
		progress: progress,
		results:  results,
	}
}

func bankQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "O(1) average lookup?", CorrectAnswer: "Hash map", Topic: "dsa", Difficulty: "easy"},
		{ID: 2, Text: "Binary search complexity?", CorrectAnswer: "O(log n)", Topic: "dsa", Difficulty: "easy"},
		{ID: 3, Text: "FIFO structure?", CorrectAnswer: "Queue", Topic: "dsa", Difficulty: "easy"},
		{ID: 4, Text: "Shortest path algorithm?", CorrectAnswer: "Dijkstra", Topic: "dsa", Difficulty: "medium"},
	}
}
