package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"arena-service/internal/domain"
	"arena-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionBankCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions()),
	}
	bank := NewQuestionBank(client, loader, time.Minute)

	if _, err := bank.Sample(context.Background(), "dsa", "easy", 2); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if loader.setCalls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.setCalls)
	}
	if !mr.Exists("arena:questions:dsa:easy") {
		t.Fatalf("expected question set cached in redis")
	}

	// Second call should hit the cache, loader not incremented.
	if _, err := bank.Sample(context.Background(), "dsa", "easy", 2); err != nil {
		t.Fatalf("sample 2: %v", err)
	}
	if loader.setCalls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.setCalls)
	}
}

func TestQuestionBankLookupUsesPerQuestionKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions()),
	}
	bank := NewQuestionBank(newClient(mr), loader, time.Minute)

	q, err := bank.Question(context.Background(), 1)
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.CorrectAnswer != "Hash map" {
		t.Fatalf("unexpected record %+v", q)
	}
	if !mr.Exists("arena:question:1") {
		t.Fatalf("expected per-question cache key")
	}

	if _, err := bank.Question(context.Background(), 1); err != nil {
		t.Fatalf("question 2: %v", err)
	}
	if loader.singleCalls != 1 {
		t.Fatalf("expected single loader hit, got %d", loader.singleCalls)
	}
}

func TestQuestionBankConcurrentSamplesDoNotRepeat(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &slowLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions()),
		delay:          10 * time.Millisecond,
	}
	bank := NewQuestionBank(newClient(mr), loader, time.Minute)

	var wg sync.WaitGroup
	samples := make([][]domain.Question, 8)
	for i := range samples {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			picked, err := bank.Sample(context.Background(), "dsa", "easy", 3)
			if err != nil {
				t.Errorf("sample %d: %v", i, err)
				return
			}
			samples[i] = picked
		}(i)
	}
	wg.Wait()

	for i, picked := range samples {
		seen := make(map[int64]struct{}, len(picked))
		for _, q := range picked {
			if _, dup := seen[q.ID]; dup {
				t.Fatalf("sample %d repeated question %d: %+v", i, q.ID, picked)
			}
			seen[q.ID] = struct{}{}
		}
		if len(picked) != 3 {
			t.Fatalf("sample %d: expected 3 questions, got %d", i, len(picked))
		}
	}
}

// slowLoader widens the window in which concurrent samplers share one
// singleflight result.
type slowLoader struct {
	memory.QuestionLoader
	delay time.Duration
}

func (l *slowLoader) LoadQuestions(ctx context.Context, topic, difficulty string) ([]domain.Question, error) {
	time.Sleep(l.delay)
	return l.QuestionLoader.LoadQuestions(ctx, topic, difficulty)
}

type countingLoader struct {
	memory.QuestionLoader
	setCalls    int
	singleCalls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, topic, difficulty string) ([]domain.Question, error) {
	l.setCalls++
	return l.QuestionLoader.LoadQuestions(ctx, topic, difficulty)
}

func (l *countingLoader) LoadQuestion(ctx context.Context, id int64) (domain.Question, error) {
	l.singleCalls++
	return l.QuestionLoader.LoadQuestion(ctx, id)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "O(1) average lookup?", CorrectAnswer: "Hash map", Topic: "dsa", Difficulty: "easy"},
		{ID: 2, Text: "Binary search complexity?", CorrectAnswer: "O(log n)", Topic: "dsa", Difficulty: "easy"},
		{ID: 3, Text: "FIFO structure?", CorrectAnswer: "Queue", Topic: "dsa", Difficulty: "easy"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
