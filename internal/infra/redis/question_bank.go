package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"arena-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question records from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, topic, difficulty string) ([]domain.Question, error)
	LoadQuestion(ctx context.Context, id int64) (domain.Question, error)
}

// QuestionBank caches question sets in Redis and falls back to a loader on
// cache miss. Sets are stored as one hash per topic/difficulty pair:
//
//	HSET arena:questions:{topic}:{difficulty} {questionID} {question JSON}
//
// Individual records are additionally cached under arena:question:{id} for
// the scoring lookup path.
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Sample(ctx context.Context, topic, difficulty string, count int) ([]domain.Question, error) {
	questions, err := b.questionSet(ctx, topic, difficulty)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	// Concurrent cache misses share one slice through singleflight, so
	// shuffle a copy rather than the shared backing array.
	b.mu.Lock()
	picked := make([]domain.Question, len(questions))
	copy(picked, questions)
	b.rnd.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	b.mu.Unlock()

	if count > 0 && len(picked) > count {
		picked = picked[:count]
	}
	return picked, nil
}

func (b *QuestionBank) Question(ctx context.Context, id int64) (domain.Question, error) {
	raw, err := b.client.Get(ctx, b.questionKey(id)).Result()
	if err == nil {
		var question domain.Question
		if err := json.Unmarshal([]byte(raw), &question); err == nil {
			return question, nil
		}
	}

	result, err, _ := b.sf.Do("question:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
		question, err := b.loader.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		if data, err := json.Marshal(question); err == nil {
			_ = b.client.Set(ctx, b.questionKey(id), data, b.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (b *QuestionBank) questionSet(ctx context.Context, topic, difficulty string) ([]domain.Question, error) {
	setKey := b.setKey(topic, difficulty)

	cached, err := b.client.HGetAll(ctx, setKey).Result()
	if err == nil && len(cached) > 0 {
		return decodeSet(cached), nil
	}

	result, err, _ := b.sf.Do(setKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := b.client.HGetAll(ctx, setKey).Result()
		if err == nil && len(cached) > 0 {
			return decodeSet(cached), nil
		}

		questions, err := b.loader.LoadQuestions(ctx, topic, difficulty)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		ttl := b.ttlWithJitter()
		pipe := b.client.Pipeline()
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				continue
			}
			pipe.HSet(ctx, setKey, strconv.FormatInt(q.ID, 10), data)
			pipe.Set(ctx, b.questionKey(q.ID), data, ttl)
		}
		if ttl > 0 {
			pipe.Expire(ctx, setKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) setKey(topic, difficulty string) string {
	return "arena:questions:" + topic + ":" + difficulty
}

func (b *QuestionBank) questionKey(id int64) string {
	return "arena:question:" + strconv.FormatInt(id, 10)
}

func decodeSet(cached map[string]string) []domain.Question {
	questions := make([]domain.Question, 0, len(cached))
	for _, raw := range cached {
		var question domain.Question
		if err := json.Unmarshal([]byte(raw), &question); err == nil {
			questions = append(questions, question)
		}
	}
	return questions
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
