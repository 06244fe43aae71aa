package memory

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"arena-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question records from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, topic, difficulty string) ([]domain.Question, error)
	LoadQuestion(ctx context.Context, id int64) (domain.Question, error)
}

// QuestionBank caches topic/difficulty question sets with TTL to avoid
// repeated store hits, and samples shuffled subsets from the cached sets.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedSet
	byID  map[int64]cachedQuestion
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
		byID:   make(map[int64]cachedQuestion),
	}
}

// Sample returns up to count shuffled, non-repeating questions for the
// topic/difficulty pair.
func (b *QuestionBank) Sample(ctx context.Context, topic, difficulty string, count int) ([]domain.Question, error) {
	questions, err := b.questionSet(ctx, topic, difficulty)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

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

// Question returns a single record by ID, loading through on cache miss.
func (b *QuestionBank) Question(ctx context.Context, id int64) (domain.Question, error) {
	now := b.clock()

	b.mu.Lock()
	if entry, ok := b.byID[id]; ok && entry.expiresAt.After(now) {
		b.mu.Unlock()
		return entry.question, nil
	}
	b.mu.Unlock()

	result, err, _ := b.sf.Do(questionKey(id), func() (interface{}, error) {
		question, err := b.loader.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		b.storeQuestion(question)
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (b *QuestionBank) questionSet(ctx context.Context, topic, difficulty string) ([]domain.Question, error) {
	key := setKey(topic, difficulty)
	now := b.clock()

	b.mu.Lock()
	if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
		b.mu.Unlock()
		return entry.questions, nil
	}
	b.mu.Unlock()

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		now := b.clock()
		b.mu.Lock()
		if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
			b.mu.Unlock()
			return entry.questions, nil
		}
		b.mu.Unlock()

		questions, err := b.loader.LoadQuestions(ctx, topic, difficulty)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[key] = cachedSet{questions: questions, expiresAt: now.Add(b.ttlWithJitter())}
		b.mu.Unlock()
		for _, q := range questions {
			b.storeQuestion(q)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) storeQuestion(q domain.Question) {
	b.mu.Lock()
	b.byID[q.ID] = cachedQuestion{question: q, expiresAt: b.clock().Add(b.ttlWithJitter())}
	b.mu.Unlock()
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func setKey(topic, difficulty string) string {
	return strings.ToLower(topic) + "|" + strings.ToLower(difficulty)
}

func questionKey(id int64) string {
	return "q:" + strconv.FormatInt(id, 10)
}

// StaticQuestionLoader is a simple loader backed by an in-memory slice
// (useful for tests/demos and the no-database mode).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, topic, difficulty string) ([]domain.Question, error) {
	var matched []domain.Question
	for _, q := range l.questions {
		if strings.EqualFold(q.Topic, topic) && strings.EqualFold(q.Difficulty, difficulty) {
			matched = append(matched, q)
		}
	}
	return matched, nil
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, id int64) (domain.Question, error) {
	for _, q := range l.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}
