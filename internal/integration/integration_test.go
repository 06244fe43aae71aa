package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"arena-service/internal/app"
	"arena-service/internal/domain"
	"arena-service/internal/infra/memory"
	pgstore "arena-service/internal/infra/postgres"
	pgmigrations "arena-service/internal/infra/postgres/migrations"
	infraredis "arena-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestEvaluateEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuestionLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	bank := infraredis.NewQuestionBank(redisClient, loader, 5*time.Minute)

	progressRepo := pgstore.NewProgressRepository(pool)
	resultRepo := pgstore.NewResultRepository(pool)
	streakRepo := pgstore.NewStreakRepository(pool)

	streaks := app.NewStreakService(streakRepo)
	scoring := app.NewScoringService(bank, progressRepo, resultRepo, streaks)
	leaderboard := app.NewLeaderboardService(progressRepo, resultRepo,
		memory.NewStaticUserDirectory(map[string]domain.UserIdentity{
			"u1": {UserID: "u1", DisplayName: "Alice"},
		}), 10)

	// Sampling warms the redis cache before grading reads individual records.
	sampled, err := bank.Sample(ctx, "dsa", "easy", 2)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(sampled) != 2 {
		t.Fatalf("expected 2 sampled questions, got %d", len(sampled))
	}

	answers := make(map[int64]string, len(sampled))
	for _, q := range sampled {
		answers[q.ID] = q.CorrectAnswer
	}
	eval, err := scoring.Evaluate(ctx, "u1", answers, app.SessionMeta{Topic: "dsa", Difficulty: "easy", TimeTaken: 42})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.CorrectAnswers != 2 || eval.XPEarned != 70 {
		t.Fatalf("expected perfect session worth 70 XP, got %+v", eval)
	}

	progress, found, err := scoring.Progress(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("progress: found=%v err=%v", found, err)
	}
	if progress.XPPoints != 70 || progress.CorrectAnswers != 2 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	streak, err := streaks.GetStreak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak.CurrentStreak != 1 || streak.TotalLessonsCompleted != 1 {
		t.Fatalf("expected fresh streak of 1, got %+v", streak)
	}

	entries, err := leaderboard.Rank(ctx, domain.WindowAllTime)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u1" || entries[0].DisplayName != "Alice" || entries[0].XP != 70 {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}

	topTopic, err := leaderboard.TopByTopic(ctx, "dsa")
	if err != nil {
		t.Fatalf("top by topic: %v", err)
	}
	if len(topTopic) != 1 || topTopic[0].Accuracy != 1 {
		t.Fatalf("expected one perfect dsa result, got %+v", topTopic)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "arena", "POSTGRES_PASSWORD": "arenapass", "POSTGRES_DB": "arenadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://arena:arenapass@%s:%s/arenadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, q := range questions {
		_, err := db.ExecContext(ctx, `INSERT INTO questions
			(question_text, option_a, option_b, option_c, option_d, correct_answer, topic, subtopic, difficulty, explanation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.Topic, q.Subtopic, q.Difficulty, q.Explanation)
		if err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:          "Which structure gives O(1) average lookup by key?",
			OptionA:       "Hash map",
			OptionB:       "Linked list",
			OptionC:       "Binary heap",
			OptionD:       "Stack",
			CorrectAnswer: "Hash map",
			Topic:         "dsa",
			Subtopic:      "hashing",
			Difficulty:    "easy",
			Explanation:   "Hash maps index buckets directly by hashed key.",
		},
		{
			Text:          "Which traversal visits a binary tree level by level?",
			OptionA:       "Preorder",
			OptionB:       "Inorder",
			OptionC:       "Breadth-first",
			OptionD:       "Postorder",
			CorrectAnswer: "Breadth-first",
			Topic:         "dsa",
			Subtopic:      "trees",
			Difficulty:    "easy",
			Explanation:   "Breadth-first traversal uses a queue to walk levels in order.",
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
