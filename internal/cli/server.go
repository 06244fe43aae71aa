package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena-service/internal/app"
	"arena-service/internal/config"
	"arena-service/internal/domain"
	"arena-service/internal/infra/memory"
	pginfra "arena-service/internal/infra/postgres"
	redisinfra "arena-service/internal/infra/redis"
	transport "arena-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the arena server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	roomTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Arena.QuestionTTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisinfra.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		bank = memory.NewQuestionBank(loader, questionTTL)
	}

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, roomTTL)
	} else {
		rooms = memory.NewRoomStore()
	}

	var progress app.ProgressRepository = memory.NewProgressStore()
	var results app.ResultRepository = memory.NewResultStore()
	var streakRepo app.StreakRepository = memory.NewStreakStore()
	if pool != nil {
		progress = pginfra.NewProgressRepository(pool)
		results = pginfra.NewResultRepository(pool)
		streakRepo = pginfra.NewStreakRepository(pool)
	}

	roundDeadline := config.TTLDuration(cfg.Arena.RoundDeadline, 30*time.Second)
	arena := app.NewArenaService(rooms, roundDeadline)
	streaks := app.NewStreakService(streakRepo)
	scoring := app.NewScoringService(bank, progress, results, streaks)
	directory := memory.NewStaticUserDirectory(nil)
	leaderboard := app.NewLeaderboardService(progress, results, directory, cfg.Leaderboard.Size)

	wsHandler := transport.NewWSHandler(arena)
	arenaHandler := transport.NewArenaHandler(bank, scoring, streaks, leaderboard)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/arena", wsHandler.ServeWS)
	arenaHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting arena service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides a minimal bank for running without a database;
// swap in the Postgres loader by configuring postgres.url.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            1,
			Text:          "Which data structure gives O(1) average lookup by key?",
			OptionA:       "Linked list",
			OptionB:       "Hash map",
			OptionC:       "Binary tree",
			OptionD:       "Stack",
			CorrectAnswer: "Hash map",
			Topic:         "dsa",
			Difficulty:    "easy",
			Explanation:   "Hash maps bucket entries by key hash.",
		},
		{
			ID:            2,
			Text:          "What is the time complexity of binary search?",
			OptionA:       "O(n)",
			OptionB:       "O(n log n)",
			OptionC:       "O(log n)",
			OptionD:       "O(1)",
			CorrectAnswer: "O(log n)",
			Topic:         "dsa",
			Difficulty:    "easy",
			Explanation:   "Each probe halves the remaining range.",
		},
	}
}
