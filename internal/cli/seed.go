package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"arena-service/internal/config"
	"arena-service/internal/domain"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewSeedCmd bulk-loads the question bank from a JSON file.
func NewSeedCmd(configPath *string) *cobra.Command {
	var questionsFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the question bank from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, questionsFile)
		},
	}
	cmd.Flags().StringVar(&questionsFile, "questions", "data/questions.json", "path to questions JSON")
	return cmd
}

func runSeed(ctx context.Context, configPath, questionsFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	data, err := os.ReadFile(questionsFile)
	if err != nil {
		return fmt.Errorf("read questions file: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return fmt.Errorf("parse questions file: %w", err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	inserted := 0
	for _, q := range questions {
		_, err := db.ExecContext(ctx,
			`INSERT INTO questions (question_text, option_a, option_b, option_c, option_d, correct_answer, topic, subtopic, difficulty, explanation)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer,
			q.Topic, q.Subtopic, q.Difficulty, q.Explanation)
		if err != nil {
			return fmt.Errorf("insert question %q: %w", q.Text, err)
		}
		inserted++
	}
	log.Printf("seeded %d questions from %s", inserted, questionsFile)
	return nil
}
