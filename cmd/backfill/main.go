// The backfill command rebuilds the level-cap achiever ranks from the XP
// history log and exits. The worker runs the same job nightly; this exists
// for recovery after a bad migration or a manual history import.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/origins-hub/fishing-stats-hub/config"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/persistence/postgres"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/scheduler/jobs"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.NewMigrator(db, postgres.GetMigrations()).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	history := postgres.NewXPHistoryRepository(db)
	achievers := postgres.NewAchieverRepository(db)

	job := jobs.NewBackfillAchieversJob(history, achievers, nil, log)
	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	if stats := job.LastStats(); stats != nil {
		log.Info("backfill complete",
			"achievers", stats.Total,
			"duration", stats.Duration.String(),
		)
	}
	return nil
}
