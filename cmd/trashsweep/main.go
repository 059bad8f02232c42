// trashsweep purges trashed records past the retention window once and
// exits. Meant to run from cron.
package main

import (
	"context"
	"os"
	"time"

	"weconnect-crm/internal/config"
	"weconnect-crm/internal/infra"
	"weconnect-crm/internal/metrics"
	"weconnect-crm/internal/repository"
	"weconnect-crm/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	svc := service.NewTrashService(repository.DefaultTrashables(db), metrics.New(), cfg.TrashSweepBatch)
	res, err := svc.Sweep(ctx, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("sweep failed")
	}
	for _, e := range res.Errors {
		log.Error().Str("error", e).Msg("sweep partial failure")
	}
	log.Info().Int("purged", res.Total).Int("skipped", res.Skipped).Time("cutoff", res.Cutoff).Msg("trash sweep done")
	if len(res.Errors) > 0 {
		os.Exit(1)
	}
}
