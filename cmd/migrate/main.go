package main

import (
	"context"
	"os"
	"time"

	"github.com/punchamoorthee/expensemanager/internal/config"
	"github.com/punchamoorthee/expensemanager/internal/logger"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "production")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	if cfg.Store != config.StorePostgres {
		log.Fatal().Str("store", cfg.Store).Msg("migrations only apply to the postgres store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := store.NewPostgresStore(ctx, cfg.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to connect to database")
	}
	defer pg.Close()

	appliedBy, _ := os.Hostname()
	n, err := pg.Migrate(ctx, appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Int("applied", n).Msg("database is up to date")
}
