package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/punchamoorthee/expensemanager/internal/api"
	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/config"
	"github.com/punchamoorthee/expensemanager/internal/ledger"
	"github.com/punchamoorthee/expensemanager/internal/logger"
	"github.com/punchamoorthee/expensemanager/internal/notify"
	"github.com/punchamoorthee/expensemanager/internal/reconcile"
	"github.com/punchamoorthee/expensemanager/internal/reports"
	"github.com/punchamoorthee/expensemanager/internal/service"
	"github.com/punchamoorthee/expensemanager/internal/store"
	"github.com/punchamoorthee/expensemanager/internal/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "production")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store; data is lost on exit")
		st = store.NewMemoryStore()
	default:
		pg, err := store.NewPostgresStore(ctx, cfg.DBSource)
		if err != nil {
			log.Fatal().Err(err).Msg("Unable to connect to database")
		}
		defer pg.Close()
		st = pg
	}

	// Initialize Layers
	cache := views.NewCache(5 * time.Minute)
	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	l := ledger.New(st, cfg.BalanceMode, log)

	handler := api.NewHandler(api.Services{
		Auth:         auth.NewService(st, tokens, log),
		Tokens:       tokens,
		Accounts:     service.NewAccountService(st, cache, log),
		Categories:   service.NewCategoryService(st, cache, log),
		Transactions: service.NewTransactionService(l, st, cache, log),
		Dashboard:    service.NewDashboardService(st, cache),
		Reports:      reports.NewService(st),
	}, log)

	// Background jobs
	c := cron.New()
	if err := reconcile.New(st, cfg.ReconcileRepair, log).Schedule(ctx, c, cfg.ReconcileSchedule); err != nil {
		log.Fatal().Err(err).Msg("scheduling reconciliation")
	}
	if cfg.SMTP.Host != "" {
		digest := notify.NewDigest(st, notify.NewSMTPMailer(cfg.SMTP, log), log)
		if err := digest.Schedule(ctx, c, cfg.DigestSchedule); err != nil {
			log.Fatal().Err(err).Msg("scheduling monthly digest")
		}
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store).
			Str("balance_mode", string(l.Mode())).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
