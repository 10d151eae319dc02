package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tillpos/internal/config"
	"tillpos/internal/infra"
	"tillpos/internal/router"
	"tillpos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// NewDatabase runs migrations and schema patches on startup.
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Closure notices go out by mail through a circuit breaker so a flaky
	// SMTP relay cannot back up the worker pool.
	mailer := infra.NewMailer(cfg)
	mailerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	// The worker pool is wired here (composition root) so that handlers get
	// full access to infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlers := &worker.Handlers{
		ClosureNotice: worker.NewClosureNoticeWorker(mailer, mailerCB, cfg.SupervisorEmail),
	}
	worker.StartPool(ctx, rdb, handlers, cfg.WorkerPoolSize)

	r := router.New(cfg, db, rdb, mailerCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("till backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
