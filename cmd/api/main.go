package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daloamarket-backend/internal/application/jobs"
	"daloamarket-backend/internal/config"
	"daloamarket-backend/internal/infrastructure/database"
	"daloamarket-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	setupLogger(cfg)

	app, rt, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}
	log.Info().Msg("Redis connected")

	var scheduler *jobs.Scheduler
	if rt.DB != nil {
		sqlDB, err := rt.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres: get DB")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("Postgres connection failed")
		}
		if err := database.AutoMigrate(rt.DB); err != nil {
			log.Fatal().Err(err).Msg("auto migrate")
		}
		log.Info().Msg("Postgres connected")

		ttl := time.Duration(cfg.PendingListingTTLDays) * 24 * time.Hour
		scheduler = jobs.New(rt.DB, rt.MessageLimiter, ttl)
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("cron scheduler")
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set: only health endpoints are served")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msgf("Server running at http://localhost:%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := rt.Rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}
