package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/db"
	"github.com/loadlens-hq/loadlens/internal/llm"
	loadlensnats "github.com/loadlens-hq/loadlens/internal/nats"
	"github.com/loadlens-hq/loadlens/internal/worker"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Determine worker type from env or args
	workerType := os.Getenv("WORKER_TYPE")
	if workerType == "" {
		workerType = "all" // Run all worker types
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database (optional)
	var jobDB *sql.DB
	var store *db.Store
	if cfg.DatabaseURL != "" {
		jobDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to database, workers will run in limited mode")
		} else if err := jobDB.Ping(); err != nil {
			log.Warn().Err(err).Msg("database ping failed, workers will run in limited mode")
			jobDB.Close()
			jobDB = nil
		} else {
			log.Info().Msg("connected to database")
			defer jobDB.Close()
		}

		// Separate pgx pool for perf-test records
		if jobDB != nil {
			database, err := db.New(ctx, cfg.DatabaseURL)
			if err != nil {
				log.Warn().Err(err).Msg("failed to open record store")
			} else {
				store = db.NewStore(database)
				defer database.Close()
			}
		}
	}

	// Connect to NATS (optional)
	var natsClient *loadlensnats.Client
	if cfg.NATSURL != "" {
		natsClient, err = loadlensnats.NewClient(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, workers will poll database")
		} else {
			log.Info().Str("url", cfg.NATSURL).Msg("connected to NATS")
			defer natsClient.Close()
		}
	}

	// LLM router for generation and analysis workers
	router, err := llm.NewRouter(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("LLM router unavailable, AI generation and analysis disabled")
	}

	// Create worker pool
	poolCfg := worker.PoolConfig{
		Config:     cfg,
		WorkerType: workerType,
		DB:         jobDB,
		NATS:       natsClient,
		Store:      store,
		LLMRouter:  router,
	}

	pool, err := worker.NewPool(poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create worker pool")
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("worker pool is shutting down...")
		cancel()
	}()

	log.Info().Str("type", workerType).Msg("starting worker pool")
	if err := pool.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker pool error")
	}

	log.Info().Msg("worker pool stopped")
}
