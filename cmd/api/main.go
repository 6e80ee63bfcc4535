package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/api"
	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/db"
	"github.com/loadlens-hq/loadlens/internal/jobs"
	loadlensnats "github.com/loadlens-hq/loadlens/internal/nats"
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

	ctx := context.Background()

	// Create server
	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Record store (optional)
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to database, record endpoints disabled")
		} else {
			defer database.Close()
			srv.AttachStore(db.NewStore(database))
			log.Info().Msg("connected to database")
		}
	}

	// NATS (optional)
	var natsClient *loadlensnats.Client
	if cfg.NATSURL != "" {
		natsClient, err = loadlensnats.NewClient(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, jobs will be picked up by polling")
		} else {
			defer natsClient.Close()
			srv.AttachNATS(natsClient)
			log.Info().Str("url", cfg.NATSURL).Msg("connected to NATS")
		}
	}

	// Job system (optional, needs the database)
	if cfg.DatabaseURL != "" {
		jobDB, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to open job database, job endpoints disabled")
		} else if err := jobDB.Ping(); err != nil {
			log.Warn().Err(err).Msg("job database ping failed, job endpoints disabled")
			jobDB.Close()
		} else {
			defer jobDB.Close()
			repo := jobs.NewRepository(jobDB)
			pipeline := jobs.NewPipeline(repo, natsClient)
			srv.AttachJobSystem(repo, pipeline)
		}
	}

	// Start server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Fatal().Err(err).Msg("could not gracefully shutdown the server")
		}
		close(done)
	}()

	log.Info().Int("port", cfg.Port).Msg("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("could not listen on port")
	}

	<-done
	log.Info().Msg("server stopped")
}
