package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/logging"
	"github.com/hackgods/practice-booking/internal/notify"
	"github.com/hackgods/practice-booking/internal/telemetry"
)

// event-relay publishes committed appointment events from Postgres to the configured
// notifier. Several replicas may run; SKIP LOCKED keeps their batches disjoint.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("event-relay", "dev")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New("event-relay", cfg.Env)

	if cfg.Storage != config.StoragePostgres {
		logger.Error().Msg("event-relay reads the Postgres event log; with STORAGE=memory the api-server relays in-process")
		os.Exit(1)
	}

	logger.Info().
		Str("notifier", cfg.Notifier).
		Dur("interval", cfg.RelayInterval).
		Int("batch_size", cfg.RelayBatchSize).
		Msg("event-relay starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(rootCtx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "event-relay",
		Env:          cfg.Env,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("telemetry setup")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pool.Close()
	logger.Info().Msg("connected to Postgres")

	notifier, err := notify.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier setup")
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing notifier")
		}
	}()

	repo := appointment.NewPgRepository(pool)
	notify.NewRelay(repo, notifier, logger, cfg.RelayInterval, cfg.RelayBatchSize).Run(rootCtx)

	logger.Info().Msg("shutdown signal received, event relay stopped")
}
