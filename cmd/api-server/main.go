package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hackgods/practice-booking/internal/api"
	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/availability"
	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/logging"
	"github.com/hackgods/practice-booking/internal/notify"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
	"github.com/hackgods/practice-booking/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "api-server",
		Short: "Therapist booking and scheduling API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config load: %w", err)
			}
			return serve(cfg)
		},
	}
}

func serve(cfg config.Config) error {
	logger := logging.New("api-server", cfg.Env)
	logger.Info().
		Str("http_port", cfg.HTTPPort).
		Str("storage", cfg.Storage).
		Str("notifier", cfg.Notifier).
		Str("version", version).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(rootCtx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "api-server",
		Env:          cfg.Env,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	defaultLoc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return err
	}

	var (
		repo    appointment.Repository
		clients appointment.ClientDirectory
		avail   availability.Store
		router  = api.RouterConfig{Logger: logger, Env: cfg.Env, Version: version, TrustProxy: cfg.TrustProxyHeaders}
	)

	switch cfg.Storage {
	case config.StoragePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
		cancelPg()
		if err != nil {
			return fmt.Errorf("postgres connection: %w", err)
		}
		defer pool.Close()
		logger.Info().Msg("connected to Postgres")

		pgRepo := appointment.NewPgRepository(pool)
		repo, clients = pgRepo, pgRepo
		avail = availability.NewPgStore(pool)
		router.PgPool = pool
	default:
		memRepo := appointment.NewMemoryRepository()
		repo, clients = memRepo, memRepo
		avail = availability.NewMemoryStore()
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
	}

	var locker redisclient.Locker
	if cfg.RedisEnabled() {
		rdb, err := redisclient.Connect(rootCtx, redisclient.ClientOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("redis connection: %w", err)
		}
		defer closeRedis(rdb, logger)
		logger.Info().Msg("connected to Redis")

		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)
		router.Redis = rdb
		router.Limiter = redisclient.NewRateLimiter(rdb, cfg.PublicRateLimit, cfg.PublicRateWindow, "rl:public")
	} else {
		locker = redisclient.NewLocalLocker(cfg.LockWait)
		logger.Warn().Msg("no Redis configured; therapist locks are process-local and public rate limiting is off")
	}

	switch cfg.AuthMode {
	case config.AuthModeJWT:
		router.Auth = api.NewJWTAuthenticator([]byte(cfg.JWTSecret))
	default:
		router.Auth = api.NewDevAuthenticator()
		logger.Warn().Msg("dev auth enabled: X-Therapist-Id header is trusted")
	}

	router.Service = appointment.NewService(repo, clients, avail, locker, logger, appointment.Options{
		SlotStep:             cfg.SlotStep,
		DefaultBufferMinutes: cfg.DefaultBufferMinutes,
		DefaultLocation:      defaultLoc,
		MaxSeriesOccurrences: cfg.MaxSeriesOccurrences,
	})
	router.Availability = avail

	// With memory storage nothing outside this process can read the event log,
	// so the relay runs here.
	if cfg.Storage == config.StorageMemory {
		notifier, err := notify.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("notifier: %w", err)
		}
		stopRelay := notify.NewRelay(repo, notifier, logger, cfg.RelayInterval, cfg.RelayBatchSize).Start(rootCtx)
		defer func() {
			stopRelay()
			if err := notifier.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing notifier")
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(api.NewRouter(router), "api-server"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-rootCtx.Done():
	}

	logger.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func closeRedis(rdb *redis.Client, logger zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing redis")
	}
}
