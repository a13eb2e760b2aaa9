package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/sundayezeilo/scantrack/internal/analytics"
	"github.com/sundayezeilo/scantrack/internal/broadcast"
	"github.com/sundayezeilo/scantrack/internal/codes"
	"github.com/sundayezeilo/scantrack/internal/config"
	"github.com/sundayezeilo/scantrack/internal/db/migrations"
	db "github.com/sundayezeilo/scantrack/internal/db/sqlc"
	"github.com/sundayezeilo/scantrack/internal/enrich"
	"github.com/sundayezeilo/scantrack/internal/metrics"
	"github.com/sundayezeilo/scantrack/internal/scan"
	"github.com/sundayezeilo/scantrack/internal/server"
	"github.com/sundayezeilo/scantrack/internal/store/memstore"
	"github.com/sundayezeilo/scantrack/internal/store/pgstore"
	"github.com/sundayezeilo/scantrack/internal/telemetry"
	"github.com/sundayezeilo/scantrack/sluggen"
)

// Store is everything the application needs from a storage backend.
type Store interface {
	scan.CodeStore
	scan.EventStore
	codes.Repository
	analytics.Store
}

// App holds the application dependencies and configuration.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DBPool      *pgxpool.Pool
	Store       Store
	Server      *server.Server
	Broadcaster *broadcast.Broadcaster
	Relay       *broadcast.Relay
	Registry    *prometheus.Registry

	redis     *redis.Client
	lookup    *enrich.LookupSource
	telemetry *telemetry.Provider
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.Observability.ServiceVersion,
		"storage", cfg.Storage.Driver,
	)

	a := &App{Config: cfg, Logger: logger}
	if err := a.wire(ctx); err != nil {
		_ = a.Shutdown()
		return nil, err
	}

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"geo_enabled", a.lookup.GeoEnabled(),
		"relay_enabled", a.Relay != nil,
	)

	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	tp, err := telemetry.Setup(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.telemetry = tp

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.Registry)

	ready, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	a.lookup, err = enrich.NewLookupSource(cfg.GeoIP.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open geoip database: %w", err)
	}

	a.Broadcaster = broadcast.New(broadcast.Config{
		QueueSize: cfg.Broadcast.QueueSize,
		OnDrop:    m.LiveDropped,
	})
	m.WatchSubscribers(a.Broadcaster.SubscriberCount)

	var publisher broadcast.Publisher = a.Broadcaster
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		a.Relay = broadcast.NewRelay(broadcast.RelayConfig{
			Client:  a.redis,
			Channel: cfg.Redis.Channel,
			Local:   a.Broadcaster,
			Logger:  logger,
			OnDrop:  m.RelayDropped,
		})
		publisher = a.Relay
	}

	scanner := scan.NewService(scan.ServiceConfig{
		Resolver:  scan.NewResolver(a.Store, cfg.Scan.LookupTimeout),
		Enricher:  enrich.New(a.lookup),
		Recorder:  scan.NewRecorder(a.Store, &scan.RecorderConfig{WriteTimeout: cfg.Scan.WriteTimeout}),
		Publisher: publisher,
		Metrics:   m,
		Logger:    logger,
	})

	gen, err := sluggen.ForAlphabet(cfg.Scan.ShortCodeAlphabet)
	if err != nil {
		return fmt.Errorf("failed to set up short codes: %w", err)
	}
	codeSvc := codes.NewService(a.Store, &codes.ServiceConfig{
		ShortCodeGenerator: gen,
		CodeLength:         cfg.Scan.ShortCodeLength,
		Metrics:            m,
	})

	engine := analytics.NewEngine(analytics.Config{
		Store:        a.Store,
		TimeZone:     cfg.Analytics.Location,
		QueryTimeout: cfg.Analytics.QueryTimeout,
		Metrics:      m,
	})

	a.Server = server.New(cfg, logger, server.Handlers{
		Scan: scan.NewHandler(scan.HandlerConfig{Scanner: scanner, Logger: logger}),
		Codes: codes.NewHandler(codes.HandlerConfig{
			Service: codeSvc,
			Logger:  logger,
			BaseURL: cfg.Server.BaseURL,
		}),
		Analytics: analytics.NewHandler(analytics.HandlerConfig{Querier: engine, Logger: logger}),
		Live: broadcast.NewHandler(broadcast.HandlerConfig{
			Broadcaster:    a.Broadcaster,
			Logger:         logger,
			WriteTimeout:   cfg.Broadcast.WriteTimeout,
			PingInterval:   cfg.Broadcast.PingInterval,
			AllowedOrigins: cfg.Broadcast.AllowedOrigins,
		}),
		Metrics: metrics.Handler(a.Registry),
		Ready:   ready,
	})

	return nil
}

// openStore selects the storage backend and returns its readiness probe.
func (a *App) openStore(ctx context.Context) (func(context.Context) error, error) {
	cfg, logger := a.Config, a.Logger

	if cfg.Storage.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		a.Store = memstore.New()
		return nil, nil
	}

	if cfg.Storage.Migrate {
		if err := migrations.Up(cfg.Database.URL()); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	pool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DBPool = pool
	a.Store = pgstore.New(db.New(pool), nil)
	return pool.Ping, nil
}

// Start runs the server and, when enabled, the Redis relay until ctx is
// cancelled or the server stops.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if a.Relay != nil {
		g.Go(func() error {
			if err := a.Relay.Run(gctx); err != nil {
				return fmt.Errorf("relay error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		if err := a.Server.Start(gctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown releases every resource New acquired. Live subscribers are
// disconnected first.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.Broadcaster != nil {
		a.Broadcaster.Close()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err)
		}
	}

	if a.lookup != nil {
		if err := a.lookup.Close(); err != nil {
			a.Logger.Warn("failed to close geoip database", "error", err)
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.Logger.Warn("failed to flush traces", "error", err)
		}
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}
