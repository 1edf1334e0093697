// Package app wires configuration into the stores, clients and service
// shared by the server and the one-shot digest command.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/internal/config"
	"github.com/nitesh/bill_monitor/internal/notifier"
	"github.com/nitesh/bill_monitor/internal/rada"
	"github.com/nitesh/bill_monitor/internal/retry"
	"github.com/nitesh/bill_monitor/internal/service"
	"github.com/nitesh/bill_monitor/internal/store"
)

type App struct {
	Service *service.Service
	// Postgres is set when SEEN_STORE=postgres.
	Postgres *store.PgStore

	closers []func() error
	logger  *zap.Logger
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var (
		tokens rada.TokenStore
		cache  service.ResultCache
		seen   service.SeenStore
		opts   []service.Option
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Info("using in-memory store")
		mem := store.NewMemoryStore()
		tokens, cache, seen = mem, mem, mem
		opts = append(opts, service.WithRunLog(mem))
	default:
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed", zap.String("addr", redisOpts.Addr), zap.Error(err))
		} else {
			logger.Info("redis connected", zap.String("addr", redisOpts.Addr))
		}
		cancel()
		rs := store.NewRedisStore(rdb)
		a.closers = append(a.closers, rs.Close)
		tokens, cache, seen = rs, rs, rs
	}

	if cfg.SeenStore == config.BackendPostgres {
		pg, err := a.openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Postgres = pg
		seen = pg
		opts = append(opts, service.WithRunLog(pg))
	}

	tm := rada.NewTokenManager(rada.TokenManagerConfig{
		URL:          cfg.Rada.TokenURL,
		RegisteredIP: cfg.Rada.RegisteredIP,
	}, tokens, nil, logger.Named("token"))

	client := rada.NewClient(rada.ClientConfig{DatasetURL: cfg.Rada.DatasetURL}, tm, nil, logger.Named("dataset"))

	var n service.Notifier
	if cfg.SMTP.Enabled() {
		en, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			To:       cfg.SMTP.Recipients,
			Location: loc,
		}, logger.Named("email"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		n = en
	} else {
		logger.Warn("SMTP_HOST not set, digests will only be logged")
		n = notifier.NewLogNotifier(logger.Named("digest"))
	}

	opts = append(opts,
		service.WithResultTTL(cfg.Digest.ResultTTL),
		service.WithPreviewLimit(cfg.Digest.PreviewLimit),
		service.WithLocation(loc),
		service.WithLogger(logger.Named("service")),
	)
	a.Service = service.NewService(client, cache, seen, n, opts...)
	return a, nil
}

// openPostgres waits for the database, which may still be starting in docker.
func (a *App) openPostgres(ctx context.Context, dsn string) (*store.PgStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	ping := retry.Policy{Name: "postgres_ping", MaxAttempts: 10, Delay: 2 * time.Second}
	if _, err := ping.Do(ctx, a.logger, func(ctx context.Context, _ int) error {
		return conn.PingContext(ctx)
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not connect to db: %w", err)
	}
	if err := store.RunMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	a.logger.Info("postgres connected")
	pg := store.NewPgStore(conn)
	a.closers = append(a.closers, pg.Close)
	return pg, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
