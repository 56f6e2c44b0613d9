package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-agency/internal/catalog"
	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/config"
	"github.com/noah-isme/backend-agency/internal/document"
	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/invoice"
	"github.com/noah-isme/backend-agency/internal/lock"
	"github.com/noah-isme/backend-agency/internal/notify"
	"github.com/noah-isme/backend-agency/internal/obs"
	"github.com/noah-isme/backend-agency/internal/pricing"
	"github.com/noah-isme/backend-agency/internal/quote"
	"github.com/noah-isme/backend-agency/internal/store"
)

const (
	lockKeyExpiry  = "sweep:quote-expiry"
	lockKeyOverdue = "sweep:invoice-overdue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	repo := store.New(pool)
	pricer := pricing.Pricer{Lookup: catalog.Default()}
	bus := &events.Bus{
		Store: repo,
		Notifiers: []events.Notifier{notify.EmailNotifier{
			Mail:    common.NopEmailSender{},
			Enabled: cfg.EmailEnabled,
			From:    cfg.EmailFrom,
		}},
	}

	quoteSvc := &quote.Service{
		Store:        repo,
		Invoices:     repo,
		Clients:      repo,
		Pricer:       pricer,
		Machine:      document.QuoteMachine(),
		Events:       bus,
		ValidityDays: cfg.QuoteValidityDays,
	}
	invoiceSvc := &invoice.Service{
		Store:   repo,
		Clients: repo,
		Pricer:  pricer,
		Machine: document.InvoiceMachine(),
		Events:  bus,
		DueDays: cfg.InvoiceDueDays,
	}

	locker := lock.Locker{R: redisClient}
	interval := cfg.OverdueScanInterval
	if interval <= 0 {
		interval = time.Hour
	}

	logger.Info().Dur("interval", interval).Msg("worker starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runSweeps(ctx, logger, locker, quoteSvc, invoiceSvc)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker shutdown complete")
			return
		case <-ticker.C:
			runSweeps(ctx, logger, locker, quoteSvc, invoiceSvc)
		}
	}
}

func runSweeps(ctx context.Context, logger zerolog.Logger, locker lock.Locker, quoteSvc *quote.Service, invoiceSvc *invoice.Service) {
	err := locker.WithLock(ctx, lockKeyExpiry, time.Minute, func(ctx context.Context) error {
		n, err := quoteSvc.ExpireStale(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			obs.CountDocumentSweep("quote", n)
			logger.Info().Int("expired", n).Msg("quote expiry sweep")
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("quote expiry sweep")
	}

	err = locker.WithLock(ctx, lockKeyOverdue, time.Minute, func(ctx context.Context) error {
		n, err := invoiceSvc.MarkOverdue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			obs.CountDocumentSweep("invoice", n)
			logger.Info().Int("overdue", n).Msg("invoice overdue sweep")
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("invoice overdue sweep")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "agency-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}
