package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-agency/internal/catalog"
	"github.com/noah-isme/backend-agency/internal/client"
	"github.com/noah-isme/backend-agency/internal/common"
	"github.com/noah-isme/backend-agency/internal/config"
	"github.com/noah-isme/backend-agency/internal/document"
	"github.com/noah-isme/backend-agency/internal/events"
	"github.com/noah-isme/backend-agency/internal/health"
	"github.com/noah-isme/backend-agency/internal/invoice"
	"github.com/noah-isme/backend-agency/internal/notify"
	"github.com/noah-isme/backend-agency/internal/obs"
	"github.com/noah-isme/backend-agency/internal/pricing"
	"github.com/noah-isme/backend-agency/internal/quote"
	"github.com/noah-isme/backend-agency/internal/ratelimit"
	"github.com/noah-isme/backend-agency/internal/security"
	"github.com/noah-isme/backend-agency/internal/store"
	"github.com/noah-isme/backend-agency/internal/subscription"
	"github.com/noah-isme/backend-agency/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "agency-api",
			Endpoint:      cfg.TracingEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := mustOpenPool(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustOpenRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	repo := store.New(pool)
	cat := catalog.Default()
	pricer := pricing.Pricer{
		Lookup: cat,
		OnUnknownProduct: func(productID string) {
			obs.CountUnknownProduct(productID)
			logger.Warn().Str("product_id", productID).Msg("unknown product priced at zero")
		},
	}

	emailNotifier := notify.EmailNotifier{
		Mail:    common.NopEmailSender{},
		Enabled: cfg.EmailEnabled,
		From:    cfg.EmailFrom,
	}
	bus := &events.Bus{
		Store:     repo,
		Notifiers: []events.Notifier{emailNotifier},
	}

	quoteSvc := &quote.Service{
		Store:          repo,
		Invoices:       repo,
		Clients:        repo,
		Pricer:         pricer,
		Machine:        document.QuoteMachine(),
		Events:         bus,
		ValidityDays:   cfg.QuoteValidityDays,
		InvoiceDueDays: cfg.InvoiceDueDays,
		NumberSuffix:   func() int { return rand.Intn(1000) },
	}
	invoiceSvc := &invoice.Service{
		Store:        repo,
		Clients:      repo,
		Pricer:       pricer,
		Machine:      document.InvoiceMachine(),
		Events:       bus,
		DueDays:      cfg.InvoiceDueDays,
		NumberSuffix: func() int { return rand.Intn(1000) },
	}

	catalogHandler := catalog.Handler{Catalog: cat}
	clientHandler := &client.Handler{Svc: &client.Service{Store: repo}}
	quoteHandler := &quote.Handler{Svc: quoteSvc}
	invoiceHandler := &invoice.Handler{Svc: invoiceSvc}
	subscriptionHandler := &subscription.Handler{Svc: &subscription.Service{Store: repo}}
	ticketHandler := &ticket.Handler{Svc: &ticket.Service{Store: repo}}
	eventsHandler := events.Handler{Store: repo}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	buckets := obs.ParseBucketsCSV(cfg.MetricsBuckets)
	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
	r.Use(ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter")
		},
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	if pprofUser := strings.TrimSpace(os.Getenv("PPROF_BASIC_AUTH_USER")); pprofUser != "" {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), pprofUser, os.Getenv("PPROF_BASIC_AUTH_PASS")))
	}

	healthHandler := health.Handler{
		Checker: readinessChecker{db: pool, redis: redisClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/catalog/products", catalogHandler.Products)
		v.Get("/catalog/products/{productID}", catalogHandler.ProductDetail)

		v.Route("/clients", func(c chi.Router) {
			c.Get("/", clientHandler.List)
			c.Post("/", clientHandler.Create)
			c.Route("/{clientID}", func(child chi.Router) {
				child.Get("/", clientHandler.Get)
				child.Patch("/", clientHandler.Update)
				child.Delete("/", clientHandler.Delete)
			})
		})

		v.Route("/quotes", func(q chi.Router) {
			q.Get("/", quoteHandler.List)
			q.With(idem.Middleware).Post("/", quoteHandler.Create)
			q.Route("/{quoteID}", func(child chi.Router) {
				child.Get("/", quoteHandler.Get)
				child.Put("/", quoteHandler.Update)
				child.Delete("/", quoteHandler.Delete)
				child.Post("/send", quoteHandler.Send)
				child.Patch("/status", quoteHandler.PatchStatus)
				child.With(idem.Middleware).Post("/convert", quoteHandler.Convert)
			})
		})

		v.Route("/invoices", func(i chi.Router) {
			i.Get("/", invoiceHandler.List)
			i.With(idem.Middleware).Post("/", invoiceHandler.Create)
			i.Route("/{invoiceID}", func(child chi.Router) {
				child.Get("/", invoiceHandler.Get)
				child.Put("/", invoiceHandler.Update)
				child.Delete("/", invoiceHandler.Delete)
				child.Post("/send", invoiceHandler.Send)
				child.Patch("/status", invoiceHandler.PatchStatus)
			})
		})

		v.Route("/subscriptions", func(s chi.Router) {
			s.Get("/", subscriptionHandler.List)
			s.Post("/", subscriptionHandler.Create)
			s.Route("/{subscriptionID}", func(child chi.Router) {
				child.Get("/", subscriptionHandler.Get)
				child.Patch("/", subscriptionHandler.Update)
				child.Patch("/status", subscriptionHandler.PatchStatus)
				child.Delete("/", subscriptionHandler.Delete)
			})
		})

		v.Route("/tickets", func(t chi.Router) {
			t.Get("/", ticketHandler.List)
			t.Post("/", ticketHandler.Create)
			t.Route("/{ticketID}", func(child chi.Router) {
				child.Get("/", ticketHandler.Get)
				child.Patch("/", ticketHandler.Update)
				child.Patch("/status", ticketHandler.PatchStatus)
				child.Delete("/", ticketHandler.Delete)
			})
		})

		v.Get("/events", eventsHandler.List)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func mustOpenPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "agency-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustOpenRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
