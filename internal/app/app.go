package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalogsearch/internal/catalog"
	"github.com/utafrali/catalogsearch/internal/config"
	"github.com/utafrali/catalogsearch/internal/engine/memory"
	"github.com/utafrali/catalogsearch/internal/event"
	handler "github.com/utafrali/catalogsearch/internal/handler/http"
	"github.com/utafrali/catalogsearch/internal/querylog"
	"github.com/utafrali/catalogsearch/internal/seed"
	"github.com/utafrali/catalogsearch/internal/service"
	"github.com/utafrali/catalogsearch/pkg/database"
	"github.com/utafrali/catalogsearch/pkg/health"
	pkgkafka "github.com/utafrali/catalogsearch/pkg/kafka"
	"github.com/utafrali/catalogsearch/pkg/middleware"
	"github.com/utafrali/catalogsearch/pkg/tracing"
)

const (
	serviceName    = "search-service"
	metricsNS      = "search"
	idempotencyKey = "search:events:"
)

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	service        *service.SearchService
	consumers      []*pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	redis          *redis.Client
	tracerShutdown tracing.ShutdownFunc
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:      cfg.OTELEnabled,
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	eng := memory.New(
		memory.WithLocale(cfg.Locale),
		memory.WithStopwords(cfg.Stopwords...),
		memory.WithLogger(logger),
	)
	logger.Info("in-memory search engine initialized", slog.String("locale", cfg.Locale))

	healthHandler := health.NewHandler()

	// Query log and event deduplication live in Redis when it is enabled,
	// otherwise in process memory.
	var (
		queries querylog.Log
		seen    pkgkafka.IdempotencyStore
	)
	if cfg.RedisRequired() {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:         cfg.RedisHost,
			Port:         cfg.RedisPort,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err != nil {
			a.shutdownTracer()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		queries = querylog.NewRedisLog(client, cfg.QueryLogKey)
		seen = pkgkafka.NewRedisIdempotencyStore(client, idempotencyKey, cfg.IdempotencyTTL)
		healthHandler.Register("redis", database.RedisChecker(client))
		logger.Info("redis connected", slog.String("host", cfg.RedisHost), slog.Int("port", cfg.RedisPort))
	} else {
		queries = querylog.NewMemoryLog()
		seen = pkgkafka.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
	}

	catalogClient := catalog.NewClient(
		cfg.ProductServiceURL,
		cfg.ReindexPageSize,
		catalog.NewHTTPClient(cfg.ProductServiceTimeout, logger),
		logger,
	)

	a.service = service.NewSearchService(eng, logger,
		service.WithCatalog(catalogClient),
		service.WithQueryLog(queries),
		service.WithMetrics(service.NewMetrics(prometheus.DefaultRegisterer, metricsNS)),
	)

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			a.abort()
			return nil, err
		}
		counts, err := seed.Apply(ctx, a.service, f)
		if err != nil {
			a.abort()
			return nil, fmt.Errorf("apply seed file: %w", err)
		}
		logger.Info("seed data loaded",
			slog.String("file", cfg.SeedFile),
			slog.Int("synonyms", counts.Synonyms),
			slog.Int("suggestions", counts.Suggestions),
		)
	}

	if cfg.PopularQueryCount > 0 {
		n, err := a.service.LoadPopularQueries(ctx, cfg.PopularQueryCount)
		if err != nil {
			logger.Warn("failed to load popular queries", slog.String("error", err.Error()))
		} else {
			logger.Info("popular queries loaded", slog.Int("count", n))
		}
	}

	if cfg.KafkaEnabled {
		eventConsumer := event.NewConsumer(a.service, logger)
		handle := pkgkafka.IdempotentHandler(seen, eventConsumer.Handle, logger)
		kafkaMetrics := pkgkafka.NewMetrics(prometheus.DefaultRegisterer, metricsNS)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)

		for _, topic := range event.Topics() {
			consumerCfg := pkgkafka.ConsumerConfig{
				Brokers:      cfg.KafkaBrokers,
				GroupID:      cfg.KafkaGroupID,
				Topic:        topic,
				MinBytes:     1,
				MaxBytes:     10e6, // 10 MB
				MaxRetries:   3,
				RetryBackoff: 500 * time.Millisecond,
			}
			a.consumers = append(a.consumers, pkgkafka.NewConsumer(consumerCfg, handle, logger,
				pkgkafka.WithDLQ(a.dlq),
				pkgkafka.WithMetrics(kafkaMetrics),
			))
		}
		healthHandler.Register("kafka", pkgkafka.BrokerChecker(cfg.KafkaBrokers))
		logger.Info("kafka consumers initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("topic_count", len(a.consumers)),
		)
	}

	if cfg.AdminAPIKey == "" {
		logger.Warn("ADMIN_API_KEY is empty, admin endpoints will reject every request")
	}

	router := handler.NewRouter(a.service, healthHandler, handler.RouterConfig{
		AdminAPIKey: cfg.AdminAPIKey,
		CORS:        middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		CacheMaxAge: cfg.CacheMaxAge,
		Registerer:  prometheus.DefaultRegisterer,
		Gatherer:    prometheus.DefaultGatherer,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: handler.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	if a.cfg.ReindexOnStart {
		go a.reindex(ctx)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

func (a *App) reindex(ctx context.Context) {
	result, err := a.service.Reindex(ctx)
	if err != nil {
		a.logger.Error("startup reindex failed", slog.String("error", err.Error()))
		return
	}
	a.logger.Info("startup reindex completed",
		slog.Int("indexed", result.Indexed),
		slog.Int("total", result.Total),
	)
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources())

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases the DLQ writer and the Redis client.
func (a *App) closeResources() error {
	var errs []error
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// abort releases what NewApp acquired before failing.
func (a *App) abort() {
	_ = a.closeResources()
	a.shutdownTracer()
}

func (a *App) shutdownTracer() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.tracerShutdown(ctx)
}
