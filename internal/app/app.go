package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/auth"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/config"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/event"
	handler "github.com/k1nderko/goit-pythonweb-hw-12/internal/handler/http"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/mailer"
	mailermock "github.com/k1nderko/goit-pythonweb-hw-12/internal/mailer/mock"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/repository/postgres"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/repository/rediscache"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/service"
	localstorage "github.com/k1nderko/goit-pythonweb-hw-12/internal/storage/local"
	"github.com/k1nderko/goit-pythonweb-hw-12/migrations"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/database"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/health"
	pkgkafka "github.com/k1nderko/goit-pythonweb-hw-12/pkg/kafka"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/tracing"
)

// App wires together all dependencies and runs the contacts API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "contacts",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "contacts")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis for the user cache.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	codec := auth.NewTokenCodec(cfg.JWTSecret, "contacts-api", auth.TTLConfig{
		Access:        cfg.JWTAccessExpiry,
		Refresh:       cfg.JWTRefreshExpiry,
		Verification:  cfg.JWTVerifyExpiry,
		PasswordReset: cfg.JWTResetExpiry,
	})
	hasher := auth.NewPasswordHasher()

	userRepo := rediscache.NewUserRepository(
		postgres.NewUserRepository(pool), redisClient, cfg.UserCacheTTL, logger,
	)
	contactRepo := postgres.NewContactRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	authService := service.NewAuthService(userRepo, hasher, codec, eventProducer, logger)
	contactService := service.NewContactService(contactRepo, logger)

	// Avatar storage on local disk, served under /media/.
	avatarStore, err := localstorage.New(cfg.AvatarDir, cfg.BaseURL)
	if err != nil {
		pool.Close()
		redisClient.Close()
		return nil, fmt.Errorf("init avatar storage: %w", err)
	}

	// Mail delivery: real SMTP in production, log-only sender in development
	// so the stack runs without a mail server.
	var sender mailer.Sender
	if cfg.Environment == "development" {
		sender = mailermock.NewMockSender(logger)
	} else {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	logger.Info("mail sender initialized", slog.String("sender", sender.Name()))

	mailHandler := event.NewMailHandler(sender, cfg.BaseURL, logger)
	consumers := event.NewConsumers(cfg.KafkaBrokers, mailHandler, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(authService, contactService, avatarStore, healthHandler, logger, handler.RouterConfig{
		CORS: handler.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AuthRateRPS:    cfg.AuthRateRPS,
		AuthRateBurst:  cfg.AuthRateBurst,
		MediaDir:       avatarStore.Dir(),
		TracingEnabled: cfg.TracingEnabled,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		consumers:      consumers,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and mail consumers, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	consumerCtx, cancelConsumers := context.WithCancel(ctx)
	defer cancelConsumers()

	var wg sync.WaitGroup
	for _, c := range a.consumers {
		wg.Add(1)
		go func(c *pkgkafka.Consumer) {
			defer wg.Done()
			if err := c.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("mail consumer stopped", slog.String("error", err.Error()))
			}
		}(c)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		cancelConsumers()
		wg.Wait()
		return err
	}

	cancelConsumers()
	wg.Wait()

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumers and producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka consumers and producer.
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
