package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marketplace-platform/order-service/internal/api/handlers"
	"github.com/marketplace-platform/order-service/internal/application"
	"github.com/marketplace-platform/order-service/internal/domain"
	mongoRepo "github.com/marketplace-platform/order-service/internal/infrastructure/mongodb"
	"github.com/marketplace-platform/order-service/pkg/kafka"
	"github.com/marketplace-platform/order-service/pkg/logging"
	"github.com/marketplace-platform/order-service/pkg/metrics"
	"github.com/marketplace-platform/order-service/pkg/middleware"
	"github.com/marketplace-platform/order-service/pkg/mongodb"
	"github.com/marketplace-platform/order-service/pkg/outbox"
	"github.com/marketplace-platform/order-service/pkg/resilience"
	"github.com/marketplace-platform/order-service/pkg/tracing"
)

const serviceName = "order-service"

type mongoClient interface {
	Database() *mongo.Database
	Close(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

type orderRepository interface {
	domain.OrderRepository
	GetOutboxRepository() outbox.Repository
}

type outboxPublisher interface {
	Start(ctx context.Context) error
	Stop() error
}

// Indirection points for tests.
var (
	newMetrics   = metrics.New
	initTracing  = tracing.Initialize
	ensureTopics = kafka.EnsureTopics

	newMongoClient = func(ctx context.Context, config *mongodb.Config) (mongoClient, error) {
		return mongodb.NewClient(ctx, config)
	}

	newOrderRepository = func(db *mongo.Database) orderRepository {
		return mongoRepo.NewOrderRepository(db)
	}

	newOutboxPublisher = func(
		repo outbox.Repository,
		producer *kafka.InstrumentedProducer,
		breaker *resilience.CircuitBreaker,
		logger *logging.Logger,
		m *metrics.Metrics,
		config *outbox.PublisherConfig,
	) outboxPublisher {
		return outbox.NewPublisher(repo, producer, breaker, logger, m, config)
	}

	startHTTPServer = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
)

func main() {
	ctx := context.Background()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(ctx, signalCh); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh chan os.Signal) error {
	cfg := loadConfig()

	logCfg := logging.DefaultConfig(serviceName)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logCfg.Level = logging.LogLevel(lvl)
	}
	logger := logging.New(logCfg)
	logger.SetDefault()

	logger.Info("Starting order service", "addr", cfg.ServerAddr)

	// Tracing
	traceCfg := tracing.DefaultConfig(serviceName)
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		traceCfg.OTLPEndpoint = endpoint
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		traceCfg.Environment = env
	}
	if os.Getenv("TRACING_ENABLED") == "false" {
		traceCfg.Enabled = false
	}
	tracerProvider, err := initTracing(ctx, traceCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down tracer provider", "error", err)
		}
	}()

	// Metrics
	m := newMetrics(metrics.DefaultConfig(serviceName))

	// MongoDB, retried because the database may still be coming up
	var mongoConn mongoClient
	connectRetry := &resilience.RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return true },
	}
	err = resilience.Retry(ctx, connectRetry, func() error {
		var connErr error
		mongoConn, connErr = newMongoClient(ctx, cfg.Mongo)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoConn.Close(closeCtx); err != nil {
			logger.Warn("Failed to close MongoDB client", "error", err)
		}
	}()

	// Kafka topics, warn only because the cluster may manage them itself
	if err := ensureTopics(ctx, cfg.Kafka, kafka.DefaultTopicConfigs()); err != nil {
		logger.Warn("Failed to ensure Kafka topics", "error", err)
	}

	// Kafka producer for outbox delivery
	producer := kafka.NewProducer(cfg.Kafka)
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warn("Failed to close Kafka producer", "error", err)
		}
	}()
	instrumentedProducer := kafka.NewInstrumentedProducer(producer, m, logger)

	// Repositories
	orderRepo := newOrderRepository(mongoConn.Database())

	// Outbox publisher with a circuit breaker around Kafka
	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("kafka-publish"),
		logger.Logger,
	)
	publisher := newOutboxPublisher(
		orderRepo.GetOutboxRepository(),
		instrumentedProducer,
		breaker,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
			Source:       serviceName,
		},
	)
	if err := publisher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start outbox publisher: %w", err)
	}
	defer func() {
		if err := publisher.Stop(); err != nil {
			logger.Warn("Failed to stop outbox publisher", "error", err)
		}
	}()

	// Application services
	orderService := application.NewOrderApplicationService(
		orderRepo,
		logger,
		middleware.NewBusinessMetrics(m),
	)
	salesService := application.NewSalesQueryService(orderRepo, logger)

	// HTTP router
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return mongoConn.HealthCheck(checkCtx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	handlers.NewOrderHandler(orderService, logger).RegisterRoutes(api)
	handlers.NewReportsHandler(salesService, logger).RegisterRoutes(api)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := startHTTPServer(srv); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("Order service started", "addr", cfg.ServerAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-signalCh:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	logger.Info("Order service stopped")
	return nil
}

// Config holds service configuration loaded from the environment.
type Config struct {
	ServerAddr string
	Mongo      *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = getEnv("MONGODB_URI", mongoCfg.URI)
	mongoCfg.Database = getEnv("MONGODB_DATABASE", "marketplace")

	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaCfg.ClientID = serviceName

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8015"),
		Mongo:      mongoCfg,
		Kafka:      kafkaCfg,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
