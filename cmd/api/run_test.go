package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marketplace-platform/order-service/internal/domain"
	"github.com/marketplace-platform/order-service/pkg/kafka"
	"github.com/marketplace-platform/order-service/pkg/logging"
	"github.com/marketplace-platform/order-service/pkg/metrics"
	"github.com/marketplace-platform/order-service/pkg/mongodb"
	"github.com/marketplace-platform/order-service/pkg/outbox"
	"github.com/marketplace-platform/order-service/pkg/resilience"
	"github.com/marketplace-platform/order-service/pkg/tracing"
)

type fakeMongo struct{}

func (f *fakeMongo) Database() *mongo.Database { return nil }
func (f *fakeMongo) Close(context.Context) error { return nil }
func (f *fakeMongo) HealthCheck(context.Context) error { return nil }

type fakePublisher struct {
	startErr error
	started  *bool
	stopped  *bool
}

func (f *fakePublisher) Start(context.Context) error {
	if f.started != nil {
		*f.started = true
	}
	return f.startErr
}

func (f *fakePublisher) Stop() error {
	if f.stopped != nil {
		*f.stopped = true
	}
	return nil
}

type fakeOutboxRepo struct{}

func (f *fakeOutboxRepo) Save(context.Context, *outbox.OutboxEvent) error { return nil }
func (f *fakeOutboxRepo) SaveAll(context.Context, []*outbox.OutboxEvent) error { return nil }
func (f *fakeOutboxRepo) FindUnpublished(context.Context, int) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) MarkPublished(context.Context, string) error { return nil }
func (f *fakeOutboxRepo) IncrementRetry(context.Context, string, string) error { return nil }
func (f *fakeOutboxRepo) DeletePublished(context.Context, int64) error { return nil }
func (f *fakeOutboxRepo) FindByAggregateID(context.Context, string) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

type fakeOrderRepo struct{}

func (f *fakeOrderRepo) GetOutboxRepository() outbox.Repository { return &fakeOutboxRepo{} }
func (f *fakeOrderRepo) Create(context.Context, *domain.Order) error { return nil }
func (f *fakeOrderRepo) FindByID(context.Context, int64) (*domain.Order, error) { return nil, nil }
func (f *fakeOrderRepo) Update(context.Context, *domain.Order) error { return nil }
func (f *fakeOrderRepo) Delete(context.Context, int64) (bool, error) { return false, nil }
func (f *fakeOrderRepo) FindByFilter(context.Context, domain.OrderFilter, domain.Pagination) ([]*domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) FindByShopID(context.Context, int64, domain.Pagination) ([]*domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) FindByDateRange(context.Context, time.Time, time.Time, domain.Pagination) ([]*domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) FindByShopAndDateRange(context.Context, int64, time.Time, time.Time) ([]*domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) FindRecentByShop(context.Context, int64, int) ([]*domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) FindTopByAmount(context.Context, int) ([]*domain.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) Count(context.Context, domain.OrderFilter) (int64, error) { return 0, nil }

type runOverrides struct {
	restore []func()
}

func (o *runOverrides) cleanup() {
	for _, fn := range o.restore {
		fn()
	}
}

// stubRun replaces every external dependency of run with a fake.
func stubRun(t *testing.T) (*runOverrides, *bool, *bool) {
	t.Helper()

	o := &runOverrides{}

	oldMongo := newMongoClient
	oldRepo := newOrderRepository
	oldPublisher := newOutboxPublisher
	oldTracing := initTracing
	oldTopics := ensureTopics
	oldStart := startHTTPServer
	o.restore = append(o.restore, func() {
		newMongoClient = oldMongo
		newOrderRepository = oldRepo
		newOutboxPublisher = oldPublisher
		initTracing = oldTracing
		ensureTopics = oldTopics
		startHTTPServer = oldStart
	})

	newMongoClient = func(context.Context, *mongodb.Config) (mongoClient, error) {
		return &fakeMongo{}, nil
	}
	newOrderRepository = func(*mongo.Database) orderRepository {
		return &fakeOrderRepo{}
	}

	started := false
	stopped := false
	newOutboxPublisher = func(outbox.Repository, *kafka.InstrumentedProducer, *resilience.CircuitBreaker, *logging.Logger, *metrics.Metrics, *outbox.PublisherConfig) outboxPublisher {
		return &fakePublisher{started: &started, stopped: &stopped}
	}

	initTracing = func(context.Context, *tracing.Config) (*tracing.TracerProvider, error) {
		return &tracing.TracerProvider{}, nil
	}
	ensureTopics = func(context.Context, *kafka.Config, []kafka.TopicConfig) error { return nil }
	startHTTPServer = func(*http.Server) error { return http.ErrServerClosed }

	return o, &started, &stopped
}

func TestRunSuccess(t *testing.T) {
	overrides, started, stopped := stubRun(t)
	defer overrides.cleanup()

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	require.NoError(t, err)
	assert.True(t, *started)
	assert.True(t, *stopped)
}

func TestRunTracingError(t *testing.T) {
	overrides, _, _ := stubRun(t)
	defer overrides.cleanup()

	initTracing = func(context.Context, *tracing.Config) (*tracing.TracerProvider, error) {
		return nil, errors.New("trace init failed")
	}

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	assert.Error(t, err)
}

func TestRunMongoError(t *testing.T) {
	overrides, _, _ := stubRun(t)
	defer overrides.cleanup()

	newMongoClient = func(context.Context, *mongodb.Config) (mongoClient, error) {
		return nil, errors.New("mongo error")
	}

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	assert.Error(t, err)
}

func TestRunOutboxStartError(t *testing.T) {
	overrides, _, _ := stubRun(t)
	defer overrides.cleanup()

	newOutboxPublisher = func(outbox.Repository, *kafka.InstrumentedProducer, *resilience.CircuitBreaker, *logging.Logger, *metrics.Metrics, *outbox.PublisherConfig) outboxPublisher {
		return &fakePublisher{startErr: errors.New("start failed")}
	}

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	assert.Error(t, err)
}

func TestRunServerError(t *testing.T) {
	overrides, _, _ := stubRun(t)
	defer overrides.cleanup()

	startHTTPServer = func(*http.Server) error {
		return errors.New("server failed")
	}

	// No signal is sent; run must return once the server fails.
	signalCh := make(chan os.Signal, 1)

	err := run(context.Background(), signalCh)
	assert.Error(t, err)
}
