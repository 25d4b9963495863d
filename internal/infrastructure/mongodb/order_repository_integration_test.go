package mongodb

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketplace-platform/order-service/internal/domain"
)

type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *mongodb.MongoDBContainer
	client         *mongo.Client
	db             *mongo.Database
	repo           *OrderRepository
	ctx            context.Context
}

func (s *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	// Transactions require a replica set, WithReplicaSet waits until it's ready
	container, err := mongodb.Run(s.ctx, "mongo:6",
		mongodb.WithReplicaSet("rs"),
	)
	s.Require().NoError(err)
	s.mongoContainer = container

	connStr, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)

	clientOpts := options.Client().ApplyURI(connStr).SetDirect(true)
	client, err := mongo.Connect(s.ctx, clientOpts)
	s.Require().NoError(err)
	s.client = client

	s.Require().NoError(client.Ping(s.ctx, nil))

	s.db = client.Database("orders_test")
	s.repo = NewOrderRepository(s.db)
}

func (s *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Disconnect(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Terminate(s.ctx))
	}
}

func (s *OrderRepositoryIntegrationTestSuite) TearDownTest() {
	s.db.Collection(ordersCollection).Drop(s.ctx)
	s.db.Collection(countersCollection).Drop(s.ctx)
	s.db.Collection("outbox_events").Drop(s.ctx)
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}

func (s *OrderRepositoryIntegrationTestSuite) newOrder(userID, shopID int64, total float64) *domain.Order {
	order, err := domain.NewOrder(userID, shopID, []domain.LineItem{
		{ProductID: "productA", Quantity: 1, UnitPrice: total},
	})
	s.Require().NoError(err)
	return order
}

func (s *OrderRepositoryIntegrationTestSuite) TestCreateAssignsSequentialIDs() {
	first := s.newOrder(1, 100, 10.0)
	second := s.newOrder(1, 100, 20.0)

	s.Require().NoError(s.repo.Create(s.ctx, first))
	s.Require().NoError(s.repo.Create(s.ctx, second))

	s.Equal(int64(1), first.OrderID)
	s.Equal(int64(2), second.OrderID)
	s.Equal(int64(1), first.Version)
	s.Empty(first.DomainEvents())
}

func (s *OrderRepositoryIntegrationTestSuite) TestCreateStagesOutboxEvents() {
	order := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, order))

	events, err := s.repo.GetOutboxRepository().FindUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(domain.EventTypeOrderCreated, events[0].EventType)

	// The payload must carry the assigned order id, not the zero id the
	// aggregate had before Create ran
	s.Equal(strconv.FormatInt(order.OrderID, 10), events[0].AggregateID)

	var payload struct {
		AggregateID string `json:"aggregateId"`
		OrderID     int64  `json:"orderId"`
	}
	s.Require().NoError(json.Unmarshal(events[0].Payload, &payload))
	s.Equal(order.OrderID, payload.OrderID)
	s.Equal(strconv.FormatInt(order.OrderID, 10), payload.AggregateID)
}

func (s *OrderRepositoryIntegrationTestSuite) TestFindByIDAbsentReturnsNil() {
	order, err := s.repo.FindByID(s.ctx, 999)
	s.Require().NoError(err)
	s.Nil(order)
}

func (s *OrderRepositoryIntegrationTestSuite) TestUpdateRoundTrip() {
	order := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, order))

	loaded, err := s.repo.FindByID(s.ctx, order.OrderID)
	s.Require().NoError(err)
	s.Require().NotNil(loaded)

	s.Require().NoError(loaded.AttachPayment(domain.NewPayment(10.0, "credit_card", domain.PaymentSucceeded)))
	s.Require().NoError(s.repo.Update(s.ctx, loaded))

	reloaded, err := s.repo.FindByID(s.ctx, order.OrderID)
	s.Require().NoError(err)
	s.Equal(domain.StatusPaid, reloaded.Status)
	s.Equal(int64(2), reloaded.Version)
	s.Len(reloaded.Payments, 1)
}

func (s *OrderRepositoryIntegrationTestSuite) TestUpdateDetectsVersionConflict() {
	order := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, order))

	copyA, err := s.repo.FindByID(s.ctx, order.OrderID)
	s.Require().NoError(err)
	copyB, err := s.repo.FindByID(s.ctx, order.OrderID)
	s.Require().NoError(err)

	copyA.SetTrackingNumber("TRACK-A-0001")
	s.Require().NoError(s.repo.Update(s.ctx, copyA))

	copyB.SetTrackingNumber("TRACK-B-0001")
	err = s.repo.Update(s.ctx, copyB)
	s.ErrorIs(err, domain.ErrConcurrentModification)
}

func (s *OrderRepositoryIntegrationTestSuite) TestDelete() {
	order := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, order))

	deleted, err := s.repo.Delete(s.ctx, order.OrderID)
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.repo.Delete(s.ctx, order.OrderID)
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *OrderRepositoryIntegrationTestSuite) TestFindRecentByShopOrdering() {
	for i := 0; i < 3; i++ {
		order := s.newOrder(1, 100, float64(10*(i+1)))
		s.Require().NoError(s.repo.Create(s.ctx, order))
	}
	other := s.newOrder(2, 200, 99.0)
	s.Require().NoError(s.repo.Create(s.ctx, other))

	recent, err := s.repo.FindRecentByShop(s.ctx, 100, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Greater(recent[0].OrderID, recent[1].OrderID)

	empty, err := s.repo.FindRecentByShop(s.ctx, 100, 0)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *OrderRepositoryIntegrationTestSuite) TestFindTopByAmountTieBreak() {
	base := time.Now().UTC().Truncate(time.Millisecond)

	small := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, small))
	earlyBig := s.newOrder(1, 100, 30.0)
	s.Require().NoError(s.repo.Create(s.ctx, earlyBig))
	lateBig := s.newOrder(1, 100, 30.0)
	s.Require().NoError(s.repo.Create(s.ctx, lateBig))

	// Pin distinct creation times so the tie-break is deterministic
	coll := s.db.Collection(ordersCollection)
	for i, o := range []*domain.Order{small, earlyBig, lateBig} {
		_, err := coll.UpdateOne(s.ctx,
			bson.M{"orderId": o.OrderID},
			bson.M{"$set": bson.M{"createdAt": base.Add(time.Duration(i) * time.Hour)}})
		s.Require().NoError(err)
	}

	top, err := s.repo.FindTopByAmount(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(earlyBig.OrderID, top[0].OrderID)
}

func (s *OrderRepositoryIntegrationTestSuite) TestFindByDateRangeInclusive() {
	order := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, order))

	loaded, err := s.repo.FindByID(s.ctx, order.OrderID)
	s.Require().NoError(err)

	results, err := s.repo.FindByDateRange(s.ctx, loaded.CreatedAt, loaded.CreatedAt, domain.Pagination{})
	s.Require().NoError(err)
	s.Len(results, 1)
}

func (s *OrderRepositoryIntegrationTestSuite) TestCountWithFilter() {
	for i := 0; i < 3; i++ {
		order := s.newOrder(int64(i+1), 100, 10.0)
		s.Require().NoError(s.repo.Create(s.ctx, order))
	}

	shopID := int64(100)
	count, err := s.repo.Count(s.ctx, domain.OrderFilter{ShopID: &shopID})
	s.Require().NoError(err)
	s.Equal(int64(3), count)

	userID := int64(1)
	count, err = s.repo.Count(s.ctx, domain.OrderFilter{UserID: &userID})
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *OrderRepositoryIntegrationTestSuite) TestFindByFilterCombined() {
	pending := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, pending))

	paid := s.newOrder(1, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, paid))
	s.Require().NoError(paid.AttachPayment(domain.NewPayment(10.0, "credit_card", domain.PaymentSucceeded)))
	s.Require().NoError(s.repo.Update(s.ctx, paid))

	otherUser := s.newOrder(2, 100, 10.0)
	s.Require().NoError(s.repo.Create(s.ctx, otherUser))

	userID := int64(1)
	status := domain.StatusPaid
	filter := domain.OrderFilter{UserID: &userID, Status: &status}

	// The page query and the count apply the same conjunctive filter
	orders, err := s.repo.FindByFilter(s.ctx, filter, domain.Pagination{})
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(paid.OrderID, orders[0].OrderID)
	s.Equal(domain.StatusPaid, orders[0].Status)

	count, err := s.repo.Count(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}
