package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketplace-platform/order-service/internal/domain"
	"github.com/marketplace-platform/order-service/pkg/kafka"
	"github.com/marketplace-platform/order-service/pkg/outbox"
	outboxMongo "github.com/marketplace-platform/order-service/pkg/outbox/mongodb"
)

const (
	ordersCollection   = "orders"
	countersCollection = "counters"
	orderIDCounter     = "orderId"
)

// OrderRepository implements domain.OrderRepository using MongoDB.
// Aggregate writes and their outbox events share one transaction, and every
// update is guarded by the aggregate version so concurrent writers lose
// cleanly instead of clobbering each other.
type OrderRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
	db         *mongo.Database
	outboxRepo *outboxMongo.OutboxRepository
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	collection := db.Collection(ordersCollection)
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "shopId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "orderId", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "totalAmount", Value: -1}, {Key: "createdAt", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "trackingNumber", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &OrderRepository{
		collection: collection,
		counters:   db.Collection(countersCollection),
		db:         db,
		outboxRepo: outboxRepo,
	}
}

// nextOrderID allocates the next order id from the counters collection.
// Ids increase monotonically with creation, which the recency tie-break
// in FindRecentByShop relies on.
func (r *OrderRepository) nextOrderID(ctx context.Context) (int64, error) {
	filter := bson.M{"_id": orderIDCounter}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, fmt.Errorf("failed to allocate order id: %w", err)
	}

	return counter.Seq, nil
}

// Create persists a new order with its domain events in a single transaction
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	orderID, err := r.nextOrderID(ctx)
	if err != nil {
		return err
	}
	order.AssignID(orderID)
	order.Version = 1

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.InsertOne(sessCtx, order); err != nil {
			return nil, fmt.Errorf("failed to insert order: %w", err)
		}

		if err := r.saveOutboxEvents(sessCtx, order); err != nil {
			return nil, err
		}

		order.ClearDomainEvents()
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Update replaces the order document, guarded by the version the order was
// loaded at. A version miss on an existing order surfaces as
// domain.ErrConcurrentModification.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	loadedVersion := order.Version
	order.Version = loadedVersion + 1

	session, err := r.db.Client().StartSession()
	if err != nil {
		order.Version = loadedVersion
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"orderId": order.OrderID, "version": loadedVersion}
		result, err := r.collection.ReplaceOne(sessCtx, filter, order)
		if err != nil {
			return nil, fmt.Errorf("failed to update order: %w", err)
		}

		if result.MatchedCount == 0 {
			// Disambiguate a missing order from a lost version race
			count, err := r.collection.CountDocuments(sessCtx, bson.M{"orderId": order.OrderID})
			if err != nil {
				return nil, fmt.Errorf("failed to check order existence: %w", err)
			}
			if count == 0 {
				return nil, fmt.Errorf("order %d not found", order.OrderID)
			}
			return nil, domain.ErrConcurrentModification
		}

		if err := r.saveOutboxEvents(sessCtx, order); err != nil {
			return nil, err
		}

		order.ClearDomainEvents()
		return nil, nil
	})
	if err != nil {
		order.Version = loadedVersion
		if errors.Is(err, domain.ErrConcurrentModification) {
			return domain.ErrConcurrentModification
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Delete removes an order. Returns false when no order matched.
func (r *OrderRepository) Delete(ctx context.Context, orderID int64) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// FindByID retrieves an order by its OrderID. Returns (nil, nil) when absent.
func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindByFilter retrieves orders matching every set field of the filter, oldest first
func (r *OrderRepository) FindByFilter(ctx context.Context, filter domain.OrderFilter, pagination domain.Pagination) ([]*domain.Order, error) {
	return r.findMany(ctx, r.buildFilter(filter), r.pagedAscending(pagination))
}

// FindByShopID retrieves all orders for a shop, oldest first
func (r *OrderRepository) FindByShopID(ctx context.Context, shopID int64, pagination domain.Pagination) ([]*domain.Order, error) {
	return r.findMany(ctx, bson.M{"shopId": shopID}, r.pagedAscending(pagination))
}

// FindByDateRange retrieves orders created within [from, to], both bounds
// inclusive, oldest first
func (r *OrderRepository) FindByDateRange(ctx context.Context, from, to time.Time, pagination domain.Pagination) ([]*domain.Order, error) {
	filter := bson.M{"createdAt": bson.M{"$gte": from, "$lte": to}}
	return r.findMany(ctx, filter, r.pagedAscending(pagination))
}

// FindByShopAndDateRange retrieves a shop's orders created within [from, to]
func (r *OrderRepository) FindByShopAndDateRange(ctx context.Context, shopID int64, from, to time.Time) ([]*domain.Order, error) {
	filter := bson.M{
		"shopId":    shopID,
		"createdAt": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.findMany(ctx, filter, opts)
}

// FindRecentByShop retrieves the newest orders for a shop. Equal timestamps
// rank the higher order id first.
func (r *OrderRepository) FindRecentByShop(ctx context.Context, shopID int64, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		return []*domain.Order{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "createdAt", Value: -1},
			{Key: "orderId", Value: -1},
		}).
		SetLimit(int64(limit))

	return r.findMany(ctx, bson.M{"shopId": shopID}, opts)
}

// FindTopByAmount retrieves the highest-value orders across all shops.
// Equal amounts rank the earlier-created order first.
func (r *OrderRepository) FindTopByAmount(ctx context.Context, topN int) ([]*domain.Order, error) {
	if topN <= 0 {
		return []*domain.Order{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "totalAmount", Value: -1},
			{Key: "createdAt", Value: 1},
		}).
		SetLimit(int64(topN))

	return r.findMany(ctx, bson.M{}, opts)
}

// Count returns the total number of orders matching the filter
func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, r.buildFilter(filter))
}

// GetOutboxRepository returns the outbox repository backing this repository
func (r *OrderRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

// saveOutboxEvents stages the order's pending domain events for publication
func (r *OrderRepository) saveOutboxEvents(sessCtx mongo.SessionContext, order *domain.Order) error {
	domainEvents := order.DomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		outboxEvent, err := outbox.NewOutboxEvent(
			strconv.FormatInt(order.OrderID, 10),
			"Order",
			kafka.Topics.OrdersEvents,
			event,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}

	return nil
}

// findMany is a helper for finding multiple orders
func (r *OrderRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// pagedAscending builds find options for creation-time ascending queries.
// Zero-value pagination returns the full result set.
func (r *OrderRepository) pagedAscending(pagination domain.Pagination) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if !pagination.IsZero() {
		opts = opts.SetSkip(pagination.Skip()).SetLimit(pagination.Limit())
	}
	return opts
}

// buildFilter builds a MongoDB filter from an OrderFilter
func (r *OrderRepository) buildFilter(filter domain.OrderFilter) bson.M {
	mongoFilter := bson.M{}

	if filter.UserID != nil {
		mongoFilter["userId"] = *filter.UserID
	}
	if filter.ShopID != nil {
		mongoFilter["shopId"] = *filter.ShopID
	}
	if filter.Status != nil {
		mongoFilter["status"] = *filter.Status
	}
	if filter.TrackingNumber != nil {
		mongoFilter["trackingNumber"] = *filter.TrackingNumber
	}

	dateFilter := bson.M{}
	if filter.FromDate != nil {
		dateFilter["$gte"] = *filter.FromDate
	}
	if filter.ToDate != nil {
		dateFilter["$lte"] = *filter.ToDate
	}
	if len(dateFilter) > 0 {
		mongoFilter["createdAt"] = dateFilter
	}

	return mongoFilter
}
