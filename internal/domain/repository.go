package domain

import (
	"context"
	"time"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create persists a new order and assigns its OrderID
	Create(ctx context.Context, order *Order) error

	// FindByID retrieves an order by its OrderID. Returns (nil, nil) when absent.
	FindByID(ctx context.Context, orderID int64) (*Order, error)

	// Update replaces the mutable fields of an order, guarded by the
	// aggregate version. Returns ErrConcurrentModification on a stale version.
	Update(ctx context.Context, order *Order) error

	// Delete removes an order. Returns false when no order matched.
	Delete(ctx context.Context, orderID int64) (bool, error)

	// FindByFilter retrieves orders matching every set field of the filter
	// conjunctively, oldest first. The zero filter matches all orders.
	FindByFilter(ctx context.Context, filter OrderFilter, pagination Pagination) ([]*Order, error)

	// FindByShopID retrieves all orders for a shop, oldest first
	FindByShopID(ctx context.Context, shopID int64, pagination Pagination) ([]*Order, error)

	// FindByDateRange retrieves orders created within [from, to], oldest first
	FindByDateRange(ctx context.Context, from, to time.Time, pagination Pagination) ([]*Order, error)

	// FindByShopAndDateRange retrieves a shop's orders created within [from, to]
	FindByShopAndDateRange(ctx context.Context, shopID int64, from, to time.Time) ([]*Order, error)

	// FindRecentByShop retrieves the newest orders for a shop, newest first,
	// ties broken by higher OrderID first
	FindRecentByShop(ctx context.Context, shopID int64, limit int) ([]*Order, error)

	// FindTopByAmount retrieves the highest-value orders across all shops,
	// ties broken by earlier creation
	FindTopByAmount(ctx context.Context, topN int) ([]*Order, error)

	// Count returns the total number of orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int64, error)
}

// Pagination represents pagination options. The zero value means unpaginated.
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// IsZero reports whether pagination was left unset
func (p Pagination) IsZero() bool {
	return p.Page == 0 && p.PageSize == 0
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}

// OrderFilter represents filter options for counting and querying orders
type OrderFilter struct {
	UserID         *int64
	ShopID         *int64
	Status         *Status
	TrackingNumber *string
	FromDate       *time.Time
	ToDate         *time.Time
}
