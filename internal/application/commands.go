package application

import (
	"time"

	"github.com/marketplace-platform/order-service/internal/domain"
)

// CreateOrderCommand represents the command to create a new order
type CreateOrderCommand struct {
	UserID int64
	ShopID int64
	Items  []LineItemInput
}

// LineItemInput represents a line item in a command
type LineItemInput struct {
	ProductID string
	Quantity  int
	UnitPrice float64
}

// ToDomainItems converts LineItemInput slice to domain.LineItem slice
func (c *CreateOrderCommand) ToDomainItems() []domain.LineItem {
	items := make([]domain.LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, domain.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return items
}

// UpdateOrderCommand represents a partial update of an order's mutable fields.
// Nil pointers mean "leave unchanged". Status, payments and refunds can never
// be updated through this command.
type UpdateOrderCommand struct {
	OrderID        int64
	TrackingNumber *string
	PaymentRef     *string
}

// TransitionOrderCommand represents the command to move an order to a new status
type TransitionOrderCommand struct {
	OrderID int64
	Target  domain.Status
}

// AttachPaymentCommand represents the command to attach a payment record
type AttachPaymentCommand struct {
	OrderID int64
	Amount  float64
	Method  string
	Status  domain.PaymentStatus
}

// AttachRefundCommand represents the command to attach a refund record
type AttachRefundCommand struct {
	OrderID int64
	Amount  float64
	Reason  string
	Status  domain.RefundStatus
}

// DeleteOrderCommand represents the command to delete an order.
// Force allows deleting orders that are not in a terminal status.
type DeleteOrderCommand struct {
	OrderID int64
	Force   bool
}

// GetOrderQuery represents the query to get a single order
type GetOrderQuery struct {
	OrderID int64
}

// ListOrdersQuery represents the query to list orders with filters and pagination
type ListOrdersQuery struct {
	UserID         *int64
	ShopID         *int64
	Status         *string
	TrackingNumber *string
	FromDate       *time.Time
	ToDate         *time.Time

	Page     int64
	PageSize int64
}

// ToDomainFilter converts the query filters to a domain.OrderFilter
func (q *ListOrdersQuery) ToDomainFilter() domain.OrderFilter {
	filter := domain.OrderFilter{
		UserID:         q.UserID,
		ShopID:         q.ShopID,
		TrackingNumber: q.TrackingNumber,
		FromDate:       q.FromDate,
		ToDate:         q.ToDate,
	}
	if q.Status != nil {
		status := domain.Status(*q.Status)
		filter.Status = &status
	}
	return filter
}

// ToDomainPagination converts the query pagination to domain.Pagination
func (q *ListOrdersQuery) ToDomainPagination() domain.Pagination {
	pagination := domain.DefaultPagination()
	if q.Page > 0 {
		pagination.Page = q.Page
	}
	if q.PageSize > 0 {
		pagination.PageSize = q.PageSize
	}
	return pagination
}
