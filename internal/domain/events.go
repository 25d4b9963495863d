package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event types published to the orders event topic
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
	EventTypePaymentAttached    = "order.payment_attached"
	EventTypeRefundAttached     = "order.refund_attached"
	EventTypeOrderDeleted       = "order.deleted"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// BaseDomainEvent provides common event fields
type BaseDomainEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateId string    `json:"aggregateId"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseDomainEvent) AggregateID() string   { return e.AggregateId }

func newBaseDomainEvent(eventType string, orderID int64) BaseDomainEvent {
	return BaseDomainEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateId: strconv.FormatInt(orderID, 10),
		Timestamp:   time.Now().UTC(),
	}
}

// OrderCreatedEvent is emitted when a new order enters the system
type OrderCreatedEvent struct {
	BaseDomainEvent
	OrderID     int64   `json:"orderId"`
	UserID      int64   `json:"userId"`
	ShopID      int64   `json:"shopId"`
	TotalAmount float64 `json:"totalAmount"`
	ItemCount   int     `json:"itemCount"`
}

// NewOrderCreatedEvent creates an OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		BaseDomainEvent: newBaseDomainEvent(EventTypeOrderCreated, order.OrderID),
		OrderID:         order.OrderID,
		UserID:          order.UserID,
		ShopID:          order.ShopID,
		TotalAmount:     order.TotalAmount,
		ItemCount:       len(order.Items),
	}
}

// OrderStatusChangedEvent is emitted on every status transition
type OrderStatusChangedEvent struct {
	BaseDomainEvent
	OrderID    int64  `json:"orderId"`
	FromStatus Status `json:"fromStatus"`
	ToStatus   Status `json:"toStatus"`
}

// NewOrderStatusChangedEvent creates an OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, from, to Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		BaseDomainEvent: newBaseDomainEvent(EventTypeOrderStatusChanged, order.OrderID),
		OrderID:         order.OrderID,
		FromStatus:      from,
		ToStatus:        to,
	}
}

// PaymentAttachedEvent is emitted when a payment record is attached to an order
type PaymentAttachedEvent struct {
	BaseDomainEvent
	OrderID   int64         `json:"orderId"`
	PaymentID string        `json:"paymentId"`
	Amount    float64       `json:"amount"`
	Method    string        `json:"method"`
	Status    PaymentStatus `json:"status"`
}

// NewPaymentAttachedEvent creates a PaymentAttachedEvent
func NewPaymentAttachedEvent(order *Order, payment Payment) PaymentAttachedEvent {
	return PaymentAttachedEvent{
		BaseDomainEvent: newBaseDomainEvent(EventTypePaymentAttached, order.OrderID),
		OrderID:         order.OrderID,
		PaymentID:       payment.PaymentID,
		Amount:          payment.Amount,
		Method:          payment.Method,
		Status:          payment.Status,
	}
}

// RefundAttachedEvent is emitted when a refund record is attached to an order
type RefundAttachedEvent struct {
	BaseDomainEvent
	OrderID  int64        `json:"orderId"`
	RefundID string       `json:"refundId"`
	Amount   float64      `json:"amount"`
	Reason   string       `json:"reason,omitempty"`
	Status   RefundStatus `json:"status"`
}

// NewRefundAttachedEvent creates a RefundAttachedEvent
func NewRefundAttachedEvent(order *Order, refund Refund) RefundAttachedEvent {
	return RefundAttachedEvent{
		BaseDomainEvent: newBaseDomainEvent(EventTypeRefundAttached, order.OrderID),
		OrderID:         order.OrderID,
		RefundID:        refund.RefundID,
		Amount:          refund.Amount,
		Reason:          refund.Reason,
		Status:          refund.Status,
	}
}

// OrderDeletedEvent is emitted when an order is removed
type OrderDeletedEvent struct {
	BaseDomainEvent
	OrderID int64  `json:"orderId"`
	Status  Status `json:"status"`
	Forced  bool   `json:"forced"`
}

// NewOrderDeletedEvent creates an OrderDeletedEvent
func NewOrderDeletedEvent(order *Order, forced bool) OrderDeletedEvent {
	return OrderDeletedEvent{
		BaseDomainEvent: newBaseDomainEvent(EventTypeOrderDeleted, order.OrderID),
		OrderID:         order.OrderID,
		Status:          order.Status,
		Forced:          forced,
	}
}
