package domain

import (
	"errors"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors for the Order aggregate
var (
	ErrNoItems                = errors.New("order must have at least one line item")
	ErrInvalidLineItem        = errors.New("line item quantity and unit price must be positive")
	ErrInvalidStatus          = errors.New("invalid status transition")
	ErrOrderNotPayable        = errors.New("cannot attach payment to a cancelled or refunded order")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrRefundExceedsBalance   = errors.New("refund amount exceeds remaining refundable balance")
	ErrConcurrentModification = errors.New("order was modified concurrently")
)

// Status represents order status
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
	StatusRefunded  Status = "Refunded"
)

// IsValid checks if the status is a known order status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further explicit transition is accepted from s
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// transitions is the order status graph. Refunded is reachable from Delivered
// only through a refund attachment that fully covers the order total, never
// through an explicit transition.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:   {StatusDelivered, StatusRefunded},
	StatusDelivered: {},
	StatusCancelled: {},
	StatusRefunded:  {},
}

// CanTransition reports whether an explicit transition from one status to another is allowed
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is the aggregate root for the order lifecycle bounded context
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID        int64              `bson:"orderId" json:"orderId"`
	UserID         int64              `bson:"userId" json:"userId"`
	ShopID         int64              `bson:"shopId" json:"shopId"`
	Items          []LineItem         `bson:"items" json:"items"`
	Status         Status             `bson:"status" json:"status"`
	TotalAmount    float64            `bson:"totalAmount" json:"totalAmount"`
	PaymentRef     string             `bson:"paymentRef,omitempty" json:"paymentRef,omitempty"`
	TrackingNumber string             `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	Payments       []Payment          `bson:"payments" json:"payments"`
	Refunds        []Refund           `bson:"refunds" json:"refunds"`
	Version        int64              `bson:"version" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Domain events - transient, not persisted
	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// LineItem represents a product line within an order
type LineItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	UnitPrice float64 `bson:"unitPrice" json:"unitPrice"`
}

// Subtotal returns the line item subtotal
func (i LineItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// NewOrder creates a new Order aggregate. The status is always Pending and the
// total amount is always recomputed from the line items, regardless of caller input.
func NewOrder(userID, shopID int64, items []LineItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	total := 0.0
	for _, item := range items {
		if item.Quantity < 1 || item.UnitPrice <= 0 {
			return nil, ErrInvalidLineItem
		}
		total += item.Subtotal()
	}

	now := time.Now().UTC()
	order := &Order{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		ShopID:       shopID,
		Items:        items,
		Status:       StatusPending,
		TotalAmount:  total,
		Payments:     make([]Payment, 0),
		Refunds:      make([]Refund, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]DomainEvent, 0),
	}

	order.addDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// AssignID stamps the repository-assigned id onto the order. The created event
// is built before the id exists, so it gets restamped here as well.
func (o *Order) AssignID(orderID int64) {
	o.OrderID = orderID
	for i, event := range o.domainEvents {
		if created, ok := event.(OrderCreatedEvent); ok {
			created.AggregateId = strconv.FormatInt(orderID, 10)
			created.OrderID = orderID
			o.domainEvents[i] = created
		}
	}
}

// TransitionTo performs an explicit status transition
func (o *Order) TransitionTo(target Status) error {
	if !CanTransition(o.Status, target) {
		return ErrInvalidStatus
	}

	from := o.Status
	o.Status = target
	o.UpdatedAt = time.Now().UTC()
	o.addDomainEvent(NewOrderStatusChangedEvent(o, from, target))

	return nil
}

// AttachPayment appends a payment record. When the cumulative succeeded amount
// first reaches the order total, the order moves from Pending to Paid.
func (o *Order) AttachPayment(payment Payment) error {
	if o.Status == StatusCancelled || o.Status == StatusRefunded {
		return ErrOrderNotPayable
	}
	if payment.Amount <= 0 {
		return ErrInvalidAmount
	}

	o.Payments = append(o.Payments, payment)
	o.UpdatedAt = time.Now().UTC()
	o.addDomainEvent(NewPaymentAttachedEvent(o, payment))

	if o.Status == StatusPending && o.PaidAmount() >= o.TotalAmount {
		from := o.Status
		o.Status = StatusPaid
		o.addDomainEvent(NewOrderStatusChangedEvent(o, from, StatusPaid))
	}

	return nil
}

// AttachRefund appends a refund record. The amount is validated against the
// remaining refundable balance. When approved refunds fully cover the order
// total, the order moves to Refunded from Paid, Shipped, or Delivered.
func (o *Order) AttachRefund(refund Refund) error {
	if refund.Amount <= 0 {
		return ErrInvalidAmount
	}
	if refund.Amount > o.RemainingRefundable() {
		return ErrRefundExceedsBalance
	}

	o.Refunds = append(o.Refunds, refund)
	o.UpdatedAt = time.Now().UTC()
	o.addDomainEvent(NewRefundAttachedEvent(o, refund))

	if o.ApprovedRefundTotal() >= o.TotalAmount {
		switch o.Status {
		case StatusPaid, StatusShipped, StatusDelivered:
			from := o.Status
			o.Status = StatusRefunded
			o.addDomainEvent(NewOrderStatusChangedEvent(o, from, StatusRefunded))
		}
	}

	return nil
}

// SetTrackingNumber updates the shipment tracking number
func (o *Order) SetTrackingNumber(trackingNumber string) {
	o.TrackingNumber = trackingNumber
	o.UpdatedAt = time.Now().UTC()
}

// SetPaymentRef updates the external payment reference
func (o *Order) SetPaymentRef(paymentRef string) {
	o.PaymentRef = paymentRef
	o.UpdatedAt = time.Now().UTC()
}

// PaidAmount returns the cumulative amount of succeeded payments
func (o *Order) PaidAmount() float64 {
	total := 0.0
	for _, p := range o.Payments {
		if p.Status == PaymentSucceeded {
			total += p.Amount
		}
	}
	return total
}

// ApprovedRefundTotal returns the cumulative amount of approved refunds
func (o *Order) ApprovedRefundTotal() float64 {
	total := 0.0
	for _, r := range o.Refunds {
		if r.Status == RefundApproved {
			total += r.Amount
		}
	}
	return total
}

// RemainingRefundable returns the balance still available for refunding
func (o *Order) RemainingRefundable() float64 {
	return o.TotalAmount - o.ApprovedRefundTotal()
}

// TotalItems returns the total quantity across all line items
func (o *Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// addDomainEvent adds a domain event to the order
func (o *Order) addDomainEvent(event DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (o *Order) DomainEvents() []DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (o *Order) ClearDomainEvents() {
	o.domainEvents = make([]DomainEvent, 0)
}
