package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment record
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// IsValid checks if the payment status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentSucceeded, PaymentFailed:
		return true
	default:
		return false
	}
}

// Payment is an immutable ledger entry attached to an order
type Payment struct {
	PaymentID string        `bson:"paymentId" json:"paymentId"`
	Amount    float64       `bson:"amount" json:"amount"`
	Method    string        `bson:"method" json:"method"`
	Status    PaymentStatus `bson:"status" json:"status"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

// NewPayment creates a payment ledger entry with a generated identifier
func NewPayment(amount float64, method string, status PaymentStatus) Payment {
	return Payment{
		PaymentID: "PAY-" + uuid.New().String()[:8],
		Amount:    amount,
		Method:    method,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}
