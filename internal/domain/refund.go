package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus represents the lifecycle state of a refund record
type RefundStatus string

const (
	RefundPending  RefundStatus = "pending"
	RefundApproved RefundStatus = "approved"
	RefundRejected RefundStatus = "rejected"
)

// IsValid checks if the refund status is known
func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundPending, RefundApproved, RefundRejected:
		return true
	default:
		return false
	}
}

// Refund is an immutable ledger entry attached to an order
type Refund struct {
	RefundID  string       `bson:"refundId" json:"refundId"`
	Amount    float64      `bson:"amount" json:"amount"`
	Reason    string       `bson:"reason,omitempty" json:"reason,omitempty"`
	Status    RefundStatus `bson:"status" json:"status"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
}

// NewRefund creates a refund ledger entry with a generated identifier
func NewRefund(amount float64, reason string, status RefundStatus) Refund {
	return Refund{
		RefundID:  "REF-" + uuid.New().String()[:8],
		Amount:    amount,
		Reason:    reason,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}
