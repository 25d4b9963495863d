package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
func createTestItems() []LineItem {
	return []LineItem{
		{ProductID: "PROD-001", Quantity: 2, UnitPrice: 10.0},
		{ProductID: "PROD-002", Quantity: 1, UnitPrice: 5.0},
	}
}

func createPaidOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder(1, 100, createTestItems())
	require.NoError(t, err)
	require.NoError(t, order.AttachPayment(NewPayment(order.TotalAmount, "credit_card", PaymentSucceeded)))
	require.Equal(t, StatusPaid, order.Status)
	order.ClearDomainEvents()
	return order
}

// TestNewOrder tests order creation
func TestNewOrder(t *testing.T) {
	tests := []struct {
		name        string
		items       []LineItem
		expectError error
		expectTotal float64
	}{
		{
			name:        "Valid order creation",
			items:       createTestItems(),
			expectTotal: 25.0,
		},
		{
			name:        "Order with no items",
			items:       []LineItem{},
			expectError: ErrNoItems,
		},
		{
			name:        "Order with zero quantity",
			items:       []LineItem{{ProductID: "PROD-001", Quantity: 0, UnitPrice: 10.0}},
			expectError: ErrInvalidLineItem,
		},
		{
			name:        "Order with negative unit price",
			items:       []LineItem{{ProductID: "PROD-001", Quantity: 1, UnitPrice: -1.0}},
			expectError: ErrInvalidLineItem,
		},
		{
			name:        "Order with zero unit price",
			items:       []LineItem{{ProductID: "PROD-001", Quantity: 1, UnitPrice: 0}},
			expectError: ErrInvalidLineItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrder(1, 100, tt.items)

			if tt.expectError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectError, err)
				assert.Nil(t, order)
			} else {
				require.NoError(t, err)
				require.NotNil(t, order)
				assert.Equal(t, StatusPending, order.Status)
				assert.Equal(t, tt.expectTotal, order.TotalAmount)
				assert.NotZero(t, order.CreatedAt)
				assert.NotZero(t, order.UpdatedAt)

				events := order.DomainEvents()
				require.Len(t, events, 1)
				event, ok := events[0].(OrderCreatedEvent)
				assert.True(t, ok)
				assert.Equal(t, tt.expectTotal, event.TotalAmount)
			}
		})
	}
}

// TestTransitionTo tests the status state machine
func TestTransitionTo(t *testing.T) {
	tests := []struct {
		name        string
		from        Status
		to          Status
		expectError error
	}{
		{name: "Pending to Paid", from: StatusPending, to: StatusPaid},
		{name: "Pending to Cancelled", from: StatusPending, to: StatusCancelled},
		{name: "Paid to Shipped", from: StatusPaid, to: StatusShipped},
		{name: "Paid to Cancelled", from: StatusPaid, to: StatusCancelled},
		{name: "Shipped to Delivered", from: StatusShipped, to: StatusDelivered},
		{name: "Pending to Shipped skips payment", from: StatusPending, to: StatusShipped, expectError: ErrInvalidStatus},
		{name: "Pending to Delivered", from: StatusPending, to: StatusDelivered, expectError: ErrInvalidStatus},
		{name: "Shipped to Cancelled", from: StatusShipped, to: StatusCancelled, expectError: ErrInvalidStatus},
		{name: "Delivered is terminal", from: StatusDelivered, to: StatusShipped, expectError: ErrInvalidStatus},
		{name: "Delivered to Refunded requires refund", from: StatusDelivered, to: StatusRefunded, expectError: ErrInvalidStatus},
		{name: "Cancelled is terminal", from: StatusCancelled, to: StatusPending, expectError: ErrInvalidStatus},
		{name: "Refunded is terminal", from: StatusRefunded, to: StatusPending, expectError: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrder(1, 100, createTestItems())
			require.NoError(t, err)
			order.Status = tt.from
			order.ClearDomainEvents()

			err = order.TransitionTo(tt.to)

			if tt.expectError != nil {
				assert.Equal(t, tt.expectError, err)
				assert.Equal(t, tt.from, order.Status)
				assert.Empty(t, order.DomainEvents())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, order.Status)

				events := order.DomainEvents()
				require.Len(t, events, 1)
				event, ok := events[0].(OrderStatusChangedEvent)
				require.True(t, ok)
				assert.Equal(t, tt.from, event.FromStatus)
				assert.Equal(t, tt.to, event.ToStatus)
			}
		})
	}
}

// TestAttachPayment tests payment attachment and the auto-paid transition
func TestAttachPayment(t *testing.T) {
	t.Run("Full payment moves order to Paid", func(t *testing.T) {
		order, err := NewOrder(1, 100, createTestItems())
		require.NoError(t, err)
		order.ClearDomainEvents()

		err = order.AttachPayment(NewPayment(25.0, "credit_card", PaymentSucceeded))
		require.NoError(t, err)

		assert.Equal(t, StatusPaid, order.Status)
		assert.Equal(t, 25.0, order.PaidAmount())
		assert.Len(t, order.Payments, 1)

		events := order.DomainEvents()
		require.Len(t, events, 2)
		_, ok := events[0].(PaymentAttachedEvent)
		assert.True(t, ok)
		changed, ok := events[1].(OrderStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, StatusPending, changed.FromStatus)
		assert.Equal(t, StatusPaid, changed.ToStatus)
	})

	t.Run("Partial payments accumulate until total is covered", func(t *testing.T) {
		order, err := NewOrder(1, 100, createTestItems())
		require.NoError(t, err)

		require.NoError(t, order.AttachPayment(NewPayment(10.0, "credit_card", PaymentSucceeded)))
		assert.Equal(t, StatusPending, order.Status)

		require.NoError(t, order.AttachPayment(NewPayment(15.0, "credit_card", PaymentSucceeded)))
		assert.Equal(t, StatusPaid, order.Status)
	})

	t.Run("Failed payments do not count toward the total", func(t *testing.T) {
		order, err := NewOrder(1, 100, createTestItems())
		require.NoError(t, err)

		require.NoError(t, order.AttachPayment(NewPayment(25.0, "credit_card", PaymentFailed)))
		assert.Equal(t, StatusPending, order.Status)
		assert.Equal(t, 0.0, order.PaidAmount())
	})

	t.Run("Paid transition happens exactly once", func(t *testing.T) {
		order := createPaidOrder(t)

		err := order.AttachPayment(NewPayment(5.0, "paypal", PaymentSucceeded))
		require.NoError(t, err)

		assert.Equal(t, StatusPaid, order.Status)
		events := order.DomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(PaymentAttachedEvent)
		assert.True(t, ok)
	})

	t.Run("Payment rejected on cancelled order", func(t *testing.T) {
		order, err := NewOrder(1, 100, createTestItems())
		require.NoError(t, err)
		require.NoError(t, order.TransitionTo(StatusCancelled))

		err = order.AttachPayment(NewPayment(25.0, "credit_card", PaymentSucceeded))
		assert.Equal(t, ErrOrderNotPayable, err)
		assert.Empty(t, order.Payments)
	})

	t.Run("Payment rejected on refunded order", func(t *testing.T) {
		order := createPaidOrder(t)
		require.NoError(t, order.AttachRefund(NewRefund(25.0, "defective", RefundApproved)))
		require.Equal(t, StatusRefunded, order.Status)

		err := order.AttachPayment(NewPayment(10.0, "credit_card", PaymentSucceeded))
		assert.Equal(t, ErrOrderNotPayable, err)
	})

	t.Run("Non-positive payment amount rejected", func(t *testing.T) {
		order, err := NewOrder(1, 100, createTestItems())
		require.NoError(t, err)

		err = order.AttachPayment(NewPayment(0, "credit_card", PaymentSucceeded))
		assert.Equal(t, ErrInvalidAmount, err)
	})
}

// TestAttachRefund tests refund attachment, balance checks and the refunded transition
func TestAttachRefund(t *testing.T) {
	t.Run("Full approved refund moves order to Refunded", func(t *testing.T) {
		order := createPaidOrder(t)

		err := order.AttachRefund(NewRefund(25.0, "defective", RefundApproved))
		require.NoError(t, err)

		assert.Equal(t, StatusRefunded, order.Status)
		assert.Equal(t, 0.0, order.RemainingRefundable())

		events := order.DomainEvents()
		require.Len(t, events, 2)
		_, ok := events[0].(RefundAttachedEvent)
		assert.True(t, ok)
		changed, ok := events[1].(OrderStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, StatusRefunded, changed.ToStatus)
	})

	t.Run("Partial refund keeps current status", func(t *testing.T) {
		order := createPaidOrder(t)

		err := order.AttachRefund(NewRefund(10.0, "late delivery", RefundApproved))
		require.NoError(t, err)

		assert.Equal(t, StatusPaid, order.Status)
		assert.Equal(t, 15.0, order.RemainingRefundable())
	})

	t.Run("Refund exceeding remaining balance rejected", func(t *testing.T) {
		order := createPaidOrder(t)
		require.NoError(t, order.AttachRefund(NewRefund(20.0, "partial return", RefundApproved)))

		err := order.AttachRefund(NewRefund(10.0, "second return", RefundApproved))
		assert.Equal(t, ErrRefundExceedsBalance, err)
		assert.Len(t, order.Refunds, 1)
	})

	t.Run("Rejected refunds do not consume the balance", func(t *testing.T) {
		order := createPaidOrder(t)
		require.NoError(t, order.AttachRefund(NewRefund(25.0, "disputed", RefundRejected)))

		assert.Equal(t, StatusPaid, order.Status)
		assert.Equal(t, 25.0, order.RemainingRefundable())

		err := order.AttachRefund(NewRefund(25.0, "approved retry", RefundApproved))
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, order.Status)
	})

	t.Run("Full refund from Delivered moves to Refunded", func(t *testing.T) {
		order := createPaidOrder(t)
		require.NoError(t, order.TransitionTo(StatusShipped))
		require.NoError(t, order.TransitionTo(StatusDelivered))

		err := order.AttachRefund(NewRefund(25.0, "returned", RefundApproved))
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, order.Status)
	})

	t.Run("Non-positive refund amount rejected", func(t *testing.T) {
		order := createPaidOrder(t)

		err := order.AttachRefund(NewRefund(-5.0, "bad amount", RefundApproved))
		assert.Equal(t, ErrInvalidAmount, err)
	})
}

// TestPaymentRefundCycle tests the full lifecycle of a 25.0 order
func TestPaymentRefundCycle(t *testing.T) {
	order, err := NewOrder(7, 42, createTestItems())
	require.NoError(t, err)
	assert.Equal(t, 25.0, order.TotalAmount)

	require.NoError(t, order.AttachPayment(NewPayment(25.0, "credit_card", PaymentSucceeded)))
	assert.Equal(t, StatusPaid, order.Status)

	require.NoError(t, order.TransitionTo(StatusShipped))
	order.SetTrackingNumber("TRACK-123456")
	require.NoError(t, order.TransitionTo(StatusDelivered))

	require.NoError(t, order.AttachRefund(NewRefund(10.0, "partial return", RefundApproved)))
	assert.Equal(t, StatusDelivered, order.Status)
	assert.Equal(t, 15.0, order.RemainingRefundable())

	require.NoError(t, order.AttachRefund(NewRefund(15.0, "remainder", RefundApproved)))
	assert.Equal(t, StatusRefunded, order.Status)
	assert.True(t, order.Status.IsTerminal())
}

// TestStatusHelpers tests IsValid and IsTerminal
func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusRefunded.IsValid())
	assert.False(t, Status("unknown").IsValid())

	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusPaid.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
}

// TestAssignIDRestampsCreatedEvent tests that the created event picks up the
// repository-assigned id, which does not exist yet when the event is built
func TestAssignIDRestampsCreatedEvent(t *testing.T) {
	order, err := NewOrder(1, 100, createTestItems())
	require.NoError(t, err)

	created, ok := order.DomainEvents()[0].(OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(0), created.OrderID)
	assert.Equal(t, "0", created.AggregateID())

	order.AssignID(42)

	assert.Equal(t, int64(42), order.OrderID)
	created, ok = order.DomainEvents()[0].(OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(42), created.OrderID)
	assert.Equal(t, "42", created.AggregateID())
}

// TestLedgerIdentifiers tests generated payment and refund ids
func TestLedgerIdentifiers(t *testing.T) {
	payment := NewPayment(10.0, "paypal", PaymentPending)
	assert.Regexp(t, `^PAY-[0-9a-f]{8}$`, payment.PaymentID)
	assert.NotZero(t, payment.CreatedAt)

	refund := NewRefund(5.0, "reason", RefundPending)
	assert.Regexp(t, `^REF-[0-9a-f]{8}$`, refund.RefundID)
	assert.NotZero(t, refund.CreatedAt)
}
