package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/marketplace-platform/order-service/internal/domain"
	"github.com/marketplace-platform/order-service/pkg/errors"
	"github.com/marketplace-platform/order-service/pkg/logging"
	"github.com/marketplace-platform/order-service/pkg/middleware"
)

// casRetryAttempts bounds how often a mutation is replayed after losing a
// version check to a concurrent writer.
const casRetryAttempts = 3

// OrderApplicationService handles order lifecycle use cases
type OrderApplicationService struct {
	orderRepo       domain.OrderRepository
	logger          *logging.Logger
	businessMetrics *middleware.BusinessMetrics
}

// NewOrderApplicationService creates a new OrderApplicationService
func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	logger *logging.Logger,
	businessMetrics *middleware.BusinessMetrics,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo:       orderRepo,
		logger:          logger,
		businessMetrics: businessMetrics,
	}
}

// CreateOrder creates a new order. The order always starts in Pending with its
// total recomputed from the line items.
func (s *OrderApplicationService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderDTO, error) {
	order, err := domain.NewOrder(cmd.UserID, cmd.ShopID, cmd.ToDomainItems())
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	// Events are saved to the outbox by the repository in the same transaction
	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.WithError(err).Error("Failed to create order", "userId", cmd.UserID, "shopId", cmd.ShopID)
		return nil, errors.ErrRepository(err)
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderCreated()
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.created",
		EntityType: "order",
		EntityID:   strconv.FormatInt(order.OrderID, 10),
		Action:     "created",
		RelatedIDs: map[string]string{
			"userId": strconv.FormatInt(cmd.UserID, 10),
			"shopId": strconv.FormatInt(cmd.ShopID, 10),
		},
	})

	return ToOrderDTO(order), nil
}

// GetOrder retrieves an order by ID. Returns (nil, nil) when the order does
// not exist so callers can distinguish absence from failure.
func (s *OrderApplicationService) GetOrder(ctx context.Context, query GetOrderQuery) (*OrderDTO, error) {
	order, err := s.orderRepo.FindByID(ctx, query.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get order", "orderId", query.OrderID)
		return nil, errors.ErrRepository(err)
	}
	if order == nil {
		return nil, nil
	}
	return ToOrderDTO(order), nil
}

// UpdateOrder applies a partial update to an order's mutable fields.
// Status, payments and refunds are never touched by this operation.
func (s *OrderApplicationService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (*OrderDTO, error) {
	return s.mutate(ctx, cmd.OrderID, func(order *domain.Order) error {
		if cmd.TrackingNumber != nil {
			order.SetTrackingNumber(*cmd.TrackingNumber)
		}
		if cmd.PaymentRef != nil {
			order.SetPaymentRef(*cmd.PaymentRef)
		}
		return nil
	})
}

// TransitionOrder moves an order to a new status through the state machine
func (s *OrderApplicationService) TransitionOrder(ctx context.Context, cmd TransitionOrderCommand) (*OrderDTO, error) {
	if !cmd.Target.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown status %q", cmd.Target))
	}

	var from domain.Status
	dto, err := s.mutate(ctx, cmd.OrderID, func(order *domain.Order) error {
		from = order.Status
		if err := order.TransitionTo(cmd.Target); err != nil {
			return errors.ErrInvalidTransition(string(from), string(cmd.Target))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderTransition(string(from), string(cmd.Target))
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.status_changed",
		EntityType: "order",
		EntityID:   strconv.FormatInt(cmd.OrderID, 10),
		Action:     "status_changed",
		RelatedIDs: map[string]string{
			"from": string(from),
			"to":   string(cmd.Target),
		},
	})

	return dto, nil
}

// AttachPayment attaches a payment record to an order
func (s *OrderApplicationService) AttachPayment(ctx context.Context, cmd AttachPaymentCommand) (*OrderDTO, error) {
	if !cmd.Status.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown payment status %q", cmd.Status))
	}

	payment := domain.NewPayment(cmd.Amount, cmd.Method, cmd.Status)
	dto, err := s.mutate(ctx, cmd.OrderID, func(order *domain.Order) error {
		return order.AttachPayment(payment)
	})
	if err != nil {
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordPaymentAttached(cmd.Method, string(cmd.Status), cmd.Amount)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.payment_attached",
		EntityType: "order",
		EntityID:   strconv.FormatInt(cmd.OrderID, 10),
		Action:     "payment_attached",
		RelatedIDs: map[string]string{
			"paymentId": payment.PaymentID,
		},
	})

	return dto, nil
}

// AttachRefund attaches a refund record to an order
func (s *OrderApplicationService) AttachRefund(ctx context.Context, cmd AttachRefundCommand) (*OrderDTO, error) {
	if !cmd.Status.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown refund status %q", cmd.Status))
	}

	refund := domain.NewRefund(cmd.Amount, cmd.Reason, cmd.Status)
	dto, err := s.mutate(ctx, cmd.OrderID, func(order *domain.Order) error {
		if err := order.AttachRefund(refund); err != nil {
			if stderrors.Is(err, domain.ErrRefundExceedsBalance) {
				return errors.ErrRefundExceedsBalance(cmd.Amount, order.RemainingRefundable())
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordRefundAttached(string(cmd.Status), cmd.Amount)
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.refund_attached",
		EntityType: "order",
		EntityID:   strconv.FormatInt(cmd.OrderID, 10),
		Action:     "refund_attached",
		RelatedIDs: map[string]string{
			"refundId": refund.RefundID,
		},
	})

	return dto, nil
}

// DeleteOrder removes an order. Non-terminal orders can only be removed with
// the force flag set.
func (s *OrderApplicationService) DeleteOrder(ctx context.Context, cmd DeleteOrderCommand) error {
	order, err := s.orderRepo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get order", "orderId", cmd.OrderID)
		return errors.ErrRepository(err)
	}
	if order == nil {
		return errors.ErrNotFound("order")
	}

	if !order.Status.IsTerminal() && !cmd.Force {
		return errors.ErrInvalidOrderState(
			fmt.Sprintf("order %d is %s; only Delivered, Cancelled or Refunded orders can be deleted without force", cmd.OrderID, order.Status))
	}

	deleted, err := s.orderRepo.Delete(ctx, cmd.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to delete order", "orderId", cmd.OrderID)
		return errors.ErrRepository(err)
	}
	if !deleted {
		return errors.ErrNotFound("order")
	}

	s.logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.deleted",
		EntityType: "order",
		EntityID:   strconv.FormatInt(cmd.OrderID, 10),
		Action:     "deleted",
		RelatedIDs: map[string]string{
			"forced": strconv.FormatBool(cmd.Force),
		},
	})

	return nil
}

// ListOrders lists orders with filters and pagination, oldest first
func (s *OrderApplicationService) ListOrders(ctx context.Context, query ListOrdersQuery) (*PagedOrdersResult, error) {
	filter := query.ToDomainFilter()
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown status %q", *filter.Status))
	}

	pagination := query.ToDomainPagination()

	total, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count orders")
		return nil, errors.ErrRepository(err)
	}

	// The same filter drives both the page and the total, so they agree
	// for combined queries
	orders, err := s.orderRepo.FindByFilter(ctx, filter, pagination)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list orders")
		return nil, errors.ErrRepository(err)
	}

	totalPages := int64(0)
	if pagination.PageSize > 0 {
		totalPages = (total + pagination.PageSize - 1) / pagination.PageSize
	}

	return &PagedOrdersResult{
		Data:       ToOrderDTOs(orders),
		Page:       pagination.Page,
		PageSize:   pagination.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// mutate loads an order, applies a domain mutation and persists it under the
// aggregate version check. Lost version races are replayed against a fresh
// copy of the order.
func (s *OrderApplicationService) mutate(ctx context.Context, orderID int64, fn func(*domain.Order) error) (*OrderDTO, error) {
	var lastErr error

	for attempt := 0; attempt < casRetryAttempts; attempt++ {
		order, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to get order", "orderId", orderID)
			return nil, errors.ErrRepository(err)
		}
		if order == nil {
			return nil, errors.ErrNotFound("order")
		}

		if err := fn(order); err != nil {
			return nil, mapDomainError(err, order)
		}

		err = s.orderRepo.Update(ctx, order)
		if err == nil {
			return ToOrderDTO(order), nil
		}
		if !stderrors.Is(err, domain.ErrConcurrentModification) {
			s.logger.WithError(err).Error("Failed to update order", "orderId", orderID)
			return nil, errors.ErrRepository(err)
		}
		lastErr = err
		s.logger.Warn("Order version conflict, retrying", "orderId", orderID, "attempt", attempt+1)
	}

	return nil, errors.ErrConflict(lastErr.Error())
}

// mapDomainError translates domain sentinel errors into application errors.
// Already-mapped application errors pass through untouched.
func mapDomainError(err error, order *domain.Order) error {
	if errors.IsAppError(err) {
		return err
	}
	switch {
	case stderrors.Is(err, domain.ErrInvalidStatus):
		return errors.ErrInvalidTransition(string(order.Status), "")
	case stderrors.Is(err, domain.ErrOrderNotPayable):
		return errors.ErrInvalidOrderState(err.Error())
	case stderrors.Is(err, domain.ErrRefundExceedsBalance):
		return errors.ErrRefundExceedsBalance(0, order.RemainingRefundable())
	case stderrors.Is(err, domain.ErrNoItems),
		stderrors.Is(err, domain.ErrInvalidLineItem),
		stderrors.Is(err, domain.ErrInvalidAmount):
		return errors.ErrValidation(err.Error())
	default:
		return errors.ErrConflict(err.Error())
	}
}
