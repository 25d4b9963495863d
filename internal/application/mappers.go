package application

import (
	"github.com/marketplace-platform/order-service/internal/domain"
)

// ToOrderDTO maps a domain order to its DTO
func ToOrderDTO(order *domain.Order) *OrderDTO {
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		})
	}

	payments := make([]PaymentDTO, 0, len(order.Payments))
	for _, p := range order.Payments {
		payments = append(payments, PaymentDTO{
			PaymentID: p.PaymentID,
			Amount:    p.Amount,
			Method:    p.Method,
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt,
		})
	}

	refunds := make([]RefundDTO, 0, len(order.Refunds))
	for _, r := range order.Refunds {
		refunds = append(refunds, RefundDTO{
			RefundID:  r.RefundID,
			Amount:    r.Amount,
			Reason:    r.Reason,
			Status:    string(r.Status),
			CreatedAt: r.CreatedAt,
		})
	}

	return &OrderDTO{
		OrderID:        order.OrderID,
		UserID:         order.UserID,
		ShopID:         order.ShopID,
		Items:          items,
		Status:         string(order.Status),
		TotalAmount:    order.TotalAmount,
		PaymentRef:     order.PaymentRef,
		TrackingNumber: order.TrackingNumber,
		Payments:       payments,
		Refunds:        refunds,
		TotalItems:     order.TotalItems(),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

// ToOrderDTOs maps a slice of domain orders to DTOs
func ToOrderDTOs(orders []*domain.Order) []OrderDTO {
	dtos := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, *ToOrderDTO(order))
	}
	return dtos
}
