package application

import "time"

// OrderDTO represents an order in application layer responses
type OrderDTO struct {
	OrderID        int64         `json:"orderId"`
	UserID         int64         `json:"userId"`
	ShopID         int64         `json:"shopId"`
	Items          []LineItemDTO `json:"items"`
	Status         string        `json:"status"`
	TotalAmount    float64       `json:"totalAmount"`
	PaymentRef     string        `json:"paymentRef,omitempty"`
	TrackingNumber string        `json:"trackingNumber,omitempty"`
	Payments       []PaymentDTO  `json:"payments"`
	Refunds        []RefundDTO   `json:"refunds"`
	TotalItems     int           `json:"totalItems"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// LineItemDTO represents a line item in responses
type LineItemDTO struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

// PaymentDTO represents a payment ledger entry in responses
type PaymentDTO struct {
	PaymentID string    `json:"paymentId"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// RefundDTO represents a refund ledger entry in responses
type RefundDTO struct {
	RefundID  string    `json:"refundId"`
	Amount    float64   `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// PagedOrdersResult represents a paginated list of orders
type PagedOrdersResult struct {
	Data       []OrderDTO `json:"data"`
	Page       int64      `json:"page"`
	PageSize   int64      `json:"pageSize"`
	TotalItems int64      `json:"totalItems"`
	TotalPages int64      `json:"totalPages"`
}

// SalesReportDTO summarizes a shop's sales over a date range
type SalesReportDTO struct {
	ShopID     int64     `json:"shopId"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	OrderCount int64     `json:"orderCount"`
	TotalSales float64   `json:"totalSales"`
}

// RevenueReportDTO summarizes a shop's net revenue over a date range.
// Gross revenue counts order totals by creation date; refund deductions count
// only approved refunds dated within the range.
type RevenueReportDTO struct {
	ShopID         int64     `json:"shopId"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	GrossRevenue   float64   `json:"grossRevenue"`
	RefundedAmount float64   `json:"refundedAmount"`
	NetRevenue     float64   `json:"netRevenue"`
}

// TopProductDTO identifies the best-selling product of a shop
type TopProductDTO struct {
	ShopID        int64  `json:"shopId"`
	ProductID     string `json:"productId"`
	TotalQuantity int    `json:"totalQuantity"`
}
