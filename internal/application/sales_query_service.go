package application

import (
	"context"
	"time"

	"github.com/marketplace-platform/order-service/internal/domain"
	"github.com/marketplace-platform/order-service/pkg/errors"
	"github.com/marketplace-platform/order-service/pkg/logging"
)

// SalesQueryService answers read-only aggregate queries over the order set.
// All results are consistent with a point-in-time snapshot of the repository.
type SalesQueryService struct {
	orderRepo domain.OrderRepository
	logger    *logging.Logger
}

// NewSalesQueryService creates a new SalesQueryService
func NewSalesQueryService(orderRepo domain.OrderRepository, logger *logging.Logger) *SalesQueryService {
	return &SalesQueryService{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// RecentOrdersByShop returns up to limit orders for the shop, newest first,
// ties broken by higher order id. A non-positive limit yields an empty list.
func (s *SalesQueryService) RecentOrdersByShop(ctx context.Context, shopID int64, limit int) ([]OrderDTO, error) {
	if limit <= 0 {
		return []OrderDTO{}, nil
	}

	orders, err := s.orderRepo.FindRecentByShop(ctx, shopID, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query recent orders", "shopId", shopID)
		return nil, errors.ErrRepository(err)
	}

	return ToOrderDTOs(orders), nil
}

// TopOrdersByAmount returns up to topN orders ranked by total amount
// descending, ties broken by earlier creation. A non-positive topN yields an
// empty list.
func (s *SalesQueryService) TopOrdersByAmount(ctx context.Context, topN int) ([]OrderDTO, error) {
	if topN <= 0 {
		return []OrderDTO{}, nil
	}

	orders, err := s.orderRepo.FindTopByAmount(ctx, topN)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query top orders")
		return nil, errors.ErrRepository(err)
	}

	return ToOrderDTOs(orders), nil
}

// OrdersByDateRange returns orders created within [from, to], both bounds
// inclusive, oldest first. An inverted range yields an empty list.
func (s *SalesQueryService) OrdersByDateRange(ctx context.Context, from, to time.Time) ([]OrderDTO, error) {
	if from.After(to) {
		return []OrderDTO{}, nil
	}

	orders, err := s.orderRepo.FindByDateRange(ctx, from, to, domain.Pagination{})
	if err != nil {
		s.logger.WithError(err).Error("Failed to query orders by date range")
		return nil, errors.ErrRepository(err)
	}

	return ToOrderDTOs(orders), nil
}

// SalesReport counts and sums a shop's orders created within [from, to].
// A shop with no matching orders reports zero, not an error.
func (s *SalesQueryService) SalesReport(ctx context.Context, shopID int64, from, to time.Time) (*SalesReportDTO, error) {
	report := &SalesReportDTO{ShopID: shopID, From: from, To: to}
	if from.After(to) {
		return report, nil
	}

	orders, err := s.orderRepo.FindByShopAndDateRange(ctx, shopID, from, to)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build sales report", "shopId", shopID)
		return nil, errors.ErrRepository(err)
	}

	for _, order := range orders {
		report.OrderCount++
		report.TotalSales += order.TotalAmount
	}

	return report, nil
}

// RevenueReport computes a shop's net revenue for [from, to]. Gross revenue
// sums the totals of orders created in the range. Deductions count only
// approved refunds dated within the range, so a later refund never rewrites
// an already-closed reporting period.
func (s *SalesQueryService) RevenueReport(ctx context.Context, shopID int64, from, to time.Time) (*RevenueReportDTO, error) {
	report := &RevenueReportDTO{ShopID: shopID, From: from, To: to}
	if from.After(to) {
		return report, nil
	}

	orders, err := s.orderRepo.FindByShopAndDateRange(ctx, shopID, from, to)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build revenue report", "shopId", shopID)
		return nil, errors.ErrRepository(err)
	}

	for _, order := range orders {
		report.GrossRevenue += order.TotalAmount
		for _, refund := range order.Refunds {
			if refund.Status != domain.RefundApproved {
				continue
			}
			if refund.CreatedAt.Before(from) || refund.CreatedAt.After(to) {
				continue
			}
			report.RefundedAmount += refund.Amount
		}
	}

	report.NetRevenue = report.GrossRevenue - report.RefundedAmount
	return report, nil
}

// TopProductForShop returns the product with the highest cumulative ordered
// quantity across all of the shop's orders, ties broken by the product seen
// first. Returns (nil, nil) when the shop has no orders.
func (s *SalesQueryService) TopProductForShop(ctx context.Context, shopID int64) (*TopProductDTO, error) {
	orders, err := s.orderRepo.FindByShopID(ctx, shopID, domain.Pagination{})
	if err != nil {
		s.logger.WithError(err).Error("Failed to query shop orders", "shopId", shopID)
		return nil, errors.ErrRepository(err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	quantities := make(map[string]int)
	firstSeen := make(map[string]int)
	seq := 0

	// Orders arrive oldest first, so iteration order fixes first occurrence
	for _, order := range orders {
		for _, item := range order.Items {
			if _, ok := quantities[item.ProductID]; !ok {
				firstSeen[item.ProductID] = seq
				seq++
			}
			quantities[item.ProductID] += item.Quantity
		}
	}

	top := ""
	for productID, qty := range quantities {
		if top == "" {
			top = productID
			continue
		}
		if qty > quantities[top] || (qty == quantities[top] && firstSeen[productID] < firstSeen[top]) {
			top = productID
		}
	}

	return &TopProductDTO{
		ShopID:        shopID,
		ProductID:     top,
		TotalQuantity: quantities[top],
	}, nil
}
