package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace-platform/order-service/internal/domain"
)

func shopOrder(t *testing.T, orderID int64, total float64, createdAt time.Time, items ...domain.LineItem) *domain.Order {
	t.Helper()
	if len(items) == 0 {
		items = []domain.LineItem{{ProductID: "productA", Quantity: 1, UnitPrice: total}}
	}
	order, err := domain.NewOrder(1, 100, items)
	require.NoError(t, err)
	order.OrderID = orderID
	order.TotalAmount = total
	order.CreatedAt = createdAt
	order.ClearDomainEvents()
	return order
}

func TestRecentOrdersByShopZeroLimit(t *testing.T) {
	called := false
	repo := &fakeOrderRepo{
		findRecentByShopFn: func(_ context.Context, _ int64, _ int) ([]*domain.Order, error) {
			called = true
			return nil, nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	result, err := service.RecentOrdersByShop(context.Background(), 100, 0)

	require.NoError(t, err)
	assert.Empty(t, result)
	assert.False(t, called)
}

func TestRecentOrdersByShop(t *testing.T) {
	now := time.Now().UTC()
	repo := &fakeOrderRepo{
		findRecentByShopFn: func(_ context.Context, shopID int64, limit int) ([]*domain.Order, error) {
			assert.Equal(t, int64(100), shopID)
			assert.Equal(t, 2, limit)
			return []*domain.Order{
				shopOrder(t, 3, 10.0, now),
				shopOrder(t, 2, 20.0, now.Add(-time.Hour)),
			}, nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	result, err := service.RecentOrdersByShop(context.Background(), 100, 2)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(3), result[0].OrderID)
	assert.Equal(t, int64(2), result[1].OrderID)
}

func TestTopOrdersByAmountZeroN(t *testing.T) {
	service := NewSalesQueryService(&fakeOrderRepo{}, testLogger())

	result, err := service.TopOrdersByAmount(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestTopOrdersByAmountTieBreak(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	// Totals {10, 30, 30} at t1<t2<t3. The repository ranks by amount
	// descending with earlier creation first on ties, so topN=1 is t2's order.
	all := []*domain.Order{
		shopOrder(t, 2, 30.0, t2),
		shopOrder(t, 3, 30.0, t3),
		shopOrder(t, 1, 10.0, t1),
	}
	repo := &fakeOrderRepo{
		findTopByAmountFn: func(_ context.Context, topN int) ([]*domain.Order, error) {
			if topN > len(all) {
				topN = len(all)
			}
			return all[:topN], nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	result, err := service.TopOrdersByAmount(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, int64(2), result[0].OrderID)
	assert.Equal(t, 30.0, result[0].TotalAmount)
}

func TestOrdersByDateRangeInverted(t *testing.T) {
	called := false
	repo := &fakeOrderRepo{
		findByDateRangeFn: func(_ context.Context, _, _ time.Time, _ domain.Pagination) ([]*domain.Order, error) {
			called = true
			return nil, nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	result, err := service.OrdersByDateRange(context.Background(), start, end)

	require.NoError(t, err)
	assert.Empty(t, result)
	assert.False(t, called)
}

func TestSalesReportEmptyShop(t *testing.T) {
	service := NewSalesQueryService(&fakeOrderRepo{}, testLogger())

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	report, err := service.SalesReport(context.Background(), 100, from, to)

	require.NoError(t, err)
	assert.Equal(t, int64(0), report.OrderCount)
	assert.Equal(t, 0.0, report.TotalSales)
}

func TestSalesReport(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	repo := &fakeOrderRepo{
		findByShopAndDateRangeFn: func(_ context.Context, shopID int64, _, _ time.Time) ([]*domain.Order, error) {
			assert.Equal(t, int64(100), shopID)
			return []*domain.Order{
				shopOrder(t, 1, 25.0, from.AddDate(0, 0, 1)),
				shopOrder(t, 2, 75.0, from.AddDate(0, 0, 2)),
			}, nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	report, err := service.SalesReport(context.Background(), 100, from, to)

	require.NoError(t, err)
	assert.Equal(t, int64(2), report.OrderCount)
	assert.Equal(t, 100.0, report.TotalSales)
}

func TestRevenueReportExcludesRefundsOutsideRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	order := shopOrder(t, 1, 100.0, from.AddDate(0, 0, 5))
	inRange := domain.NewRefund(10.0, "in range", domain.RefundApproved)
	inRange.CreatedAt = from.AddDate(0, 0, 10)
	outOfRange := domain.NewRefund(40.0, "march refund", domain.RefundApproved)
	outOfRange.CreatedAt = to.AddDate(0, 2, 0)
	rejected := domain.NewRefund(25.0, "rejected", domain.RefundRejected)
	rejected.CreatedAt = from.AddDate(0, 0, 12)
	order.Refunds = []domain.Refund{inRange, outOfRange, rejected}

	repo := &fakeOrderRepo{
		findByShopAndDateRangeFn: func(_ context.Context, _ int64, _, _ time.Time) ([]*domain.Order, error) {
			return []*domain.Order{order}, nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	report, err := service.RevenueReport(context.Background(), 100, from, to)

	require.NoError(t, err)
	assert.Equal(t, 100.0, report.GrossRevenue)
	assert.Equal(t, 10.0, report.RefundedAmount)
	assert.Equal(t, 90.0, report.NetRevenue)
}

func TestTopProductForShop(t *testing.T) {
	now := time.Now().UTC()
	orders := []*domain.Order{
		shopOrder(t, 1, 30.0, now.Add(-2*time.Hour),
			domain.LineItem{ProductID: "productA", Quantity: 2, UnitPrice: 10.0},
			domain.LineItem{ProductID: "productB", Quantity: 1, UnitPrice: 10.0}),
		shopOrder(t, 2, 40.0, now.Add(-time.Hour),
			domain.LineItem{ProductID: "productB", Quantity: 3, UnitPrice: 10.0},
			domain.LineItem{ProductID: "productC", Quantity: 1, UnitPrice: 10.0}),
	}
	repo := &fakeOrderRepo{
		findByShopIDFn: func(_ context.Context, _ int64, _ domain.Pagination) ([]*domain.Order, error) {
			return orders, nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	top, err := service.TopProductForShop(context.Background(), 100)

	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, "productB", top.ProductID)
	assert.Equal(t, 4, top.TotalQuantity)
}

func TestTopProductForShopTieBreak(t *testing.T) {
	now := time.Now().UTC()
	// productA and productB both total 3; productA appears first
	orders := []*domain.Order{
		shopOrder(t, 1, 30.0, now.Add(-2*time.Hour),
			domain.LineItem{ProductID: "productA", Quantity: 3, UnitPrice: 10.0}),
		shopOrder(t, 2, 30.0, now.Add(-time.Hour),
			domain.LineItem{ProductID: "productB", Quantity: 3, UnitPrice: 10.0}),
	}
	repo := &fakeOrderRepo{
		findByShopIDFn: func(_ context.Context, _ int64, _ domain.Pagination) ([]*domain.Order, error) {
			return orders, nil
		},
	}
	service := NewSalesQueryService(repo, testLogger())

	top, err := service.TopProductForShop(context.Background(), 100)

	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, "productA", top.ProductID)
}

func TestTopProductForShopNoOrders(t *testing.T) {
	service := NewSalesQueryService(&fakeOrderRepo{}, testLogger())

	top, err := service.TopProductForShop(context.Background(), 100)

	require.NoError(t, err)
	assert.Nil(t, top)
}
