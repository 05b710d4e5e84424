package dashboard

import (
	"context"

	"github.com/georgemunganga/insuite-backend/internal/modules/inventory"
	"github.com/georgemunganga/insuite-backend/internal/modules/sales"
	"github.com/shopspring/decimal"
)

// Summary holds the dashboard figures.
type Summary struct {
	TotalSales decimal.Decimal `json:"total_sales"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	ItemsSold  int             `json:"items_sold"`
	Profit     decimal.Decimal `json:"profit"`
}

// Aggregate reduces already fetched sales and inventory rows.
// TotalCost sums item cost once per row; it is not scaled by quantity.
func Aggregate(saleRows []*sales.Sale, items []*inventory.Item) Summary {
	var sum Summary
	for _, s := range saleRows {
		sum.TotalSales = sum.TotalSales.Add(s.Total())
		sum.ItemsSold += s.Quantity
	}
	for _, it := range items {
		sum.TotalCost = sum.TotalCost.Add(it.Cost)
	}
	sum.Profit = sum.TotalSales.Sub(sum.TotalCost)
	return sum
}

type SalesLister interface {
	List(ctx context.Context) ([]*sales.Sale, error)
}

type InventoryLister interface {
	List(ctx context.Context) ([]*inventory.Item, error)
}

// Service reads both collections on every call. Nothing is cached.
type Service struct {
	sales     SalesLister
	inventory InventoryLister
}

func NewService(s SalesLister, inv InventoryLister) *Service {
	return &Service{sales: s, inventory: inv}
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	saleRows, err := s.sales.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	items, err := s.inventory.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(saleRows, items), nil
}
