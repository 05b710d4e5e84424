package account

import (
	"context"
	"fmt"
)

// Purger empties one collection.
type Purger interface {
	DeleteAll(ctx context.Context) error
}

type Service struct {
	sales     Purger
	inventory Purger
}

func NewService(sales, inventory Purger) *Service {
	return &Service{sales: sales, inventory: inventory}
}

// ResetAllData deletes every sale, then every inventory item. A failed sales delete stops
// before inventory is touched.
func (s *Service) ResetAllData(ctx context.Context) error {
	if err := s.sales.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete sales: %w", err)
	}
	if err := s.inventory.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	return nil
}
