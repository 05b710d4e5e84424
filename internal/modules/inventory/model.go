package inventory

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultSupplierID is assigned when an item is created without a supplier.
const DefaultSupplierID int64 = 1

var (
	ErrMissingFields = errors.New("product name, quantity, price, and cost are required")
	ErrNotFound      = errors.New("inventory item not found")
)

// Item is one row of the inventory collection.
type Item struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	SupplierID  int64           `json:"supplier_id"`
}

// CreateItemRequest holds a new item as entered. Nil fields were left blank.
type CreateItemRequest struct {
	ProductName string           `json:"product_name"`
	Quantity    *int             `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
	Cost        *decimal.Decimal `json:"cost"`
	SupplierID  *int64           `json:"supplier_id,omitempty"`
}

// Snapshot is the inventory as of the last fetch, indexed for lookups before a write.
type Snapshot struct {
	items []*Item
	byID  map[int64]*Item
}

func NewSnapshot(items []*Item) *Snapshot {
	byID := make(map[int64]*Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &Snapshot{items: items, byID: byID}
}

// Find returns the item with id, if the snapshot has it.
func (s *Snapshot) Find(id int64) (*Item, bool) {
	it, ok := s.byID[id]
	return it, ok
}

func (s *Snapshot) Items() []*Item { return s.items }
