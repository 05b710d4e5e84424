package sales

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSelectionRequired = errors.New("please select a product and enter a quantity")
	ErrProductNotFound   = errors.New("selected product not found in inventory")
	ErrInsufficientStock = errors.New("quantity exceeds available inventory")
	ErrSaleReverted      = errors.New("sale reverted after inventory update failed")
	ErrNotFound          = errors.New("sale not found")
)

// Sale is one row of the sales collection. Price is the product price at the time of sale.
type Sale struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	SaleDate  time.Time       `json:"sale_date"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// Total is quantity × price.
func (s *Sale) Total() decimal.Decimal {
	return s.Price.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

type CreateSaleRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PartialSaleError reports a sale that was stored while the stock decrement failed.
// CompensationErr is set when the compensating delete of the sale failed too.
type PartialSaleError struct {
	Sale            *Sale
	Err             error
	CompensationErr error
}

func (e *PartialSaleError) Error() string {
	msg := "Sale added but failed to update inventory: " + e.Err.Error()
	if e.CompensationErr != nil {
		msg += fmt.Sprintf(" (reverting the sale also failed: %v)", e.CompensationErr)
	}
	return msg
}

func (e *PartialSaleError) Unwrap() error { return e.Err }
