package sales

import (
	"context"
	"log"
	"strconv"

	kafkax "github.com/georgemunganga/insuite-backend/internal/kafka"
)

const (
	EventSaleRecorded              = "sale.recorded"
	EventSaleInventoryUpdateFailed = "sale.inventory_update_failed"
)

type SaleRecorded struct {
	Sale           *Sale `json:"sale"`
	StockRemaining int   `json:"stock_remaining"`
}

type SaleInventoryUpdateFailed struct {
	Sale     *Sale  `json:"sale"`
	Error    string `json:"error"`
	Reverted bool   `json:"reverted"`
}

// publish never fails the sale; delivery problems are only logged.
func (s *service) publish(ctx context.Context, eventType string, sale *Sale, payload any) {
	key := strconv.FormatInt(sale.ProductID, 10)
	b, err := kafkax.NewEnvelope(eventType, strconv.FormatInt(sale.ID, 10), payload)
	if err != nil {
		log.Printf("sales: encode %s: %v", eventType, err)
		return
	}
	if err := s.events.Publish(ctx, key, b); err != nil {
		log.Printf("sales: publish %s for sale %d: %v", eventType, sale.ID, err)
	}
}
