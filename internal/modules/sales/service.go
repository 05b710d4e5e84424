package sales

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	kafkax "github.com/georgemunganga/insuite-backend/internal/kafka"
	"github.com/georgemunganga/insuite-backend/internal/modules/inventory"
)

// Inventory is the part of the inventory service a sale depends on.
type Inventory interface {
	Snapshot(ctx context.Context) (*inventory.Snapshot, error)
	SetQuantity(ctx context.Context, id int64, qty int) error
	OnChange(fn func())
}

// Service defines sales business logic.
type Service interface {
	List(ctx context.Context) ([]*Sale, error)
	Products(ctx context.Context) ([]*inventory.Item, error)
	CreateSale(ctx context.Context, req CreateSaleRequest) (*Sale, error)
	DeleteAll(ctx context.Context) error
	// Invalidate drops the cached inventory snapshot so the next sale refetches it.
	Invalidate()
}

// Options tunes the sale workflow.
type Options struct {
	// Compensate deletes the stored sale when the stock decrement fails.
	Compensate bool
	Events     kafkax.Publisher
}

type service struct {
	repo       Repository
	inventory  Inventory
	events     kafkax.Publisher
	compensate bool
	now        func() time.Time

	mu       sync.Mutex
	snapshot *inventory.Snapshot

	// generation advances on every invalidation; a fetch started before one is not cached
	generation uint64
}

func NewService(repo Repository, inv Inventory, opts Options) Service {
	if opts.Events == nil {
		opts.Events = kafkax.Noop{}
	}
	s := &service{
		repo:       repo,
		inventory:  inv,
		events:     opts.Events,
		compensate: opts.Compensate,
		now:        time.Now,
	}
	inv.OnChange(s.Invalidate)
	return s
}

func (s *service) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.generation++
	s.mu.Unlock()
}

// List returns every sale, most recent first.
func (s *service) List(ctx context.Context) ([]*Sale, error) {
	return s.repo.List(ctx)
}

// Products refetches the inventory snapshot sales are validated against and returns its items.
func (s *service) Products(ctx context.Context) ([]*inventory.Item, error) {
	snap, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Items(), nil
}

func (s *service) refresh(ctx context.Context) (*inventory.Snapshot, error) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	snap, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.generation == gen {
		s.snapshot = snap
	}
	s.mu.Unlock()
	return snap, nil
}

// current returns the last fetched snapshot, fetching one if none has been loaded yet.
func (s *service) current(ctx context.Context) (*inventory.Snapshot, error) {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()
	if snap != nil {
		return snap, nil
	}
	return s.refresh(ctx)
}

// CreateSale validates against the snapshot, stores the sale, then writes the decremented stock.
// The two writes are not atomic. A failed decrement yields a *PartialSaleError unless
// compensation is enabled and the sale could be deleted again.
func (s *service) CreateSale(ctx context.Context, req CreateSaleRequest) (*Sale, error) {
	if req.ProductID <= 0 || req.Quantity <= 0 {
		return nil, ErrSelectionRequired
	}
	snap, err := s.current(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch inventory: %w", err)
	}
	product, ok := snap.Find(req.ProductID)
	if !ok {
		return nil, ErrProductNotFound
	}
	if req.Quantity > product.Quantity {
		return nil, ErrInsufficientStock
	}

	sale := &Sale{
		ProductID: product.ID,
		Quantity:  req.Quantity,
		Price:     product.Price,
		SaleDate:  s.now(),
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		return nil, err
	}

	remaining := product.Quantity - req.Quantity
	if err := s.inventory.SetQuantity(ctx, product.ID, remaining); err != nil {
		return nil, s.inventoryUpdateFailed(ctx, sale, err)
	}

	if _, err := s.refresh(ctx); err != nil {
		log.Printf("sales: refresh inventory after sale %d: %v", sale.ID, err)
	}
	s.publish(ctx, EventSaleRecorded, sale, SaleRecorded{Sale: sale, StockRemaining: remaining})
	return sale, nil
}

func (s *service) inventoryUpdateFailed(ctx context.Context, sale *Sale, cause error) error {
	log.Printf("sales: sale %d stored but inventory update failed: %v", sale.ID, cause)
	if !s.compensate {
		s.publish(ctx, EventSaleInventoryUpdateFailed, sale, SaleInventoryUpdateFailed{Sale: sale, Error: cause.Error()})
		return &PartialSaleError{Sale: sale, Err: cause}
	}

	if err := s.repo.Delete(ctx, sale.ID); err != nil {
		log.Printf("sales: CRITICAL revert of sale %d failed: %v", sale.ID, err)
		s.publish(ctx, EventSaleInventoryUpdateFailed, sale, SaleInventoryUpdateFailed{Sale: sale, Error: cause.Error()})
		return &PartialSaleError{Sale: sale, Err: cause, CompensationErr: err}
	}
	log.Printf("sales: reverted sale %d", sale.ID)
	s.publish(ctx, EventSaleInventoryUpdateFailed, sale, SaleInventoryUpdateFailed{Sale: sale, Error: cause.Error(), Reverted: true})
	return fmt.Errorf("%w: %v", ErrSaleReverted, cause)
}

// DeleteAll removes every sale and drops the cached snapshot so the next sale refetches inventory.
func (s *service) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}
