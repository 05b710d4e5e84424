package inventory

import (
	"context"
	"strings"
	"sync"
)

// Service defines inventory business logic.
type Service interface {
	List(ctx context.Context) ([]*Item, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
	Create(ctx context.Context, req CreateItemRequest) (*Item, error)
	Update(ctx context.Context, id int64, item Item) (*Item, error)
	Delete(ctx context.Context, id int64) error
	SetQuantity(ctx context.Context, id int64, qty int) error
	DeleteAll(ctx context.Context) error
	// OnChange registers fn to run after every successful write.
	OnChange(fn func())
}

type service struct {
	repo Repository

	mu        sync.Mutex
	listeners []func()
}

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *service) changed() {
	s.mu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// List returns every item ordered by ascending id.
func (s *service) List(ctx context.Context) ([]*Item, error) {
	return s.repo.List(ctx)
}

// Snapshot fetches the items a sale can be recorded against, ordered by product name.
func (s *service) Snapshot(ctx context.Context) (*Snapshot, error) {
	items, err := s.repo.ListByName(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(items), nil
}

func (s *service) Create(ctx context.Context, req CreateItemRequest) (*Item, error) {
	name := strings.TrimSpace(req.ProductName)
	if name == "" || req.Quantity == nil || req.Price == nil || req.Cost == nil {
		return nil, ErrMissingFields
	}

	supplierID := DefaultSupplierID
	if req.SupplierID != nil && *req.SupplierID != 0 {
		supplierID = *req.SupplierID
	}

	it := &Item{
		ProductName: name,
		Quantity:    *req.Quantity,
		Price:       *req.Price,
		Cost:        *req.Cost,
		SupplierID:  supplierID,
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	s.changed()
	return it, nil
}

// Update overwrites the stored row with item and returns the row as stored.
func (s *service) Update(ctx context.Context, id int64, item Item) (*Item, error) {
	item.ID = id
	if err := s.repo.Update(ctx, &item); err != nil {
		return nil, err
	}
	s.changed()
	return s.repo.GetByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.notifyOnSuccess(s.repo.Delete(ctx, id))
}

func (s *service) SetQuantity(ctx context.Context, id int64, qty int) error {
	return s.notifyOnSuccess(s.repo.UpdateQuantity(ctx, id, qty))
}

func (s *service) DeleteAll(ctx context.Context) error {
	return s.notifyOnSuccess(s.repo.DeleteAll(ctx))
}

func (s *service) notifyOnSuccess(err error) error {
	if err == nil {
		s.changed()
	}
	return err
}
