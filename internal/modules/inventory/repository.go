package inventory

import "context"

// Repository defines inventory data storage.
type Repository interface {
	List(ctx context.Context) ([]*Item, error)
	ListByName(ctx context.Context) ([]*Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	UpdateQuantity(ctx context.Context, id int64, qty int) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}
