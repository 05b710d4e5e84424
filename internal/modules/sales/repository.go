package sales

import "context"

// Repository defines sales data storage.
type Repository interface {
	List(ctx context.Context) ([]*Sale, error)
	Create(ctx context.Context, sale *Sale) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}
