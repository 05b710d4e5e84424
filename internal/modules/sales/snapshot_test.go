package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/georgemunganga/insuite-backend/internal/modules/inventory"
	"github.com/shopspring/decimal"
)

// itemRepo is an in-memory inventory.Repository so the real inventory service can drive the sales cache.
type itemRepo struct {
	mu     sync.Mutex
	items  map[int64]inventory.Item
	nextID int64
}

func newItemRepo() *itemRepo { return &itemRepo{items: make(map[int64]inventory.Item), nextID: 1} }

func (r *itemRepo) list(less func(a, b *inventory.Item) bool) []*inventory.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*inventory.Item, 0, len(r.items))
	for _, it := range r.items {
		cp := it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r *itemRepo) List(context.Context) ([]*inventory.Item, error) {
	return r.list(func(a, b *inventory.Item) bool { return a.ID < b.ID }), nil
}

func (r *itemRepo) ListByName(context.Context) ([]*inventory.Item, error) {
	return r.list(func(a, b *inventory.Item) bool { return a.ProductName < b.ProductName }), nil
}

func (r *itemRepo) GetByID(_ context.Context, id int64) (*inventory.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	return &it, nil
}

func (r *itemRepo) Create(_ context.Context, it *inventory.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it.ID = r.nextID
	r.nextID++
	r.items[it.ID] = *it
	return nil
}

func (r *itemRepo) Update(_ context.Context, it *inventory.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; !ok {
		return inventory.ErrNotFound
	}
	r.items[it.ID] = *it
	return nil
}

func (r *itemRepo) UpdateQuantity(_ context.Context, id int64, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return inventory.ErrNotFound
	}
	it.Quantity = qty
	r.items[id] = it
	return nil
}

func (r *itemRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return inventory.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *itemRepo) DeleteAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[int64]inventory.Item)
	return nil
}

func widgetServices(t *testing.T) (inventory.Service, *fakeSalesRepo, Service, *inventory.Item) {
	t.Helper()
	invService := inventory.NewService(newItemRepo())
	qty := 10
	price := decimal.RequireFromString("5.00")
	cost := decimal.RequireFromString("2.00")
	widget, err := invService.Create(context.Background(), inventory.CreateItemRequest{
		ProductName: "Widget", Quantity: &qty, Price: &price, Cost: &cost,
	})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}
	repo := newFakeSalesRepo()
	return invService, repo, NewService(repo, invService, Options{}), widget
}

func TestCreateSale_AfterRestock(t *testing.T) {
	invService, _, svc, widget := widgetServices(t)
	ctx := context.Background()

	if _, err := svc.Products(ctx); err != nil {
		t.Fatalf("Products: %v", err)
	}
	restocked := *widget
	restocked.Quantity = 50
	if _, err := invService.Update(ctx, widget.ID, restocked); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := svc.CreateSale(ctx, CreateSaleRequest{ProductID: widget.ID, Quantity: 3}); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	items, _ := invService.List(ctx)
	if items[0].Quantity != 47 {
		t.Errorf("stock after restock to 50 and sale of 3 = %d, want 47", items[0].Quantity)
	}
}

func TestCreateSale_AfterItemDeleted(t *testing.T) {
	invService, repo, svc, widget := widgetServices(t)
	ctx := context.Background()

	if _, err := svc.Products(ctx); err != nil {
		t.Fatalf("Products: %v", err)
	}
	if err := invService.Delete(ctx, widget.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err := svc.CreateSale(ctx, CreateSaleRequest{ProductID: widget.ID, Quantity: 3})
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("got %v, want ErrProductNotFound", err)
	}
	if repo.creates != 0 {
		t.Errorf("sale stored against a deleted item: creates = %d", repo.creates)
	}
}

func TestCreateSale_AfterItemAdded(t *testing.T) {
	invService, _, svc, _ := widgetServices(t)
	ctx := context.Background()

	if _, err := svc.Products(ctx); err != nil {
		t.Fatalf("Products: %v", err)
	}
	qty := 4
	price := decimal.RequireFromString("1.50")
	cost := decimal.RequireFromString("0.50")
	gadget, err := invService.Create(ctx, inventory.CreateItemRequest{ProductName: "Gadget", Quantity: &qty, Price: &price, Cost: &cost})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.CreateSale(ctx, CreateSaleRequest{ProductID: gadget.ID, Quantity: 4}); err != nil {
		t.Errorf("sale of a newly added item: %v", err)
	}
}
