package product

import (
	"context"

	"salesledger/internal/core/id"
	"salesledger/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindBySKU retrieves a non-archived product by SKU.
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// LockProduct retrieves the product with a row lock held until the
	// surrounding transaction ends.
	LockProduct(ctx context.Context, id id.ID) (*Product, error)

	// DecrementStock subtracts qty from stock. Fails if stock would go negative.
	DecrementStock(ctx context.Context, id id.ID, qty int64) error

	// IncrementStock adds qty to stock.
	IncrementStock(ctx context.Context, id id.ID, qty int64) error
}

// Cache is a read-through cache for product lookups.
// Entries are invalidated whenever price, stock or status changes.
type Cache interface {
	Get(ctx context.Context, id id.ID) (*Product, bool, error)
	Set(ctx context.Context, p *Product) error
	Invalidate(ctx context.Context, ids ...id.ID) error
}

// NoopCache disables caching.
type NoopCache struct{}

func (NoopCache) Get(context.Context, id.ID) (*Product, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, *Product) error { return nil }
func (NoopCache) Invalidate(context.Context, ...id.ID) error { return nil }
