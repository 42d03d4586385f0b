package sale

import (
	"context"

	"salesledger/internal/core/id"
	"salesledger/internal/domain"
	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
)

// Repository defines operations for sale documents.
type Repository interface {
	// InsertSale stores the header. A (vendor, document number) collision
	// with an active sale fails with DUPLICATE_DOCUMENT.
	InsertSale(ctx context.Context, s *Sale) error

	// InsertLines stores lines in LineNo order.
	InsertLines(ctx context.Context, saleID id.ID, lines []Line) error

	// FindActiveByDocument returns the non-cancelled, non-archived sale with
	// this vendor and number, or NOT_FOUND.
	FindActiveByDocument(ctx context.Context, vendorID id.ID, number string) (*Sale, error)

	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate reads the header with a row lock.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)

	// UpdateHeader writes payment method, document number, notes, status and
	// lifecycle with an optimistic version check and bumps the version.
	UpdateHeader(ctx context.Context, s *Sale) error

	// List returns headers (without lines), newest first.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ProductStore is the catalog view the engine needs.
type ProductStore interface {
	// LockProduct reads the product and holds its row lock until the
	// transaction ends.
	LockProduct(ctx context.Context, productID id.ID) (*product.Product, error)

	DecrementStock(ctx context.Context, productID id.ID, qty int64) error
	IncrementStock(ctx context.Context, productID id.ID, qty int64) error
}

// PartyDirectory answers whether referenced parties exist.
type PartyDirectory interface {
	Exists(ctx context.Context, kind party.Kind, partyID id.ID) (bool, error)
}

// CacheInvalidator drops cached product reads after stock changes.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context, ids ...id.ID)
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateCache(context.Context, ...id.ID) {}
