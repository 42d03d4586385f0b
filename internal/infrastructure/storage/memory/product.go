package memory

import (
	"context"
	"strings"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
	"salesledger/internal/domain/catalogs/product"
)

// ProductRepo stores products; SKU is unique.
type ProductRepo struct {
	*CatalogRepo[product.Product, *product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates the products table.
func NewProductRepo(store *Store) *ProductRepo {
	base := NewCatalogRepo[product.Product](store, "product").
		Unique("sku", func(p *product.Product) string { return deref(p.SKU) })
	return &ProductRepo{CatalogRepo: base}
}

// FindBySKU implements product.Repository.
func (r *ProductRepo) FindBySKU(ctx context.Context, sku string) (*product.Product, error) {
	var (
		out *product.Product
		err error
	)
	r.store.read(ctx, func() {
		for _, row := range r.rows {
			if row.IsArchived() || row.SKU == nil {
				continue
			}
			if strings.EqualFold(*row.SKU, sku) {
				out = r.copyOf(row)
				return
			}
		}
		err = apperror.NewNotFound("product", sku)
	})
	return out, err
}

// LockProduct implements product.Repository. The store lock held by the
// surrounding transaction already excludes other writers.
func (r *ProductRepo) LockProduct(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

// DecrementStock implements product.Repository.
func (r *ProductRepo) DecrementStock(ctx context.Context, productID id.ID, qty int64) error {
	return r.mutate(ctx, productID, func(p *product.Product) error {
		if p.Stock < qty {
			return apperror.NewInsufficientStock(productID.String(), 0, p.Stock, qty)
		}
		p.Stock -= qty
		return nil
	})
}

// IncrementStock implements product.Repository.
func (r *ProductRepo) IncrementStock(ctx context.Context, productID id.ID, qty int64) error {
	return r.mutate(ctx, productID, func(p *product.Product) error {
		p.Stock += qty
		return nil
	})
}
