// Package product provides the Product catalog: sellable items with a unit
// price and an on-hand stock counter.
package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/entity"
	"salesledger/internal/core/types"
)

// Product represents a sellable item.
type Product struct {
	entity.Catalog

	// SKU is the optional stock keeping unit (unique when set)
	SKU *string `db:"sku" json:"sku,omitempty"`

	Description *string `db:"description" json:"description,omitempty"`
	Category    *string `db:"category" json:"category,omitempty"`

	// Price is the current unit price (2 fraction digits)
	Price decimal.Decimal `db:"price" json:"price"`

	// Stock is the on-hand quantity; never negative
	Stock int64 `db:"stock" json:"stock"`
}

// NewProduct creates a new active Product.
func NewProduct(name string, price decimal.Decimal, stock int64) *Product {
	return &Product{
		Catalog: entity.NewCatalog(name),
		Price:   types.RoundMoney(price),
		Stock:   stock,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative").
			WithDetail("field", "price")
	}

	if p.Stock < 0 {
		return apperror.NewValidation("stock must not be negative").
			WithDetail("field", "stock")
	}

	if p.SKU != nil && len(*p.SKU) > 50 {
		return apperror.NewValidation("sku is too long").
			WithDetail("field", "sku").
			WithDetail("max", 50)
	}

	return nil
}

// Normalize trims optional text fields and drops empty ones.
func (p *Product) Normalize() {
	p.SKU = trimmed(p.SKU)
	p.Description = trimmed(p.Description)
	p.Category = trimmed(p.Category)
	p.Price = types.RoundMoney(p.Price)
}

// Sellable reports whether the product may appear on a new sale.
func (p *Product) Sellable() bool {
	return p.Active && !p.IsArchived()
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
