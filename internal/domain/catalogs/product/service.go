package product

import (
	"context"

	"github.com/shopspring/decimal"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
	"salesledger/internal/core/tx"
	"salesledger/internal/domain"
	"salesledger/pkg/logger"
)

// Service provides business logic for the Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo  Repository
	cache Cache
}

// NewService creates a new Product service. cache may be nil.
func NewService(repo Repository, txm tx.Manager, cache Cache) *Service {
	if cache == nil {
		cache = NoopCache{}
	}

	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txm,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		cache:          cache,
	}

	base.Hooks().OnBeforeCreate(svc.prepare)
	base.Hooks().OnBeforeUpdate(svc.prepare)
	base.Hooks().OnAfterUpdate(svc.invalidate)

	return svc
}

// Patch holds the editable product fields. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	SKU         *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int64
}

// Get returns a product, served from cache when possible.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	if p, ok, err := s.cache.Get(ctx, productID); err != nil {
		logger.Warn(ctx, "product cache read failed", "product_id", productID, "error", err)
	} else if ok {
		return p, nil
	}

	p, err := s.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, p); err != nil {
		logger.Warn(ctx, "product cache write failed", "product_id", productID, "error", err)
	}
	return p, nil
}

// UpdateFields applies patch to the product.
func (s *Service) UpdateFields(ctx context.Context, productID id.ID, patch Patch) (*Product, error) {
	return s.Modify(ctx, productID, func(p *Product) error {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.SKU != nil {
			p.SKU = patch.SKU
		}
		if patch.Description != nil {
			p.Description = patch.Description
		}
		if patch.Category != nil {
			p.Category = patch.Category
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		p.Touch()
		return nil
	})
}

// InvalidateCache drops cached entries for the given products.
// Called by the sale engine after stock changes commit.
func (s *Service) InvalidateCache(ctx context.Context, ids ...id.ID) {
	if len(ids) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		logger.Warn(ctx, "product cache invalidation failed", "count", len(ids), "error", err)
	}
}

// prepare normalizes fields and checks SKU uniqueness.
// The unique index remains the final guard.
func (s *Service) prepare(ctx context.Context, p *Product) error {
	p.Normalize()

	if p.SKU == nil {
		return nil
	}
	existing, err := s.repo.FindBySKU(ctx, *p.SKU)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != p.ID {
		return apperror.NewDuplicate("product", "sku", *p.SKU)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, p *Product) error {
	return s.cache.Invalidate(ctx, p.ID)
}
