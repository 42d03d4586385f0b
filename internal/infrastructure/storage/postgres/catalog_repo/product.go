package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/entity"
	"salesledger/internal/core/id"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/internal/infrastructure/storage/postgres"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[product.Product, *product.Product]
}

// NewProductRepo creates a new Product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	base := NewBaseCatalogRepo[product.Product](txManager, "products", "product").
		WithUnique(postgres.ConstraintProductSKU, "sku")
	return &ProductRepo{BaseCatalogRepo: base}
}

// FindBySKU retrieves a non-archived product by SKU (case-insensitive).
func (r *ProductRepo) FindBySKU(ctx context.Context, sku string) (*product.Product, error) {
	sku = strings.TrimSpace(sku)
	q := r.baseSelect().
		Where(squirrel.Expr("lower(sku) = lower(?)", sku)).
		Where(squirrel.Eq{"lifecycle": entity.LifecycleActive}).
		Limit(1)
	return r.FindOne(ctx, q, sku)
}

// LockProduct reads the product with FOR UPDATE. Must run inside a transaction.
func (r *ProductRepo) LockProduct(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetForUpdate(ctx, productID)
}

// DecrementStock subtracts qty in a single guarded statement so stock can
// never go negative even without a prior lock.
func (r *ProductRepo) DecrementStock(ctx context.Context, productID id.ID, qty int64) error {
	sql, args, err := r.Builder().
		Update("products").
		Set("stock", squirrel.Expr("stock - ?", qty)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": productID}).
		Where(squirrel.GtOrEq{"stock": qty}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build decrement: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", postgres.MapError(err))
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	available, err := r.stock(ctx, productID)
	if err != nil {
		return err
	}
	return apperror.NewInsufficientStock(productID.String(), 0, available, qty)
}

// IncrementStock adds qty to stock.
func (r *ProductRepo) IncrementStock(ctx context.Context, productID id.ID, qty int64) error {
	sql, args, err := r.Builder().
		Update("products").
		Set("stock", squirrel.Expr("stock + ?", qty)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build increment: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("increment stock: %w", postgres.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

func (r *ProductRepo) stock(ctx context.Context, productID id.ID) (int64, error) {
	sql, args, err := r.Builder().Select("stock").From("products").Where(squirrel.Eq{"id": productID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build stock query: %w", err)
	}

	var stock int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&stock); err != nil {
		if postgres.IsNoRows(err) {
			return 0, apperror.NewNotFound("product", productID.String())
		}
		return 0, fmt.Errorf("read stock: %w", err)
	}
	return stock, nil
}

var _ product.Repository = (*ProductRepo)(nil)
