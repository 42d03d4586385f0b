// Package catalog_repo provides PostgreSQL implementations of the catalog
// repositories (products, clients, vendors, zones).
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/entity"
	"salesledger/internal/core/id"
	"salesledger/internal/domain"
	"salesledger/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides the common CRUD of a catalog table.
// Embed it in the specific repositories.
type BaseCatalogRepo[E any, P interface {
	*E
	domain.CatalogEntity
}] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string

	// unique maps a unique index name to the field it guards
	unique map[string]string
}

// NewBaseCatalogRepo creates a base repository over tableName.
func NewBaseCatalogRepo[E any, P interface {
	*E
	domain.CatalogEntity
}](txManager *postgres.TxManager, tableName, entityName string) *BaseCatalogRepo[E, P] {
	return &BaseCatalogRepo[E, P]{
		txManager:  txManager,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[E](),
		unique:     make(map[string]string),
	}
}

// WithUnique registers a unique index so violations map to DUPLICATE_ENTRY.
func (r *BaseCatalogRepo[E, P]) WithUnique(constraint, field string) *BaseCatalogRepo[E, P] {
	r.unique[constraint] = field
	return r
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *BaseCatalogRepo[E, P]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[E, P]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *BaseCatalogRepo[E, P]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().Select(r.selectCols...).From(r.tableName)
}

// columns returns the entity's column values restricted to selectCols.
func (r *BaseCatalogRepo[E, P]) columns(e P, skip ...string) map[string]any {
	data := postgres.StructToMap(e)
	out := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if contains(skip, col) {
			continue
		}
		if v, ok := data[col]; ok {
			out[col] = v
		}
	}
	return out
}

// mapWriteErr turns unique violations of registered indexes into AppErrors.
func (r *BaseCatalogRepo[E, P]) mapWriteErr(err error, e P) error {
	if pgErr, ok := postgres.AsPgError(err); ok && postgres.IsUniqueViolation(err, pgErr.ConstraintName) {
		if field, known := r.unique[pgErr.ConstraintName]; known {
			return apperror.NewDuplicate(r.entityName, field, columnText(postgres.StructToMap(e)[field])).
				WithCause(err)
		}
	}
	return postgres.MapError(err)
}

func columnText(v any) string {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Create inserts a new entity.
func (r *BaseCatalogRepo[E, P]) Create(ctx context.Context, e P) error {
	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(r.columns(e)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, r.mapWriteErr(err, e))
	}
	return nil
}

// Update writes all columns with optimistic locking and bumps the version.
func (r *BaseCatalogRepo[E, P]) Update(ctx context.Context, e P) error {
	base := e.CatalogBase()

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(r.columns(e, "id", "version", "created_at")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": base.ID, "version": base.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, r.mapWriteErr(err, e))
	}
	if tag.RowsAffected() == 0 {
		exists, existsErr := r.existsAny(ctx, base.ID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return apperror.NewNotFound(r.entityName, base.ID.String())
		}
		return apperror.NewConcurrentModification(r.entityName, base.ID.String())
	}

	base.Version++
	return nil
}

// GetByID retrieves an entity by ID, archived or not.
func (r *BaseCatalogRepo[E, P]) GetByID(ctx context.Context, entityID id.ID) (P, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Limit(1), entityID.String())
}

// GetForUpdate retrieves an entity by ID with a row lock.
func (r *BaseCatalogRepo[E, P]) GetForUpdate(ctx context.Context, entityID id.ID) (P, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID.String())
}

// FindOne runs q and scans a single entity.
func (r *BaseCatalogRepo[E, P]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key string) (P, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	e := P(new(E))
	if err := pgxscan.Get(ctx, r.querier(ctx), e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, key)
		}
		return nil, fmt.Errorf("get %s: %w", r.tableName, postgres.MapError(err))
	}
	return e, nil
}

// List retrieves entities ordered by name with filtering and pagination.
func (r *BaseCatalogRepo[E, P]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[P], error) {
	result := domain.ListResult[P]{Limit: filter.Limit, Offset: filter.Offset, Items: []P{}}

	q := r.applyFilter(r.baseSelect(), filter)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	q = q.OrderBy("name ASC", "id ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build list query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return result, nil
}

func (r *BaseCatalogRepo[E, P]) applyFilter(q squirrel.SelectBuilder, filter domain.ListFilter) squirrel.SelectBuilder {
	if !filter.IncludeArchived {
		q = q.Where(squirrel.Eq{"lifecycle": entity.LifecycleActive})
	}
	if filter.Active != nil {
		q = q.Where(squirrel.Eq{"active": *filter.Active})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	return q
}

// Exists reports whether a non-archived entity exists.
func (r *BaseCatalogRepo[E, P]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"id": entityID, "lifecycle": entity.LifecycleActive})
}

func (r *BaseCatalogRepo[E, P]) existsAny(ctx context.Context, entityID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"id": entityID})
}

func (r *BaseCatalogRepo[E, P]) exists(ctx context.Context, where squirrel.Sqlizer) (bool, error) {
	inner := r.Builder().Select("1").From(r.tableName).Where(where)
	sql, args, err := r.Builder().Select().Column(squirrel.Expr("EXISTS (?)", inner)).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var ok bool
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists %s: %w", r.tableName, err)
	}
	return ok, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
