package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"salesledger/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes the storage layer maps to AppErrors.
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
	pgLockNotAvailable    = "55P03"
	pgQueryCanceled       = "57014"
	pgDeadlockDetected    = "40P01"
	pgSerializationFail   = "40001"
)

// Constraint names referenced by repositories.
const (
	ConstraintSaleDocument = "uq_sales_vendor_document"
	ConstraintProductSKU   = "uq_products_sku"
	ConstraintClientEmail  = "uq_clients_email"
	ConstraintVendorEmail  = "uq_vendors_email"
	ConstraintZoneName     = "uq_zones_name"
	ConstraintStockCheck   = "chk_products_stock"
)

// AsPgError extracts *pgconn.PgError from the chain.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique violation, optionally of
// a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	pgErr, ok := AsPgError(err)
	if !ok || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// MapError converts PostgreSQL errors into AppErrors. AppErrors and
// non-database errors are returned unchanged.
func MapError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	pgErr, ok := AsPgError(err)
	if !ok {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewConflict("Record violates a uniqueness rule").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgCheckViolation:
		return apperror.NewValidation("Record violates a check constraint").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewValidation("Referenced record does not exist").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgLockNotAvailable, pgQueryCanceled:
		return apperror.NewTimeout(err)
	case pgDeadlockDetected, pgSerializationFail:
		return apperror.NewConflict("Concurrent update detected. Please retry.").WithCause(err)
	default:
		return err
	}
}

// IsNoRows reports whether err is pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
