package entity

import (
	"context"
	"time"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Lifecycle is the explicit storage state of a record.
// Archived rows are kept for history but excluded from every active query.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleArchived Lifecycle = "archived"
)

// Valid reports whether l is a known lifecycle state.
func (l Lifecycle) Valid() bool {
	return l == LifecycleActive || l == LifecycleArchived
}

///////////////////
// Base Entity   //
///////////////////

// BaseEntity contains common fields for all entities (catalogs and documents).
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Lifecycle replaces soft-delete timestamps
	Lifecycle Lifecycle `db:"lifecycle" json:"lifecycle"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		Lifecycle: LifecycleActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes UpdatedAt. Version is bumped by the repository on a
// successful optimistic update.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// Base returns the embedded base entity.
func (b *BaseEntity) Base() *BaseEntity {
	return b
}

// IsArchived reports whether the record was soft-removed.
func (b *BaseEntity) IsArchived() bool {
	return b.Lifecycle == LifecycleArchived
}

// Archive moves the record to the archived state.
func (b *BaseEntity) Archive() {
	b.Lifecycle = LifecycleArchived
	b.Touch()
}

// EnsureActive returns NotFound for archived records.
func (b *BaseEntity) EnsureActive(entity string) error {
	if b.IsArchived() {
		return apperror.NewNotFound(entity, b.ID.String())
	}
	return nil
}
