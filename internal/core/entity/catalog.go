package entity

import (
	"context"
	"strings"

	"salesledger/internal/core/apperror"
)

// Catalog is the base type for reference data (products, clients, vendors, zones).
type Catalog struct {
	BaseEntity

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Active hides the record from pickers without archiving it
	Active bool `db:"active" json:"active"`
}

// NewCatalog creates a new active Catalog with generated ID.
func NewCatalog(name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		Active:     true,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if len(c.Name) > 255 {
		return apperror.NewValidation("name is too long").
			WithDetail("field", "name").
			WithDetail("max", 255)
	}
	return nil
}

// Toggle flips the active flag.
func (c *Catalog) Toggle() {
	c.Active = !c.Active
	c.Touch()
}

// CatalogBase returns the catalog itself; promoted to every embedding type.
func (c *Catalog) CatalogBase() *Catalog {
	return c
}
