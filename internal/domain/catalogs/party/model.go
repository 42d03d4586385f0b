// Package party provides the Client, Vendor and Zone catalogs referenced by sales.
package party

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/entity"
)

// Kind identifies a party catalog.
type Kind string

const (
	KindClient Kind = "client"
	KindVendor Kind = "vendor"
	KindZone   Kind = "zone"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindClient, KindVendor, KindZone:
		return true
	}
	return false
}

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Client is a customer that buys on a sale.
type Client struct {
	entity.Catalog

	Email   *string `db:"email" json:"email,omitempty"`
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Address *string `db:"address" json:"address,omitempty"`

	// Identification is the national id or tax number
	Identification *string `db:"identification" json:"identification,omitempty"`
}

// NewClient creates a new active Client.
func NewClient(name string) *Client {
	return &Client{Catalog: entity.NewCatalog(name)}
}

// Validate implements entity.Validatable interface.
func (c *Client) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}
	c.Email = normalize(c.Email)
	c.Phone = normalize(c.Phone)
	c.Address = normalize(c.Address)
	c.Identification = normalize(c.Identification)

	if err := validateEmail(c.Email); err != nil {
		return err
	}
	if err := maxLen("phone", c.Phone, 50); err != nil {
		return err
	}
	return maxLen("identification", c.Identification, 20)
}

// Vendor is the salesperson credited with a sale.
type Vendor struct {
	entity.Catalog

	Email *string `db:"email" json:"email,omitempty"`
	Phone *string `db:"phone" json:"phone,omitempty"`
}

// NewVendor creates a new active Vendor.
func NewVendor(name string) *Vendor {
	return &Vendor{Catalog: entity.NewCatalog(name)}
}

// Validate implements entity.Validatable interface.
func (v *Vendor) Validate(ctx context.Context) error {
	if err := v.Catalog.Validate(ctx); err != nil {
		return err
	}
	v.Email = normalize(v.Email)
	v.Phone = normalize(v.Phone)

	if err := validateEmail(v.Email); err != nil {
		return err
	}
	return maxLen("phone", v.Phone, 50)
}

// Zone is the geographic area a sale is attributed to.
type Zone struct {
	entity.Catalog

	Description *string `db:"description" json:"description,omitempty"`
}

// NewZone creates a new active Zone.
func NewZone(name string) *Zone {
	return &Zone{Catalog: entity.NewCatalog(name)}
}

// Validate implements entity.Validatable interface.
func (z *Zone) Validate(ctx context.Context) error {
	z.Description = normalize(z.Description)
	return z.Catalog.Validate(ctx)
}

// --- Validation Helpers ---

func normalize(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateEmail(email *string) error {
	if email == nil {
		return nil
	}
	if !emailRE.MatchString(*email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}
	return nil
}

func maxLen(field string, s *string, limit int) error {
	if s != nil && len(*s) > limit {
		return apperror.NewValidation(fmt.Sprintf("%s is too long", field)).
			WithDetail("field", field).
			WithDetail("max", limit)
	}
	return nil
}
