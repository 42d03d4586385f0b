package dto

import (
	"github.com/shopspring/decimal"

	"salesledger/internal/domain/catalogs/party"
	"salesledger/internal/domain/catalogs/product"
)

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	SKU         *string         `json:"sku"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
}

// ToEntity converts DTO to domain entity.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Name, r.Price, r.Stock)
	p.SKU = r.SKU
	p.Description = r.Description
	p.Category = r.Category
	return p
}

// UpdateProductRequest is the body of PUT /products/:id. Omitted fields are kept.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	SKU         *string          `json:"sku"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock"`
}

// ToPatch converts DTO to a product patch.
func (r UpdateProductRequest) ToPatch() product.Patch {
	return product.Patch{
		Name:        r.Name,
		SKU:         r.SKU,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Stock:       r.Stock,
	}
}

// CreateClientRequest is the body of POST /clients.
type CreateClientRequest struct {
	Name           string  `json:"name" binding:"required"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	Identification *string `json:"identification"`
}

// ToEntity converts DTO to domain entity.
func (r CreateClientRequest) ToEntity() *party.Client {
	c := party.NewClient(r.Name)
	c.Email = r.Email
	c.Phone = r.Phone
	c.Address = r.Address
	c.Identification = r.Identification
	return c
}

// CreateVendorRequest is the body of POST /vendors.
type CreateVendorRequest struct {
	Name  string  `json:"name" binding:"required"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// ToEntity converts DTO to domain entity.
func (r CreateVendorRequest) ToEntity() *party.Vendor {
	v := party.NewVendor(r.Name)
	v.Email = r.Email
	v.Phone = r.Phone
	return v
}

// CreateZoneRequest is the body of POST /zones.
type CreateZoneRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// ToEntity converts DTO to domain entity.
func (r CreateZoneRequest) ToEntity() *party.Zone {
	z := party.NewZone(r.Name)
	z.Description = r.Description
	return z
}
