package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesledger/internal/core/apperror"
	"salesledger/internal/domain/documents/sale"
)

// RegisterSaleRequest is the body of POST /sales.
type RegisterSaleRequest struct {
	CustomerID     string            `json:"customerId" binding:"required"`
	VendorID       string            `json:"vendorId" binding:"required"`
	ZoneID         string            `json:"zoneId" binding:"required"`
	DocumentNumber string            `json:"documentNumber"`
	PaymentMethod  string            `json:"paymentMethod"`
	Notes          string            `json:"notes"`
	Date           *time.Time        `json:"date"`
	Lines          []SaleLineRequest `json:"lines"`
}

// SaleLineRequest is one requested line.
type SaleLineRequest struct {
	ProductID  string           `json:"productId" binding:"required"`
	Quantity   int64            `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unitPrice"`
	Discount   decimal.Decimal  `json:"discount"`
	TaxPercent *decimal.Decimal `json:"taxPercent"`
	Unit       string           `json:"unit"`
}

// ToDomain converts the request. Shape rules (quantities, empty line set)
// are checked by the engine.
func (r *RegisterSaleRequest) ToDomain() (sale.RegisterRequest, error) {
	var req sale.RegisterRequest

	customerID, err := ParseID("customerId", r.CustomerID)
	if err != nil {
		return req, err
	}
	vendorID, err := ParseID("vendorId", r.VendorID)
	if err != nil {
		return req, err
	}
	zoneID, err := ParseID("zoneId", r.ZoneID)
	if err != nil {
		return req, err
	}

	req = sale.RegisterRequest{
		CustomerID:     customerID,
		VendorID:       vendorID,
		ZoneID:         zoneID,
		DocumentNumber: r.DocumentNumber,
		PaymentMethod:  sale.PaymentMethod(r.PaymentMethod),
		Notes:          r.Notes,
		Date:           r.Date,
		Lines:          make([]sale.LineRequest, 0, len(r.Lines)),
	}

	for i, l := range r.Lines {
		productID, err := ParseID(fmt.Sprintf("lines[%d].productId", i), l.ProductID)
		if err != nil {
			return req, err
		}
		req.Lines = append(req.Lines, sale.LineRequest{
			ProductID:  productID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Discount:   l.Discount,
			TaxPercent: l.TaxPercent,
			Unit:       l.Unit,
		})
	}
	return req, nil
}

// UpdateSaleHeaderRequest is the body of PATCH /sales/:id.
type UpdateSaleHeaderRequest struct {
	PaymentMethod  *string `json:"paymentMethod"`
	DocumentNumber *string `json:"documentNumber"`
	Notes          *string `json:"notes"`
	Version        int     `json:"version" binding:"required,min=1"`
}

// ToDomain converts the request into a header patch.
func (r *UpdateSaleHeaderRequest) ToDomain() sale.HeaderPatch {
	patch := sale.HeaderPatch{
		DocumentNumber: r.DocumentNumber,
		Notes:          r.Notes,
		Version:        r.Version,
	}
	if r.PaymentMethod != nil {
		pm := sale.PaymentMethod(*r.PaymentMethod)
		patch.PaymentMethod = &pm
	}
	return patch
}

// SaleListQuery holds GET /sales query parameters.
type SaleListQuery struct {
	VendorID        string     `form:"vendorId"`
	CustomerID      string     `form:"customerId"`
	ZoneID          string     `form:"zoneId"`
	Status          string     `form:"status"`
	DateFrom        *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo          *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Search          string     `form:"search"`
	IncludeArchived bool       `form:"includeArchived"`
	Limit           int        `form:"limit"`
	Offset          int        `form:"offset"`
}

// ToDomain converts the query into a sale filter. DateTo covers the whole day.
func (q *SaleListQuery) ToDomain() (sale.ListFilter, error) {
	f := sale.ListFilter{
		Search:          q.Search,
		IncludeArchived: q.IncludeArchived,
		Limit:           q.Limit,
		Offset:          q.Offset,
		DateFrom:        q.DateFrom,
	}

	var err error
	if f.VendorID, err = ParseOptionalID("vendorId", q.VendorID); err != nil {
		return f, err
	}
	if f.CustomerID, err = ParseOptionalID("customerId", q.CustomerID); err != nil {
		return f, err
	}
	if f.ZoneID, err = ParseOptionalID("zoneId", q.ZoneID); err != nil {
		return f, err
	}
	if q.Status != "" {
		status := sale.Status(strings.ToUpper(q.Status))
		if !status.Valid() {
			return f, apperror.NewValidation("unknown status").
				WithDetail("field", "status").
				WithDetail("value", q.Status)
		}
		f.Status = &status
	}
	if q.DateTo != nil {
		end := q.DateTo.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &end
	}
	f.Normalize()
	return f, nil
}
