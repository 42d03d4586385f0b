package sale

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
)

const (
	maxDocumentNumberLen = 50
	maxNotesLen          = 2000
	maxUnitLen           = 20
)

// RegisterRequest is the input of RegisterSale.
type RegisterRequest struct {
	CustomerID id.ID
	VendorID   id.ID
	ZoneID     id.ID

	// DocumentNumber is optional; generated when empty
	DocumentNumber string

	// PaymentMethod defaults to CASH
	PaymentMethod PaymentMethod

	Notes string

	// Date defaults to now
	Date *time.Time

	// Lines in submission order; must not be empty
	Lines []LineRequest
}

// LineRequest is one requested sale line.
type LineRequest struct {
	ProductID id.ID
	Quantity  int64

	// UnitPrice is the client-side price, used only for the integrity check
	UnitPrice decimal.Decimal

	// Discount is clamped to the line subtotal
	Discount decimal.Decimal

	// TaxPercent defaults to Config.DefaultTaxPercent when nil
	TaxPercent *decimal.Decimal

	// Unit defaults to Config.DefaultUnit
	Unit string
}

// normalize trims text fields.
func (r *RegisterRequest) normalize() {
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.Notes = strings.TrimSpace(r.Notes)
	r.PaymentMethod = r.PaymentMethod.normalized()
	for i := range r.Lines {
		r.Lines[i].Unit = strings.TrimSpace(r.Lines[i].Unit)
	}
}

// Validate checks the request shape. Runs before any side effect.
func (r *RegisterRequest) Validate() error {
	if id.IsNil(r.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	if id.IsNil(r.VendorID) {
		return apperror.NewValidation("vendor is required").WithDetail("field", "vendorId")
	}
	if id.IsNil(r.ZoneID) {
		return apperror.NewValidation("zone is required").WithDetail("field", "zoneId")
	}
	if r.PaymentMethod != "" && !r.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(r.PaymentMethod))
	}
	if utf8.RuneCountInString(r.DocumentNumber) > maxDocumentNumberLen {
		return apperror.NewValidation("document number is too long").
			WithDetail("field", "documentNumber").
			WithDetail("max", maxDocumentNumberLen)
	}
	if utf8.RuneCountInString(r.Notes) > maxNotesLen {
		return apperror.NewValidation("notes are too long").
			WithDetail("field", "notes").
			WithDetail("max", maxNotesLen)
	}

	if len(r.Lines) == 0 {
		return apperror.NewEmptyLineSet()
	}

	for i, line := range r.Lines {
		lineNo := i + 1
		switch {
		case id.IsNil(line.ProductID):
			return lineError("product is required", "productId", lineNo)
		case line.Quantity <= 0:
			return lineError("quantity must be positive", "quantity", lineNo)
		case line.UnitPrice.IsNegative():
			return lineError("unit price must not be negative", "unitPrice", lineNo)
		case line.Discount.IsNegative():
			return lineError("discount must not be negative", "discount", lineNo)
		case utf8.RuneCountInString(line.Unit) > maxUnitLen:
			return lineError("unit label is too long", "unit", lineNo)
		}
	}

	return nil
}

func lineError(msg, field string, lineNo int) *apperror.AppError {
	return apperror.NewValidation(msg).
		WithDetail("field", field).
		WithDetail("line", lineNo)
}

// productIDs returns the referenced products in submission order.
func (r *RegisterRequest) productIDs() []id.ID {
	ids := make([]id.ID, len(r.Lines))
	for i, l := range r.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

// HeaderPatch holds the editable header fields. Nil fields are left unchanged.
type HeaderPatch struct {
	PaymentMethod  *PaymentMethod
	DocumentNumber *string
	Notes          *string

	// Version is the version the caller last read (optimistic check)
	Version int
}

// normalize canonicalises the payment method the same way registration does.
func (p *HeaderPatch) normalize() {
	if p.PaymentMethod != nil {
		m := p.PaymentMethod.normalized()
		p.PaymentMethod = &m
	}
}

// Validate checks the patch shape.
func (p *HeaderPatch) Validate() error {
	if p.PaymentMethod != nil && !p.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(*p.PaymentMethod))
	}
	if p.DocumentNumber != nil && utf8.RuneCountInString(strings.TrimSpace(*p.DocumentNumber)) > maxDocumentNumberLen {
		return apperror.NewValidation("document number is too long").
			WithDetail("field", "documentNumber").
			WithDetail("max", maxDocumentNumberLen)
	}
	if p.Notes != nil && utf8.RuneCountInString(*p.Notes) > maxNotesLen {
		return apperror.NewValidation("notes are too long").
			WithDetail("field", "notes").
			WithDetail("max", maxNotesLen)
	}
	return nil
}

// ListFilter for filtering sales.
type ListFilter struct {
	VendorID   *id.ID
	CustomerID *id.ID
	ZoneID     *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time

	// Search matches document number or notes
	Search string

	IncludeArchived bool

	Limit  int
	Offset int
}

// Normalize clamps pagination values.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
