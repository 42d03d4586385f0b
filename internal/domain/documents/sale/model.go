// Package sale provides the Sale document and the registration engine that
// turns a list of line requests into a confirmed sale, decrementing stock
// under row locks inside a single transaction.
package sale

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesledger/internal/core/apperror"
	"salesledger/internal/core/entity"
	"salesledger/internal/core/id"
	"salesledger/internal/core/types"
)

// Status is the sale state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentOther    PaymentMethod = "OTHER"
)

func (m PaymentMethod) normalized() PaymentMethod {
	return PaymentMethod(strings.ToUpper(strings.TrimSpace(string(m))))
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentOther:
		return true
	}
	return false
}

// Sale represents a registered sale (header plus lines).
type Sale struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`
	VendorID   id.ID `db:"vendor_id" json:"vendorId"`
	ZoneID     id.ID `db:"zone_id" json:"zoneId"`

	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// Currency is fixed to the reporting currency with rate 1
	Currency     string          `db:"currency" json:"currency"`
	ExchangeRate decimal.Decimal `db:"exchange_rate" json:"exchangeRate"`

	// Totals (computed server-side from lines)
	TotalAmount   decimal.Decimal `db:"total_amount" json:"totalAmount"`
	TotalTax      decimal.Decimal `db:"total_tax" json:"totalTax"`
	TotalDiscount decimal.Decimal `db:"total_discount" json:"totalDiscount"`

	Status Status  `db:"status" json:"status"`
	Notes  *string `db:"notes" json:"notes,omitempty"`

	// Table part
	Lines []Line `db:"-" json:"lines"`
}

// Line is one product entry of a sale. Immutable after creation.
type Line struct {
	ID     id.ID `db:"id" json:"id"`
	SaleID id.ID `db:"sale_id" json:"saleId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`
	Quantity  int64 `db:"quantity" json:"quantity"`

	// UnitPrice is the catalog price captured at sale time
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Subtotal   decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount   decimal.Decimal `db:"discount" json:"discount"`
	TaxPercent decimal.Decimal `db:"tax_percent" json:"taxPercent"`
	TaxAmount  decimal.Decimal `db:"tax_amount" json:"taxAmount"`
	Unit       string          `db:"unit" json:"unit"`

	// LineTotal = subtotal - discount + tax (generated column in storage)
	LineTotal decimal.Decimal `db:"line_total" json:"lineTotal"`
}

// Base returns subtotal minus discount.
func (l *Line) Base() decimal.Decimal {
	return l.Subtotal.Sub(l.Discount)
}

// newSale creates a confirmed sale header for the request.
func newSale(req RegisterRequest, cfg Config, createdBy string, now time.Time) *Sale {
	s := &Sale{
		Document:      entity.NewDocument(createdBy),
		CustomerID:    req.CustomerID,
		VendorID:      req.VendorID,
		ZoneID:        req.ZoneID,
		PaymentMethod: req.PaymentMethod,
		Currency:      cfg.Currency,
		ExchangeRate:  decimal.NewFromInt(1),
		TotalAmount:   types.Zero(),
		TotalTax:      types.Zero(),
		TotalDiscount: types.Zero(),
		Status:        StatusConfirmed,
	}
	if s.PaymentMethod == "" {
		s.PaymentMethod = PaymentCash
	}
	s.Date = now
	if req.Date != nil && !req.Date.IsZero() {
		s.Date = req.Date.UTC()
	}
	s.SetNumber(req.DocumentNumber)
	if req.Notes != "" {
		notes := req.Notes
		s.Notes = &notes
	}
	return s
}

// addLine appends a computed line and accumulates totals.
func (s *Sale) addLine(l Line) {
	l.SaleID = s.ID
	l.LineNo = len(s.Lines) + 1
	l.LineTotal = types.RoundMoney(l.Base().Add(l.TaxAmount))

	s.Lines = append(s.Lines, l)
	s.TotalAmount = s.TotalAmount.Add(l.LineTotal)
	s.TotalTax = s.TotalTax.Add(l.TaxAmount)
	s.TotalDiscount = s.TotalDiscount.Add(l.Discount)
}

// roundTotals rounds header totals to money precision.
func (s *Sale) roundTotals() {
	s.TotalAmount = types.RoundMoney(s.TotalAmount)
	s.TotalTax = types.RoundMoney(s.TotalTax)
	s.TotalDiscount = types.RoundMoney(s.TotalDiscount)
}

// IsCancelled reports whether the sale was cancelled.
func (s *Sale) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// CanModify returns an error when header edits are not allowed.
func (s *Sale) CanModify() error {
	if s.IsArchived() {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	if s.IsCancelled() {
		return apperror.NewBusinessRule(apperror.CodeSaleCancelled, "Cancelled sales are read-only").
			WithDetail("sale_id", s.ID.String())
	}
	return nil
}

// snapshot returns the header fields recorded in audit entries.
func (s *Sale) snapshot() map[string]any {
	return map[string]any{
		"document_number": s.DocumentNumber(),
		"payment_method":  string(s.PaymentMethod),
		"notes":           derefString(s.Notes),
		"status":          string(s.Status),
		"lifecycle":       string(s.Lifecycle),
		"total_amount":    s.TotalAmount.StringFixed(2),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
