package entity

import (
	"time"
)

// Document is the base type for business transactions.
type Document struct {
	BaseEntity

	// Number is the human-facing reference (nullable in storage)
	Number *string `db:"document_number" json:"documentNumber,omitempty"`

	// Date is the business timestamp of the document
	Date time.Time `db:"date" json:"date"`

	// CreatedBy is the actor that registered the document
	CreatedBy string `db:"created_by" json:"createdBy,omitempty"`
}

// NewDocument creates a new Document with generated ID dated now.
func NewDocument(createdBy string) Document {
	base := NewBaseEntity()
	return Document{
		BaseEntity: base,
		Date:       base.CreatedAt,
		CreatedBy:  createdBy,
	}
}

// DocumentNumber returns the number or an empty string.
func (d *Document) DocumentNumber() string {
	if d.Number == nil {
		return ""
	}
	return *d.Number
}

// SetNumber assigns the number; an empty string clears it.
func (d *Document) SetNumber(number string) {
	if number == "" {
		d.Number = nil
		return
	}
	d.Number = &number
}
