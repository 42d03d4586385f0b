// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"salesledger/internal/core/apperror"
	"salesledger/internal/core/id"
)

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// ParseID parses a UUID field, reporting the field name on failure.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id format").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseOptionalID parses an optional UUID query/body field.
func ParseOptionalID(field, value string) (*id.ID, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
