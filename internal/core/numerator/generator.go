// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in pkg/numerator.
package numerator

import (
	"context"
	"time"
)

// Generator produces candidate document numbers.
// Uniqueness is not guaranteed by the generator; the caller verifies it.
type Generator interface {
	// GetNextNumber generates a document number for the given period.
	// Pattern: PREFIX-YYYYMMDD-NNNN (e.g., V-20250914-0042)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
}
