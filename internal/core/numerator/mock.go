// Package numerator provides domain contracts for document auto-numbering.
package numerator

import (
	"context"
	"sync/atomic"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	GetNextNumberFunc func(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	calls atomic.Int64
}

// GetNextNumber implements Generator.
func (m *MockGenerator) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	m.calls.Add(1)
	if m.GetNextNumberFunc != nil {
		return m.GetNextNumberFunc(ctx, cfg, opts, period)
	}
	// Default: return predictable mock number
	return cfg.Prefix + "-" + period.Format("20060102") + "-0001", nil
}

// Calls returns how many numbers were requested.
func (m *MockGenerator) Calls() int64 {
	return m.calls.Load()
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
