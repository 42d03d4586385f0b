// Package numerator provides the document number generator.
// The random strategy needs no storage; the sequence strategy keeps per-day
// counters in sys_sequences and runs on the caller's transaction when one is
// present in the context.
package numerator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"salesledger/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for a call (transaction or pool).
type QuerierFunc func(ctx context.Context) Querier

// Service provides document numbering functionality.
type Service struct {
	querier QuerierFunc

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customises a Service.
type Option func(*Service)

// WithRand replaces the random source (tests use a fixed seed).
func WithRand(r *rand.Rand) Option {
	return func(s *Service) {
		s.rng = r
	}
}

// New creates a numerator service. querier may be nil when only the random
// strategy is used.
func New(querier QuerierFunc, opts ...Option) *Service {
	now := uint64(time.Now().UnixNano())
	s := &Service{
		querier: querier,
		rng:     rand.New(rand.NewPCG(now, now>>1|1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Static wraps a fixed querier.
func Static(q Querier) QuerierFunc {
	return func(context.Context) Querier { return q }
}

var _ numerator.Generator = (*Service)(nil)

// GetNextNumber generates the next candidate document number.
// Pattern: PREFIX-YYYYMMDD-NNNN (e.g., V-20250914-0042)
func (s *Service) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = numerator.DefaultOptions()
	}
	cfg = withDefaults(cfg)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case numerator.StrategySequence:
		num, err = s.getNextSequence(ctx, s.buildKey(cfg, period))
	default:
		num = s.getNextRandom(cfg.SuffixDigits)
	}
	if err != nil {
		return "", err
	}

	return s.formatNumber(cfg, period, num), nil
}

// getNextRandom draws a suffix in [0, 10^digits).
func (s *Service) getNextRandom(digits int) int64 {
	limit := int64(1)
	for i := 0; i < digits; i++ {
		limit *= 10
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Int64N(limit)
}

// getNextSequence fetches the next counter value using UPSERT + RETURNING.
func (s *Service) getNextSequence(ctx context.Context, key string) (int64, error) {
	if s.querier == nil {
		return 0, fmt.Errorf("sequence strategy requires a database querier")
	}

	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("sequence next: %w", err)
	}
	return num, nil
}

// buildKey creates the sequence key: one counter per prefix, scope and day.
func (s *Service) buildKey(cfg numerator.Config, period time.Time) string {
	parts := []string{cfg.Prefix}
	if cfg.Scope != "" {
		parts = append(parts, cfg.Scope)
	}
	parts = append(parts, period.Format(cfg.DateLayout))
	return strings.Join(parts, ":")
}

func (s *Service) formatNumber(cfg numerator.Config, period time.Time, num int64) string {
	return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format(cfg.DateLayout), cfg.SuffixDigits, num)
}

func withDefaults(cfg numerator.Config) numerator.Config {
	if cfg.DateLayout == "" {
		cfg.DateLayout = "20060102"
	}
	if cfg.SuffixDigits <= 0 {
		cfg.SuffixDigits = 4
	}
	return cfg
}
