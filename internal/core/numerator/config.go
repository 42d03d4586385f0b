// Package numerator provides domain contracts for document auto-numbering.
package numerator

import "fmt"

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyRandom appends a random suffix to PREFIX-DATE.
	// Collisions are possible; callers retry against the uniqueness check.
	StrategyRandom Strategy = iota

	// StrategySequence draws the suffix from a per-scope, per-day counter
	// stored in the database (UPSERT ... RETURNING). Gap-free while the
	// surrounding transaction commits.
	StrategySequence
)

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "random":
		return StrategyRandom, nil
	case "sequence":
		return StrategySequence, nil
	default:
		return StrategyRandom, fmt.Errorf("unknown numbering strategy %q", s)
	}
}

// String implements fmt.Stringer.
func (s Strategy) String() string {
	if s == StrategySequence {
		return "sequence"
	}
	return "random"
}

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
}

// DefaultOptions returns standard options (Random).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyRandom,
	}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "V")
	Prefix string

	// DateLayout formats the period part (Go time layout, default 20060102)
	DateLayout string

	// SuffixDigits is the width of the numeric suffix (default 4)
	SuffixDigits int

	// Scope partitions sequences (e.g. vendor id). Ignored by StrategyRandom.
	Scope string
}

// DefaultConfig returns sensible defaults: PREFIX-YYYYMMDD-NNNN.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:       prefix,
		DateLayout:   "20060102",
		SuffixDigits: 4,
	}
}
