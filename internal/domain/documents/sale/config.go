package sale

import (
	"time"

	"github.com/shopspring/decimal"

	"salesledger/internal/core/numerator"
)

// Config holds engine settings.
type Config struct {
	// DefaultTaxPercent applies when a line omits its tax percentage
	DefaultTaxPercent decimal.Decimal

	// PriceTolerance is the accepted |submitted - current| price difference
	PriceTolerance decimal.Decimal

	// DefaultUnit labels lines without a unit
	DefaultUnit string

	// Currency is the reporting currency (exchange rate fixed to 1)
	Currency string

	// NumberPrefix and NumberStrategy configure generated document numbers
	NumberPrefix   string
	NumberStrategy numerator.Strategy

	// NumberMaxAttempts bounds the search for a free generated number
	NumberMaxAttempts int

	// RestockOnCancel re-increments stock when a sale is cancelled
	RestockOnCancel bool

	// Now returns the current time (overridable in tests)
	Now func() time.Time
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		DefaultTaxPercent: decimal.NewFromInt(15),
		PriceTolerance:    decimal.NewFromFloat(0.01),
		DefaultUnit:       "UNIT",
		Currency:          "USD",
		NumberPrefix:      "V",
		NumberStrategy:    numerator.StrategyRandom,
		NumberMaxAttempts: 10,
		RestockOnCancel:   false,
		Now:               func() time.Time { return time.Now().UTC() },
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultUnit == "" {
		c.DefaultUnit = d.DefaultUnit
	}
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	if c.NumberPrefix == "" {
		c.NumberPrefix = d.NumberPrefix
	}
	if c.NumberMaxAttempts <= 0 {
		c.NumberMaxAttempts = d.NumberMaxAttempts
	}
	if c.PriceTolerance.IsZero() {
		c.PriceTolerance = d.PriceTolerance
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}
