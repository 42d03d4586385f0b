package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf_RoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		base string
		pct  string
		want string
	}{
		{"100.00", "15", "15"},
		{"33.33", "15", "5"},    // 4.9995 -> 5.00
		{"10.05", "10", "1.01"}, // 1.005 -> 1.01
		{"0", "15", "0"},
		{"19.99", "0", "0"},
		{"19.99", "100", "19.99"},
	}

	for _, tt := range tests {
		t.Run(tt.base+"@"+tt.pct, func(t *testing.T) {
			got := PercentOf(MustMoney(tt.base), MustMoney(tt.pct))
			assert.True(t, MustMoney(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestValidPercent(t *testing.T) {
	assert.True(t, ValidPercent(MustMoney("0")))
	assert.True(t, ValidPercent(MustMoney("100")))
	assert.True(t, ValidPercent(MustMoney("15.5")))
	assert.False(t, ValidPercent(MustMoney("-0.01")))
	assert.False(t, ValidPercent(MustMoney("100.01")))
	assert.True(t, ValidPercent(MustMoney("12.340")))
	assert.False(t, ValidPercent(MustMoney("12.345")))
}

func TestWithinTolerance(t *testing.T) {
	tol := MustMoney("0.01")

	assert.True(t, WithinTolerance(MustMoney("10.00"), MustMoney("10.01"), tol))
	assert.True(t, WithinTolerance(MustMoney("10.01"), MustMoney("10.00"), tol))
	assert.False(t, WithinTolerance(MustMoney("10.00"), MustMoney("10.02"), tol))
	assert.False(t, WithinTolerance(MustMoney("10.00"), MustMoney("9.98"), tol))
}

func TestMulQtyAndSum(t *testing.T) {
	sub := MulQty(MustMoney("19.99"), 3)
	assert.True(t, MustMoney("59.97").Equal(sub))

	total := SumMoney(MustMoney("1.10"), MustMoney("2.20"), MustMoney("3.30"))
	assert.True(t, MustMoney("6.60").Equal(total))

	assert.True(t, MustMoney("5").Equal(MinMoney(MustMoney("5"), MustMoney("7"))))
}
