package ledger

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToWei(t *testing.T) {
	wei := ToWei(decimal.RequireFromString("10.00"))
	want, _ := new(big.Int).SetString("10000000000000000000", 10)
	assert.Zero(t, wei.Cmp(want))

	// Fractional fares survive the shift without float rounding.
	wei = ToWei(decimal.RequireFromString("0.015"))
	want, _ = new(big.Int).SetString("15000000000000000", 10)
	assert.Zero(t, wei.Cmp(want))
}

func TestFromWei_RoundTrips(t *testing.T) {
	amount := decimal.RequireFromString("2.375")
	assert.True(t, FromWei(ToWei(amount)).Equal(amount))
}
