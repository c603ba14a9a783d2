package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// weiDecimals is the scale between the human-readable fare unit and the
// smallest on-chain unit.
const weiDecimals = 18

// ToWei converts a decimal ETH amount to wei.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(weiDecimals).BigInt()
}

// FromWei converts a wei amount back to a decimal ETH amount.
func FromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -weiDecimals)
}

// ReferenceHash derives the bytes32 payment reference submitted on chain
// from the client-supplied reference string.
func ReferenceHash(reference string) [32]byte {
	return crypto.Keccak256Hash([]byte(reference))
}
