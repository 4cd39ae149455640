package service

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// uint256 holds at most 78 decimal digits
const (
	maxAmountBits     = 256
	maxAmountExponent = 78
)

// CheckQuantity rejects quantities whose scaled amount could not fit a uint256
// before anything expands them.
func CheckQuantity(quantity decimal.Decimal) error {
	if quantity.Exponent() > maxAmountExponent || quantity.Exponent() < -maxAmountExponent {
		return fmt.Errorf("%w: qty exponent %d out of range", ErrBadArguments, quantity.Exponent())
	}
	if quantity.Coefficient().BitLen() > maxAmountBits {
		return fmt.Errorf("%w: qty has too many digits", ErrBadArguments)
	}
	return nil
}

// ScaleAmount converts a human quantity into the token's smallest unit.
// Quantities finer than the token's precision are rejected rather than rounded,
// so are amounts above 2^256-1.
func ScaleAmount(quantity decimal.Decimal, decimals uint8) (*big.Int, error) {
	if err := CheckQuantity(quantity); err != nil {
		return nil, err
	}
	scaled := quantity.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrBadArguments, quantity.String(), decimals)
	}
	amount := scaled.BigInt()
	if amount.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%w: %s exceeds a uint256 at %d decimals", ErrBadArguments, quantity.String(), decimals)
	}
	return amount, nil
}

// FormatAmount renders a smallest-unit amount at the given precision, e.g.
// 5250000 at 6 decimals is "5.25".
func FormatAmount(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

func parseAmount(amount string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", amount)
	}
	return value, nil
}
