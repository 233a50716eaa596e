package solana

import (
	"errors"
	"fmt"
	"math"
)

// Decimal places of the assets the SDK moves. All balances are handled
// internally in smallest units; decimal amounts are converted once, at the
// API boundary.
const (
	SolDecimals      = 9
	NosDecimals      = 6
	LamportsPerSol   = 1_000_000_000
	UnitsPerNosToken = 1_000_000
)

// Amount conversion errors.
var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrAmountRange       = errors.New("amount out of range")
)

// ToLamports converts a decimal SOL amount to lamports, truncating toward
// zero. Non-positive and non-finite amounts are rejected.
func ToLamports(sol float64) (uint64, error) {
	return toSmallestUnits(sol, SolDecimals)
}

// ToTokenUnits converts a decimal token amount to the token's smallest
// units, truncating toward zero.
func ToTokenUnits(amount float64, decimals uint8) (uint64, error) {
	return toSmallestUnits(amount, decimals)
}

func toSmallestUnits(amount float64, decimals uint8) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %v", ErrAmountRange, amount)
	}

	if amount <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrNonPositiveAmount, amount)
	}

	units := math.Trunc(amount * math.Pow10(int(decimals)))
	if units < 1 {
		// positive but smaller than one smallest unit
		return 0, fmt.Errorf("%w: %v", ErrNonPositiveAmount, amount)
	}

	if units >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v", ErrAmountRange, amount)
	}

	return uint64(units), nil
}
