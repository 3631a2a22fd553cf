// Package pnl holds the one P&L formula used everywhere: at display time,
// at close time and when back-solving a close price from a target profit.
package pnl

import (
	"errors"

	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

// DefaultContractSize is the standard lot multiplier for currency pairs.
var DefaultContractSize = decimal.NewFromInt(100000)

var ErrInvalidVolume = errors.New("invalid volume")

var (
	one      = decimal.NewFromInt(1)
	minusOne = decimal.NewFromInt(-1)
)

func SideSign(side types.TradeSide) decimal.Decimal {
	if side == types.TradeSideSell {
		return minusOne
	}
	return one
}

// Profit = (current - entry) * volume * contractSize * sideSign.
func Profit(entry, current decimal.Decimal, side types.TradeSide, volume, contractSize decimal.Decimal) decimal.Decimal {
	return current.Sub(entry).Mul(volume).Mul(contractSize).Mul(SideSign(side))
}

// ClosePriceFor back-solves the close price that books the given profit:
// entry + profit / (volume * contractSize * sideSign).
func ClosePriceFor(entry, profit decimal.Decimal, side types.TradeSide, volume, contractSize decimal.Decimal) (decimal.Decimal, error) {
	denom := volume.Mul(contractSize).Mul(SideSign(side))
	if denom.IsZero() {
		return decimal.Decimal{}, ErrInvalidVolume
	}
	return entry.Add(profit.Div(denom)), nil
}
