package risk

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// sizingMargin keeps the position just under the risk budget.
	sizingMargin = decimal.RequireFromString("0.999")
)

// CalculateVolume sizes a position in base units so that a stop-loss hit at
// slPercent below (or above) entryPrice loses about riskUSDT.
//
//	volume = riskUSDT / (entryPrice * slPercent/100) * 0.999
//
// A zero price or stop distance yields zero.
func CalculateVolume(riskUSDT, entryPrice, slPercent decimal.Decimal) decimal.Decimal {
	if entryPrice.IsZero() || slPercent.IsZero() {
		return decimal.Zero
	}
	priceRisk := entryPrice.Mul(slPercent.Div(hundred))
	return riskUSDT.Div(priceRisk).Mul(sizingMargin)
}

// PlannedRisk is the quote amount lost if the stop is hit.
func PlannedRisk(volume, entryPrice, slPercent decimal.Decimal) decimal.Decimal {
	return volume.Mul(entryPrice).Mul(slPercent).Div(hundred)
}

// RR is the reward to risk ratio of the configured bands.
func RR(tpPercent, slPercent decimal.Decimal) decimal.Decimal {
	if slPercent.IsZero() {
		return decimal.Zero
	}
	return tpPercent.Div(slPercent)
}
