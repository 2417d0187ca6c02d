package risk

import (
	"github.com/rustyeddy/trendbot/market"
	"github.com/shopspring/decimal"
)

// ExitReason says why a position was closed.
type ExitReason string

const (
	TakeProfit ExitReason = "take_profit"
	StopLoss   ExitReason = "stop_loss"
)

// Levels are the take-profit and stop-loss prices of an open position.
type Levels struct {
	Side       market.Side
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

// NewLevels builds symmetric percent bands around entry.
func NewLevels(side market.Side, entry, tpPercent, slPercent decimal.Decimal) Levels {
	one := decimal.NewFromInt(1)
	tp := tpPercent.Div(hundred)
	sl := slPercent.Div(hundred)

	if side.IsShort() {
		return Levels{
			Side:       side,
			TakeProfit: entry.Mul(one.Sub(tp)),
			StopLoss:   entry.Mul(one.Add(sl)),
		}
	}
	return Levels{
		Side:       side,
		TakeProfit: entry.Mul(one.Add(tp)),
		StopLoss:   entry.Mul(one.Sub(sl)),
	}
}

// Exit reports whether price breaches a band. Take-profit is checked first.
func (l Levels) Exit(price decimal.Decimal) (ExitReason, bool) {
	if l.Side.IsShort() {
		if price.LessThanOrEqual(l.TakeProfit) {
			return TakeProfit, true
		}
		if price.GreaterThanOrEqual(l.StopLoss) {
			return StopLoss, true
		}
		return "", false
	}

	if price.GreaterThanOrEqual(l.TakeProfit) {
		return TakeProfit, true
	}
	if price.LessThanOrEqual(l.StopLoss) {
		return StopLoss, true
	}
	return "", false
}
