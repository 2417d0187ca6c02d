package strategies

import (
	"context"

	"github.com/rustyeddy/trendbot/config"
	"github.com/rustyeddy/trendbot/market"
	"github.com/shopspring/decimal"
)

// MarketData is what strategies read from the exchange. Failures are
// reported as empty results.
type MarketData interface {
	Symbols(ctx context.Context, category market.Category, filter market.InstrumentFilter) []string
	Candles(ctx context.Context, symbol string, category market.Category, interval string, limit int) []market.Candle
}

// Universe is the instrument selection and candle access shared by
// strategies.
type Universe struct {
	md       MarketData
	Category market.Category
	Filter   market.InstrumentFilter
	Interval string
	Limit    int
}

func NewUniverse(md MarketData, p config.StrategyParams) Universe {
	return Universe{
		md:       md,
		Category: p.MarketCategory(),
		Filter: market.InstrumentFilter{
			Quote:       p.Quote,
			MinTurnover: decimal.NewFromFloat(p.MinTurnover),
			MaxTurnover: decimal.NewFromFloat(p.MaxTurnover),
		},
		Interval: p.Interval,
		Limit:    p.KlineLimit,
	}
}

// Symbols lists the tradable instruments in exchange order.
func (u Universe) Symbols(ctx context.Context) []string {
	return u.md.Symbols(ctx, u.Category, u.Filter)
}

// Candles returns bars for symbol, oldest first, or nil.
func (u Universe) Candles(ctx context.Context, symbol string) []market.Candle {
	return u.md.Candles(ctx, symbol, u.Category, u.Interval, u.Limit)
}
