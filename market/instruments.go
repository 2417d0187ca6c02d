package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Ticker is the subset of the exchange's 24h ticker the bot cares about.
type Ticker struct {
	Symbol      string
	LastPrice   decimal.Decimal
	Turnover24h decimal.Decimal
}

// leveragedMarkers are substrings that identify leveraged tokens. The match
// is a plain substring test on the whole symbol.
var leveragedMarkers = []string{"UP", "DOWN", "BULL", "BEAR", "HALF"}

// InstrumentFilter selects the tradable universe out of a ticker listing.
type InstrumentFilter struct {
	Quote       string
	MinTurnover decimal.Decimal
	MaxTurnover decimal.Decimal
}

// Allow reports whether a ticker passes the quote, name and liquidity rules.
func (f InstrumentFilter) Allow(t Ticker) bool {
	sym := t.Symbol
	if sym == "" || !strings.HasSuffix(sym, f.Quote) {
		return false
	}
	for _, m := range leveragedMarkers {
		if strings.Contains(sym, m) {
			return false
		}
	}
	if sym[0] >= '0' && sym[0] <= '9' {
		return false
	}
	return t.Turnover24h.GreaterThanOrEqual(f.MinTurnover) &&
		t.Turnover24h.LessThanOrEqual(f.MaxTurnover)
}

// Symbols returns the allowed symbols, keeping the listing order.
func (f InstrumentFilter) Symbols(tickers []Ticker) []string {
	var out []string
	for _, t := range tickers {
		if f.Allow(t) {
			out = append(out, t.Symbol)
		}
	}
	return out
}
