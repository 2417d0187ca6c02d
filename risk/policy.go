package risk

import "github.com/shopspring/decimal"

// Policy holds the pre-trade limits. Zero values disable a limit.
type Policy struct {
	// MaxRiskPct caps planned risk as a percent of balance.
	MaxRiskPct decimal.Decimal
	// MinRR is the minimum take-profit to stop-loss ratio.
	MinRR decimal.Decimal
}

// EntryIntent describes a position the bot is about to open.
type EntryIntent struct {
	Symbol    string
	Entry     decimal.Decimal
	Volume    decimal.Decimal
	SLPercent decimal.Decimal
	TPPercent decimal.Decimal
	// EntryFee is negative for a maker rebate.
	EntryFee decimal.Decimal
}
