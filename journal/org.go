package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode entry. Facts go in the
// PROPERTIES drawer; the Review heading is left empty for notes.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "** %s %s %s", outcome(t), t.Symbol, t.Side)
	if t.TradeID != "" {
		fmt.Fprintf(&b, " (%s)", shortID(t.TradeID))
	}
	b.WriteString("\n:PROPERTIES:\n")

	prop := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, ":%s: %s\n", k, v)
		}
	}
	prop("TRADE_ID", t.TradeID)
	prop("SYMBOL", t.Symbol)
	prop("SIDE", string(t.Side))
	prop("VOLUME", t.Volume.StringFixed(4))
	prop("ENTRY_PRICE", t.EntryPrice.StringFixed(8))
	prop("CLOSE_PRICE", t.ClosePrice.StringFixed(8))
	prop("OPEN_TIME", t.OpenTime.UTC().Format(time.RFC3339))
	prop("CLOSE_TIME", t.CloseTime.UTC().Format(time.RFC3339))
	prop("DURATION", t.CloseTime.Sub(t.OpenTime).Round(time.Second).String())
	prop("PNL", t.PnL.StringFixed(2))
	prop("PNL_PERCENT", pnlPercent(t).StringFixed(2))
	prop("NEW_BALANCE", t.NewBalance.StringFixed(2))
	prop("REASON", t.Reason)
	b.WriteString(":END:\n\n*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders trades under a summary heading.
func FormatTradesOrg(trades []TradeRecord) string {
	var (
		b    strings.Builder
		net  decimal.Decimal
		wins int
	)
	for _, t := range trades {
		net = net.Add(t.PnL)
		if t.PnL.IsPositive() {
			wins++
		}
	}
	fmt.Fprintf(&b, "* Trades: %d, wins: %d, gross pnl: %s\n", len(trades), wins, net.StringFixed(2))
	for _, t := range trades {
		b.WriteString("\n")
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func outcome(t TradeRecord) string {
	switch {
	case t.PnL.IsPositive():
		return "WIN"
	case t.PnL.IsNegative():
		return "LOSS"
	default:
		return "FLAT"
	}
}

func pnlPercent(t TradeRecord) decimal.Decimal {
	notional := t.EntryPrice.Mul(t.Volume)
	if !notional.IsPositive() {
		return decimal.Zero
	}
	return t.PnL.Div(notional).Mul(decimal.NewFromInt(100))
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
