package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FeeKind selects which exchange fee schedule an execution pays.
type FeeKind string

const (
	Taker FeeKind = "TAKER"
	Maker FeeKind = "MAKER"
)

func ParseFeeKind(s string) (FeeKind, error) {
	k := FeeKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case Taker, Maker:
		return k, nil
	}
	return "", fmt.Errorf("unknown fee type %q (want TAKER or MAKER)", s)
}

// Fees are signed percentages. A negative rate is a rebate.
type Fees struct {
	TakerPercent decimal.Decimal
	MakerPercent decimal.Decimal
	EntryKind    FeeKind
}

// EntryRate is the percent charged when a position is opened.
func (f Fees) EntryRate() decimal.Decimal {
	if f.EntryKind == Maker {
		return f.MakerPercent
	}
	return f.TakerPercent
}

// ExitRate is the percent charged on close. Exits are always assumed to
// cross the spread, so this is the taker rate whatever EntryKind says.
func (f Fees) ExitRate() decimal.Decimal {
	return f.TakerPercent
}

// Fee is price * volume * ratePercent / 100.
func Fee(price, volume, ratePercent decimal.Decimal) decimal.Decimal {
	return price.Mul(volume).Mul(ratePercent).Div(decimal.NewFromInt(100))
}
