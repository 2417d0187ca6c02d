package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    decimal.Decimal
	PlannedRiskPct decimal.Decimal
	PlannedRR      decimal.Decimal
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes lists the violation codes, for logging.
func (d Decision) Codes() []string {
	codes := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		codes[i] = v.Code
	}
	return codes
}

// Evaluate checks an entry against the policy and the current balance.
// The balance must always cover the entry fee plus the planned stop-loss.
func Evaluate(p Policy, intent EntryIntent, balance decimal.Decimal) Decision {
	d := Decision{Allowed: true}

	if !intent.Entry.IsPositive() || !intent.SLPercent.IsPositive() {
		d.add("NO_STOP_OR_ENTRY", "entry price and stop percent must be positive")
		return d
	}
	if !intent.Volume.IsPositive() {
		d.add("NO_VOLUME", "volume must be positive")
		return d
	}

	d.PlannedRisk = PlannedRisk(intent.Volume, intent.Entry, intent.SLPercent)
	d.PlannedRR = RR(intent.TPPercent, intent.SLPercent)
	if balance.IsPositive() {
		d.PlannedRiskPct = d.PlannedRisk.Div(balance).Mul(hundred)
	}

	if need := d.PlannedRisk.Add(intent.EntryFee); balance.LessThan(need) {
		d.add("INSUFFICIENT_BALANCE",
			fmt.Sprintf("balance %s does not cover risk plus fee %s", balance.StringFixed(2), need.StringFixed(2)))
	}
	if p.MaxRiskPct.IsPositive() && d.PlannedRiskPct.GreaterThan(p.MaxRiskPct) {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %s%% exceeds max %s%%", d.PlannedRiskPct.StringFixed(2), p.MaxRiskPct.StringFixed(2)))
	}
	if p.MinRR.IsPositive() && d.PlannedRR.LessThan(p.MinRR) {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %s below minimum %s", d.PlannedRR.StringFixed(2), p.MinRR.StringFixed(2)))
	}
	return d
}
