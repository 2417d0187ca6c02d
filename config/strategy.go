package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/trendbot/market"
)

// StrategyType identifies a signal strategy. The numeric values are the
// ones accepted in STRATEGY_TYPE.
type StrategyType int

const (
	StrategyEMA StrategyType = 1
)

func (s StrategyType) String() string {
	switch s {
	case StrategyEMA:
		return "ema"
	}
	return "strategy(" + strconv.Itoa(int(s)) + ")"
}

func (s StrategyType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StrategyType) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "1", "ema", "ema-cross", "emacross":
		*s = StrategyEMA
		return nil
	}
	return fmt.Errorf("unknown strategy type %q (supported: 1/ema)", string(b))
}

// TradingMode restricts which signal directions may open a position.
type TradingMode int

const (
	LongOnly  TradingMode = 0
	ShortOnly TradingMode = 1
	Both      TradingMode = 2
)

func (m TradingMode) Valid() bool {
	return m == LongOnly || m == ShortOnly || m == Both
}

// Allows reports whether a position on side may be opened.
func (m TradingMode) Allows(side market.Side) bool {
	switch m {
	case LongOnly:
		return side.IsLong()
	case ShortOnly:
		return side.IsShort()
	case Both:
		return side.Valid()
	}
	return false
}

func (m TradingMode) String() string {
	switch m {
	case LongOnly:
		return "long"
	case ShortOnly:
		return "short"
	case Both:
		return "both"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

func (m TradingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TradingMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "0", "long", "long-only":
		*m = LongOnly
	case "1", "short", "short-only":
		*m = ShortOnly
	case "2", "both":
		*m = Both
	default:
		return fmt.Errorf("unknown trading mode %q (want 0/long, 1/short, 2/both)", string(b))
	}
	return nil
}

// StrategyParams are the knobs of a signal strategy. They are resolved once
// at startup and not changed afterwards.
type StrategyParams struct {
	SLPercent   float64 `yaml:"sl_percent,omitempty"`
	TPPercent   float64 `yaml:"tp_percent,omitempty"`
	EMAFast     int     `yaml:"ema_fast_length,omitempty"`
	EMASlow     int     `yaml:"ema_slow_length,omitempty"`
	KlineLimit  int     `yaml:"kline_limit,omitempty"`
	Interval    string  `yaml:"kline_interval,omitempty"`
	Category    string  `yaml:"category,omitempty"`
	MinTurnover float64 `yaml:"min_volume_24h,omitempty"`
	MaxTurnover float64 `yaml:"max_volume_24h,omitempty"`
	Quote       string  `yaml:"quote,omitempty"`
}

// DefaultParams returns the built-in parameters of a strategy type.
func DefaultParams(t StrategyType) (StrategyParams, error) {
	switch t {
	case StrategyEMA:
		return StrategyParams{
			SLPercent:   0.8,
			TPPercent:   1.0,
			EMAFast:     10,
			EMASlow:     20,
			KlineLimit:  200,
			Interval:    "60",
			Category:    string(market.CategoryLinear),
			MinTurnover: 150_000_000,
			MaxTurnover: 1_000_000_000_000,
			Quote:       "USDT",
		}, nil
	}
	return StrategyParams{}, fmt.Errorf("strategy type %d is not implemented", int(t))
}

// merge returns p with every non-zero field of o applied.
func (p StrategyParams) merge(o StrategyParams) StrategyParams {
	if o.SLPercent != 0 {
		p.SLPercent = o.SLPercent
	}
	if o.TPPercent != 0 {
		p.TPPercent = o.TPPercent
	}
	if o.EMAFast != 0 {
		p.EMAFast = o.EMAFast
	}
	if o.EMASlow != 0 {
		p.EMASlow = o.EMASlow
	}
	if o.KlineLimit != 0 {
		p.KlineLimit = o.KlineLimit
	}
	if o.Interval != "" {
		p.Interval = o.Interval
	}
	if o.Category != "" {
		p.Category = o.Category
	}
	if o.MinTurnover != 0 {
		p.MinTurnover = o.MinTurnover
	}
	if o.MaxTurnover != 0 {
		p.MaxTurnover = o.MaxTurnover
	}
	if o.Quote != "" {
		p.Quote = o.Quote
	}
	return p
}

// MarketCategory is Category parsed. Call Validate first.
func (p StrategyParams) MarketCategory() market.Category {
	c, _ := market.ParseCategory(p.Category)
	return c
}
