// Package bot runs the trading loop: search for an entry signal while flat,
// watch take-profit and stop-loss while a position is open.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/trendbot/config"
	"github.com/rustyeddy/trendbot/internal/wait"
	"github.com/rustyeddy/trendbot/ledger"
	"github.com/rustyeddy/trendbot/market"
	"github.com/rustyeddy/trendbot/metrics"
	"github.com/rustyeddy/trendbot/risk"
	"github.com/rustyeddy/trendbot/strategies"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// State is derived from the ledger; it is never stored.
type State string

const (
	Searching State = "SEARCHING"
	Managing  State = "MANAGING"
)

// Pauses between loop iterations.
type Pauses struct {
	Managing  time.Duration
	Searching time.Duration
	Mismatch  time.Duration
	Error     time.Duration
}

func DefaultPauses() Pauses {
	return Pauses{
		Managing:  13 * time.Second,
		Searching: 10 * time.Second,
		Mismatch:  5 * time.Second,
		Error:     18 * time.Second,
	}
}

// PriceSource returns the current price, or ok=false when none could be had.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string, category market.Category) (decimal.Decimal, bool)
}

type Options struct {
	Source   strategies.Source
	Prices   PriceSource
	Ledger   *ledger.Ledger
	Params   config.StrategyParams
	Mode     config.TradingMode
	RiskUSDT decimal.Decimal
	// Policy holds pre-trade limits; the zero value only checks the balance.
	Policy risk.Policy
	// Pauses defaults to DefaultPauses when zero.
	Pauses Pauses
	Sleep  wait.Sleeper
	Logger *zap.Logger
}

type Bot struct {
	source   strategies.Source
	prices   PriceSource
	ledger   *ledger.Ledger
	category market.Category
	sl       decimal.Decimal
	tp       decimal.Decimal
	mode     config.TradingMode
	riskUSDT decimal.Decimal
	policy   risk.Policy
	pauses   Pauses
	sleep    wait.Sleeper
	log      *zap.Logger
}

func New(opts Options) *Bot {
	b := &Bot{
		source:   opts.Source,
		prices:   opts.Prices,
		ledger:   opts.Ledger,
		category: opts.Params.MarketCategory(),
		sl:       decimal.NewFromFloat(opts.Params.SLPercent),
		tp:       decimal.NewFromFloat(opts.Params.TPPercent),
		mode:     opts.Mode,
		riskUSDT: opts.RiskUSDT,
		policy:   opts.Policy,
		pauses:   opts.Pauses,
		sleep:    opts.Sleep,
		log:      opts.Logger,
	}
	if b.pauses == (Pauses{}) {
		b.pauses = DefaultPauses()
	}
	if b.sleep == nil {
		b.sleep = wait.Sleep
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return b
}

func (b *Bot) State() State {
	if _, open := b.ledger.Position(); open {
		return Managing
	}
	return Searching
}

// Run loops until ctx is cancelled. Iteration errors and panics are logged
// and followed by the error pause; they never stop the loop.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("trading loop started",
		zap.String("mode", b.mode.String()),
		zap.String("risk_usdt", b.riskUSDT.String()),
		zap.String("category", string(b.category)),
		zap.String("balance", b.ledger.Balance().StringFixed(2)),
	)

	for {
		pause, err := b.Step(ctx)
		if ctx.Err() != nil {
			b.log.Info("trading loop stopped")
			return nil
		}
		if err != nil {
			metrics.LoopErrors.Inc()
			b.log.Error("iteration failed", zap.Error(err), zap.Duration("pause", pause))
		}
		if err := b.sleep(ctx, pause); err != nil {
			b.log.Info("trading loop stopped")
			return nil
		}
	}
}

// Step runs one iteration and returns how long to pause before the next.
func (b *Bot) Step(ctx context.Context) (pause time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			pause = b.pauses.Error
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if pos, open := b.ledger.Position(); open {
		if err := b.manage(ctx, pos); err != nil {
			return b.pauses.Error, err
		}
		return b.pauses.Managing, nil
	}
	return b.search(ctx)
}

func (b *Bot) manage(ctx context.Context, pos ledger.Position) error {
	price, ok := b.prices.CurrentPrice(ctx, pos.Symbol, pos.Category)
	if !ok {
		b.log.Warn("no price for open position", zap.String("symbol", pos.Symbol))
		return nil
	}

	levels := risk.NewLevels(pos.Side, pos.EntryPrice, b.tp, b.sl)
	reason, hit := levels.Exit(price)
	if !hit {
		b.log.Info("waiting",
			zap.String("symbol", pos.Symbol),
			zap.String("side", string(pos.Side)),
			zap.String("price", price.StringFixed(4)),
			zap.String("entry", pos.EntryPrice.StringFixed(4)),
			zap.String("take_profit", levels.TakeProfit.StringFixed(4)),
			zap.String("stop_loss", levels.StopLoss.StringFixed(4)),
		)
		return nil
	}

	if _, err := b.ledger.Close(price, reason); err != nil {
		return fmt.Errorf("close %s: %w", pos.Symbol, err)
	}
	return nil
}

func (b *Bot) search(ctx context.Context) (time.Duration, error) {
	b.log.Info("searching for signal")

	sig, err := b.source.FindEntrySignal(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return b.pauses.Error, fmt.Errorf("find signal: %w", err)
	}
	if sig == nil {
		return b.pauses.Searching, nil
	}

	if sig.Category != b.category {
		b.log.Warn("signal category does not match strategy, skipping",
			zap.String("symbol", sig.Symbol),
			zap.String("signal_category", string(sig.Category)),
			zap.String("category", string(b.category)),
		)
		return b.pauses.Mismatch, nil
	}

	side := sig.Direction.Side()
	if !b.mode.Allows(side) {
		b.log.Info("signal ignored by trading mode",
			zap.String("symbol", sig.Symbol),
			zap.String("side", string(side)),
			zap.String("mode", b.mode.String()),
		)
		return b.pauses.Searching, nil
	}

	price, ok := b.prices.CurrentPrice(ctx, sig.Symbol, sig.Category)
	if !ok {
		return b.pauses.Searching, nil
	}

	volume := risk.CalculateVolume(b.riskUSDT, price, b.sl)
	if !volume.IsPositive() {
		b.log.Warn("zero volume, not entering", zap.String("symbol", sig.Symbol), zap.String("price", price.String()))
		return b.pauses.Searching, nil
	}

	dec := risk.Evaluate(b.policy, risk.EntryIntent{
		Symbol:    sig.Symbol,
		Entry:     price,
		Volume:    volume,
		SLPercent: b.sl,
		TPPercent: b.tp,
		EntryFee:  b.ledger.EntryFee(price, volume),
	}, b.ledger.Balance())
	if !dec.Allowed {
		metrics.EntriesRejected.Inc()
		b.log.Warn("entry rejected by risk checks",
			zap.String("symbol", sig.Symbol),
			zap.Strings("violations", dec.Codes()),
			zap.String("planned_risk", dec.PlannedRisk.StringFixed(4)),
			zap.String("balance", b.ledger.Balance().StringFixed(2)),
		)
		return b.pauses.Searching, nil
	}

	if _, err := b.ledger.Open(sig.Symbol, side, price, volume, sig.Category); err != nil {
		return b.pauses.Error, fmt.Errorf("open %s: %w", sig.Symbol, err)
	}
	b.log.Info("trade entry",
		zap.String("symbol", sig.Symbol),
		zap.String("side", string(side)),
		zap.String("price", price.StringFixed(4)),
		zap.String("volume", volume.StringFixed(4)),
	)
	return b.pauses.Searching, nil
}
