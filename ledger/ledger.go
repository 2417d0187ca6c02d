// Package ledger owns the simulated account: the persisted cash balance, the
// single open position, fee accounting and the closed trade history.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rustyeddy/trendbot/journal"
	"github.com/rustyeddy/trendbot/market"
	"github.com/rustyeddy/trendbot/metrics"
	"github.com/rustyeddy/trendbot/pkg/id"
	"github.com/rustyeddy/trendbot/risk"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Position is the one trade the ledger may hold open.
type Position struct {
	Symbol     string
	Side       market.Side
	EntryPrice decimal.Decimal
	Volume     decimal.Decimal
	EntryFee   decimal.Decimal
	OpenTime   time.Time
	Category   market.Category
}

// Notional is the quote value of the position at entry.
func (p Position) Notional() decimal.Decimal {
	return p.EntryPrice.Mul(p.Volume)
}

// Trade is the outcome of a close: the journal record plus fee figures.
type Trade struct {
	journal.TradeRecord
	ExitFee    decimal.Decimal
	NetPnL     decimal.Decimal
	// PnLPercent is gross PnL over the entry notional.
	PnLPercent decimal.Decimal
}

type Options struct {
	Store          *BalanceStore
	Journal        journal.Journal
	Fees           Fees
	DefaultBalance decimal.Decimal
	Logger         *zap.Logger
	Now            func() time.Time
}

// Ledger is used from a single goroutine and holds no locks.
type Ledger struct {
	store   *BalanceStore
	journal journal.Journal
	fees    Fees
	def     decimal.Decimal
	log     *zap.Logger
	now     func() time.Time

	balance decimal.Decimal
	pos     *Position
}

// New builds a ledger and loads the balance from its store.
func New(opts Options) *Ledger {
	l := &Ledger{
		store:   opts.Store,
		journal: opts.Journal,
		fees:    opts.Fees,
		def:     opts.DefaultBalance,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	l.balance = l.LoadBalance()
	return l
}

// LoadBalance reads the persisted balance. A missing or malformed file is
// reset to the default balance, which is then returned. A negative balance
// left by a losing close is kept.
func (l *Ledger) LoadBalance() decimal.Decimal {
	v, err := l.store.Load()
	if err == nil {
		if v.IsNegative() {
			l.log.Warn("stored balance is negative, new entries will be refused",
				zap.String("file", l.store.Path()), zap.String("balance", v.StringFixed(2)))
		}
		l.log.Info("balance loaded", zap.String("file", l.store.Path()), zap.String("balance", v.StringFixed(2)))
		metrics.Balance.Set(v.InexactFloat64())
		return v
	}

	if errors.Is(err, fs.ErrNotExist) {
		l.log.Info("balance file not found, starting from default",
			zap.String("file", l.store.Path()), zap.String("balance", l.def.StringFixed(2)))
	} else {
		l.log.Warn("balance file unreadable, resetting to default",
			zap.String("file", l.store.Path()), zap.String("balance", l.def.StringFixed(2)), zap.Error(err))
	}
	if err := l.store.Save(l.def); err != nil {
		l.log.Error("cannot write default balance", zap.Error(err))
	}
	metrics.Balance.Set(l.def.InexactFloat64())
	return l.def
}

func (l *Ledger) Balance() decimal.Decimal { return l.balance }

// Position returns the open position, if any.
func (l *Ledger) Position() (Position, bool) {
	if l.pos == nil {
		return Position{}, false
	}
	return *l.pos, true
}

// EntryFee is what Open would charge for this price and volume.
func (l *Ledger) EntryFee(entryPrice, volume decimal.Decimal) decimal.Decimal {
	return Fee(entryPrice, volume, l.fees.EntryRate())
}

// Open books a new position and charges the entry fee. It panics if a
// position is already open; callers must check Position first.
func (l *Ledger) Open(symbol string, side market.Side, entryPrice, volume decimal.Decimal, category market.Category) (Position, error) {
	if l.pos != nil {
		panic(fmt.Sprintf("ledger: open %s while %s is still open", symbol, l.pos.Symbol))
	}
	if !side.Valid() {
		panic(fmt.Sprintf("ledger: invalid side %q", side))
	}
	if !entryPrice.IsPositive() || !volume.IsPositive() {
		panic(fmt.Sprintf("ledger: non-positive entry price %s or volume %s", entryPrice, volume))
	}

	fee := l.EntryFee(entryPrice, volume)
	pos := Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Volume:     volume,
		EntryFee:   fee,
		OpenTime:   l.now(),
		Category:   category,
	}
	l.pos = &pos
	l.balance = l.balance.Sub(fee)
	metrics.Balance.Set(l.balance.InexactFloat64())
	metrics.Trades.WithLabelValues("open").Inc()

	action := "debited (taker)"
	if fee.IsNegative() {
		action = "added (maker rebate)"
	} else if l.fees.EntryKind == Maker {
		action = "debited (maker)"
	}
	l.log.Info("position opened",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("volume", volume.StringFixed(4)),
		zap.String("price", entryPrice.StringFixed(4)),
		zap.String("fee", fee.Abs().StringFixed(4)),
		zap.String("fee_action", action),
		zap.String("balance", l.balance.StringFixed(2)),
	)

	if err := l.store.Save(l.balance); err != nil {
		return pos, fmt.Errorf("persist balance after open: %w", err)
	}
	return pos, nil
}

// Close settles the open position at closePrice. It returns nil, nil when
// nothing is open. The position is cleared even when persisting fails.
func (l *Ledger) Close(closePrice decimal.Decimal, reason risk.ExitReason) (*Trade, error) {
	if l.pos == nil {
		return nil, nil
	}
	pos := *l.pos

	var gross decimal.Decimal
	if pos.Side.IsShort() {
		gross = pos.EntryPrice.Sub(closePrice).Mul(pos.Volume)
	} else {
		gross = closePrice.Sub(pos.EntryPrice).Mul(pos.Volume)
	}
	exitFee := Fee(closePrice, pos.Volume, l.fees.ExitRate())
	l.balance = l.balance.Add(gross).Sub(exitFee)
	closedAt := l.now()

	trade := &Trade{
		TradeRecord: journal.TradeRecord{
			TradeID:    id.At(closedAt),
			Symbol:     pos.Symbol,
			Side:       pos.Side,
			EntryPrice: pos.EntryPrice,
			ClosePrice: closePrice,
			Volume:     pos.Volume,
			PnL:        gross,
			NewBalance: l.balance,
			OpenTime:   pos.OpenTime,
			CloseTime:  closedAt,
			Reason:     string(reason),
		},
		ExitFee:    exitFee,
		NetPnL:     gross.Sub(exitFee),
		PnLPercent: PnLPercent(gross, pos.Notional()),
	}
	l.pos = nil

	var errs []error
	if err := l.journal.RecordTrade(trade.TradeRecord); err != nil {
		errs = append(errs, fmt.Errorf("record trade: %w", err))
	}
	if err := l.store.Save(l.balance); err != nil {
		errs = append(errs, fmt.Errorf("persist balance after close: %w", err))
	}

	result := "win"
	if gross.IsNegative() {
		result = "loss"
	}
	metrics.Trades.WithLabelValues(result).Inc()
	metrics.ExitReasons.WithLabelValues(string(reason), string(pos.Side)).Inc()
	metrics.Balance.Set(l.balance.InexactFloat64())

	l.log.Info("trade closed",
		zap.String("result", result),
		zap.String("symbol", pos.Symbol),
		zap.String("side", string(pos.Side)),
		zap.String("reason", string(reason)),
		zap.String("gross_pnl", gross.StringFixed(2)),
		zap.String("gross_pnl_pct", trade.PnLPercent.StringFixed(2)),
		zap.String("net_pnl", trade.NetPnL.StringFixed(2)),
		zap.String("net_pnl_pct", PnLPercent(trade.NetPnL, pos.Notional()).StringFixed(2)),
		zap.String("exit_fee", exitFee.StringFixed(4)),
		zap.String("entry", pos.EntryPrice.StringFixed(8)),
		zap.String("exit", closePrice.StringFixed(8)),
		zap.String("balance", l.balance.StringFixed(2)),
		zap.Time("closed_at", closedAt),
	)

	if l.balance.IsNegative() {
		l.log.Warn("balance went negative",
			zap.String("symbol", pos.Symbol),
			zap.String("balance", l.balance.StringFixed(2)),
		)
	}

	return trade, errors.Join(errs...)
}

// PnLPercent is pnl relative to the entry notional, or zero for a zero notional.
func PnLPercent(pnl, notional decimal.Decimal) decimal.Decimal {
	if !notional.IsPositive() {
		return decimal.Zero
	}
	return pnl.Div(notional).Mul(hundred)
}
