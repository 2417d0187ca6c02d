// Package strategies turns market data into entry signals.
package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/trendbot/config"
	"github.com/rustyeddy/trendbot/internal/wait"
	"github.com/rustyeddy/trendbot/market"
	"go.uber.org/zap"
)

// Direction is the strength and sign of an entry signal.
type Direction string

const (
	StrongBuy  Direction = "STRONG_BUY"
	StrongSell Direction = "STRONG_SELL"
)

// Side is the position side a signal asks for.
func (d Direction) Side() market.Side {
	if d == StrongSell {
		return market.Short
	}
	return market.Long
}

// Signal asks the loop to open a position. It is never persisted.
type Signal struct {
	Symbol    string
	Direction Direction
	Category  market.Category
}

// Source finds at most one entry signal per call. A nil signal with a nil
// error means nothing qualified.
type Source interface {
	FindEntrySignal(ctx context.Context) (*Signal, error)
}

// DefaultScanPause spaces out candle requests while scanning the universe.
const DefaultScanPause = 500 * time.Millisecond

type Options struct {
	ScanPause time.Duration
	Sleep     wait.Sleeper
	Logger    *zap.Logger
}

// New builds the signal source for a strategy type.
func New(t config.StrategyType, p config.StrategyParams, md MarketData, opts Options) (Source, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("strategy %s: %w", t, err)
	}

	switch t {
	case config.StrategyEMA:
		return NewEMACross(NewUniverse(md, p), p.EMAFast, p.EMASlow, opts), nil

	default:
		return nil, fmt.Errorf("unknown strategy %s (supported: ema)", t)
	}
}
