package strategies

import (
	"context"
	"math"
	"time"

	"github.com/rustyeddy/trendbot/indicators"
	"github.com/rustyeddy/trendbot/internal/wait"
	"github.com/rustyeddy/trendbot/market"
	"github.com/rustyeddy/trendbot/metrics"
	"go.uber.org/zap"
)

// EMACross signals when the fast EMA crosses the slow EMA on the latest
// closed bar of an instrument.
//   - bull cross: fast goes from <= slow to > slow
//   - bear cross: fast goes from >= slow to < slow
type EMACross struct {
	Universe
	Fast int
	Slow int

	pause time.Duration
	sleep wait.Sleeper
	log   *zap.Logger
}

func NewEMACross(u Universe, fast, slow int, opts Options) *EMACross {
	s := &EMACross{
		Universe: u,
		Fast:     fast,
		Slow:     slow,
		pause:    opts.ScanPause,
		sleep:    opts.Sleep,
		log:      opts.Logger,
	}
	if s.sleep == nil {
		s.sleep = wait.Sleep
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// MinCandles is the shortest history a crossover can be read from.
func (s *EMACross) MinCandles() int {
	return max(s.Fast, s.Slow) + 1
}

// FindEntrySignal walks the universe in order and returns the first
// instrument with a crossover on its last bar.
func (s *EMACross) FindEntrySignal(ctx context.Context) (*Signal, error) {
	symbols := s.Symbols(ctx)
	s.log.Debug("scanning", zap.Int("symbols", len(symbols)))

	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && s.pause > 0 {
			if err := s.sleep(ctx, s.pause); err != nil {
				return nil, err
			}
		}

		dir, ok := s.crossover(sym, s.Candles(ctx, sym))
		if !ok {
			continue
		}

		metrics.Signals.WithLabelValues(string(dir)).Inc()
		s.log.Info("ema crossover",
			zap.String("symbol", sym),
			zap.String("direction", string(dir)),
			zap.Int("fast", s.Fast),
			zap.Int("slow", s.Slow),
		)
		return &Signal{Symbol: sym, Direction: dir, Category: s.Category}, nil
	}
	return nil, nil
}

func (s *EMACross) crossover(sym string, candles []market.Candle) (Direction, bool) {
	if len(candles) < s.MinCandles() {
		s.log.Debug("skip: not enough candles", zap.String("symbol", sym), zap.Int("candles", len(candles)))
		return "", false
	}

	closes := market.Closes(candles)
	fast, err := indicators.EMASeries(closes, s.Fast)
	if err != nil {
		s.log.Debug("skip: fast ema", zap.String("symbol", sym), zap.Error(err))
		return "", false
	}
	slow, err := indicators.EMASeries(closes, s.Slow)
	if err != nil {
		s.log.Debug("skip: slow ema", zap.String("symbol", sym), zap.Error(err))
		return "", false
	}

	n := len(closes)
	fNow, sNow := fast[n-1], slow[n-1]
	fPrev, sPrev := fast[n-2], slow[n-2]
	for _, v := range []float64{fNow, sNow, fPrev, sPrev} {
		if math.IsNaN(v) {
			s.log.Debug("skip: ema not ready", zap.String("symbol", sym))
			return "", false
		}
	}

	switch {
	case fNow > sNow && fPrev <= sPrev:
		return StrongBuy, true
	case fNow < sNow && fPrev >= sPrev:
		return StrongSell, true
	}
	return "", false
}
