package bybit

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/trendbot/internal/wait"
	"github.com/rustyeddy/trendbot/market"
	"github.com/rustyeddy/trendbot/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	// MaxRetryDelay caps the doubling pause between price attempts.
	MaxRetryDelay = 5 * time.Minute
)

// API is the part of Client the gateway depends on.
type API interface {
	ListInstruments(ctx context.Context, category market.Category) ([]market.Ticker, error)
	Candles(ctx context.Context, symbol string, category market.Category, interval string, limit int) ([]market.Candle, error)
	LastPrice(ctx context.Context, symbol string, category market.Category) (decimal.Decimal, error)
}

type GatewayOptions struct {
	MaxRetries int
	RetryDelay time.Duration
	Sleep      wait.Sleeper
	Logger     *zap.Logger
}

// Gateway turns transport failures into "no data" so the trading loop can
// keep going. Only price lookups are retried.
type Gateway struct {
	api        API
	maxRetries int
	retryDelay time.Duration
	sleep      wait.Sleeper
	log        *zap.Logger
}

func NewGateway(api API, opts GatewayOptions) *Gateway {
	g := &Gateway{
		api:        api,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		sleep:      opts.Sleep,
		log:        opts.Logger,
	}
	if g.maxRetries < 1 {
		g.maxRetries = DefaultMaxRetries
	}
	if g.retryDelay <= 0 {
		g.retryDelay = DefaultRetryDelay
	}
	if g.sleep == nil {
		g.sleep = wait.Sleep
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}
	return g
}

// CurrentPrice returns the last price of symbol. Attempt n (from 0) that
// fails is followed by a pause of retryDelay * 2^n, except the last one.
// ok is false when every attempt failed or ctx was cancelled.
func (g *Gateway) CurrentPrice(ctx context.Context, symbol string, category market.Category) (decimal.Decimal, bool) {
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		p, err := g.api.LastPrice(ctx, symbol, category)
		if err == nil {
			return p, true
		}
		if ctx.Err() != nil {
			return decimal.Zero, false
		}

		fields := []zap.Field{
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", g.maxRetries),
			zap.Error(err),
		}
		var apiErr *APIError
		switch {
		case errors.Is(err, ErrEmptyResult):
			g.log.Warn("empty ticker list", fields...)
		case errors.As(err, &apiErr):
			g.log.Warn("exchange rejected price request", append(fields, zap.Int("ret_code", apiErr.Code))...)
		default:
			g.log.Warn("price request failed", fields...)
		}

		if attempt < g.maxRetries-1 {
			delay := backoff(g.retryDelay, attempt)
			g.log.Debug("waiting before retry", zap.Duration("delay", delay))
			if err := g.sleep(ctx, delay); err != nil {
				return decimal.Zero, false
			}
		}
	}

	metrics.PriceFetchFailures.Inc()
	g.log.Error("price unavailable", zap.String("symbol", symbol), zap.Int("attempts", g.maxRetries))
	return decimal.Zero, false
}

// backoff is base * 2^attempt, capped at MaxRetryDelay.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		if d >= MaxRetryDelay/2 {
			return MaxRetryDelay
		}
		d *= 2
	}
	return min(d, MaxRetryDelay)
}

// Symbols lists the instruments of category that pass filter. A failed
// listing yields no symbols.
func (g *Gateway) Symbols(ctx context.Context, category market.Category, filter market.InstrumentFilter) []string {
	tickers, err := g.api.ListInstruments(ctx, category)
	if err != nil {
		g.log.Warn("ticker listing failed", zap.String("category", string(category)), zap.Error(err))
		return nil
	}
	syms := filter.Symbols(tickers)
	g.log.Debug("universe", zap.Int("listed", len(tickers)), zap.Int("selected", len(syms)))
	return syms
}

// Candles returns bars for symbol oldest first, or nil on any failure.
func (g *Gateway) Candles(ctx context.Context, symbol string, category market.Category, interval string, limit int) []market.Candle {
	cs, err := g.api.Candles(ctx, symbol, category, interval, limit)
	if err != nil {
		g.log.Debug("candles unavailable", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	return cs
}
