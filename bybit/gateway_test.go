package bybit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rustyeddy/trendbot/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	prices  []error
	price   decimal.Decimal
	calls   int
	tickers []market.Ticker
	listErr error
	candles []market.Candle
	candErr error
}

func (f *fakeAPI) ListInstruments(ctx context.Context, category market.Category) ([]market.Ticker, error) {
	return f.tickers, f.listErr
}

func (f *fakeAPI) Candles(ctx context.Context, symbol string, category market.Category, interval string, limit int) ([]market.Candle, error) {
	return f.candles, f.candErr
}

// LastPrice fails with prices[i] on call i while entries remain.
func (f *fakeAPI) LastPrice(ctx context.Context, symbol string, category market.Category) (decimal.Decimal, error) {
	i := f.calls
	f.calls++
	if i < len(f.prices) && f.prices[i] != nil {
		return decimal.Zero, f.prices[i]
	}
	return f.price, nil
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

func TestCurrentPriceGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{prices: []error{ErrEmptyResult, ErrEmptyResult, ErrEmptyResult}}
	rec := &sleepRecorder{}
	g := NewGateway(api, GatewayOptions{MaxRetries: 3, RetryDelay: time.Second, Sleep: rec.sleep})

	p, ok := g.CurrentPrice(context.Background(), "BTCUSDT", market.CategoryLinear)
	assert.False(t, ok)
	assert.True(t, p.IsZero())
	assert.Equal(t, 3, api.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.slept)
}

func TestCurrentPriceRecovers(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		prices: []error{&APIError{Code: 10006, Msg: "too many visits"}},
		price:  decimal.RequireFromString("42.5"),
	}
	rec := &sleepRecorder{}
	g := NewGateway(api, GatewayOptions{MaxRetries: 3, RetryDelay: time.Second, Sleep: rec.sleep})

	p, ok := g.CurrentPrice(context.Background(), "BTCUSDT", market.CategoryLinear)
	require.True(t, ok)
	assert.True(t, p.Equal(decimal.RequireFromString("42.5")))
	assert.Equal(t, 2, api.calls)
	assert.Equal(t, []time.Duration{time.Second}, rec.slept)
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{time.Second, 0, time.Second},
		{time.Second, 1, 2 * time.Second},
		{time.Second, 5, 32 * time.Second},
		{time.Second, 9, MaxRetryDelay},
		{time.Second, 40, MaxRetryDelay},
		{time.Second, 100, MaxRetryDelay},
		{10 * time.Minute, 0, MaxRetryDelay},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("%s x%d", tt.base, tt.attempt), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, backoff(tt.base, tt.attempt))
		})
	}
}

func TestCurrentPriceManyRetriesStayCapped(t *testing.T) {
	t.Parallel()

	errs := make([]error, 40)
	for i := range errs {
		errs[i] = ErrEmptyResult
	}
	api := &fakeAPI{prices: errs}
	rec := &sleepRecorder{}
	g := NewGateway(api, GatewayOptions{MaxRetries: 40, RetryDelay: time.Second, Sleep: rec.sleep})

	_, ok := g.CurrentPrice(context.Background(), "BTCUSDT", market.CategoryLinear)
	assert.False(t, ok)
	require.Len(t, rec.slept, 39)
	for i, d := range rec.slept {
		assert.GreaterOrEqual(t, d, time.Second, "sleep %d", i)
		assert.LessOrEqual(t, d, MaxRetryDelay, "sleep %d", i)
	}
	assert.Equal(t, MaxRetryDelay, rec.slept[38])
}

func TestCurrentPriceStopsOnCancel(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{prices: []error{errors.New("dial tcp"), errors.New("dial tcp"), errors.New("dial tcp")}}
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGateway(api, GatewayOptions{MaxRetries: 3, Sleep: func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}})

	_, ok := g.CurrentPrice(ctx, "BTCUSDT", market.CategoryLinear)
	assert.False(t, ok)
	assert.Equal(t, 1, api.calls)
}

func TestGatewaySymbolsFilters(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{tickers: []market.Ticker{
		{Symbol: "BTCUSDT", Turnover24h: decimal.NewFromInt(500_000_000)},
		{Symbol: "BTCUPUSDT", Turnover24h: decimal.NewFromInt(500_000_000)},
		{Symbol: "ETHUSDT", Turnover24h: decimal.NewFromInt(1)},
		{Symbol: "SOLUSDT", Turnover24h: decimal.NewFromInt(200_000_000)},
	}}
	g := NewGateway(api, GatewayOptions{})
	filter := market.InstrumentFilter{
		Quote:       "USDT",
		MinTurnover: decimal.NewFromInt(150_000_000),
		MaxTurnover: decimal.NewFromInt(1_000_000_000_000),
	}

	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, g.Symbols(context.Background(), market.CategoryLinear, filter))

	api.listErr = errors.New("boom")
	assert.Empty(t, g.Symbols(context.Background(), market.CategoryLinear, filter))
}

func TestGatewayCandlesDegrade(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{candErr: ErrEmptyResult}
	g := NewGateway(api, GatewayOptions{})
	assert.Nil(t, g.Candles(context.Background(), "BTCUSDT", market.CategoryLinear, "60", 200))
}
