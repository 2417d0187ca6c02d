// Package bybit reads public market data from the Bybit v5 REST API.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/trendbot/market"
	"github.com/shopspring/decimal"
)

const (
	MainnetURL = "https://api.bybit.com"
	TestnetURL = "https://api-testnet.bybit.com"

	DefaultTimeout = 30 * time.Second
)

type Options struct {
	APIKey    string
	APISecret string
	Testnet   bool
	// BaseURL overrides the mainnet/testnet selection.
	BaseURL string
	Timeout time.Duration
}

// Client talks to the public market endpoints. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewClient(opts Options) (*Client, error) {
	base := MainnetURL
	if opts.Testnet {
		base = TestnetURL
	}
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", base, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: base,
		apiKey:  opts.APIKey,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListInstruments returns the 24h tickers of every instrument in category,
// in the order the exchange lists them.
func (c *Client) ListInstruments(ctx context.Context, category market.Category) ([]market.Ticker, error) {
	var res tickerResult
	params := url.Values{"category": {string(category)}}
	if err := c.get(ctx, "/v5/market/tickers", params, &res); err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}

	out := make([]market.Ticker, 0, len(res.List))
	for _, item := range res.List {
		t, err := item.ticker()
		if err != nil {
			return nil, fmt.Errorf("list instruments: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Candles returns up to limit bars for symbol, oldest first.
func (c *Client) Candles(ctx context.Context, symbol string, category market.Category, interval string, limit int) ([]market.Candle, error) {
	var res klineResult
	params := url.Values{
		"category": {string(category)},
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	if err := c.get(ctx, "/v5/market/kline", params, &res); err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	if len(res.List) == 0 {
		return nil, fmt.Errorf("candles %s: %w", symbol, ErrEmptyResult)
	}

	out := make([]market.Candle, len(res.List))
	for i, k := range res.List {
		out[i] = k.Candle
	}
	market.SortByOpenTime(out)
	return out, nil
}

// LastPrice returns the last traded price of symbol.
func (c *Client) LastPrice(ctx context.Context, symbol string, category market.Category) (decimal.Decimal, error) {
	var res tickerResult
	params := url.Values{"category": {string(category)}, "symbol": {symbol}}
	if err := c.get(ctx, "/v5/market/tickers", params, &res); err != nil {
		return decimal.Zero, fmt.Errorf("last price %s: %w", symbol, err)
	}
	if len(res.List) == 0 {
		return decimal.Zero, fmt.Errorf("last price %s: %w", symbol, ErrEmptyResult)
	}
	p, err := parseDecimal(res.List[0].LastPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("last price %s: %w", symbol, err)
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("last price %s: %w", symbol, ErrEmptyResult)
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http error %d: %s", resp.StatusCode, string(body))
	}

	env := envelope[json.RawMessage]{}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.RetCode != 0 {
		return &APIError{Code: env.RetCode, Msg: env.RetMsg}
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return ErrEmptyResult
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
