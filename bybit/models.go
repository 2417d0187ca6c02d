package bybit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/trendbot/market"
	"github.com/shopspring/decimal"
)

// ErrEmptyResult is returned when a successful response carries no rows.
var ErrEmptyResult = errors.New("bybit: empty result")

// APIError is a response with a non-zero retCode.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit: retCode %d: %s", e.Code, e.Msg)
}

// envelope is the common v5 response wrapper.
type envelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
	Time    int64  `json:"time"`
}

type tickerItem struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	Turnover24h string `json:"turnover24h"`
}

type tickerResult struct {
	Category string       `json:"category"`
	List     []tickerItem `json:"list"`
}

func (t tickerItem) ticker() (market.Ticker, error) {
	last, err := parseDecimal(t.LastPrice)
	if err != nil {
		return market.Ticker{}, fmt.Errorf("%s lastPrice: %w", t.Symbol, err)
	}
	turnover, err := parseDecimal(t.Turnover24h)
	if err != nil {
		return market.Ticker{}, fmt.Errorf("%s turnover24h: %w", t.Symbol, err)
	}
	return market.Ticker{Symbol: t.Symbol, LastPrice: last, Turnover24h: turnover}, nil
}

// kline is one row of /v5/market/kline:
// [startTime, open, high, low, close, volume, turnover], all strings.
type kline struct {
	market.Candle
}

func (k *kline) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) < 7 {
		return fmt.Errorf("invalid kline array length: %d", len(arr))
	}

	ms, err := strconv.ParseInt(arr[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse startTime: %w", err)
	}
	k.OpenTime = time.UnixMilli(ms).UTC()

	fields := []*float64{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume, &k.Turnover}
	names := []string{"open", "high", "low", "close", "volume", "turnover"}
	for i, dst := range fields {
		if *dst, err = strconv.ParseFloat(arr[i+1], 64); err != nil {
			return fmt.Errorf("parse %s: %w", names[i], err)
		}
	}
	return nil
}

type klineResult struct {
	Symbol   string  `json:"symbol"`
	Category string  `json:"category"`
	List     []kline `json:"list"`
}

// parseDecimal treats an empty string as zero, which is how the exchange
// reports fields that do not apply to a market.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
