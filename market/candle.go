package market

import (
	"sort"
	"time"
)

// Candle is one OHLC bar as returned by the exchange kline endpoint.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Turnover float64
}

// Closes returns the closing prices in candle order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SortByOpenTime orders candles oldest first.
func SortByOpenTime(candles []Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
}
