package indicators

import (
	"fmt"
	"math"
)

// EMA computes an Exponential Moving Average over closing prices.
//
// The first Warmup()-1 outputs are NaN. The output at index period-1 is the
// simple average of the first period closes, and every later value uses
// ema = alpha*x + (1-alpha)*ema with alpha = 2/(period+1).
type EMA struct {
	n     int
	alpha float64

	seen  int
	sum   float64
	value float64

	name string
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMA{
		n:     period,
		alpha: 2.0 / float64(period+1),
		name:  fmt.Sprintf("EMA(%d)", period),
	}
}

func (e *EMA) Name() string { return e.name }
func (e *EMA) Warmup() int  { return e.n }
func (e *EMA) Ready() bool  { return e.seen >= e.n }

func (e *EMA) Float64() float64 {
	if !e.Ready() {
		return math.NaN()
	}
	return e.value
}

func (e *EMA) Reset() {
	e.seen = 0
	e.sum = 0
	e.value = 0
}

func (e *EMA) Update(x float64) {
	e.seen++
	switch {
	case e.seen < e.n:
		e.sum += x
	case e.seen == e.n:
		e.sum += x
		e.value = e.sum / float64(e.n)
	default:
		e.value = e.alpha*x + (1.0-e.alpha)*e.value
	}
}

// EMASeries returns the EMA of closes for every index.
func EMASeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	for i, x := range closes {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("close %d is not a finite number", i)
		}
	}
	return Series(NewEMA(period), closes), nil
}
