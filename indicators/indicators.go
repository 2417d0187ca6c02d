// Package indicators provides technical analysis indicators for trading
package indicators

// Indicator computes a single streaming value from closing prices.
// It is deterministic and safe to use on a live candle series or in tests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed price.
	Update(x float64)

	// Ready reports whether Float64() is meaningful (warmup completed).
	Ready() bool

	// Float64 returns the current value, or NaN while warming up.
	Float64() float64
}

// Series runs ind over xs from a clean state and returns one value per input.
// Values produced before the indicator is ready are NaN.
func Series(ind Indicator, xs []float64) []float64 {
	ind.Reset()
	out := make([]float64, len(xs))
	for i, x := range xs {
		ind.Update(x)
		out[i] = ind.Float64()
	}
	return out
}
