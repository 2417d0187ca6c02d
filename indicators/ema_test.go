package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEMA_WarmupAndReady(t *testing.T) {
	t.Parallel()

	ema := NewEMA(3)

	require.False(t, ema.Ready())
	require.Equal(t, 3, ema.Warmup())
	require.Equal(t, "EMA(3)", ema.Name())

	ema.Update(1.0)
	require.False(t, ema.Ready())
	require.True(t, math.IsNaN(ema.Float64()))

	ema.Update(2.0)
	require.False(t, ema.Ready())

	ema.Update(3.0)
	require.True(t, ema.Ready())
	require.InDelta(t, 2.0, ema.Float64(), 1e-12)
}

func TestEMA_KnownSequence(t *testing.T) {
	t.Parallel()

	// period = 3, alpha = 0.5
	//
	// sequence: 10, 11, 12, 13, 14
	//
	// 1) NaN
	// 2) NaN
	// 3) seed = (10+11+12)/3 = 11
	// 4) 0.5*13 + 0.5*11 = 12
	// 5) 0.5*14 + 0.5*12 = 13
	got, err := EMASeries([]float64{10, 11, 12, 13, 14}, 3)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.True(t, math.IsNaN(got[0]))
	require.True(t, math.IsNaN(got[1]))
	require.InDelta(t, 11.0, got[2], 1e-12)
	require.InDelta(t, 12.0, got[3], 1e-12)
	require.InDelta(t, 13.0, got[4], 1e-12)
}

func TestEMA_Reset(t *testing.T) {
	t.Parallel()

	ema := NewEMA(2)
	ema.Update(10)
	ema.Update(20)
	require.True(t, ema.Ready())

	ema.Reset()
	require.False(t, ema.Ready())
	require.True(t, math.IsNaN(ema.Float64()))

	ema.Update(4)
	ema.Update(6)
	require.InDelta(t, 5.0, ema.Float64(), 1e-12)
}

func TestEMASeries_Errors(t *testing.T) {
	t.Parallel()

	_, err := EMASeries([]float64{1, 2, 3}, 0)
	require.Error(t, err)

	_, err = EMASeries([]float64{1, math.NaN(), 3}, 2)
	require.Error(t, err)
}

func TestEMASeries_ShortInputIsAllNaN(t *testing.T) {
	t.Parallel()

	got, err := EMASeries([]float64{1, 2}, 5)
	require.NoError(t, err)
	for _, v := range got {
		require.True(t, math.IsNaN(v))
	}
}

func TestNewEMA_PanicsOnBadPeriod(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewEMA(0) })
}
