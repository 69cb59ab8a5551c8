package indicators

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomWalk(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	price := 100.0
	for i := range out {
		price *= 1 + (rng.Float64()-0.5)*0.08
		out[i] = price
	}
	return out
}

func TestRSI_Bounds(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		closes := randomWalk(seed, 120)
		rsi := RSI(closes, 14)
		require.Equal(t, 14, rsi.Offset)
		require.Len(t, rsi.Values, len(closes)-14)
		for _, v := range rsi.Values {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestRSI_EdgeCases(t *testing.T) {
	t.Run("only gains is 100", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		last, ok := RSI(closes, 14).Last()
		require.True(t, ok)
		assert.Equal(t, 100.0, last)
	})

	t.Run("only losses is 0", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = float64(100 - i)
		}
		last, ok := RSI(closes, 14).Last()
		require.True(t, ok)
		assert.Equal(t, 0.0, last)
	})

	t.Run("insufficient history", func(t *testing.T) {
		_, ok := RSI(make([]float64, 14), 14).Last()
		assert.False(t, ok)
	})

	t.Run("equal gains and losses is 50", func(t *testing.T) {
		closes := []float64{10, 11, 10, 11, 10}
		rsi := RSI(closes, 4)
		v, ok := rsi.At(4)
		require.True(t, ok)
		assert.InDelta(t, 50.0, v, 1e-9)
	})
}

func TestMACD(t *testing.T) {
	closes := randomWalk(7, 80)
	m := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	require.Len(t, m.Line, len(closes))
	require.Len(t, m.Signal, len(closes))
	require.Len(t, m.Histogram, len(closes))

	fast := EMA(closes, 12)
	slow := EMA(closes, 26)
	for i := range closes {
		assert.InDelta(t, fast[i]-slow[i], m.Line[i], 1e-9)
		assert.InDelta(t, m.Line[i]-m.Signal[i], m.Histogram[i], 1e-9)
	}
	assert.Equal(t, 0.0, m.Line[0], "both EMAs share the first seed")

	line, signal, hist, ok := m.Last()
	require.True(t, ok)
	assert.InDelta(t, line-signal, hist, 1e-12)

	_, _, _, ok = MACD(nil, 12, 26, 9).Last()
	assert.False(t, ok)
}

func TestStochRSI(t *testing.T) {
	closes := randomWalk(3, 100)
	st := StochRSI(closes, DefaultStochPeriod, DefaultStochK, DefaultStochD)
	require.Equal(t, 29, st.K.Offset)
	require.Equal(t, len(closes), st.K.Len())

	for seed := int64(1); seed <= 20; seed++ {
		st := StochRSI(randomWalk(seed, 120), DefaultStochPeriod, DefaultStochK, DefaultStochD)
		for _, v := range append(st.K.Values, st.D.Values...) {
			assert.GreaterOrEqual(t, v, 0.0, "seed %d", seed)
			assert.LessOrEqual(t, v, 100.0, "seed %d", seed)
		}
	}

	short := StochRSI(closes[:20], 14, 14, 3)
	_, ok := short.K.Last()
	assert.False(t, ok)
}

func TestClampPercent(t *testing.T) {
	got := clampPercent([]float64{-1.4210854715202004e-14, 0, 55.5, 100, 100.00000000000003})
	assert.Equal(t, []float64{0, 0, 55.5, 100, 100}, got)
}
