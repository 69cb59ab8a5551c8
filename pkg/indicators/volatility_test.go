package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBollinger(t *testing.T) {
	closes := randomWalk(11, 60)
	bb := Bollinger(closes, 20, 2)
	require.Equal(t, 19, bb.Upper.Offset)

	sma := SMA(closes, 20)
	sd := RollingStdDev(closes, 20)
	for i := 19; i < len(closes); i++ {
		u, ok := bb.Upper.At(i)
		require.True(t, ok)
		l, _ := bb.Lower.At(i)
		m, _ := sma.At(i)
		s, _ := sd.At(i)
		assert.InDelta(t, m+2*s, u, 1e-9)
		assert.InDelta(t, m-2*s, l, 1e-9)
		assert.LessOrEqual(t, l, u)
	}

	short := Bollinger(closes[:10], 20, 2)
	_, ok := short.Upper.Last()
	assert.False(t, ok)
}

func TestSqueeze(t *testing.T) {
	ratio, active := Squeeze(105, 95, 100)
	assert.InDelta(t, 10.0, ratio, 1e-12)
	assert.False(t, active, "10% is not below the threshold")

	ratio, active = Squeeze(104, 96, 100)
	assert.InDelta(t, 8.0, ratio, 1e-12)
	assert.True(t, active)

	ratio, active = Squeeze(104, 96, 0)
	assert.Equal(t, 0.0, ratio)
	assert.False(t, active)
}

func TestTrueRangeAndATR(t *testing.T) {
	highs := []float64{10, 12, 11, 15}
	lows := []float64{8, 9, 7, 12}
	closes := []float64{9, 11, 8, 14}

	tr := TrueRange(highs, lows, closes)
	// [10-8, max(3,|12-9|,|9-9|), max(4,|11-11|,|7-11|), max(3,|15-8|,|12-8|)]
	assert.InDeltaSlice(t, []float64{2, 3, 4, 7}, tr, 1e-12)

	atr := ATR(highs, lows, closes, 2)
	assert.Equal(t, 1, atr.Offset)
	assert.InDeltaSlice(t, []float64{2.5, 3.5, 5.5}, atr.Values, 1e-9)

	assert.InDelta(t, 5.0, ATRPercent(5, 100), 1e-12)
	assert.Equal(t, 0.0, ATRPercent(5, 0))
}
