package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/internal/domain/domaintest"
	"github.com/vadiminshakov/riskgate/internal/services/market/levels"
	"go.uber.org/zap"
)

var now = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func waveCloses(n int, base float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + 10*math.Sin(float64(i)/5) + float64(i)*0.2
	}
	return closes
}

func TestComputeIndicators_InsufficientHistory(t *testing.T) {
	series := domaintest.Series(t, domaintest.EndingOn(now, 59), domaintest.FromCloses(waveCloses(59, 100), 1000))

	got := NewMarketAnalyzer(zap.NewNop(), nil).ComputeIndicators(series, domain.CandleSeries{}, now)
	assert.Nil(t, got)
}

func TestComputeIndicators(t *testing.T) {
	const n = 90
	series := domaintest.Series(t, domaintest.EndingOn(now, n), domaintest.FromCloses(waveCloses(n, 100), 1000))
	reference := domaintest.Series(t, domaintest.EndingOn(now, n), domaintest.FromCloses(waveCloses(n, 60000), 50))

	snap := NewMarketAnalyzer(zap.NewNop(), nil).ComputeIndicators(series, reference, now)
	require.NotNil(t, snap)

	last, _ := series.Last()
	assert.Equal(t, last.OpenTime, snap.Timestamp)
	assert.InDelta(t, last.Close.InexactFloat64(), snap.Price, 1e-9)

	for name, v := range map[string]*float64{
		"ema20":          snap.EMA20,
		"ema50":          snap.EMA50,
		"high_14d":       snap.High14D,
		"low_14d":        snap.Low14D,
		"rsi14":          snap.RSI14,
		"macd_line":      snap.MACDLine,
		"macd_signal":    snap.MACDSignal,
		"macd_histogram": snap.MACDHistogram,
		"stoch_rsi_k":    snap.StochRSIK,
		"stoch_rsi_d":    snap.StochRSID,
		"bb_upper":       snap.BBUpper,
		"bb_middle":      snap.BBMiddle,
		"bb_lower":       snap.BBLower,
		"bb_squeeze":     snap.BBSqueezeRatio,
		"atr":            snap.ATR,
		"atr_percent":    snap.ATRPercent,
		"volume_ma20":    snap.VolumeMA20,
		"fib_382":        snap.Fib382,
		"fib_618":        snap.Fib618,
		"pivot_weekly":   snap.PivotWeekly,
		"range_position": snap.RangePosition14D,
		"correlation":    snap.Correlation,
		"btc_change_30d": snap.ReferenceChange30D,
	} {
		assert.NotNil(t, v, name)
	}
	assert.Nil(t, snap.EMA200, "ema200 needs 200 candles")

	require.NotNil(t, snap.RSI14)
	assert.GreaterOrEqual(t, *snap.RSI14, 0.0)
	assert.LessOrEqual(t, *snap.RSI14, 100.0)
	assert.GreaterOrEqual(t, *snap.High14D, *snap.Low14D)
	assert.Greater(t, *snap.Fib382, *snap.Fib618)

	assert.InDelta(t, RangePosition(snap.Price, *snap.High14D, *snap.Low14D), *snap.RangePosition14D, 1e-12)
	assert.GreaterOrEqual(t, *snap.RangePosition14D, 0.0)
	assert.LessOrEqual(t, *snap.RangePosition14D, 1.0)

	require.Len(t, snap.FibLevels, len(levels.FibonacciRatios))
	assert.InDelta(t, *snap.Fib382, snap.FibLevels[2], 1e-9)
	assert.InDelta(t, *snap.Fib618, snap.FibLevels[4], 1e-9)

	prev := series.At(n - 2)
	require.NotNil(t, snap.Pivots)
	assert.InDelta(t, (prev.High.InexactFloat64()+prev.Low.InexactFloat64()+prev.Close.InexactFloat64())/3, snap.Pivots.Pivot, 1e-9)
	assert.Greater(t, snap.Pivots.R1, snap.Pivots.S1)

	require.NotNil(t, snap.ReferenceTrend)
	require.NotNil(t, snap.Correlation)
	assert.InDelta(t, 1.0, *snap.Correlation, 1e-6, "same shape, different scale")

	// the last candle is dated today, so volume stats use one candle fewer
	require.NotNil(t, snap.VolumeCurrent)
	assert.InDelta(t, 1000.0, *snap.VolumeCurrent, 1e-9)
	assert.InDelta(t, 1.0, snap.VolumeRatio, 1e-9)
	assert.Equal(t, domain.VolumeAcceptable, snap.VolumeClassification.Class)
}

func TestComputeIndicators_NoReference(t *testing.T) {
	series := domaintest.Series(t, domaintest.EndingOn(now, 70), domaintest.FromCloses(waveCloses(70, 100), 1000))

	snap := NewMarketAnalyzer(zap.NewNop(), nil).ComputeIndicators(series, domain.CandleSeries{}, now)
	require.NotNil(t, snap)
	assert.Nil(t, snap.Correlation)
	assert.Nil(t, snap.ReferenceTrend)
	assert.Nil(t, snap.ReferenceChange30D)
}

func TestRangePosition(t *testing.T) {
	assert.InDelta(t, 0.0, RangePosition(90, 110, 90), 1e-12)
	assert.InDelta(t, 1.0, RangePosition(110, 110, 90), 1e-12)
	assert.InDelta(t, 0.25, RangePosition(95, 110, 90), 1e-12)
	assert.InDelta(t, 0.5, RangePosition(100, 100, 100), 1e-12)
}
