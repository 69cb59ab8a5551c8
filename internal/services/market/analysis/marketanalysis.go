// Package analysis turns a candle series into an indicator snapshot.
package analysis

import (
	"time"

	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/internal/services/market/correlation"
	"github.com/vadiminshakov/riskgate/internal/services/market/divergence"
	"github.com/vadiminshakov/riskgate/internal/services/market/levels"
	"github.com/vadiminshakov/riskgate/internal/services/market/volume"
	"github.com/vadiminshakov/riskgate/pkg/indicators"
	"go.uber.org/zap"
)

const (
	// MinCandles history required to build a snapshot.
	MinCandles = 60

	rangeWindow = 14
)

// MarketAnalyzer computes indicator snapshots.
type MarketAnalyzer struct {
	logger     *zap.Logger
	volume     *volume.Analyzer
	divergence *divergence.Detector
	correlator *correlation.Correlator
}

// NewMarketAnalyzer creates a new MarketAnalyzer instance
func NewMarketAnalyzer(logger *zap.Logger, volumeAnalyzer *volume.Analyzer) *MarketAnalyzer {
	if volumeAnalyzer == nil {
		volumeAnalyzer = volume.NewAnalyzer(logger)
	}
	return &MarketAnalyzer{
		logger:     logger,
		volume:     volumeAnalyzer,
		divergence: divergence.NewDetector(),
		correlator: correlation.NewCorrelator(),
	}
}

// ComputeIndicators builds a snapshot from series keyed by its latest candle.
// It returns nil when fewer than MinCandles candles are present.
// reference may be empty, in which case correlation fields stay absent.
// now is used only to drop today's partial candle from volume statistics.
func (m *MarketAnalyzer) ComputeIndicators(series, reference domain.CandleSeries, now time.Time) *domain.IndicatorSnapshot {
	if series.Len() < MinCandles {
		m.logger.Warn("insufficient data for indicators",
			zap.Int("need", MinCandles),
			zap.Int("have", series.Len()))
		return nil
	}

	last, _ := series.Last()
	closes := series.Closes()
	highs, lows := series.Highs(), series.Lows()
	price := last.Close.InexactFloat64()

	snap := &domain.IndicatorSnapshot{
		Timestamp: last.OpenTime,
		Price:     price,
	}

	m.fillTrend(snap, series, closes)
	m.fillMomentum(snap, closes, highs, lows)
	m.fillVolatility(snap, closes, highs, lows, price)
	m.fillVolume(snap, series, now)
	m.fillLevels(snap, series, price)
	m.fillCorrelation(snap, series, reference)

	m.logger.Debug("indicator snapshot computed",
		zap.Time("timestamp", snap.Timestamp),
		zap.Float64("price", snap.Price),
		zap.Float64("volume_ratio", snap.VolumeRatio),
		zap.String("volume_class", string(snap.VolumeClassification.Class)),
		zap.String("divergence", string(snap.Divergence.Type)))

	return snap
}

func (m *MarketAnalyzer) fillTrend(snap *domain.IndicatorSnapshot, series domain.CandleSeries, closes []float64) {
	snap.EMA20 = ptr(lastOf(indicators.EMA(closes, 20)))
	snap.EMA50 = ptr(lastOf(indicators.EMA(closes, 50)))
	if len(closes) >= 200 {
		snap.EMA200 = ptr(lastOf(indicators.EMA(closes, 200)))
	}

	if high, low, ok := levels.Swing(series, rangeWindow); ok {
		snap.High14D = ptr(high)
		snap.Low14D = ptr(low)
		snap.RangePosition14D = ptr(RangePosition(snap.Price, high, low))
	}
}

func (m *MarketAnalyzer) fillMomentum(snap *domain.IndicatorSnapshot, closes, highs, lows []float64) {
	rsi := indicators.RSI(closes, indicators.DefaultRSIPeriod)
	snap.RSI14 = optional(rsi.Last())

	macd := indicators.MACD(closes, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal)
	if line, signal, hist, ok := macd.Last(); ok {
		snap.MACDLine = ptr(line)
		snap.MACDSignal = ptr(signal)
		snap.MACDHistogram = ptr(hist)
	}

	stoch := indicators.StochRSI(closes, indicators.DefaultStochPeriod, indicators.DefaultStochK, indicators.DefaultStochD)
	snap.StochRSIK = optional(stoch.K.Last())
	snap.StochRSID = optional(stoch.D.Last())

	snap.Divergence = m.divergence.Detect(highs, lows, rsi)
}

func (m *MarketAnalyzer) fillVolatility(snap *domain.IndicatorSnapshot, closes, highs, lows []float64, price float64) {
	bb := indicators.Bollinger(closes, indicators.DefaultBollingerPeriod, indicators.DefaultBollingerK)
	upper, okUpper := bb.Upper.Last()
	lower, okLower := bb.Lower.Last()
	if okUpper && okLower {
		snap.BBUpper = ptr(upper)
		snap.BBLower = ptr(lower)
		snap.BBMiddle = optional(bb.Middle.Last())
		ratio, active := indicators.Squeeze(upper, lower, price)
		snap.BBSqueezeRatio = ptr(ratio)
		snap.BBSqueezeActive = &active
	}

	if atr, ok := indicators.ATR(highs, lows, closes, indicators.DefaultATRPeriod).Last(); ok {
		snap.ATR = ptr(atr)
		snap.ATRPercent = ptr(indicators.ATRPercent(atr, price))
	}
}

func (m *MarketAnalyzer) fillVolume(snap *domain.IndicatorSnapshot, series domain.CandleSeries, now time.Time) {
	v := m.volume.Analyze(series, now)
	snap.VolumeMA20 = v.MA20
	snap.VolumeCurrent = v.Current
	snap.VolumeRatio = v.Ratio
	snap.VolumeClassification = v.Classification
	snap.WeightedBuyPressure = v.WeightedBuyPressure
	snap.DaysSinceSpike = v.DaysSinceSpike
}

func (m *MarketAnalyzer) fillLevels(snap *domain.IndicatorSnapshot, series domain.CandleSeries, price float64) {
	sr := levels.FindSupportResistance(series, price, levels.DefaultWindow)
	snap.Support1, snap.Support2 = sr.Support[0], sr.Support[1]
	snap.Resistance1, snap.Resistance2 = sr.Resistance[0], sr.Resistance[1]

	if high, low, ok := levels.Swing(series, levels.DefaultWindow); ok {
		snap.FibLevels = levels.Fibonacci(high, low)
		snap.Fib382 = ptr(levels.Retracement(high, low, 0.382))
		snap.Fib618 = ptr(levels.Retracement(high, low, 0.618))
	}
	snap.PivotWeekly = optional(levels.WeeklyPivot(series))
	if pivots, ok := levels.PreviousCandlePivots(series); ok {
		snap.Pivots = &pivots
	}
}

func (m *MarketAnalyzer) fillCorrelation(snap *domain.IndicatorSnapshot, series, reference domain.CandleSeries) {
	result, ok := m.correlator.Compare(series, reference)
	if !ok {
		m.logger.Debug("no reference series, skipping correlation")
		return
	}
	snap.Correlation = ptr(result.Correlation)
	snap.ReferenceTrend = &result.Trend
	snap.ReferenceChange30D = ptr(result.ChangePct)
}

// RangePosition locates price within [low, high]: 0 at the low, 1 at the high, 0.5 for an empty range.
func RangePosition(price, high, low float64) float64 {
	r := high - low
	if r <= 0 {
		return 0.5
	}
	return (price - low) / r
}

func ptr[T any](v T) *T {
	return &v
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func lastOf(values []float64) float64 {
	return values[len(values)-1]
}
