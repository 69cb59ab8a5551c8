// Package levels finds support and resistance, Fibonacci retracements and pivot points.
package levels

import (
	"math"
	"sort"

	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/pkg/indicators"
)

const (
	// DefaultWindow trailing candles used for levels and swings.
	DefaultWindow = 30
	// WeeklyWindow candles in a weekly pivot.
	WeeklyWindow  = 7
	maxLevels     = 2

	levelTolerance = 1e-9
)

var (
	highPercentiles = []float64{75, 90, 100}
	lowPercentiles  = []float64{0, 10, 25}
)

// FibonacciRatios standard retracement ratios.
var FibonacciRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// SupportResistance nearest levels on each side of the price, closest first.
// Missing levels are nil.
type SupportResistance struct {
	Support    [maxLevels]*domain.Level
	Resistance [maxLevels]*domain.Level
}

// FindSupportResistance builds candidates from EMA20, EMA50 and high/low percentiles over the
// trailing window and keeps the two nearest levels below and above price.
func FindSupportResistance(series domain.CandleSeries, price float64, window int) SupportResistance {
	var out SupportResistance
	recent := series.Tail(window)
	if recent.Len() == 0 || price <= 0 {
		return out
	}

	closes := recent.Closes()
	candidates := []float64{
		lastEMA(closes, 20),
		lastEMA(closes, 50),
	}
	highs, lows := recent.Highs(), recent.Lows()
	for _, q := range highPercentiles {
		candidates = append(candidates, Percentile(highs, q))
	}
	for _, q := range lowPercentiles {
		candidates = append(candidates, Percentile(lows, q))
	}

	var below, above []float64
	for _, c := range candidates {
		switch {
		case c < price:
			below = append(below, c)
		case c > price:
			above = append(above, c)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(below)))
	sort.Float64s(above)

	for i, lvl := range dedupe(below) {
		if i == maxLevels {
			break
		}
		out.Support[i] = &domain.Level{Price: lvl, Percent: (price - lvl) / price * 100}
	}
	for i, lvl := range dedupe(above) {
		if i == maxLevels {
			break
		}
		out.Resistance[i] = &domain.Level{Price: lvl, Percent: (lvl - price) / price * 100}
	}

	return out
}

// Swing returns the highest high and lowest low of the trailing window.
func Swing(series domain.CandleSeries, window int) (high, low float64, ok bool) {
	recent := series.Tail(window)
	if recent.Len() == 0 {
		return 0, 0, false
	}
	high, low = math.Inf(-1), math.Inf(1)
	for i := 0; i < recent.Len(); i++ {
		c := recent.At(i)
		high = math.Max(high, c.High.InexactFloat64())
		low = math.Min(low, c.Low.InexactFloat64())
	}
	return high, low, true
}

// Fibonacci returns retracement prices for FibonacciRatios, from swing high (ratio 0) to swing low (ratio 1).
func Fibonacci(high, low float64) []float64 {
	diff := high - low
	out := make([]float64, len(FibonacciRatios))
	for i, r := range FibonacciRatios {
		out[i] = high - r*diff
	}
	return out
}

// Retracement returns a single retracement price.
func Retracement(high, low, ratio float64) float64 {
	return high - ratio*(high-low)
}

// Pivots computes floor pivots from the previous period's high, low and close.
func Pivots(high, low, close float64) domain.PivotPoints {
	p := (high + low + close) / 3
	return domain.PivotPoints{
		Pivot: p,
		R1:    2*p - low,
		R2:    p + (high - low),
		S1:    2*p - high,
		S2:    p - (high - low),
	}
}

// PreviousCandlePivots computes pivots from the candle before the latest one.
func PreviousCandlePivots(series domain.CandleSeries) (domain.PivotPoints, bool) {
	if series.Len() < 2 {
		return domain.PivotPoints{}, false
	}
	prev := series.At(series.Len() - 2)
	return Pivots(prev.High.InexactFloat64(), prev.Low.InexactFloat64(), prev.Close.InexactFloat64()), true
}

// WeeklyPivot returns (H + L + C) / 3 over the last WeeklyWindow candles, C being the latest close.
func WeeklyPivot(series domain.CandleSeries) (float64, bool) {
	if series.Len() < WeeklyWindow {
		return 0, false
	}
	high, low, _ := Swing(series, WeeklyWindow)
	last, _ := series.Last()
	return (high + low + last.Close.InexactFloat64()) / 3, true
}

// Percentile returns the q-th percentile (0..100) using linear interpolation between closest ranks.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func lastEMA(values []float64, period int) float64 {
	ema := indicators.EMA(values, period)
	return ema[len(ema)-1]
}

// dedupe drops adjacent values of a sorted slice that are equal within levelTolerance.
func dedupe(sorted []float64) []float64 {
	out := sorted[:0:0]
	for i, v := range sorted {
		if i > 0 && math.Abs(v-sorted[i-1]) <= levelTolerance*math.Abs(sorted[i-1]) {
			continue
		}
		out = append(out, v)
	}
	return out
}
