package indicators

import "math"

const (
	DefaultBollingerPeriod = 20
	DefaultBollingerK      = 2.0
	DefaultATRPeriod       = 14

	// SqueezeThreshold band width, in percent of price, under which a squeeze is active.
	SqueezeThreshold = 10.0
)

// BollingerResult upper, middle and lower bands sharing one offset.
type BollingerResult struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// Bollinger calculates sma ± k·stddev bands.
func Bollinger(closes []float64, period int, k float64) BollingerResult {
	middle := SMA(closes, period)
	sd := RollingStdDev(closes, period)
	if len(middle.Values) == 0 || len(sd.Values) == 0 {
		return BollingerResult{Upper: absent(len(closes)), Middle: absent(len(closes)), Lower: absent(len(closes))}
	}

	upper := make([]float64, len(sd.Values))
	lower := make([]float64, len(sd.Values))
	mid := make([]float64, len(sd.Values))
	for i := range sd.Values {
		m, _ := middle.At(sd.Offset + i)
		mid[i] = m
		upper[i] = m + k*sd.Values[i]
		lower[i] = m - k*sd.Values[i]
	}

	return BollingerResult{
		Upper:  Series{Values: upper, Offset: sd.Offset},
		Middle: Series{Values: mid, Offset: sd.Offset},
		Lower:  Series{Values: lower, Offset: sd.Offset},
	}
}

// Squeeze returns the band width as percent of price and whether it is below SqueezeThreshold.
// A zero price yields (0, false).
func Squeeze(upper, lower, price float64) (ratio float64, active bool) {
	if price == 0 {
		return 0, false
	}
	ratio = (upper - lower) / price * 100
	return ratio, ratio < SqueezeThreshold
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) for every candle.
// The first candle has no previous close and uses high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := minLen(highs, lows, closes)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		tr := highs[i] - lows[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
			tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		}
		out[i] = tr
	}
	return out
}

// ATR calculates the rolling mean of the true range.
func ATR(highs, lows, closes []float64, period int) Series {
	return SMA(TrueRange(highs, lows, closes), period)
}

// ATRPercent returns atr as a percentage of price, 0 for a zero price.
func ATRPercent(atr, price float64) float64 {
	if price == 0 {
		return 0
	}
	return atr / price * 100
}

func minLen(slices ...[]float64) int {
	n := len(slices[0])
	for _, s := range slices[1:] {
		if len(s) < n {
			n = len(s)
		}
	}
	return n
}
