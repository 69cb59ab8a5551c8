package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

const (
	DefaultRSIPeriod   = 14
	DefaultMACDFast    = 12
	DefaultMACDSlow    = 26
	DefaultMACDSignal  = 9
	DefaultStochPeriod = 14
	DefaultStochK      = 14
	DefaultStochD      = 3
)

// RSI calculates the relative strength index with Wilder smoothing.
// The first value is available at index period. When the average loss is zero RSI is 100.
func RSI(closes []float64, period int) Series {
	if period < 1 || len(closes) < period+1 {
		return absent(len(closes))
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		g, l := change(closes[i-1], closes[i])
		gain += g
		loss += l
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		g, l := change(closes[i-1], closes[i])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}

	return Series{Values: out, Offset: period}
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDResult MACD line, signal line and histogram, one value per input.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// Last returns the most recent line, signal and histogram values.
func (m MACDResult) Last() (line, signal, histogram float64, ok bool) {
	n := len(m.Line)
	if n == 0 {
		return 0, 0, 0, false
	}
	return m.Line[n-1], m.Signal[n-1], m.Histogram[n-1], true
}

// MACD calculates ema(fast) - ema(slow), its signal EMA and the histogram.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if len(closes) == 0 {
		return MACDResult{}
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}

	signalLine := EMA(line, signal)
	histogram := make([]float64, len(closes))
	for i := range closes {
		histogram[i] = line[i] - signalLine[i]
	}

	return MACDResult{Line: line, Signal: signalLine, Histogram: histogram}
}

// StochRSIResult %K and %D lines of the stochastic RSI, both within [0, 100].
type StochRSIResult struct {
	K Series
	D Series
}

// StochRSI calculates the stochastic oscillator applied to RSI.
func StochRSI(closes []float64, period, fastK, fastD int) StochRSIResult {
	lookback := period + (fastK - 1) + (fastD - 1)
	if period < 2 || fastK < 1 || fastD < 1 || len(closes) <= lookback {
		return StochRSIResult{K: absent(len(closes)), D: absent(len(closes))}
	}

	k, d := talib.StochRsi(closes, period, fastK, fastD, talib.SMA)

	return StochRSIResult{
		K: Series{Values: clampPercent(k[lookback:]), Offset: lookback},
		D: Series{Values: clampPercent(d[lookback:]), Offset: lookback},
	}
}

// clampPercent pins values to [0, 100] in place; talib's running sums drift by ~1e-14 at the bounds.
func clampPercent(values []float64) []float64 {
	for i, v := range values {
		values[i] = math.Min(100, math.Max(0, v))
	}
	return values
}
